// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

// metricExec compiles a metric graph function into something callable with
// plain label/logit slices.
func metricExec(t *testing.T, metricFn func(ctx *context.Context, labels, logits []*Node) *Node) func(labels, logits []float32) float32 {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, labels, logits *Node) *Node {
		return metricFn(ctx, []*Node{labels}, []*Node{logits})
	})
	return func(labels, logits []float32) float32 {
		results := exec.MustExec(labels, logits)
		return results[0].Value().(float32)
	}
}

func TestAccuracyThreshGraph(t *testing.T) {
	exec := metricExec(t, AccuracyThreshGraph)

	// sigmoid(2)≈0.88 and sigmoid(0)=0.5 are above the 0.3 threshold,
	// sigmoid(-2)≈0.12 is below.
	got := exec([]float32{1, 0, 1, 0}, []float32{2, -2, -2, 2})
	assert.InDelta(t, 0.5, got, 1e-6)

	got = exec([]float32{1, 1, 0, 0}, []float32{2, 0, -2, -2})
	assert.InDelta(t, 1.0, got, 1e-6)
}

func TestRocAucGraph(t *testing.T) {
	exec := metricExec(t, RocAucGraph)

	// Every positive scores above every negative.
	got := exec([]float32{1, 0, 1, 0}, []float32{2, -1, 1, -2})
	assert.InDelta(t, 1.0, got, 1e-6)

	// The single positive scores below the single negative.
	got = exec([]float32{1, 0}, []float32{-1, 1})
	assert.InDelta(t, 0.0, got, 1e-6)

	// Ties count half.
	got = exec([]float32{1, 0}, []float32{0.5, 0.5})
	assert.InDelta(t, 0.5, got, 1e-6)
}

func TestFBetaGraph(t *testing.T) {
	exec := metricExec(t, FBetaGraph)

	// Predicted [1,0,1,1]: TP=2, precision=2/3, recall=1.
	// F2 = 5*p*r / (4p + r) = 10/11.
	got := exec([]float32{1, 0, 1, 0}, []float32{2, -2, 2, 2})
	assert.InDelta(t, 10.0/11.0, got, 1e-3)

	// Perfect predictions.
	got = exec([]float32{1, 0, 1}, []float32{2, -2, 2})
	assert.InDelta(t, 1.0, got, 1e-3)
}

func TestByName(t *testing.T) {
	for _, name := range []string{Accuracy, AccuracyThresh, RocAuc, FBeta} {
		metric, err := ByName(name)
		require.NoError(t, err)
		require.NotNil(t, metric)
	}

	_, err := ByName("mcc")
	require.ErrorContains(t, err, "unknown metric")
	require.ErrorContains(t, err, "mcc")
}

func TestForNames(t *testing.T) {
	built, err := ForNames([]string{AccuracyThresh, RocAuc, FBeta})
	require.NoError(t, err)
	require.Len(t, built, 3)
	assert.Equal(t, "Thresholded Accuracy", built[0].Name())
	assert.Equal(t, "ROC-AUC", built[1].Name())
	assert.Equal(t, "F-Beta", built[2].Name())

	_, err = ForNames([]string{Accuracy, "nope"})
	require.Error(t, err)
}
