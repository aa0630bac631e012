// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

package model

import (
	"math"
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

const testConfigJSON = `{
	"model_type": "bert",
	"vocab_size": 16,
	"hidden_size": 8,
	"num_hidden_layers": 1,
	"num_attention_heads": 2,
	"intermediate_size": 16,
	"hidden_act": "gelu",
	"hidden_dropout_prob": 0.1,
	"attention_probs_dropout_prob": 0.1,
	"max_position_embeddings": 16,
	"layer_norm_eps": 1e-12
}`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(testConfigJSON))
	require.NoError(t, err)
	assert.Equal(t, "bert", cfg.ModelType)
	assert.Equal(t, 16, cfg.VocabSize)
	assert.Equal(t, 8, cfg.HiddenSize)
	assert.Equal(t, 4, cfg.HeadDim())
	assert.Equal(t, []byte(testConfigJSON), cfg.Original())
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"vocab_size": 10, "hidden_size": 4, "num_hidden_layers": 1, "num_attention_heads": 2}`))
	require.NoError(t, err)
	assert.Equal(t, "gelu", cfg.HiddenAct)
	assert.Equal(t, 16, cfg.IntermediateSize)
	assert.Equal(t, 512, cfg.MaxPositionEmbeddings)
	assert.Equal(t, 1e-12, cfg.LayerNormEps)
}

func TestParseConfigErrors(t *testing.T) {
	for name, data := range map[string]string{
		"not json":        `{`,
		"no vocab":        `{"hidden_size": 4, "num_hidden_layers": 1, "num_attention_heads": 2}`,
		"no hidden size":  `{"vocab_size": 10, "num_hidden_layers": 1, "num_attention_heads": 2}`,
		"heads mismatch":  `{"vocab_size": 10, "hidden_size": 5, "num_hidden_layers": 1, "num_attention_heads": 2}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(data))
			require.Error(t, err)
		})
	}
}

func TestClassifierGraph(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	cfg, err := ParseConfig([]byte(testConfigJSON))
	require.NoError(t, err)
	classifier := NewClassifier(cfg, 3, dtypes.Float32)

	ctx := context.New()
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, tokens, mask *Node) *Node {
		return classifier.Graph(ctx, nil, []*Node{tokens, mask})[0]
	})

	tokens := [][]int32{{2, 5, 7, 3, 0, 0}, {2, 9, 3, 0, 0, 0}}
	mask := [][]int32{{1, 1, 1, 1, 0, 0}, {1, 1, 1, 0, 0, 0}}
	results := exec.MustExec(tokens, mask)
	logits := results[0]
	require.Equal(t, []int{2, 3}, logits.Shape().Dimensions)
	require.NoError(t, tensors.ConstFlatData(logits, func(flat []float32) {
		for _, v := range flat {
			assert.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0))
		}
	}))
}

func TestClassifierGraphPaddingInvariance(t *testing.T) {
	// Fully padded trailing positions must not change the logits.
	backend := graphtest.BuildTestBackend()
	cfg, err := ParseConfig([]byte(testConfigJSON))
	require.NoError(t, err)
	classifier := NewClassifier(cfg, 2, dtypes.Float32)

	ctx := context.New()
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, tokens, mask *Node) *Node {
		return classifier.Graph(ctx, nil, []*Node{tokens, mask})[0]
	})

	mask := [][]int32{{1, 1, 1, 0, 0, 0}}
	a := exec.MustExec([][]int32{{2, 5, 3, 0, 0, 0}}, mask)[0]
	b := exec.MustExec([][]int32{{2, 5, 3, 9, 9, 9}}, mask)[0]

	var flatA, flatB []float32
	require.NoError(t, tensors.ConstFlatData(a, func(flat []float32) { flatA = append(flatA, flat...) }))
	require.NoError(t, tensors.ConstFlatData(b, func(flat []float32) { flatB = append(flatB, flat...) }))
	require.Len(t, flatB, len(flatA))
	for i := range flatA {
		assert.InDelta(t, flatA[i], flatB[i], 1e-5)
	}
}
