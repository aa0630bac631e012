// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

// Package metrics defines the fixed metric registry used for classification
// training. Metrics are keyed by the names carried in the task-mode metric
// lists: "accuracy" for single-label runs, "accuracy_thresh", "roc_auc" and
// "fbeta" for multi-label runs.
package metrics

import (
	"fmt"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/metrics"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// Metric names accepted by ByName.
const (
	Accuracy       = "accuracy"
	AccuracyThresh = "accuracy_thresh"
	RocAuc         = "roc_auc"
	FBeta          = "fbeta"
)

// Decision threshold applied to sigmoid probabilities by the thresholded
// metrics, and the beta used by FBeta.
const (
	DefaultThreshold = 0.3
	DefaultBeta      = 2.0
)

// Builders is the fixed metric-function registry keyed by name.
var Builders = map[string]func() metrics.Interface{
	Accuracy: func() metrics.Interface {
		return metrics.NewSparseCategoricalAccuracy("Accuracy", "#acc")
	},
	AccuracyThresh: func() metrics.Interface {
		return metrics.NewMeanMetric("Thresholded Accuracy", "#acc", metrics.AccuracyMetricType,
			AccuracyThreshGraph, percentPPrint)
	},
	RocAuc: func() metrics.Interface {
		return metrics.NewMeanMetric("ROC-AUC", "#auc", "auc", RocAucGraph, nil)
	},
	FBeta: func() metrics.Interface {
		return metrics.NewMeanMetric("F-Beta", "#fbeta", "fbeta", FBetaGraph, nil)
	},
}

// ByName returns a fresh metric for the given registry name.
func ByName(name string) (metrics.Interface, error) {
	builder, found := Builders[name]
	if !found {
		return nil, errors.Errorf("unknown metric %q, valid values are %v", name, maps.Keys(Builders))
	}
	return builder(), nil
}

// Weight of new batches in the moving-average training metrics.
const movingAverageWeight = 0.01

// trainingBuilders are the moving-average variants reported during training.
var trainingBuilders = map[string]func() metrics.Interface{
	Accuracy: func() metrics.Interface {
		return metrics.NewMovingAverageSparseCategoricalAccuracy("Moving Accuracy", "~acc", movingAverageWeight)
	},
	AccuracyThresh: func() metrics.Interface {
		return metrics.NewExponentialMovingAverageMetric("Moving Thresholded Accuracy", "~acc",
			metrics.AccuracyMetricType, AccuracyThreshGraph, percentPPrint, movingAverageWeight)
	},
	RocAuc: func() metrics.Interface {
		return metrics.NewExponentialMovingAverageMetric("Moving ROC-AUC", "~auc", "auc",
			RocAucGraph, nil, movingAverageWeight)
	},
	FBeta: func() metrics.Interface {
		return metrics.NewExponentialMovingAverageMetric("Moving F-Beta", "~fbeta", "fbeta",
			FBetaGraph, nil, movingAverageWeight)
	},
}

// TrainingForNames builds the moving-average variant of each named metric,
// reported on training batches.
func TrainingForNames(names []string) ([]metrics.Interface, error) {
	built := make([]metrics.Interface, 0, len(names))
	for _, name := range names {
		builder, found := trainingBuilders[name]
		if !found {
			return nil, errors.Errorf("unknown metric %q, valid values are %v", name, maps.Keys(Builders))
		}
		built = append(built, builder())
	}
	return built, nil
}

// ForNames builds one metric per name, in order.
func ForNames(names []string) ([]metrics.Interface, error) {
	built := make([]metrics.Interface, 0, len(names))
	for _, name := range names {
		metric, err := ByName(name)
		if err != nil {
			return nil, err
		}
		built = append(built, metric)
	}
	return built, nil
}

func percentPPrint(value *tensors.Tensor) string {
	return fmt.Sprintf("%.2f%%", shapes.ConvertTo[float64](value.Value())*100.0)
}

// AccuracyThreshGraph is the element-wise accuracy of
// `sigmoid(logits) > threshold` against multi-hot labels. Labels and logits
// must have the same total size; labels are converted to the logits dtype.
func AccuracyThreshGraph(_ *context.Context, labels, logits []*Node) *Node {
	predicted, labels0 := thresholdedPredictions(labels, logits)
	correct := ConvertDType(Equal(predicted, labels0), predicted.DType())
	return ReduceAllMean(correct)
}

// RocAucGraph is the batch ROC-AUC, micro-averaged over all label columns: the
// probability that a randomly chosen positive scores higher than a randomly
// chosen negative, with ties counting half. Computed over all
// positive/negative pairs of the batch.
func RocAucGraph(_ *context.Context, labels, logits []*Node) *Node {
	logits0 := logits[0]
	g := logits0.Graph()
	dtype := logits0.DType()

	n := logits0.Shape().Size()
	scores := Reshape(Sigmoid(logits0), n)
	positive := Reshape(ConvertDType(labels[0], dtype), n)
	negative := OneMinus(positive)

	// scoreDiff[i,j] compares scores[i] (candidate positive) against
	// scores[j] (candidate negative).
	left := InsertAxes(scores, -1)
	right := InsertAxes(scores, 0)
	wins := ConvertDType(GreaterThan(left, right), dtype)
	ties := ConvertDType(Equal(left, right), dtype)
	ranked := Add(wins, MulScalar(ties, 0.5))

	// Pair weight: 1 where i is a positive and j is a negative.
	pairs := Mul(InsertAxes(positive, -1), InsertAxes(negative, 0))

	numPairs := ReduceAllSum(pairs)
	numPairs = Max(numPairs, Const(g, shapes.CastAsDType(1, dtype)))
	return Div(ReduceAllSum(Mul(ranked, pairs)), numPairs)
}

// FBetaGraph is the micro-averaged F-beta (beta=2) of the thresholded
// predictions against multi-hot labels.
func FBetaGraph(_ *context.Context, labels, logits []*Node) *Node {
	predicted, labels0 := thresholdedPredictions(labels, logits)
	g := predicted.Graph()
	dtype := predicted.DType()
	epsilon := Const(g, shapes.CastAsDType(1e-8, dtype))

	truePositives := ReduceAllSum(Mul(predicted, labels0))
	predictedPositives := ReduceAllSum(predicted)
	actualPositives := ReduceAllSum(labels0)

	precision := Div(truePositives, Add(predictedPositives, epsilon))
	recall := Div(truePositives, Add(actualPositives, epsilon))

	beta2 := DefaultBeta * DefaultBeta
	numerator := MulScalar(Mul(precision, recall), 1+beta2)
	denominator := Add(Add(MulScalar(precision, beta2), recall), epsilon)
	return Div(numerator, denominator)
}

// thresholdedPredictions converts logits to {0, 1} predictions at
// DefaultThreshold and reshapes labels to match, converted to the same dtype.
func thresholdedPredictions(labels, logits []*Node) (predicted, labels0 *Node) {
	logits0 := logits[0]
	g := logits0.Graph()
	dtype := logits0.DType()

	labels0 = ConvertDType(labels[0], dtype)
	if !labels0.Shape().Equal(logits0.Shape()) {
		labels0 = Reshape(labels0, logits0.Shape().Dimensions...)
	}
	threshold := Const(g, shapes.CastAsDType(DefaultThreshold, dtype))
	predicted = ConvertDType(GreaterThan(Sigmoid(logits0), threshold), dtype)
	return predicted, labels0
}
