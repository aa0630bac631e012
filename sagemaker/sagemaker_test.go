// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

package sagemaker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunPaths(t *testing.T) {
	p := NewRunPaths("/opt/ml")
	assert.Equal(t, "/opt/ml/input/config/hyperparameters.json", p.HyperparametersFile)
	assert.Equal(t, "/opt/ml/input/data/training", p.TrainingDir)
	assert.Equal(t, "/opt/ml/input/data/training/config/training_config.json", p.TrainingConfigFile)
	assert.Equal(t, "/opt/ml/input/data/training/finetuned", p.FinetunedDir)
	assert.Equal(t, "/opt/ml/code/pretrained_models", p.PretrainedRoot)
	assert.Equal(t, "/opt/ml/model", p.ModelDir)
	assert.Equal(t, "/opt/ml/output/failure", p.FailureFile)

	assert.Equal(t, "/opt/ml/input/data/training/train.csv", p.ChannelFile("train.csv"))
	assert.Equal(t, "/opt/ml/code/pretrained_models/bert-base-uncased", p.PretrainedModelDir("bert-base-uncased"))
	assert.Equal(t, "/opt/ml/input/data/training/finetuned/pytorch_model.bin", p.FinetunedModelDir("pytorch_model.bin"))

	// Empty prefix selects the default.
	assert.Equal(t, NewRunPaths(DefaultPrefix), NewRunPaths(""))
}

func TestWriteFailure(t *testing.T) {
	paths := NewRunPaths(t.TempDir())
	WriteFailure(paths, errors.New("tokenizer exploded"))

	data, err := os.ReadFile(paths.FailureFile)
	require.NoError(t, err)
	report := string(data)
	assert.Contains(t, report, "Exception during training: tokenizer exploded")
	// The pkg/errors stack trace names this test function.
	assert.Contains(t, report, "TestWriteFailure")
}

func TestWriteFailureCreatesOutputDir(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "deep", "prefix")
	paths := NewRunPaths(prefix)
	WriteFailure(paths, errors.New("boom"))
	_, err := os.Stat(paths.FailureFile)
	require.NoError(t, err)
}
