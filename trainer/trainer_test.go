// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

package trainer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"

	"github.com/Cinderellashuang/fast-bert/sagemaker"
)

const testVocab = "[PAD]\n[UNK]\n[CLS]\n[SEP]\nthe\nmovie\nwas\ngreat\n##ly\nbad\n!\nun\n##bear\n##able\n"

const testModelConfig = `{
	"model_type": "bert",
	"vocab_size": 14,
	"hidden_size": 8,
	"num_hidden_layers": 1,
	"num_attention_heads": 2,
	"intermediate_size": 16,
	"hidden_act": "gelu",
	"hidden_dropout_prob": 0.0,
	"attention_probs_dropout_prob": 0.0,
	"max_position_embeddings": 16,
	"layer_norm_eps": 1e-12
}`

const testTrainingConfig = `{
	"model_name": "tiny-test-model",
	"multi_label": false,
	"label_col": "label",
	"text_col": "text",
	"train_file": "train.csv",
	"val_file": "val.csv",
	"label_file": "labels.csv"
}`

// Hyperparameter values stringified, as the training-job host serializes them.
const testHyperparameters = `{
	"train_batch_size": "2",
	"max_seq_length": "8",
	"epochs": "1",
	"lr": "0.001",
	"optimizer_type": "adamw",
	"lr_schedule": "warmup_cosine"
}`

func layoutFixture(t *testing.T) sagemaker.RunPaths {
	t.Helper()
	paths := sagemaker.NewRunPaths(t.TempDir())
	files := map[string]string{
		paths.HyperparametersFile: testHyperparameters,
		paths.TrainingConfigFile:  testTrainingConfig,
		paths.ChannelFile("labels.csv"): "great\nbad\n",
		paths.ChannelFile("train.csv"): "text,label\n" +
			"the movie was great,great\n" +
			"the movie was bad,bad\n" +
			"bad !,bad\n" +
			"greatly great,great\n",
		paths.ChannelFile("val.csv"): "text,label\n" +
			"was great,great\n" +
			"was bad,bad\n",
		filepath.Join(paths.PretrainedModelDir("tiny-test-model"), "config.json"): testModelConfig,
		filepath.Join(paths.PretrainedModelDir("tiny-test-model"), "vocab.txt"):  testVocab,
	}
	for path, contents := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	}
	return paths
}

func TestRun(t *testing.T) {
	paths := layoutFixture(t)
	require.NoError(t, Run(paths, Options{Verbosity: -1}))

	// Weights checkpoint.
	entries, err := os.ReadDir(paths.ModelDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	// Config echo.
	echo, err := os.ReadFile(filepath.Join(paths.ModelDir, ModelConfigFile))
	require.NoError(t, err)
	assert.Equal(t, testTrainingConfig, string(echo))

	// Label list.
	labels, err := os.ReadFile(filepath.Join(paths.ModelDir, LabelsFile))
	require.NoError(t, err)
	assert.Equal(t, "great\nbad\n", string(labels))

	// No failure report on success.
	_, err = os.Stat(paths.FailureFile)
	assert.True(t, os.IsNotExist(err))
}

func TestRunRenamedLabelFile(t *testing.T) {
	// The saved label list keeps the fixed artifact name even when the
	// input label file is called something else.
	paths := layoutFixture(t)
	cfg := `{
		"model_name": "tiny-test-model",
		"multi_label": false,
		"label_col": "label",
		"text_col": "text",
		"train_file": "train.csv",
		"val_file": "val.csv",
		"label_file": "classes.txt"
	}`
	require.NoError(t, os.WriteFile(paths.TrainingConfigFile, []byte(cfg), 0644))
	require.NoError(t, os.Rename(paths.ChannelFile("labels.csv"), paths.ChannelFile("classes.txt")))

	require.NoError(t, Run(paths, Options{Verbosity: -1}))

	labels, err := os.ReadFile(filepath.Join(paths.ModelDir, LabelsFile))
	require.NoError(t, err)
	assert.Equal(t, "great\nbad\n", string(labels))
	_, err = os.Stat(filepath.Join(paths.ModelDir, "classes.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunWithEvalAndSamples(t *testing.T) {
	paths := layoutFixture(t)
	require.NoError(t, Run(paths, Options{Verbosity: -1, EvalAtEnd: true, SampleCount: 2}))
}

func TestRunMissingTrainingConfig(t *testing.T) {
	paths := layoutFixture(t)
	require.NoError(t, os.Remove(paths.TrainingConfigFile))

	err := Run(paths, Options{Verbosity: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `training step "load configuration"`)
}

func TestRunMissingDataFile(t *testing.T) {
	paths := layoutFixture(t)
	require.NoError(t, os.Remove(paths.ChannelFile("train.csv")))

	err := Run(paths, Options{Verbosity: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `training step "build databunch"`)
}

func TestRunMissingFinetunedModel(t *testing.T) {
	paths := layoutFixture(t)
	cfg := `{
		"model_name": "tiny-test-model",
		"multi_label": false,
		"label_col": "label",
		"text_col": "text",
		"train_file": "train.csv",
		"val_file": "val.csv",
		"label_file": "labels.csv",
		"finetuned_model": "absent"
	}`
	require.NoError(t, os.WriteFile(paths.TrainingConfigFile, []byte(cfg), 0644))

	err := Run(paths, Options{Verbosity: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `training step "resolve model sources"`)
	assert.Contains(t, err.Error(), "absent")
}
