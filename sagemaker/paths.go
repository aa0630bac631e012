// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

// Package sagemaker implements the SageMaker training-container conventions
// used by the fast-bert entry point: the well-known filesystem layout rooted
// at /opt/ml, and the failure-report contract read by the training-job host.
package sagemaker

import "path/filepath"

// DefaultPrefix is the root of the training-container filesystem layout.
const DefaultPrefix = "/opt/ml"

// TrainingChannel is the name of the input data channel holding the training
// files.
const TrainingChannel = "training"

// Exit codes reported to the training-job host.
const (
	SuccessExitCode = 0
	FailureExitCode = 255
)

// RunPaths holds every filesystem location used during a training run. All
// fields are pure derivations of the root prefix; the value is constructed
// once at process start and never mutated.
type RunPaths struct {
	Prefix string

	// Inputs.
	HyperparametersFile string
	TrainingDir         string
	TrainingConfigFile  string
	FinetunedDir        string
	PretrainedRoot      string

	// Outputs.
	ModelDir    string
	OutputDir   string
	FailureFile string
}

// NewRunPaths derives all run locations from the given root prefix. An empty
// prefix selects DefaultPrefix.
func NewRunPaths(prefix string) RunPaths {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	trainingDir := filepath.Join(prefix, "input", "data", TrainingChannel)
	outputDir := filepath.Join(prefix, "output")
	return RunPaths{
		Prefix:              prefix,
		HyperparametersFile: filepath.Join(prefix, "input", "config", "hyperparameters.json"),
		TrainingDir:         trainingDir,
		TrainingConfigFile:  filepath.Join(trainingDir, "config", "training_config.json"),
		FinetunedDir:        filepath.Join(trainingDir, "finetuned"),
		PretrainedRoot:      filepath.Join(prefix, "code", "pretrained_models"),
		ModelDir:            filepath.Join(prefix, "model"),
		OutputDir:           outputDir,
		FailureFile:         filepath.Join(outputDir, "failure"),
	}
}

// ChannelFile returns the location of a data file inside the training channel.
func (p RunPaths) ChannelFile(name string) string {
	return filepath.Join(p.TrainingDir, name)
}

// PretrainedModelDir returns the directory holding the named pretrained model.
func (p RunPaths) PretrainedModelDir(modelName string) string {
	return filepath.Join(p.PretrainedRoot, modelName)
}

// FinetunedModelDir returns the directory holding the named finetuned weights
// inside the training channel.
func (p RunPaths) FinetunedModelDir(finetunedModel string) string {
	return filepath.Join(p.FinetunedDir, finetunedModel)
}
