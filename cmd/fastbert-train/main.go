// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

// fastbert-train is the SageMaker training entry point: it fine-tunes a
// BERT-style text classifier from the configuration and data mounted under
// /opt/ml, saves the model artifacts on success, and writes the failure
// report expected by the training-job host on error.
package main

import (
	"flag"
	"os"

	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"

	"github.com/Cinderellashuang/fast-bert/sagemaker"
	"github.com/Cinderellashuang/fast-bert/trainer"
)

var (
	flagPrefix = flag.String("prefix", sagemaker.DefaultPrefix,
		"Root of the training-container filesystem layout.")
	flagEval = flag.Bool("eval", true,
		"Print an evaluation report on the validation set after training.")
	flagSample = flag.Int("sample", 0,
		"Print this many training examples before training.")
	flagVerbosity = flag.Int("verbosity", 0,
		"Training loop verbosity, < 0 disables the progress bar.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	paths := sagemaker.NewRunPaths(*flagPrefix)
	err := trainer.Run(paths, trainer.Options{
		EvalAtEnd:   *flagEval,
		SampleCount: *flagSample,
		Verbosity:   *flagVerbosity,
	})
	if err != nil {
		sagemaker.WriteFailure(paths, err)
		os.Exit(sagemaker.FailureExitCode)
	}
	os.Exit(sagemaker.SuccessExitCode)
}
