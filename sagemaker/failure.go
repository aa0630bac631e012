// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

package sagemaker

import (
	"fmt"
	"os"

	"k8s.io/klog/v2"
)

// FailureReport formats err the way the training-job host expects it in the
// failure file: the message followed by the full stack trace. Errors created
// or wrapped with github.com/pkg/errors carry the trace, printed with %+v.
func FailureReport(err error) string {
	return fmt.Sprintf("Exception during training: %v\n%+v", err, err)
}

// WriteFailure records err in the failure file read by the training-job host
// and echoes the same report to stderr. Errors while writing the report itself
// are logged and otherwise ignored: at this point the run has already failed.
func WriteFailure(paths RunPaths, err error) {
	report := FailureReport(err)
	fmt.Fprintln(os.Stderr, report)
	if mkErr := os.MkdirAll(paths.OutputDir, 0777); mkErr != nil {
		klog.Errorf("Failed to create output directory %q: %v", paths.OutputDir, mkErr)
		return
	}
	if writeErr := os.WriteFile(paths.FailureFile, []byte(report), 0644); writeErr != nil {
		klog.Errorf("Failed to write failure file %q: %v", paths.FailureFile, writeErr)
	}
}
