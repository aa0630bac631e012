// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// TaskMode selects between single-label and multi-label classification. The
// mode determines the shape of the label columns, the loss and the metric set,
// and is resolved once from the training config and threaded through
// construction.
type TaskMode int

const (
	SingleLabel TaskMode = iota
	MultiLabel
)

// String implements fmt.Stringer.
func (m TaskMode) String() string {
	if m == MultiLabel {
		return "multi-label"
	}
	return "single-label"
}

// Mode returns the task mode declared by the training config.
func (c *TrainingConfig) Mode() TaskMode {
	if c.MultiLabel {
		return MultiLabel
	}
	return SingleLabel
}

// LabelColumns resolves the label_col field according to the task mode:
// multi-label runs declare a JSON-encoded list of column names, single-label
// runs a single column name.
func (c *TrainingConfig) LabelColumns() ([]string, error) {
	if c.Mode() == SingleLabel {
		return []string{c.LabelCol}, nil
	}
	var columns []string
	if err := json.Unmarshal([]byte(c.LabelCol), &columns); err != nil {
		return nil, errors.Wrapf(err, "multi-label label_col must be a JSON list of column names, got %q", c.LabelCol)
	}
	if len(columns) == 0 {
		return nil, errors.Errorf("multi-label label_col %q resolves to no columns", c.LabelCol)
	}
	return columns, nil
}

// MetricNames returns the fixed metric set of the task mode: accuracy for
// single-label runs; thresholded accuracy, ROC-AUC and F-beta, in that order,
// for multi-label runs.
func (m TaskMode) MetricNames() []string {
	if m == MultiLabel {
		return []string{"accuracy_thresh", "roc_auc", "fbeta"}
	}
	return []string{"accuracy"}
}
