// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

package databunch

import (
	"path/filepath"
	"strings"

	"github.com/Cinderellashuang/fast-bert/config"
)

// Example is one training row, with its labels resolved to names.
type Example struct {
	Text   string
	Labels []string
}

// LoadExamples reads up to n rows from the training CSV, for inspection and
// sample printing. It does not tokenize.
func LoadExamples(dataDir string, cfg *config.TrainingConfig, n int) ([]Example, error) {
	labels, err := ReadLabels(filepath.Join(dataDir, cfg.LabelFile))
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dataDir, cfg.TrainFile)
	df, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	texts, err := column(df, path, cfg.TextCol)
	if err != nil {
		return nil, err
	}
	if n > len(texts) {
		n = len(texts)
	}

	examples := make([]Example, n)
	switch cfg.Mode() {
	case config.SingleLabel:
		values, err := column(df, path, cfg.LabelCol)
		if err != nil {
			return nil, err
		}
		for i := range examples {
			examples[i] = Example{Text: texts[i], Labels: []string{strings.TrimSpace(values[i])}}
		}
	case config.MultiLabel:
		vectors, err := multiHot(df, path, labels)
		if err != nil {
			return nil, err
		}
		for i := range examples {
			var active []string
			for j, label := range labels {
				if vectors[i][j] != 0 {
					active = append(active, label)
				}
			}
			examples[i] = Example{Text: texts[i], Labels: active}
		}
	}
	return examples, nil
}
