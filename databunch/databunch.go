// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

// Package databunch turns the CSV files of the training channel into batched
// in-memory datasets ready for the trainer: tokenized texts as model inputs
// and either class indices (single-label) or multi-hot vectors (multi-label)
// as labels.
package databunch

import (
	"bufio"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-gota/gota/dataframe"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/Cinderellashuang/fast-bert/config"
	"github.com/Cinderellashuang/fast-bert/tokenizer"
)

// Bunch holds the label vocabulary and the batched train and eval datasets.
type Bunch struct {
	// Labels is the label vocabulary, in label-file order. Its length is
	// the width of the classification head.
	Labels []string

	// Train yields shuffled training batches, Eval sequential evaluation
	// batches. Both yield inputs [tokens, mask] and one labels tensor.
	Train train.Dataset
	Eval  train.Dataset

	NumTrainExamples int
	NumEvalExamples  int
}

// New loads the label file and the train/validation CSVs from dataDir and
// builds the datasets. fanOut wraps the training dataset with a parallel
// prefetcher.
func New(backend backends.Backend, dataDir string, cfg *config.TrainingConfig,
	hp *config.Hyperparameters, tok *tokenizer.WordPiece, fanOut bool) (*Bunch, error) {
	labels, err := ReadLabels(filepath.Join(dataDir, cfg.LabelFile))
	if err != nil {
		return nil, err
	}
	mode := cfg.Mode()
	var labelCols []string
	if mode == config.MultiLabel {
		labelCols, err = cfg.LabelColumns()
		if err != nil {
			return nil, err
		}
		if len(labelCols) != len(labels) {
			return nil, errors.Errorf("label file lists %d labels but label_col names %d columns",
				len(labels), len(labelCols))
		}
		for _, label := range labels {
			if !slices.Contains(labelCols, label) {
				return nil, errors.Errorf("label %q from the label file is not among the label_col columns %v",
					label, labelCols)
			}
		}
	}

	bunch := &Bunch{Labels: labels}
	trainDS, numTrain, err := loadSplit(backend, "train", filepath.Join(dataDir, cfg.TrainFile),
		cfg, hp, tok, labels, mode)
	if err != nil {
		return nil, err
	}
	evalDS, numEval, err := loadSplit(backend, "eval", filepath.Join(dataDir, cfg.ValFile),
		cfg, hp, tok, labels, mode)
	if err != nil {
		return nil, err
	}
	bunch.NumTrainExamples, bunch.NumEvalExamples = numTrain, numEval

	bunch.Train = trainDS.BatchSize(hp.TrainBatchSize, true).Shuffle()
	if fanOut {
		bunch.Train = datasets.Parallel(bunch.Train)
	}
	bunch.Eval = evalDS.BatchSize(hp.TrainBatchSize, false)
	return bunch, nil
}

// ReadLabels reads the label vocabulary, one label per line, order preserved.
func ReadLabels(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open label file %q", path)
	}
	defer func() { _ = file.Close() }()
	var labels []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		label := strings.TrimSpace(scanner.Text())
		if label != "" {
			labels = append(labels, label)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read label file %q", path)
	}
	if len(labels) == 0 {
		return nil, errors.Errorf("label file %q is empty", path)
	}
	return labels, nil
}

func loadSplit(backend backends.Backend, name, path string, cfg *config.TrainingConfig,
	hp *config.Hyperparameters, tok *tokenizer.WordPiece, labels []string,
	mode config.TaskMode) (*datasets.InMemoryDataset, int, error) {
	df, err := readCSV(path)
	if err != nil {
		return nil, 0, err
	}
	texts, err := column(df, path, cfg.TextCol)
	if err != nil {
		return nil, 0, err
	}

	numExamples := len(texts)
	tokens := make([][]int32, numExamples)
	masks := make([][]int32, numExamples)
	for i, text := range texts {
		tokens[i], masks[i] = tok.Encode(text, hp.MaxSeqLength)
	}

	var labelData any
	switch mode {
	case config.SingleLabel:
		labelData, err = classIndices(df, path, cfg.LabelCol, labels)
	case config.MultiLabel:
		labelData, err = multiHot(df, path, labels)
	}
	if err != nil {
		return nil, 0, err
	}

	mds, err := datasets.InMemoryFromData(backend, name,
		[]any{tokens, masks}, []any{labelData})
	if err != nil {
		return nil, 0, errors.WithMessagef(err, "failed to build %s dataset from %q", name, path)
	}
	klog.Infof("Loaded %d %s examples from %q (%s in memory)",
		numExamples, name, path, humanize.Bytes(uint64(mds.Memory())))
	return mds, numExamples, nil
}

func readCSV(path string) (dataframe.DataFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(err, "failed to open data file %q", path)
	}
	defer func() { _ = file.Close() }()
	df := dataframe.ReadCSV(file, dataframe.HasHeader(true))
	if df.Error() != nil {
		return dataframe.DataFrame{}, errors.Wrapf(df.Error(), "failed to parse CSV file %q", path)
	}
	return df, nil
}

func column(df dataframe.DataFrame, path, name string) ([]string, error) {
	if !slices.Contains(df.Names(), name) {
		return nil, errors.Errorf("data file %q has no column %q, found %v", path, name, df.Names())
	}
	return df.Col(name).Records(), nil
}

// classIndices maps the label column of a single-label CSV to indices in the
// label vocabulary.
func classIndices(df dataframe.DataFrame, path, labelCol string, labels []string) ([][]int32, error) {
	values, err := column(df, path, labelCol)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int32, len(labels))
	for i, label := range labels {
		index[label] = int32(i)
	}
	indices := make([][]int32, len(values))
	for row, value := range values {
		idx, found := index[strings.TrimSpace(value)]
		if !found {
			return nil, errors.Errorf("row %d of %q has label %q not present in the label file", row, path, value)
		}
		indices[row] = []int32{idx}
	}
	return indices, nil
}

// multiHot builds [numExamples, numLabels] float32 vectors from the per-label
// columns of a multi-label CSV, in label vocabulary order.
func multiHot(df dataframe.DataFrame, path string, labels []string) ([][]float32, error) {
	columns := make([][]string, len(labels))
	for i, label := range labels {
		values, err := column(df, path, label)
		if err != nil {
			return nil, err
		}
		columns[i] = values
	}
	numExamples := len(columns[0])
	vectors := make([][]float32, numExamples)
	for row := range numExamples {
		vector := make([]float32, len(labels))
		for i := range labels {
			value := strings.TrimSpace(columns[i][row])
			switch value {
			case "0", "0.0", "false", "False", "":
				// negative
			case "1", "1.0", "true", "True":
				vector[i] = 1
			default:
				return nil, errors.Errorf("row %d of %q has non-binary value %q in label column %q",
					row, path, value, labels[i])
			}
		}
		vectors[row] = vector
	}
	return vectors, nil
}
