// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

// Package config loads the two configuration files of a training run: the
// training config and the hyperparameters. Each is read exactly once per run
// from its fixed location and is immutable afterwards.
//
// The training-job host serializes hyperparameter values as strings, so every
// numeric or boolean field accepts both its natural JSON type and the
// stringified form.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// TrainingConfig describes the classification task: model source, task mode,
// data files and column names, plus the training switches that are not tuned
// per run.
type TrainingConfig struct {
	ModelName             string
	MultiLabel            bool
	LabelCol              string
	TextCol               string
	TrainFile             string
	ValFile               string
	LabelFile             string
	ModelType             string
	FP16                  bool
	FP16OptLevel          string
	GradAccumulationSteps int
	LoggingSteps          int

	// FinetunedModel is optional: when empty the run starts from the
	// pretrained weights only.
	FinetunedModel string

	raw []byte
}

// Original returns the file contents the config was decoded from, used to echo
// the configuration into the model artifacts unchanged.
func (c *TrainingConfig) Original() []byte { return c.raw }

// Hyperparameters are the per-run tunables passed by the training-job host.
type Hyperparameters struct {
	TrainBatchSize int
	MaxSeqLength   int
	WarmupSteps    int
	Epochs         int
	LearningRate   float64
	LRSchedule     string
	OptimizerType  string
}

// Defaults applied when the corresponding hyperparameter is absent.
const (
	DefaultLRSchedule    = "warmup_cosine"
	DefaultOptimizerType = "lamb"
)

// LoadTrainingConfig reads and decodes the training config from path.
func LoadTrainingConfig(path string) (*TrainingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading training config %q", path)
	}
	cfg, err := ParseTrainingConfig(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "parsing training config %q", path)
	}
	return cfg, nil
}

// ParseTrainingConfig decodes a training config from its JSON serialization.
func ParseTrainingConfig(data []byte) (*TrainingConfig, error) {
	p, err := newFieldParser(data)
	if err != nil {
		return nil, err
	}
	cfg := &TrainingConfig{
		ModelName:             p.str("model_name"),
		MultiLabel:            p.boolOr("multi_label", false),
		LabelCol:              p.str("label_col"),
		TextCol:               p.str("text_col"),
		TrainFile:             p.str("train_file"),
		ValFile:               p.str("val_file"),
		LabelFile:             p.str("label_file"),
		ModelType:             p.str("model_type"),
		FP16:                  p.boolOr("fp16", false),
		FP16OptLevel:          p.str("fp16_opt_level"),
		GradAccumulationSteps: p.intOr("grad_accumulation_steps", 1),
		LoggingSteps:          p.intOr("logging_steps", 0),
		FinetunedModel:        p.str("finetuned_model"),
		raw:                   data,
	}
	if p.err != nil {
		return nil, p.err
	}
	var missing []string
	for _, required := range []struct{ name, value string }{
		{"model_name", cfg.ModelName},
		{"label_col", cfg.LabelCol},
		{"text_col", cfg.TextCol},
		{"train_file", cfg.TrainFile},
		{"val_file", cfg.ValFile},
		{"label_file", cfg.LabelFile},
	} {
		if required.value == "" {
			missing = append(missing, required.name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("training config is missing required fields %v", missing)
	}
	if cfg.GradAccumulationSteps < 1 {
		return nil, errors.Errorf("grad_accumulation_steps must be >= 1, got %d", cfg.GradAccumulationSteps)
	}
	return cfg, nil
}

// LoadHyperparameters reads and decodes the hyperparameters from path.
func LoadHyperparameters(path string) (*Hyperparameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading hyperparameters %q", path)
	}
	hp, err := ParseHyperparameters(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "parsing hyperparameters %q", path)
	}
	return hp, nil
}

// ParseHyperparameters decodes hyperparameters from their JSON serialization.
func ParseHyperparameters(data []byte) (*Hyperparameters, error) {
	p, err := newFieldParser(data)
	if err != nil {
		return nil, err
	}
	hp := &Hyperparameters{
		TrainBatchSize: p.intOr("train_batch_size", 0),
		MaxSeqLength:   p.intOr("max_seq_length", 0),
		WarmupSteps:    p.intOr("warmup_steps", 0),
		Epochs:         p.intOr("epochs", 0),
		LearningRate:   p.floatOr("lr", 0),
		LRSchedule:     p.strOr("lr_schedule", DefaultLRSchedule),
		OptimizerType:  p.strOr("optimizer_type", DefaultOptimizerType),
	}
	if p.err != nil {
		return nil, p.err
	}
	if hp.TrainBatchSize <= 0 {
		return nil, errors.Errorf("train_batch_size must be > 0, got %d", hp.TrainBatchSize)
	}
	// Sequences carry [CLS] and [SEP] plus at least one text token.
	if hp.MaxSeqLength < 3 {
		return nil, errors.Errorf("max_seq_length must be >= 3, got %d", hp.MaxSeqLength)
	}
	if hp.Epochs <= 0 {
		return nil, errors.Errorf("epochs must be > 0, got %d", hp.Epochs)
	}
	if hp.LearningRate <= 0 {
		return nil, errors.Errorf("lr must be > 0, got %g", hp.LearningRate)
	}
	if hp.WarmupSteps < 0 {
		return nil, errors.Errorf("warmup_steps must be >= 0, got %d", hp.WarmupSteps)
	}
	return hp, nil
}

// fieldParser decodes individual JSON fields accepting both their natural type
// and the stringified form. The first error found is kept, and parsing
// continues so the caller handles errors in one place.
type fieldParser struct {
	fields map[string]json.RawMessage
	err    error
}

func newFieldParser(data []byte) (*fieldParser, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Wrap(err, "malformed JSON")
	}
	return &fieldParser{fields: fields}, nil
}

func (p *fieldParser) setError(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *fieldParser) str(key string) string {
	return p.strOr(key, "")
}

func (p *fieldParser) strOr(key, defaultValue string) string {
	raw, found := p.fields[key]
	if !found {
		return defaultValue
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		p.setError(errors.Errorf("field %q: cannot decode %s as a string", key, raw))
		return defaultValue
	}
	return s
}

func (p *fieldParser) boolOr(key string, defaultValue bool) bool {
	raw, found := p.fields[key]
	if !found {
		return defaultValue
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if b, err := strconv.ParseBool(strings.ToLower(s)); err == nil {
			return b
		}
	}
	p.setError(errors.Errorf("field %q: cannot decode %s as a bool", key, raw))
	return defaultValue
}

func (p *fieldParser) intOr(key string, defaultValue int) int {
	raw, found := p.fields[key]
	if !found {
		return defaultValue
	}
	var i int
	if err := json.Unmarshal(raw, &i); err == nil {
		return i
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i
		}
	}
	p.setError(errors.Errorf("field %q: cannot decode %s as an int", key, raw))
	return defaultValue
}

func (p *fieldParser) floatOr(key string, defaultValue float64) float64 {
	raw, found := p.fields[key]
	if !found {
		return defaultValue
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	p.setError(errors.Errorf("field %q: cannot decode %s as a float", key, raw))
	return defaultValue
}
