// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

// Package model builds the transformer classifier fine-tuned by the training
// entry point. The architecture is read from the pretrained model's
// config.json and the classification head is sized from the label list.
package model

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ConfigFile is the architecture description shipped with every pretrained
// model directory.
const ConfigFile = "config.json"

// Config mirrors the config.json of BERT-family pretrained models. Only the
// fields driving the graph are parsed; the raw bytes are kept so the file can
// be echoed verbatim into the output artifacts.
type Config struct {
	ModelType             string  `json:"model_type"`
	VocabSize             int     `json:"vocab_size"`
	HiddenSize            int     `json:"hidden_size"`
	NumHiddenLayers       int     `json:"num_hidden_layers"`
	NumAttentionHeads     int     `json:"num_attention_heads"`
	IntermediateSize      int     `json:"intermediate_size"`
	HiddenAct             string  `json:"hidden_act"`
	HiddenDropoutProb     float64 `json:"hidden_dropout_prob"`
	AttentionDropoutProb  float64 `json:"attention_probs_dropout_prob"`
	MaxPositionEmbeddings int     `json:"max_position_embeddings"`
	LayerNormEps          float64 `json:"layer_norm_eps"`

	raw []byte
}

// LoadConfig reads and validates <modelDir>/config.json.
func LoadConfig(modelDir string) (*Config, error) {
	path := filepath.Join(modelDir, ConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read model config from %q", path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid model config in %q", path)
	}
	return cfg, nil
}

// ParseConfig decodes a config.json document and fills in defaults for
// optional fields.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{
		HiddenAct:    "gelu",
		LayerNormEps: 1e-12,
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", ConfigFile)
	}
	cfg.raw = data
	if cfg.VocabSize <= 0 {
		return nil, errors.Errorf("%s: vocab_size must be positive, got %d", ConfigFile, cfg.VocabSize)
	}
	if cfg.HiddenSize <= 0 || cfg.NumHiddenLayers <= 0 || cfg.NumAttentionHeads <= 0 {
		return nil, errors.Errorf("%s: hidden_size, num_hidden_layers and num_attention_heads must all be positive", ConfigFile)
	}
	if cfg.HiddenSize%cfg.NumAttentionHeads != 0 {
		return nil, errors.Errorf("%s: hidden_size %d is not divisible by num_attention_heads %d",
			ConfigFile, cfg.HiddenSize, cfg.NumAttentionHeads)
	}
	if cfg.IntermediateSize <= 0 {
		cfg.IntermediateSize = 4 * cfg.HiddenSize
	}
	if cfg.MaxPositionEmbeddings <= 0 {
		cfg.MaxPositionEmbeddings = 512
	}
	return cfg, nil
}

// Original returns the raw config.json bytes as loaded, for echoing into the
// model artifacts.
func (c *Config) Original() []byte { return c.raw }

// HeadDim returns the per-head projection size of the attention layers.
func (c *Config) HeadDim() int { return c.HiddenSize / c.NumAttentionHeads }
