// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

package model

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gomlx/go-huggingface/hub"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Files every pretrained model directory must provide.
var pretrainedFiles = []string{ConfigFile, "vocab.txt"}

// EnsurePretrained makes sure modelDir holds the pretrained model assets for
// modelName. If the directory is already populated it is used as is;
// otherwise config.json and vocab.txt are fetched from the HuggingFace hub.
// Model weights are restored separately from a checkpoint in the same
// directory when one exists.
func EnsurePretrained(modelDir, modelName string) error {
	if _, err := os.Stat(filepath.Join(modelDir, ConfigFile)); err == nil {
		return nil
	}
	klog.Infof("Pretrained model not found in %q, downloading %q from the HuggingFace hub", modelDir, modelName)
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create pretrained model dir %q", modelDir)
	}
	repo := hub.New(modelName)
	for _, name := range pretrainedFiles {
		cached, err := repo.DownloadFile(name)
		if err != nil {
			return errors.Wrapf(err, "failed to download %q of model %q", name, modelName)
		}
		if err := copyFile(cached, filepath.Join(modelDir, name)); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", src)
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", dst)
	}
	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.Wrapf(err, "failed to copy %q to %q", src, dst)
	}
	return errors.Wrapf(out.Close(), "failed to close %q", dst)
}
