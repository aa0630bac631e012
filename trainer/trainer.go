// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

// Package trainer runs a full training job: it loads the configuration,
// resolves the model sources, builds the data pipeline and the learner, fits
// the model and persists the artifacts. The steps run strictly in order and
// the first error aborts the run.
package trainer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/Cinderellashuang/fast-bert/config"
	"github.com/Cinderellashuang/fast-bert/databunch"
	"github.com/Cinderellashuang/fast-bert/learner"
	"github.com/Cinderellashuang/fast-bert/model"
	"github.com/Cinderellashuang/fast-bert/sagemaker"
	"github.com/Cinderellashuang/fast-bert/tokenizer"
)

// Artifacts written next to the model weights: the training-config echo and
// the label list. Both names are fixed regardless of the input file names.
const (
	ModelConfigFile = "model_config.json"
	LabelsFile      = "labels.csv"
)

// Options are the command-line switches of a run.
type Options struct {
	// EvalAtEnd prints an evaluation report on the validation set after
	// training.
	EvalAtEnd bool

	// SampleCount prints this many training examples before training.
	SampleCount int

	// Verbosity < 0 disables the progress bar.
	Verbosity int
}

// Run executes a complete training job against the given filesystem layout.
// On success the model directory holds the trained weights, the config echo
// and the label list.
func Run(paths sagemaker.RunPaths, opts Options) error {
	run := &trainingRun{paths: paths, opts: opts}
	steps := []struct {
		name string
		fn   func() error
	}{
		{"load configuration", run.loadConfiguration},
		{"resolve model sources", run.resolveModelSources},
		{"initialize backend", run.initializeBackend},
		{"build tokenizer", run.buildTokenizer},
		{"build databunch", run.buildDataBunch},
		{"print samples", run.printSamples},
		{"build learner", run.buildLearner},
		{"fit", run.fit},
		{"save artifacts", run.saveArtifacts},
	}
	for _, step := range steps {
		// gomlx reports invalid graphs and shapes by panicking; contain
		// each step so those surface as ordinary errors.
		err := exceptions.TryCatch[error](func() {
			if stepErr := step.fn(); stepErr != nil {
				panic(stepErr)
			}
		})
		if err != nil {
			return errors.WithMessagef(err, "training step %q", step.name)
		}
		klog.V(1).Infof("Training step %q done", step.name)
	}
	return nil
}

// trainingRun carries the state threaded through the steps of one job.
type trainingRun struct {
	paths sagemaker.RunPaths
	opts  Options

	cfg *config.TrainingConfig
	hp  *config.Hyperparameters

	pretrainedDir string
	finetunedDir  string
	modelCfg      *model.Config

	backend backends.Backend
	fanOut  bool

	tok     *tokenizer.WordPiece
	bunch   *databunch.Bunch
	learner *learner.Learner
}

func (r *trainingRun) loadConfiguration() error {
	cfg, err := config.LoadTrainingConfig(r.paths.TrainingConfigFile)
	if err != nil {
		return err
	}
	hp, err := config.LoadHyperparameters(r.paths.HyperparametersFile)
	if err != nil {
		return err
	}
	r.cfg, r.hp = cfg, hp
	klog.Infof("Training %q (%s) for %d epochs, batch size %d, lr %g (%s/%s)",
		cfg.ModelName, cfg.Mode(), hp.Epochs, hp.TrainBatchSize, hp.LearningRate,
		hp.OptimizerType, hp.LRSchedule)
	return nil
}

func (r *trainingRun) resolveModelSources() error {
	r.pretrainedDir = r.paths.PretrainedModelDir(r.cfg.ModelName)
	if err := model.EnsurePretrained(r.pretrainedDir, r.cfg.ModelName); err != nil {
		return err
	}
	if r.cfg.FinetunedModel != "" {
		r.finetunedDir = r.paths.FinetunedModelDir(r.cfg.FinetunedModel)
		if _, err := os.Stat(r.finetunedDir); err != nil {
			return errors.Wrapf(err, "finetuned model %q not found", r.cfg.FinetunedModel)
		}
	}
	modelCfg, err := model.LoadConfig(r.pretrainedDir)
	if err != nil {
		return err
	}
	r.modelCfg = modelCfg
	return nil
}

func (r *trainingRun) initializeBackend() error {
	backend, err := backends.New()
	if err != nil {
		return errors.Wrapf(err, "failed to initialize the compute backend")
	}
	r.backend = backend
	r.fanOut = backend.NumDevices() > 1
	klog.Infof("Backend %q: %s (%d devices)", backend.Name(), backend.Description(), backend.NumDevices())
	return nil
}

func (r *trainingRun) buildTokenizer() error {
	tok, err := tokenizer.FromPretrained(r.pretrainedDir)
	if err != nil {
		return err
	}
	r.tok = tok
	if r.modelCfg.VocabSize != tok.VocabSize() {
		klog.Warningf("Model config declares vocab_size %d but vocab.txt has %d entries",
			r.modelCfg.VocabSize, tok.VocabSize())
	}
	return nil
}

func (r *trainingRun) buildDataBunch() error {
	bunch, err := databunch.New(r.backend, r.paths.TrainingDir, r.cfg, r.hp, r.tok, r.fanOut)
	if err != nil {
		return err
	}
	r.bunch = bunch
	return nil
}

func (r *trainingRun) printSamples() error {
	if r.opts.SampleCount <= 0 {
		return nil
	}
	examples, err := databunch.LoadExamples(r.paths.TrainingDir, r.cfg, r.opts.SampleCount)
	if err != nil {
		return err
	}
	for i, example := range examples {
		fmt.Println(sampleStyle.Render(fmt.Sprintf("[Sample %d - %s]\n%s",
			i, strings.Join(example.Labels, ", "), example.Text)))
	}
	fmt.Println()
	return nil
}

func (r *trainingRun) buildLearner() error {
	l, err := learner.New(r.backend, r.cfg, r.hp, r.modelCfg, r.bunch, learner.Dirs{
		Pretrained: r.pretrainedDir,
		Finetuned:  r.finetunedDir,
		Output:     r.paths.ModelDir,
	})
	if err != nil {
		return err
	}
	r.learner = l
	return nil
}

func (r *trainingRun) fit() error {
	if err := r.learner.Fit(r.opts.Verbosity); err != nil {
		return err
	}
	klog.Infof("Training done after %d steps", r.learner.GlobalStep())
	if r.opts.EvalAtEnd {
		return r.learner.EvalReport()
	}
	return nil
}

func (r *trainingRun) saveArtifacts() error {
	if err := os.MkdirAll(r.paths.ModelDir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create model dir %q", r.paths.ModelDir)
	}
	if err := r.learner.SaveModel(); err != nil {
		return err
	}
	configPath := filepath.Join(r.paths.ModelDir, ModelConfigFile)
	if err := os.WriteFile(configPath, r.cfg.Original(), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %q", configPath)
	}
	labelsPath := filepath.Join(r.paths.ModelDir, LabelsFile)
	labels := strings.Join(r.bunch.Labels, "\n") + "\n"
	if err := os.WriteFile(labelsPath, []byte(labels), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %q", labelsPath)
	}
	klog.Infof("Model artifacts saved to %q", r.paths.ModelDir)
	return nil
}
