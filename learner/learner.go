// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

// Package learner assembles the training stack around the classifier: the
// optimizer and learning-rate schedule from the hyperparameters, the loss and
// metrics from the task mode, checkpoint restore of pretrained or previously
// fine-tuned weights, and the training loop itself.
package learner

import (
	"time"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers/cosineschedule"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/Cinderellashuang/fast-bert/config"
	"github.com/Cinderellashuang/fast-bert/databunch"
	"github.com/Cinderellashuang/fast-bert/metrics"
	"github.com/Cinderellashuang/fast-bert/model"
)

// Dirs are the checkpoint directories a learner reads from and writes to.
// Finetuned is optional; when set its checkpoint must exist.
type Dirs struct {
	Pretrained string
	Finetuned  string
	Output     string
}

// How often the training loop snapshots the model to the output directory.
const checkpointPeriod = 3 * time.Minute

// Learner drives fine-tuning of a classifier and saves the resulting model.
type Learner struct {
	backend    backends.Backend
	ctx        *context.Context
	classifier *model.Classifier
	trainer    *train.Trainer
	bunch      *databunch.Bunch
	output     *checkpoints.Handler

	epochs       int
	loggingSteps int
}

// New builds the learner: context parameters from the hyperparameters,
// checkpoint handlers for the model directories, and the gomlx trainer with
// the task-mode loss and metrics. Weights are restored lazily on first use;
// when a fine-tuned checkpoint is configured its values take precedence over
// the pretrained ones.
func New(backend backends.Backend, cfg *config.TrainingConfig, hp *config.Hyperparameters,
	modelCfg *model.Config, bunch *databunch.Bunch, dirs Dirs) (*Learner, error) {
	ctx := context.New()
	dtype := dtypes.Float32
	if cfg.FP16 {
		dtype = dtypes.Float16
		klog.Infof("Training with fp16 compute (opt level %q)", cfg.FP16OptLevel)
	}

	ctx.SetParams(map[string]any{
		activations.ParamActivation:  modelCfg.HiddenAct,
		optimizers.ParamOptimizer:    optimizerName(hp.OptimizerType),
		optimizers.ParamLearningRate: hp.LearningRate,
		cosineschedule.ParamPeriodSteps: schedulePeriod(hp.LRSchedule),
		cosineschedule.ParamWarmUpSteps: hp.WarmupSteps,
	})

	// Checkpoint loaders chain with earliest-attached priority, so the
	// fine-tuned handler must be attached before the pretrained one: its
	// values win, and variables absent from it fall back to the pretrained
	// checkpoint. The output handler is where training saves.
	if dirs.Finetuned != "" {
		if _, err := checkpoints.Load(ctx).Dir(dirs.Finetuned).Done(); err != nil {
			return nil, errors.WithMessagef(err, "failed to load finetuned model from %q", dirs.Finetuned)
		}
	}
	if _, err := checkpoints.Build(ctx).Dir(dirs.Pretrained).Keep(1).Done(); err != nil {
		return nil, errors.WithMessagef(err, "failed to attach pretrained checkpoint in %q", dirs.Pretrained)
	}
	output, err := checkpoints.Build(ctx).Dir(dirs.Output).Keep(1).Done()
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create output checkpoint in %q", dirs.Output)
	}

	classifier := model.NewClassifier(modelCfg, len(bunch.Labels), dtype)
	modelFn := func(ctx *context.Context, spec any, inputs []*Node) []*Node {
		g := inputs[0].Graph()
		cosineschedule.New(ctx, g, dtype).FromContext().Done()
		return classifier.Graph(ctx, spec, inputs)
	}

	mode := cfg.Mode()
	metricNames := mode.MetricNames()
	trainMetrics, err := metrics.TrainingForNames(metricNames)
	if err != nil {
		return nil, err
	}
	evalMetrics, err := metrics.ForNames(metricNames)
	if err != nil {
		return nil, err
	}

	trainer := train.NewTrainer(backend, ctx.In("model"), modelFn,
		lossForMode(mode),
		optimizers.FromContext(ctx),
		trainMetrics, evalMetrics)
	if cfg.GradAccumulationSteps > 1 {
		if err := trainer.AccumulateGradients(cfg.GradAccumulationSteps); err != nil {
			return nil, errors.WithMessagef(err, "failed to enable gradient accumulation over %d steps",
				cfg.GradAccumulationSteps)
		}
	}

	return &Learner{
		backend:      backend,
		ctx:          ctx,
		classifier:   classifier,
		trainer:      trainer,
		bunch:        bunch,
		output:       output,
		epochs:       hp.Epochs,
		loggingSteps: cfg.LoggingSteps,
	}, nil
}

// Fit runs the training loop for the configured number of epochs, with
// periodic checkpointing to the output directory. verbosity >= 0 attaches a
// progress bar.
func (l *Learner) Fit(verbosity int) error {
	loop := train.NewLoop(l.trainer)
	if verbosity >= 0 {
		commandline.AttachProgressBar(loop)
	}
	if l.loggingSteps > 0 {
		train.EveryNSteps(loop, l.loggingSteps, "log training metrics", 0,
			func(loop *train.Loop, stepMetrics []*tensors.Tensor) error {
				logMetrics(loop, stepMetrics)
				return nil
			})
	}
	train.PeriodicCallback(loop, checkpointPeriod, false, "saving checkpoint", 100,
		func(loop *train.Loop, stepMetrics []*tensors.Tensor) error {
			return l.output.Save()
		})

	if _, err := loop.RunEpochs(l.bunch.Train, l.epochs); err != nil {
		return errors.WithMessagef(err, "training loop failed")
	}
	return nil
}

// SaveModel writes the final weights to the output checkpoint directory.
func (l *Learner) SaveModel() error {
	return errors.WithMessagef(l.output.Save(), "failed to save model checkpoint")
}

// EvalReport evaluates the model on the validation dataset and prints the
// evaluation metrics.
func (l *Learner) EvalReport() error {
	return errors.WithMessagef(commandline.ReportEval(l.trainer, l.bunch.Eval),
		"failed to evaluate the model")
}

// GlobalStep returns the number of training steps taken so far.
func (l *Learner) GlobalStep() int64 {
	return optimizers.GetGlobalStep(l.ctx)
}

func logMetrics(loop *train.Loop, values []*tensors.Tensor) {
	metricDefs := loop.Trainer.TrainMetrics()
	for i, value := range values {
		if i >= len(metricDefs) {
			break
		}
		klog.Infof("step %d: %s=%s", loop.LoopStep, metricDefs[i].Name(), metricDefs[i].PrettyPrint(value))
	}
}

// optimizerName maps the configured optimizer to one known by gomlx. LAMB is
// not available, adamw is the closest for transformer fine-tuning.
func optimizerName(name string) string {
	if name == "lamb" {
		klog.Warningf("Optimizer %q is not available, falling back to adamw", name)
		return "adamw"
	}
	if _, known := optimizers.KnownOptimizers[name]; !known {
		klog.Warningf("Unknown optimizer %q, falling back to adamw", name)
		return "adamw"
	}
	return name
}

// schedulePeriod maps the lr_schedule name to the cosine-schedule period
// parameter: -1 anneals over the whole run, 0 keeps the learning rate
// constant. The warmup_steps parameter only delays the start of the cosine
// annealing, so it has no effect on the constant schedules.
func schedulePeriod(schedule string) int {
	switch schedule {
	case "warmup_cosine", "warmup_cosine_hard_restarts", "warmup_cosine_warmup_restarts":
		return -1
	case "warmup_constant", "warmup_linear":
		return 0
	default:
		klog.Warningf("Unknown lr_schedule %q, using a constant learning rate", schedule)
		return 0
	}
}

func lossForMode(mode config.TaskMode) train.LossFn {
	if mode == config.MultiLabel {
		return func(labels, predictions []*Node) *Node {
			converted := ConvertDType(labels[0], predictions[0].DType())
			return losses.BinaryCrossentropyLogits([]*Node{converted}, predictions)
		}
	}
	return losses.SparseCategoricalCrossEntropyLogits
}
