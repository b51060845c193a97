// Package trainer trains a dynrnn.Model to tell linear toy sequences from random ones.
package trainer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fumin/dynrnn"
	"github.com/fumin/dynrnn/config"
	"github.com/fumin/dynrnn/toyseq"
)

// Result summarizes a finished run.
type Result struct {
	Steps        int
	TestLoss     float64 // mean cross entropy per sequence, in nats
	TestAccuracy float64
}

// Loop owns a model, its datasets and the cursor over the training set.
// Run must be called at most once.
type Loop struct {
	RunID string

	cfg       config.Config
	log       *zap.Logger
	model     *dynrnn.Model
	train     *toyseq.Dataset
	test      *toyseq.Dataset
	cursor    toyseq.Cursor
	trainStep func(toyseq.Batch) ([]*dynrnn.Sequence, error)
	losses    []float64
	doPrint   bool

	weightsChan    chan chan []byte
	lossChan       chan chan []float64
	printDebugChan chan chan bool
	done           chan struct{}
}

func New(cfg config.Config, logger *zap.Logger) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	train, test, rng, err := Datasets(cfg)
	if err != nil {
		return nil, err
	}

	m := dynrnn.NewEmptyModel(1, cfg.Hidden, toyseq.NumClasses)
	m.Weights(func(u *dynrnn.Unit) { u.Val = rng.Float64() - 0.5 })

	l := &Loop{
		RunID:          uuid.NewString(),
		cfg:            cfg,
		model:          m,
		train:          train,
		test:           test,
		weightsChan:    make(chan chan []byte),
		lossChan:       make(chan chan []float64),
		printDebugChan: make(chan chan bool),
		done:           make(chan struct{}),
	}
	l.log = logger.With(zap.String("run", l.RunID))

	o := cfg.Optimizer
	switch o.Name {
	case config.OptimizerSGD:
		sgd := dynrnn.NewSGDMomentum(m)
		l.trainStep = func(b toyseq.Batch) ([]*dynrnn.Sequence, error) {
			return sgd.Train(b.Sequences, b.Labels, b.Lengths, o.LearningRate, o.Momentum)
		}
	default:
		rmsp := dynrnn.NewRMSProp(m)
		l.trainStep = func(b toyseq.Batch) ([]*dynrnn.Sequence, error) {
			return rmsp.Train(b.Sequences, b.Labels, b.Lengths, o.Decay, o.Momentum, o.LearningRate, o.Epsilon)
		}
	}
	return l, nil
}

func (l *Loop) Model() *dynrnn.Model {
	return l.model
}

// Run trains for the configured number of steps and then scores the test set.
// It stops early with ctx's error if ctx is done between steps.
func (l *Loop) Run(ctx context.Context) (Result, error) {
	defer close(l.done)

	l.log.Info("training",
		zap.Int("numweights", l.model.NumWeights()),
		zap.Int("train", l.train.Len()),
		zap.Int("test", l.test.Len()),
		zap.Int("batch", l.cfg.BatchSize),
		zap.String("optimizer", l.cfg.Optimizer.Name))

	for i := 1; i <= l.cfg.Steps; i++ {
		if err := ctx.Err(); err != nil {
			l.log.Info("training interrupted", zap.Int("step", i))
			return Result{Steps: i - 1}, err
		}

		b := l.cursor.Next(l.train, l.cfg.BatchSize)
		seqs, err := l.trainStep(b)
		if err != nil {
			return Result{Steps: i - 1}, fmt.Errorf("step %d: %w", i, err)
		}
		if i == 1 || i%l.cfg.DisplayStep == 0 {
			loss := dynrnn.Loss(b.Labels, seqs) / float64(b.Len())
			l.losses = append(l.losses, loss)
			l.log.Info("step",
				zap.Int("step", i),
				zap.Float64("loss", loss),
				zap.Float64("accuracy", dynrnn.Accuracy(b.Labels, seqs)))
			l.printDebug(b, seqs)
		}

		l.handleHTTP()
	}

	loss, acc, err := l.Evaluate()
	if err != nil {
		return Result{Steps: l.cfg.Steps}, err
	}
	l.log.Info("testing", zap.Float64("loss", loss), zap.Float64("accuracy", acc))
	return Result{Steps: l.cfg.Steps, TestLoss: loss, TestAccuracy: acc}, nil
}

// printDebug logs a few predictions of batch b, at info level once toggled through /PrintDebug.
func (l *Loop) printDebug(b toyseq.Batch, seqs []*dynrnn.Sequence) {
	lvl := zap.DebugLevel
	if l.doPrint {
		lvl = zap.InfoLevel
	}
	ce := l.log.Check(lvl, "predictions")
	if ce == nil {
		return
	}
	n := min(len(seqs), 4)
	ce.Write(
		zap.String("y", dynrnn.Sprint2(b.Labels[:n])),
		zap.String("pred", dynrnn.Sprint2(dynrnn.Predictions(seqs[:n]))))
}

// Evaluate returns the mean loss and the accuracy over the whole test set.
func (l *Loop) Evaluate() (float64, float64, error) {
	seqs, err := dynrnn.Forward(l.model, l.test.Sequences, l.test.Lengths)
	if err != nil {
		return 0, 0, fmt.Errorf("evaluate: %w", err)
	}
	loss := dynrnn.Loss(l.test.Labels, seqs) / float64(len(seqs))
	acc, err := Score(l.model, l.test)
	if err != nil {
		return 0, 0, fmt.Errorf("evaluate: %w", err)
	}
	return loss, acc, nil
}
