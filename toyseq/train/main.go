package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fumin/dynrnn/config"
	"github.com/fumin/dynrnn/trainer"
)

var (
	cfgPath    string
	cpuprofile string
	verbose    bool
	seed       int64
	overrides  config.Overrides
)

var rootCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a recurrent classifier on variable length toy sequences",
	Long: `Trains a recurrent network to tell linearly increasing sequences from
random ones. Sequences have different lengths and are padded; the classifier
reads the hidden state at each sequence's last valid timestep.

While training, http://<addr>/Weights and http://<addr>/Loss report the
current weights and the recorded losses, and http://<addr>/PrintDebug
toggles logging a few predictions at every display step.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfgPath, "config", "", "path to YAML config, defaults are used when empty")
	f.StringVar(&cpuprofile, "cpuprofile", "", "write cpu profile to file")
	f.BoolVarP(&verbose, "verbose", "v", false, "log debug output, including predictions")
	f.IntVar(&overrides.Steps, "steps", 0, "number of training steps")
	f.IntVar(&overrides.BatchSize, "batch-size", 0, "batch size")
	f.IntVar(&overrides.Hidden, "hidden", 0, "size of the recurrent hidden state")
	f.Int64Var(&seed, "seed", 0, "PRNG seed")
	f.StringVar(&overrides.HTTPAddr, "addr", "", "debug HTTP listen address")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		overrides.Seed = &seed
	}
	cfg.ApplyOverrides(overrides)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Info("config", zap.Any("config", cfg))

	loop, err := trainer.New(cfg, logger)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := trainer.RunAndServe(ctx, loop, ln, logger)
	if errors.Is(err, context.Canceled) {
		logger.Info("interrupted", zap.String("run", loop.RunID), zap.Int("steps", res.Steps))
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("done",
		zap.String("run", loop.RunID),
		zap.Int("steps", res.Steps),
		zap.Float64("test_loss", res.TestLoss),
		zap.Float64("test_accuracy", res.TestAccuracy))
	return nil
}
