package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fumin/dynrnn"
	"github.com/fumin/dynrnn/config"
	"github.com/fumin/dynrnn/toyseq"
	"github.com/fumin/dynrnn/trainer"
)

var (
	weightsFile string
	cfgPath     string
	seed        int64
	maxLens     []int
)

var rootCmd = &cobra.Command{
	Use:   "test",
	Short: "Score trained weights on toy sequence test sets",
	Long: `Loads the JSON weights served by the training binary at /Weights and
reports the accuracy on the test set of the run's config, then on fresh sets
with each of the given maximum lengths.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&weightsFile, "weights", "", "trained weights in JSON")
	f.StringVar(&cfgPath, "config", "", "path to the YAML config used for training")
	f.Int64Var(&seed, "seed", 0, "PRNG seed used for training")
	f.IntSliceVar(&maxLens, "maxlen", []int{10, 20, 40}, "maximum lengths of the extra test sets")
	rootCmd.MarkFlagRequired("weights")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.ApplyOverrides(config.Overrides{Seed: &seed})
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	f, err := os.Open(weightsFile)
	if err != nil {
		return err
	}
	defer f.Close()
	m, err := trainer.LoadModel(f, cfg.Hidden)
	if err != nil {
		return err
	}

	_, test, rng, err := trainer.Datasets(cfg)
	if err != nil {
		return err
	}
	acc, err := trainer.Score(m, test)
	if err != nil {
		return err
	}
	logger.Info("test set", zap.Int("maxlen", cfg.MaxLen), zap.Int("n", test.Len()), zap.Float64("accuracy", acc))

	for _, ml := range maxLens {
		p := cfg.TestParams()
		p.MaxLen = ml
		p.MinLen = min(p.MinLen, ml)
		if err := scoreFresh(logger, m, p, rng); err != nil {
			return err
		}
	}
	return nil
}

func scoreFresh(logger *zap.Logger, m *dynrnn.Model, p toyseq.Params, rng *rand.Rand) error {
	d, err := toyseq.Generate(p, rng)
	if err != nil {
		return err
	}
	acc, err := trainer.Score(m, d)
	if err != nil {
		return err
	}
	logger.Info("fresh set", zap.Int("maxlen", p.MaxLen), zap.Int("n", d.Len()), zap.Float64("accuracy", acc))
	return nil
}
