package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// DataArgs selects and splits the datasets for a training run.
type DataArgs struct {
	// DatasetName is a comma separated list. An entry may be "name" or
	// "name=path"; bare names are looked up under DataDir.
	DatasetName     string  `mapstructure:"datasetName"`
	DataDir         string  `mapstructure:"dataDir"`
	DoTrain         bool    `mapstructure:"doTrain"`
	DoEval          bool    `mapstructure:"doEval"`
	EvalDatasetSize float64 `mapstructure:"evalDatasetSize"`
	MaxTrainSamples int     `mapstructure:"maxTrainSamples"`
	MaxEvalSamples  int     `mapstructure:"maxEvalSamples"`
}

// Source is one resolved dataset entry.
type Source struct {
	Name string
	Path string
}

// Module is the concatenated train and eval data of a run.
type Module struct {
	Train []Example
	Eval  []Example
}

// ParseSources resolves the dataset list in args to local files.
func ParseSources(args DataArgs) ([]Source, error) {
	var out []Source
	for _, entry := range strings.Split(args.DatasetName, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, path, explicit := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if explicit {
			out = append(out, Source{Name: name, Path: strings.TrimSpace(path)})
			continue
		}
		p, err := findDataset(args.DataDir, name)
		if err != nil {
			return nil, err
		}
		out = append(out, Source{Name: name, Path: p})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no dataset names given", ErrDatasetNotFound)
	}
	return out, nil
}

func findDataset(dir, name string) (string, error) {
	for _, ext := range Extensions {
		p := filepath.Join(dir, name+ext)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s under %s", ErrDatasetNotFound, name, dir)
}

// Load reads and formats one dataset, returning formatted splits.
func Load(src Source) (map[string][]Example, error) {
	raw, err := ReadFile(src.Path)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Example, len(raw))
	for split, recs := range raw {
		exs, err := Format(src.Name, recs)
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", split, err)
		}
		out[split] = exs
	}
	return out, nil
}

// MakeDataModule loads every dataset in args, splits each one and
// concatenates the train and eval sets in the order the names were given.
func MakeDataModule(ctx context.Context, args DataArgs, logger zerolog.Logger) (*Module, error) {
	sources, err := ParseSources(args)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	logger.Info().Strs("datasets", names).Msg("Loading datasets")

	mod := &Module{}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		splits, err := Load(src)
		if err != nil {
			return nil, fmt.Errorf("failed to load dataset %s: %w", src.Name, err)
		}
		train, eval, err := Split(splits, SplitOptions{
			DoTrain:         args.DoTrain,
			DoEval:          args.DoEval,
			EvalDatasetSize: args.EvalDatasetSize,
			MaxTrainSamples: args.MaxTrainSamples,
			MaxEvalSamples:  args.MaxEvalSamples,
			Seed:            DefaultSplitSeed,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to split dataset %s: %w", src.Name, err)
		}
		if len(train) > 0 {
			logger.Info().Str("dataset", src.Name).Int("train_size", len(train)).Msg("Loaded dataset")
			mod.Train = append(mod.Train, train...)
		}
		if len(eval) > 0 {
			logger.Info().Str("dataset", src.Name).Int("eval_size", len(eval)).Msg("Loaded dataset")
			mod.Eval = append(mod.Eval, eval...)
		}
	}

	logger.Info().Int("train_size", len(mod.Train)).Int("eval_size", len(mod.Eval)).Msg("Concatenated datasets")
	return mod, nil
}
