package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// DefaultSplitSeed is the shuffle seed used when carving an eval split out
// of the training data.
const DefaultSplitSeed = 42

// SplitOptions controls how train and eval sets are derived from a dataset.
type SplitOptions struct {
	DoTrain bool
	DoEval  bool
	// EvalDatasetSize is the fraction of train held out when the dataset has
	// no eval split of its own.
	EvalDatasetSize float64
	// MaxTrainSamples and MaxEvalSamples cap the sets; 0 means no cap.
	MaxTrainSamples int
	MaxEvalSamples  int
	Seed            int64
}

// Split prepares the train and eval sets. An existing "eval" split is used
// as is; otherwise eval is a seeded random holdout of "train".
func Split(splits map[string][]Example, opts SplitOptions) (train, eval []Example, err error) {
	train = splits["train"]

	if opts.DoEval {
		if ev, ok := splits["eval"]; ok {
			eval = ev
		} else {
			train, eval, err = holdout(train, opts.EvalDatasetSize, opts.Seed)
			if err != nil {
				return nil, nil, err
			}
		}
		eval = capSamples(eval, opts.MaxEvalSamples)
	}

	if !opts.DoTrain {
		return nil, eval, nil
	}
	return capSamples(train, opts.MaxTrainSamples), eval, nil
}

// holdout shuffles examples with the seed and returns (rest, held out).
// The held out size is ceil(n*frac).
func holdout(examples []Example, frac float64, seed int64) ([]Example, []Example, error) {
	if frac <= 0 || frac >= 1 {
		return nil, nil, fmt.Errorf("%w: eval fraction %v must be in (0, 1)", ErrEmptySplit, frac)
	}
	n := len(examples)
	nEval := int(math.Ceil(float64(n) * frac))
	if nEval == 0 || nEval >= n {
		return nil, nil, fmt.Errorf("%w: %d examples with eval fraction %v", ErrEmptySplit, n, frac)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	train := make([]Example, 0, n-nEval)
	eval := make([]Example, 0, nEval)
	for i, p := range perm {
		if i < nEval {
			eval = append(eval, examples[p])
		} else {
			train = append(train, examples[p])
		}
	}
	return train, eval, nil
}

func capSamples(examples []Example, max int) []Example {
	if max > 0 && len(examples) > max {
		return examples[:max]
	}
	return examples
}
