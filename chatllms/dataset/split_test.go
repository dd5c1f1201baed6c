package dataset

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(n int) []Example {
	out := make([]Example, n)
	for i := range out {
		out[i] = Example{Input: fmt.Sprint(i), Output: fmt.Sprint(i)}
	}
	return out
}

func TestSplitHoldout(t *testing.T) {
	data := map[string][]Example{"train": numbered(20)}
	opts := SplitOptions{DoTrain: true, DoEval: true, EvalDatasetSize: 0.1, Seed: DefaultSplitSeed}

	train, eval, err := Split(data, opts)
	require.NoError(t, err)
	assert.Len(t, train, 18)
	assert.Len(t, eval, 2)

	// deterministic for the same seed
	train2, eval2, err := Split(data, opts)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, eval, eval2)

	seen := map[string]bool{}
	for _, ex := range append(append([]Example{}, train...), eval...) {
		seen[ex.Input] = true
	}
	assert.Len(t, seen, 20)
}

func TestSplitUsesExistingEval(t *testing.T) {
	data := map[string][]Example{"train": numbered(5), "eval": numbered(3)}
	train, eval, err := Split(data, SplitOptions{DoTrain: true, DoEval: true, EvalDatasetSize: 0.5, MaxEvalSamples: 2})
	require.NoError(t, err)
	assert.Equal(t, numbered(5), train)
	assert.Equal(t, numbered(2), eval)
}

func TestSplitCapsAndFlags(t *testing.T) {
	data := map[string][]Example{"train": numbered(10)}

	train, eval, err := Split(data, SplitOptions{DoTrain: true, MaxTrainSamples: 4})
	require.NoError(t, err)
	assert.Equal(t, numbered(4), train)
	assert.Nil(t, eval)

	train, _, err = Split(data, SplitOptions{DoTrain: false})
	require.NoError(t, err)
	assert.Nil(t, train)
}

func TestSplitRejectsDegenerateHoldout(t *testing.T) {
	_, _, err := Split(map[string][]Example{"train": numbered(1)}, SplitOptions{DoTrain: true, DoEval: true, EvalDatasetSize: 0.1})
	assert.True(t, errors.Is(err, ErrEmptySplit))

	_, _, err = Split(map[string][]Example{"train": numbered(10)}, SplitOptions{DoTrain: true, DoEval: true, EvalDatasetSize: 0})
	assert.True(t, errors.Is(err, ErrEmptySplit))
}
