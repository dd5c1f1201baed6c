package loader

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ZanzyTHEbar/chatllms-go/chatllms/collator"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/dataset"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/tokenizer"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCollator(t *testing.T) *collator.Collator {
	t.Helper()
	tok := tokenizer.NewByte()
	c, err := collator.New(tok, collator.ConfigFromTokenizer(tok, collator.Config{SourceMaxLen: 16, TargetMaxLen: 16}))
	require.NoError(t, err)
	return c
}

func examples(n int) []dataset.Example {
	out := make([]dataset.Example, n)
	for i := range out {
		out[i] = dataset.Example{Input: fmt.Sprintf("q%d", i), Output: fmt.Sprintf("a%d", i)}
	}
	return out
}

func TestBatchesPreserveOrder(t *testing.T) {
	c := testCollator(t)
	exs := examples(23)

	l, err := New(exs, c, Options{BatchSize: 4, Workers: 3}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 6, l.Len())

	batches, err := l.Batches(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 6)

	for i, b := range batches {
		end := min((i+1)*4, len(exs))
		want, err := c.Collate(exs[i*4 : end])
		require.NoError(t, err)
		if diff := cmp.Diff(want, b); diff != "" {
			t.Errorf("batch %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	rows, _ := batches[5].Shape()
	assert.Equal(t, 3, rows)
}

func TestDropLast(t *testing.T) {
	l, err := New(examples(10), testCollator(t), Options{BatchSize: 4, DropLast: true}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())

	batches, err := l.Batches(context.Background())
	require.NoError(t, err)
	assert.Len(t, batches, 2)
}

func TestShuffleIsSeeded(t *testing.T) {
	c := testCollator(t)
	exs := examples(30)
	run := func(seed int64) []*collator.Batch {
		l, err := New(exs, c, Options{BatchSize: 5, Shuffle: true, Seed: seed, Workers: 4}, zerolog.Nop())
		require.NoError(t, err)
		bs, err := l.Batches(context.Background())
		require.NoError(t, err)
		return bs
	}
	assert.Equal(t, run(42), run(42))

	plain, err := New(exs, c, Options{BatchSize: 5}, zerolog.Nop())
	require.NoError(t, err)
	unshuffled, err := plain.Batches(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, unshuffled, run(42))
}

func TestEachStopsOnCallbackError(t *testing.T) {
	l, err := New(examples(12), testCollator(t), Options{BatchSize: 2, Workers: 2}, zerolog.Nop())
	require.NoError(t, err)

	stop := errors.New("stop")
	var seen []int
	err = l.Each(context.Background(), func(i int, _ *collator.Batch) error {
		seen = append(seen, i)
		if i == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestEachHonoursCancellation(t *testing.T) {
	l, err := New(examples(8), testCollator(t), Options{BatchSize: 2}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Batches(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewValidates(t *testing.T) {
	_, err := New(examples(1), testCollator(t), Options{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = New(examples(1), nil, Options{BatchSize: 1}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidOptions)
}
