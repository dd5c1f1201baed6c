package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/chatllms-go/chatllms/collator"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/dataset"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/tokenizer"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping libsql store test in short mode")
	}
	dsn := "file:" + filepath.Join(t.TempDir(), "nested", "runs.db")
	s, err := Open(context.Background(), dsn, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tok := tokenizer.NewByte()
	cfg := collator.ConfigFromTokenizer(tok, collator.Config{SourceMaxLen: 8, TargetMaxLen: 8})
	c, err := collator.New(tok, cfg)
	require.NoError(t, err)

	runID, err := s.StartRun(ctx, RunConfig{Dataset: "alpaca", Tokenizer: "byte", BatchSize: 2, Collator: cfg})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, runID)

	b0, err := c.Collate([]dataset.Example{{Input: "Hi", Output: "Bye"}, {Input: "Hello", Output: "Yo"}})
	require.NoError(t, err)
	b1, err := c.Collate([]dataset.Example{{Input: "a", Output: "b"}})
	require.NoError(t, err)
	require.NoError(t, s.RecordBatch(ctx, runID, 0, b0))
	require.NoError(t, s.RecordBatch(ctx, runID, 1, b1))

	sum, err := s.RunSummary(ctx, runID)
	require.NoError(t, err)

	r0, c0 := b0.Shape()
	r1, c1 := b1.Shape()
	assert.Equal(t, 2, sum.Batches)
	assert.Equal(t, 3, sum.Rows)
	assert.Equal(t, r0*c0+r1*c1, sum.Cells)
	assert.Equal(t, b0.NumTokens()+b1.NumTokens(), sum.Tokens)
	assert.Equal(t, b0.NumLabelTokens(cfg.IgnoreIndex)+b1.NumLabelTokens(cfg.IgnoreIndex), sum.LabelTokens)
	assert.Equal(t, "alpaca", sum.Config.Dataset)
	assert.Equal(t, cfg, sum.Config.Collator)
	assert.False(t, sum.StartedAt.IsZero())
}

func TestDuplicateBatchIndexFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tok := tokenizer.NewByte()
	cfg := collator.ConfigFromTokenizer(tok, collator.Config{SourceMaxLen: 4, TargetMaxLen: 4})
	c, err := collator.New(tok, cfg)
	require.NoError(t, err)
	b, err := c.Collate([]dataset.Example{{Input: "x", Output: "y"}})
	require.NoError(t, err)

	runID, err := s.StartRun(ctx, RunConfig{Collator: cfg})
	require.NoError(t, err)
	require.NoError(t, s.RecordBatch(ctx, runID, 0, b))
	assert.Error(t, s.RecordBatch(ctx, runID, 0, b))
}

func TestUnknownRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.RunSummary(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = s.RecordBatch(ctx, uuid.New(), 0, &collator.Batch{})
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "  ", zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidDSN)
}

func TestRunStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg := collator.ConfigFromTokenizer(tokenizer.NewByte(), collator.Config{SourceMaxLen: 4, TargetMaxLen: 4})

	done, err := s.StartRun(ctx, RunConfig{Collator: cfg})
	require.NoError(t, err)
	sum, err := s.RunSummary(ctx, done)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, sum.Status)
	assert.True(t, sum.FinishedAt.IsZero())

	require.NoError(t, s.FinishRun(ctx, done, nil))
	sum, err = s.RunSummary(ctx, done)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, sum.Status)
	assert.False(t, sum.FinishedAt.IsZero())
	assert.Empty(t, sum.Error)

	failed, err := s.StartRun(ctx, RunConfig{Collator: cfg})
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, failed, errors.New("batch 3: tokenizer exploded")))
	sum, err = s.RunSummary(ctx, failed)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, sum.Status)
	assert.Equal(t, "batch 3: tokenizer exploded", sum.Error)

	assert.ErrorIs(t, s.FinishRun(ctx, uuid.New(), nil), ErrRunNotFound)
}
