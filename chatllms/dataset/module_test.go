package dataset

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeDataModule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alpaca.json", `[
		{"instruction":"a","input":"","output":"1"},
		{"instruction":"b","input":"x","output":"2"}
	]`)
	writeFile(t, dir, "hh-rlhf.jsonl", "{\"chosen\":\"c1\",\"rejected\":\"r1\"}\n{\"chosen\":\"c2\",\"rejected\":\"r2\"}\n{\"chosen\":\"c3\",\"rejected\":\"r3\"}\n")
	custom := writeFile(t, dir, "mine.csv", "input,output\nq,a\n")

	mod, err := MakeDataModule(context.Background(), DataArgs{
		DatasetName: "alpaca, hh-rlhf ,mine=" + custom,
		DataDir:     dir,
		DoTrain:     true,
	}, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, mod.Train, 6)
	assert.Empty(t, mod.Eval)
	assert.Equal(t, "1", mod.Train[0].Output)
	assert.Equal(t, Example{Output: "c1"}, mod.Train[2])
	assert.Equal(t, Example{Input: "q", Output: "a"}, mod.Train[5])
}

func TestMakeDataModuleWithEval(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "oasst1.jsonl", "{\"text\":\"1\"}\n{\"text\":\"2\"}\n{\"text\":\"3\"}\n{\"text\":\"4\"}\n")

	mod, err := MakeDataModule(context.Background(), DataArgs{
		DatasetName:     "oasst1",
		DataDir:         dir,
		DoTrain:         true,
		DoEval:          true,
		EvalDatasetSize: 0.25,
	}, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, mod.Train, 3)
	assert.Len(t, mod.Eval, 1)
}

func TestParseSourcesMissing(t *testing.T) {
	_, err := ParseSources(DataArgs{DatasetName: "nope", DataDir: t.TempDir()})
	assert.True(t, errors.Is(err, ErrDatasetNotFound))

	_, err = ParseSources(DataArgs{DatasetName: " , "})
	assert.True(t, errors.Is(err, ErrDatasetNotFound))

	srcs, err := ParseSources(DataArgs{DatasetName: "x=" + filepath.Join("a", "b.json")})
	require.NoError(t, err)
	assert.Equal(t, []Source{{Name: "x", Path: filepath.Join("a", "b.json")}}, srcs)
}

func TestMakeDataModuleCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "oasst1.jsonl", "{\"text\":\"1\"}\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := MakeDataModule(ctx, DataArgs{DatasetName: "oasst1", DataDir: dir, DoTrain: true}, zerolog.Nop())
	assert.ErrorIs(t, err, context.Canceled)
}
