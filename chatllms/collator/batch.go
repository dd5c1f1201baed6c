package collator

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/assert-lib"
	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Batch is the collated form of a minibatch. All matrices share the same
// shape; Labels is nil in generation mode.
type Batch struct {
	InputIDs      [][]int64
	AttentionMask [][]bool
	Labels        [][]int64
}

// HasLabels reports whether the batch carries labels.
func (b *Batch) HasLabels() bool { return b.Labels != nil }

// Shape returns the number of rows and the padded row length.
func (b *Batch) Shape() (rows, cols int) {
	if len(b.InputIDs) == 0 {
		return 0, 0
	}
	return len(b.InputIDs), len(b.InputIDs[0])
}

// NumTokens counts real (non-pad) positions.
func (b *Batch) NumTokens() int {
	n := 0
	for _, r := range b.AttentionMask {
		for _, m := range r {
			if m {
				n++
			}
		}
	}
	return n
}

// NumLabelTokens counts positions that contribute to the loss. ignore is
// the value used for masked labels.
func (b *Batch) NumLabelTokens(ignore int64) int {
	n := 0
	for _, r := range b.Labels {
		for _, l := range r {
			if l != ignore {
				n++
			}
		}
	}
	return n
}

// shapeAssert reports broken shape invariants. Its exit hook panics instead
// of exiting the process.
var shapeAssert = newShapeAssert()

func newShapeAssert() *assert.AssertHandler {
	h := assert.NewAssertHandler()
	h.SetExitFunc(func(code int) {
		panic(fmt.Sprintf("collator: batch shape assertion failed (exit code %d)", code))
	})
	return h
}

// checkShape asserts that the matrices agree in shape. Collate builds them
// from the same rows, so a mismatch is a bug, not an input error.
func (b *Batch) checkShape() {
	ctx := context.Background()
	rows, cols := b.Shape()
	check := func(name string, n int, width func(i int) int) {
		shapeAssert.Assert(ctx, n == rows, "collator: row count mismatch",
			"matrix", name, "rows", n, "want", rows)
		for i := range n {
			w := width(i)
			shapeAssert.Assert(ctx, w == cols, "collator: row width mismatch",
				"matrix", name, "row", i, "width", w, "want", cols)
		}
	}
	check("input_ids", len(b.InputIDs), func(i int) int { return len(b.InputIDs[i]) })
	check("attention_mask", len(b.AttentionMask), func(i int) int { return len(b.AttentionMask[i]) })
	if b.Labels != nil {
		check("labels", len(b.Labels), func(i int) int { return len(b.Labels[i]) })
	}
}

// BatchTensors is a Batch converted to gomlx tensors.
type BatchTensors struct {
	InputIDs      *tensors.Tensor
	AttentionMask *tensors.Tensor
	// Labels is nil in generation mode.
	Labels *tensors.Tensor
}

// Tensors converts the batch to gomlx tensors: int64 ids and labels, bool
// mask, each shaped [rows, cols].
func (b *Batch) Tensors() (*BatchTensors, error) {
	if len(b.InputIDs) == 0 {
		return nil, ErrEmptyBatch
	}
	out := &BatchTensors{
		InputIDs:      tensors.FromAnyValue(b.InputIDs),
		AttentionMask: tensors.FromAnyValue(b.AttentionMask),
	}
	if b.Labels != nil {
		out.Labels = tensors.FromAnyValue(b.Labels)
	}
	return out, nil
}

// Map returns the batch keyed the way training loops expect:
// input_ids, attention_mask and, when present, labels.
func (b *Batch) Map() map[string][][]int64 {
	mask := make([][]int64, len(b.AttentionMask))
	for i, r := range b.AttentionMask {
		row := make([]int64, len(r))
		for j, m := range r {
			if m {
				row[j] = 1
			}
		}
		mask[i] = row
	}
	m := map[string][][]int64{
		"input_ids":      b.InputIDs,
		"attention_mask": mask,
	}
	if b.Labels != nil {
		m["labels"] = b.Labels
	}
	return m
}
