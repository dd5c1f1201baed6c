// Package stats measures tokenized example lengths so length limits can be
// chosen before training.
package stats

import (
	"fmt"
	"slices"

	"github.com/ZanzyTHEbar/chatllms-go/chatllms/dataset"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/tokenizer"

	roaring "github.com/RoaringBitmap/roaring"
	"gonum.org/v1/gonum/stat"
)

// Length is the untruncated token count of one example's spans.
type Length struct {
	Source int
	Target int
}

// Lengths tokenizes every example the way the collator does, BOS before the
// input and EOS after the output, without truncation.
func Lengths(tok tokenizer.Tokenizer, examples []dataset.Example, bos, eos string) ([]Length, error) {
	out := make([]Length, len(examples))
	for i, ex := range examples {
		src, err := tok.Encode(bos+ex.Input, 0)
		if err != nil {
			return nil, fmt.Errorf("example %d source: %w", i, err)
		}
		tgt, err := tok.Encode(ex.Output+eos, 0)
		if err != nil {
			return nil, fmt.Errorf("example %d target: %w", i, err)
		}
		out[i] = Length{Source: len(src), Target: len(tgt)}
	}
	return out, nil
}

// Summary describes the distribution of one span's lengths.
type Summary struct {
	Count int
	Mean  float64
	P50   float64
	P90   float64
	P99   float64
	Max   float64
}

// Summaries holds the source and target distributions.
type Summaries struct {
	Source Summary
	Target Summary
}

// Summarize computes per-span summaries. An empty input yields zero values.
func Summarize(lengths []Length) Summaries {
	src := make([]float64, len(lengths))
	tgt := make([]float64, len(lengths))
	for i, l := range lengths {
		src[i] = float64(l.Source)
		tgt[i] = float64(l.Target)
	}
	return Summaries{Source: summarize(src), Target: summarize(tgt)}
}

func summarize(x []float64) Summary {
	if len(x) == 0 {
		return Summary{}
	}
	// stat.Quantile requires sorted input
	slices.Sort(x)
	return Summary{
		Count: len(x),
		Mean:  stat.Mean(x, nil),
		P50:   stat.Quantile(0.5, stat.Empirical, x, nil),
		P90:   stat.Quantile(0.9, stat.Empirical, x, nil),
		P99:   stat.Quantile(0.99, stat.Empirical, x, nil),
		Max:   x[len(x)-1],
	}
}

// TruncationReport lists the examples whose spans exceed the configured
// limits. Indices refer to positions in the slice given to Truncation.
type TruncationReport struct {
	Source *roaring.Bitmap
	Target *roaring.Bitmap
}

// Truncation marks examples whose source or target is longer than the
// limit. A non-positive limit never truncates.
func Truncation(lengths []Length, sourceMax, targetMax int) TruncationReport {
	r := TruncationReport{Source: roaring.New(), Target: roaring.New()}
	for i, l := range lengths {
		if sourceMax > 0 && l.Source > sourceMax {
			r.Source.Add(uint32(i))
		}
		if targetMax > 0 && l.Target > targetMax {
			r.Target.Add(uint32(i))
		}
	}
	return r
}

// Any is the union of both bitmaps.
func (r TruncationReport) Any() *roaring.Bitmap {
	return roaring.Or(r.Source, r.Target)
}

// Counts returns the number of truncated sources and targets.
func (r TruncationReport) Counts() (source, target uint64) {
	return r.Source.GetCardinality(), r.Target.GetCardinality()
}

// TargetLosesEOS reports examples whose target is cut so that the trailing
// EOS is dropped. With the EOS appended last, this is every truncated target.
func (r TruncationReport) TargetLosesEOS() []uint32 {
	return r.Target.ToArray()
}
