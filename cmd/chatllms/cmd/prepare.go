package cmd

import (
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/chatllms-go/chatllms/dataset"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/stats"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/tokenizer"

	"github.com/spf13/cobra"
)

func newPrepareCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Load the configured datasets and report token-length statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mod, err := dataset.MakeDataModule(cmd.Context(), a.cfg.Data, a.logger)
			if err != nil {
				return err
			}
			tok, err := tokenizer.Load(a.cfg.Tokenizer)
			if err != nil {
				return err
			}

			a.ui.Outputf("train examples: %d", len(mod.Train))
			a.ui.Outputf("eval examples: %d", len(mod.Eval))
			if err := a.reportLengths(tok, "train", mod.Train); err != nil {
				return err
			}
			if err := a.reportLengths(tok, "eval", mod.Eval); err != nil {
				return err
			}

			if out != "" {
				if err := writeExamples(out, mod.Train); err != nil {
					return err
				}
				a.ui.Outputf("wrote %d train examples to %s", len(mod.Train), out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the formatted train split as JSONL to this path")
	return cmd
}

func (a *app) reportLengths(tok tokenizer.Tokenizer, split string, examples []dataset.Example) error {
	if len(examples) == 0 {
		return nil
	}
	sp := tok.Special()
	lengths, err := stats.Lengths(tok, examples, sp.BOS, sp.EOS)
	if err != nil {
		return fmt.Errorf("%s lengths: %w", split, err)
	}
	sum := stats.Summarize(lengths)
	for _, row := range []struct {
		span string
		s    stats.Summary
	}{{"source", sum.Source}, {"target", sum.Target}} {
		a.ui.Outputf("%s %s tokens: mean=%.1f p50=%.0f p90=%.0f p99=%.0f max=%.0f",
			split, row.span, row.s.Mean, row.s.P50, row.s.P90, row.s.P99, row.s.Max)
	}

	report := stats.Truncation(lengths, a.cfg.Collator.SourceMaxLen, a.cfg.Collator.TargetMaxLen)
	src, tgt := report.Counts()
	a.ui.Outputf("%s truncated: source=%d (limit %d) target=%d (limit %d)",
		split, src, a.cfg.Collator.SourceMaxLen, tgt, a.cfg.Collator.TargetMaxLen)
	a.ui.Outputf("%s examples truncated: %d of %d", split, report.Any().GetCardinality(), len(examples))
	if tgt > 0 {
		a.ui.Warning(fmt.Sprintf("%d %s targets exceed targetMaxLen and will lose their EOS token", tgt, split))
		a.logger.Debug().Str("split", split).Uints32("examples", report.TargetLosesEOS()).Msg("Targets losing EOS")
	}
	return nil
}

func writeExamples(path string, examples []dataset.Example) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := dataset.WriteJSONL(f, examples); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
