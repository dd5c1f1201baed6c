package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/ZanzyTHEbar/chatllms-go/chatllms/collator"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/dataset"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/loader"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/store"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/tokenizer"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

func newCollateCmd(a *app) *cobra.Command {
	var (
		generate bool
		split    string
		dump     string
	)
	cmd := &cobra.Command{
		Use:   "collate",
		Short: "Collate a split into batches and record them as a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			mod, err := dataset.MakeDataModule(ctx, a.cfg.Data, a.logger)
			if err != nil {
				return err
			}
			var examples []dataset.Example
			switch split {
			case "train":
				examples = mod.Train
			case "eval":
				examples = mod.Eval
			default:
				return fmt.Errorf("unknown split %q, want train or eval", split)
			}
			if len(examples) == 0 {
				return fmt.Errorf("%w: %s split is empty", dataset.ErrEmptySplit, split)
			}

			tok, err := tokenizer.Load(a.cfg.Tokenizer)
			if err != nil {
				return err
			}
			ccfg := a.cfg.Collator
			if generate {
				ccfg.PredictWithGenerate = true
			}
			ccfg = collator.ConfigFromTokenizer(tok, ccfg)
			c, err := collator.New(tok, ccfg)
			if err != nil {
				return err
			}
			l, err := loader.New(examples, c, a.cfg.Loader, a.logger)
			if err != nil {
				return err
			}

			var w *bufio.Writer
			if dump != "" {
				f, err := os.Create(dump)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", dump, err)
				}
				defer f.Close()
				w = bufio.NewWriter(f)
			}

			st, err := store.Open(ctx, a.cfg.Store.DSN, a.logger)
			if err != nil {
				return err
			}
			defer st.Close()

			runID, err := st.StartRun(ctx, store.RunConfig{
				Dataset:   a.cfg.Data.DatasetName,
				Tokenizer: a.cfg.Tokenizer.Kind,
				BatchSize: a.cfg.Loader.BatchSize,
				Collator:  ccfg,
			})
			if err != nil {
				return err
			}

			a.ui.StartProgress(fmt.Sprintf("collating %d %s examples", len(examples), split), l.Len())
			err = l.Each(ctx, func(i int, b *collator.Batch) error {
				if err := st.RecordBatch(ctx, runID, i, b); err != nil {
					return err
				}
				if w != nil {
					if err := writeBatch(w, b); err != nil {
						return fmt.Errorf("failed to dump batch %d: %w", i, err)
					}
				}
				a.ui.Advance(1)
				return nil
			})
			if err == nil && w != nil {
				err = w.Flush()
			}
			if ferr := st.FinishRun(ctx, runID, err); ferr != nil {
				a.logger.Error().Err(ferr).Str("run_id", runID.String()).Msg("Failed to mark run")
			}
			if err != nil {
				a.ui.StopProgress(false, "collation stopped")
				return err
			}
			a.ui.StopProgress(true, "collation finished")

			sum, err := st.RunSummary(ctx, runID)
			if err != nil {
				return err
			}
			a.ui.Outputf("run %s %s", sum.RunID, sum.Status)
			a.ui.Outputf("batches=%d rows=%d cells=%d tokens=%d label_tokens=%d",
				sum.Batches, sum.Rows, sum.Cells, sum.Tokens, sum.LabelTokens)
			a.logger.Info().Str("run_id", sum.RunID.String()).Int("batches", sum.Batches).Msg("Run recorded")
			return nil
		},
	}
	cmd.Flags().BoolVar(&generate, "generate", false, "collate for generation: source only, no labels")
	cmd.Flags().StringVar(&split, "split", "train", "split to collate (train or eval)")
	cmd.Flags().StringVar(&dump, "dump", "", "also write each collated batch as a JSON line to this path")
	return cmd
}

// writeBatch writes one batch as a JSON object keyed by tensor name.
func writeBatch(w io.Writer, b *collator.Batch) error {
	line, err := sonic.Marshal(b.Map())
	if err != nil {
		return err
	}
	_, err = w.Write(append(line, '\n'))
	return err
}
