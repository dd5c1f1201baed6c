// Package collator turns batches of instruction/response pairs into padded
// token id, attention mask and label matrices for causal language model
// training.
package collator

import (
	"errors"
	"fmt"

	internal "github.com/ZanzyTHEbar/chatllms-go/chatllms"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/dataset"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/tokenizer"
)

var (
	ErrInvalidConfig = errors.New("invalid collator configuration")
	ErrEmptyBatch    = errors.New("collate requires at least one example")
)

// Config controls truncation, loss masking and padding.
type Config struct {
	SourceMaxLen int `mapstructure:"sourceMaxLen"`
	TargetMaxLen int `mapstructure:"targetMaxLen"`
	// TrainOnSource computes the loss over the source span as well.
	TrainOnSource bool `mapstructure:"trainOnSource"`
	// PredictWithGenerate emits only the source ids and no labels.
	PredictWithGenerate bool `mapstructure:"predictWithGenerate"`

	PadID       int64  `mapstructure:"-"`
	EOSToken    string `mapstructure:"-"`
	BOSToken    string `mapstructure:"-"`
	IgnoreIndex int64  `mapstructure:"-"`
}

// ConfigFromTokenizer fills the token fields of cfg from the tokenizer's
// special tokens and sets the ignore value to internal.IgnoreIndex.
func ConfigFromTokenizer(tok tokenizer.Tokenizer, cfg Config) Config {
	sp := tok.Special()
	cfg.PadID = sp.PadID
	cfg.BOSToken = sp.BOS
	cfg.EOSToken = sp.EOS
	cfg.IgnoreIndex = internal.IgnoreIndex
	return cfg
}

// Validate reports the first configuration problem, wrapped in
// ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.SourceMaxLen <= 0:
		return fmt.Errorf("%w: source max length must be positive, got %d", ErrInvalidConfig, c.SourceMaxLen)
	case c.TargetMaxLen <= 0:
		return fmt.Errorf("%w: target max length must be positive, got %d", ErrInvalidConfig, c.TargetMaxLen)
	case c.PadID < 0:
		return fmt.Errorf("%w: missing pad id", ErrInvalidConfig)
	case c.BOSToken == "":
		return fmt.Errorf("%w: missing bos token", ErrInvalidConfig)
	case c.EOSToken == "":
		return fmt.Errorf("%w: missing eos token", ErrInvalidConfig)
	case c.IgnoreIndex >= 0:
		return fmt.Errorf("%w: ignore value %d collides with vocabulary ids", ErrInvalidConfig, c.IgnoreIndex)
	}
	return nil
}

// Collator is immutable after construction and safe for concurrent use as
// long as its tokenizer is.
type Collator struct {
	tok tokenizer.Tokenizer
	cfg Config
}

// New validates cfg and binds it to tok.
func New(tok tokenizer.Tokenizer, cfg Config) (*Collator, error) {
	if tok == nil {
		return nil, fmt.Errorf("%w: nil tokenizer", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Collator{tok: tok, cfg: cfg}, nil
}

// Config returns the active configuration.
func (c *Collator) Config() Config { return c.cfg }

// WithSourceMaxLen returns a copy that truncates sources to n tokens.
// Evaluation passes use it to collate with a different source budget
// without touching the training collator.
func (c *Collator) WithSourceMaxLen(n int) (*Collator, error) {
	cfg := c.cfg
	cfg.SourceMaxLen = n
	return New(c.tok, cfg)
}

// Collate tokenizes and pads one batch.
func (c *Collator) Collate(examples []dataset.Example) (*Batch, error) {
	if len(examples) == 0 {
		return nil, ErrEmptyBatch
	}

	inputIDs := make([][]int64, len(examples))
	var labels [][]int64
	if !c.cfg.PredictWithGenerate {
		labels = make([][]int64, len(examples))
	}

	for i, ex := range examples {
		source, err := c.tok.Encode(c.cfg.BOSToken+ex.Input, c.cfg.SourceMaxLen)
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize source of example %d: %w", i, err)
		}
		target, err := c.tok.Encode(ex.Output+c.cfg.EOSToken, c.cfg.TargetMaxLen)
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize target of example %d: %w", i, err)
		}

		if c.cfg.PredictWithGenerate {
			inputIDs[i] = append([]int64(nil), source...)
			continue
		}

		row := make([]int64, 0, len(source)+len(target))
		row = append(row, source...)
		row = append(row, target...)
		inputIDs[i] = row

		lab := make([]int64, 0, len(row))
		if c.cfg.TrainOnSource {
			lab = append(lab, source...)
		} else {
			for range source {
				lab = append(lab, c.cfg.IgnoreIndex)
			}
		}
		labels[i] = append(lab, target...)
	}

	b := &Batch{
		InputIDs: padRows(inputIDs, c.cfg.PadID),
	}
	b.AttentionMask = maskOf(b.InputIDs, c.cfg.PadID)
	if labels != nil {
		b.Labels = padRows(labels, c.cfg.IgnoreIndex)
	}
	b.checkShape()
	return b, nil
}

// padRows right-pads every row to the longest row's length.
func padRows(rows [][]int64, value int64) [][]int64 {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	out := make([][]int64, len(rows))
	for i, r := range rows {
		row := make([]int64, width)
		n := copy(row, r)
		for j := n; j < width; j++ {
			row[j] = value
		}
		out[i] = row
	}
	return out
}

func maskOf(ids [][]int64, padID int64) [][]bool {
	mask := make([][]bool, len(ids))
	for i, r := range ids {
		m := make([]bool, len(r))
		for j, id := range r {
			m[j] = id != padID
		}
		mask[i] = m
	}
	return mask
}
