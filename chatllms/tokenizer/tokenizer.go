package tokenizer

import (
	"errors"
	"fmt"
	"strings"
)

// Tokenizer converts raw text to token ids. Encode never adds special tokens:
// callers splice BOS/EOS markers into the text themselves. Implementations
// must be safe for concurrent use.
type Tokenizer interface {
	// Encode tokenizes text and keeps at most maxLen ids, dropping from the
	// end. maxLen <= 0 disables truncation.
	Encode(text string, maxLen int) ([]int64, error)
	Decode(ids []int64) string
	Special() SpecialTokens
}

// SpecialTokens describes the marker strings a tokenizer recognises and the
// ids they map to. PadID is -1 when the tokenizer has no pad token.
type SpecialTokens struct {
	BOS   string
	EOS   string
	PAD   string
	UNK   string
	BosID int64
	EosID int64
	PadID int64
	UnkID int64
}

// Config holds basic tokenizer settings
type Config struct {
	// Kind is one of "pretrained", "wordpiece" or "byte".
	Kind string `mapstructure:"kind"`
	// Path points at tokenizer.json (pretrained) or vocab.txt (wordpiece).
	Path string `mapstructure:"path"`
}

var (
	// ErrUnsupported indicates the tokenizer could not be initialized
	ErrUnsupported = errors.New("unsupported tokenizer configuration")
	// ErrMissingSpecialToken is returned when a required marker has no id.
	ErrMissingSpecialToken = errors.New("tokenizer is missing a special token")
)

// Load builds the tokenizer selected by cfg.Kind.
func Load(cfg Config) (Tokenizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", "byte":
		return NewByte(), nil
	case "pretrained", "hf", "huggingface":
		return NewSugarPretrained(cfg.Path)
	case "wordpiece":
		return NewSugarWordPiece(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrUnsupported, cfg.Kind)
	}
}

// truncate keeps the first maxLen ids.
func truncate(ids []int64, maxLen int) []int64 {
	if maxLen > 0 && len(ids) > maxLen {
		return ids[:maxLen]
	}
	return ids
}

// segment is a piece of text that is either plain text or a special marker.
type segment struct {
	text    string
	special bool
}

// splitSpecial cuts text around any of the marker strings, longest marker
// first so that overlapping markers resolve deterministically.
func splitSpecial(text string, markers []string) []segment {
	var out []segment
	for text != "" {
		pos, marker := -1, ""
		for _, m := range markers {
			if m == "" {
				continue
			}
			i := strings.Index(text, m)
			if i < 0 {
				continue
			}
			if pos < 0 || i < pos || (i == pos && len(m) > len(marker)) {
				pos, marker = i, m
			}
		}
		if pos < 0 {
			out = append(out, segment{text: text})
			break
		}
		if pos > 0 {
			out = append(out, segment{text: text[:pos]})
		}
		out = append(out, segment{text: marker, special: true})
		text = text[pos+len(marker):]
	}
	return out
}
