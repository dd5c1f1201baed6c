package tokenizer

import (
	"fmt"
	"os"
	"path/filepath"

	internal "github.com/ZanzyTHEbar/chatllms-go/chatllms"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Sugar wraps a sugarme/tokenizer Tokenizer (HuggingFace-compatible).
type Sugar struct {
	t       *tk.Tokenizer
	special SpecialTokens
}

// NewSugarPretrained loads a HuggingFace tokenizer.json. A directory is
// accepted and resolved to <dir>/tokenizer.json.
func NewSugarPretrained(path string) (*Sugar, error) {
	file, err := resolveFile(path, "tokenizer.json")
	if err != nil {
		return nil, err
	}
	t, err := pretrained.FromFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", file, err)
	}
	return newSugar(t, []markerCandidate{
		{role: "bos", names: []string{internal.DefaultBOSToken, "<|begin_of_text|>", "<|endoftext|>"}},
		{role: "eos", names: []string{internal.DefaultEOSToken, "<|end_of_text|>", "<|endoftext|>"}},
		{role: "pad", names: []string{internal.DefaultPadToken, "<pad>", "<|pad|>"}},
		{role: "unk", names: []string{internal.DefaultUNKToken, "[UNK]"}},
	})
}

// NewSugarWordPiece loads vocab.txt and builds a BERT-style WordPiece
// tokenizer. [CLS] and [SEP] act as the sequence markers.
func NewSugarWordPiece(vocabPath string) (*Sugar, error) {
	file, err := resolveFile(vocabPath, "vocab.txt")
	if err != nil {
		return nil, err
	}
	wp, err := wordpiece.NewWordPieceFromFile(file, "[UNK]")
	if err != nil {
		return nil, fmt.Errorf("failed to load wordpiece vocab %s: %w", file, err)
	}

	t := tk.NewTokenizer(wp)
	t.WithNormalizer(normalizer.NewBertNormalizer(true, true, true, true))
	t.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())
	t.AddSpecialTokens([]tk.AddedToken{
		tk.NewAddedToken("[CLS]", true),
		tk.NewAddedToken("[SEP]", true),
		tk.NewAddedToken("[PAD]", true),
		tk.NewAddedToken("[UNK]", true),
	})

	return newSugar(t, []markerCandidate{
		{role: "bos", names: []string{"[CLS]"}},
		{role: "eos", names: []string{"[SEP]"}},
		{role: "pad", names: []string{"[PAD]"}},
		{role: "unk", names: []string{"[UNK]"}},
	})
}

type markerCandidate struct {
	role  string
	names []string
}

func newSugar(t *tk.Tokenizer, candidates []markerCandidate) (*Sugar, error) {
	s := &Sugar{t: t, special: SpecialTokens{BosID: -1, EosID: -1, PadID: -1, UnkID: -1}}
	for _, c := range candidates {
		name, id, ok := s.lookup(c.names)
		if !ok {
			continue
		}
		switch c.role {
		case "bos":
			s.special.BOS, s.special.BosID = name, id
		case "eos":
			s.special.EOS, s.special.EosID = name, id
		case "pad":
			s.special.PAD, s.special.PadID = name, id
		case "unk":
			s.special.UNK, s.special.UnkID = name, id
		}
	}
	if s.special.EosID < 0 {
		return nil, fmt.Errorf("%w: eos", ErrMissingSpecialToken)
	}
	if s.special.BosID < 0 {
		s.special.BOS, s.special.BosID = s.special.EOS, s.special.EosID
	}
	// LLaMA-style vocabularies ship without a pad token; pad with unk the
	// same way the training scripts do.
	if s.special.PadID < 0 {
		if s.special.UnkID < 0 {
			return nil, fmt.Errorf("%w: pad", ErrMissingSpecialToken)
		}
		s.special.PAD, s.special.PadID = s.special.UNK, s.special.UnkID
	}
	return s, nil
}

func (s *Sugar) lookup(names []string) (string, int64, bool) {
	for _, n := range names {
		if id, ok := s.t.TokenToId(n); ok {
			return n, int64(id), true
		}
	}
	return "", -1, false
}

func (s *Sugar) Special() SpecialTokens { return s.special }

func (s *Sugar) Encode(text string, maxLen int) ([]int64, error) {
	enc, err := s.t.EncodeSingle(text, false)
	if err != nil {
		return nil, err
	}
	uids := enc.GetIds()
	ids := make([]int64, len(uids))
	for i, id := range uids {
		ids[i] = int64(id)
	}
	return truncate(ids, maxLen), nil
}

func (s *Sugar) Decode(ids []int64) string {
	uids := make([]int, len(ids))
	for i, id := range ids {
		uids[i] = int(id)
	}
	return s.t.Decode(uids, false)
}

func resolveFile(path, name string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsupported)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to access tokenizer path %s: %w", path, err)
	}
	if !fi.IsDir() {
		return path, nil
	}
	file := filepath.Join(path, name)
	if _, err := os.Stat(file); err != nil {
		return "", fmt.Errorf("failed to access %s: %w", file, err)
	}
	return file, nil
}
