package tokenizer

import (
	internal "github.com/ZanzyTHEbar/chatllms-go/chatllms"
)

// Token id layout for the byte tokenizer:
//
//	0-255: raw UTF-8 bytes
//	256:   pad
//	257:   bos
//	258:   eos
//	259:   unk
const (
	NumBytes  = 256
	BytePadID = int64(256)
	ByteBosID = int64(257)
	ByteEosID = int64(258)
	ByteUnkID = int64(259)
)

// Byte is the simplest possible tokenizer: each byte is a token, plus four
// special markers that are recognised when they appear verbatim in the text.
type Byte struct {
	special SpecialTokens
	markers []string
	ids     map[string]int64
}

// NewByte returns a byte tokenizer using the default marker strings.
func NewByte() *Byte {
	sp := SpecialTokens{
		BOS:   internal.DefaultBOSToken,
		EOS:   internal.DefaultEOSToken,
		PAD:   internal.DefaultPadToken,
		UNK:   internal.DefaultUNKToken,
		BosID: ByteBosID,
		EosID: ByteEosID,
		PadID: BytePadID,
		UnkID: ByteUnkID,
	}
	return &Byte{
		special: sp,
		markers: []string{sp.BOS, sp.EOS, sp.PAD, sp.UNK},
		ids: map[string]int64{
			sp.BOS: sp.BosID,
			sp.EOS: sp.EosID,
			sp.PAD: sp.PadID,
			sp.UNK: sp.UnkID,
		},
	}
}

// VocabSize is the number of ids the tokenizer can produce.
func (t *Byte) VocabSize() int { return NumBytes + 4 }

func (t *Byte) Special() SpecialTokens { return t.special }

// Encode converts a string to token ids.
func (t *Byte) Encode(text string, maxLen int) ([]int64, error) {
	ids := make([]int64, 0, len(text))
	for _, seg := range splitSpecial(text, t.markers) {
		if seg.special {
			ids = append(ids, t.ids[seg.text])
			continue
		}
		for _, b := range []byte(seg.text) {
			ids = append(ids, int64(b))
		}
		if maxLen > 0 && len(ids) >= maxLen {
			break
		}
	}
	return truncate(ids, maxLen), nil
}

// Decode converts token ids back to a string. Special ids decode to their
// marker strings; ids outside the vocabulary decode to the unk marker.
func (t *Byte) Decode(ids []int64) string {
	buf := make([]byte, 0, len(ids))
	for _, id := range ids {
		switch {
		case id >= 0 && id < NumBytes:
			buf = append(buf, byte(id))
		case id == t.special.BosID:
			buf = append(buf, t.special.BOS...)
		case id == t.special.EosID:
			buf = append(buf, t.special.EOS...)
		case id == t.special.PadID:
			buf = append(buf, t.special.PAD...)
		default:
			buf = append(buf, t.special.UNK...)
		}
	}
	return string(buf)
}
