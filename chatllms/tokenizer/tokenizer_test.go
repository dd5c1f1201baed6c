package tokenizer

import (
	"errors"
	"testing"

	internal "github.com/ZanzyTHEbar/chatllms-go/chatllms"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteEncodeRecognisesMarkers(t *testing.T) {
	tok := NewByte()

	ids, err := tok.Encode(internal.DefaultBOSToken+"Hi", 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{ByteBosID, 'H', 'i'}, ids)

	ids, err = tok.Encode("Bye"+internal.DefaultEOSToken, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{'B', 'y', 'e', ByteEosID}, ids)
}

func TestByteEncodeTruncatesFromEnd(t *testing.T) {
	tok := NewByte()

	ids, err := tok.Encode("Bye"+internal.DefaultEOSToken, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{'B', 'y'}, ids)

	ids, err = tok.Encode("ab", 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{'a', 'b'}, ids)
}

func TestByteRoundTrip(t *testing.T) {
	tok := NewByte()
	text := "<s>héllo wörld</s>"
	ids, err := tok.Encode(text, 0)
	require.NoError(t, err)
	assert.Equal(t, text, tok.Decode(ids))
	assert.Equal(t, internal.DefaultUNKToken, tok.Decode([]int64{9999}))
}

func TestByteSpecial(t *testing.T) {
	sp := NewByte().Special()
	assert.Equal(t, BytePadID, sp.PadID)
	assert.Equal(t, internal.DefaultBOSToken, sp.BOS)
	assert.Equal(t, internal.DefaultEOSToken, sp.EOS)
	assert.Equal(t, 260, NewByte().VocabSize())
}

func TestSplitSpecial(t *testing.T) {
	segs := splitSpecial("a<s>b</s></s>", []string{"<s>", "</s>"})
	require.Len(t, segs, 5)
	assert.Equal(t, segment{text: "a"}, segs[0])
	assert.Equal(t, segment{text: "<s>", special: true}, segs[1])
	assert.Equal(t, segment{text: "b"}, segs[2])
	assert.Equal(t, segment{text: "</s>", special: true}, segs[3])
	assert.Equal(t, segment{text: "</s>", special: true}, segs[4])

	assert.Empty(t, splitSpecial("", []string{"<s>"}))
}

func TestLoad(t *testing.T) {
	tok, err := Load(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Byte{}, tok)

	_, err = Load(Config{Kind: "sentencepiece"})
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = Load(Config{Kind: "pretrained"})
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = Load(Config{Kind: "wordpiece", Path: "/does/not/exist"})
	assert.Error(t, err)
}
