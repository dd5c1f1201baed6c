package tokenizer

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"
)

// TestTokenizerParity compares our WordPiece tokenizer against a reference
// HuggingFace tokenizer (Python). If Python or transformers isn't available
// the test is skipped.
func TestTokenizerParity(t *testing.T) {
	py, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not found; skipping parity test")
	}

	// Dump vocab tokens ordered by id from HF bert-base-uncased
	dumpVocab := `import json
from transformers import AutoTokenizer
t=AutoTokenizer.from_pretrained("bert-base-uncased")
v=t.get_vocab()
inv=sorted(v.items(), key=lambda kv:kv[1])
print(json.dumps([k for k,_ in inv]))`

	out, err := exec.Command(py, "-c", dumpVocab).Output()
	if err != nil {
		t.Skipf("python transformers not available or network issue: %v", err)
	}

	var tokens []string
	require.NoError(t, sonic.Unmarshal(out, &tokens))

	vocab := filepath.Join(t.TempDir(), "vocab.txt")
	f, err := os.Create(vocab)
	require.NoError(t, err)
	for _, tok := range tokens {
		_, err := f.WriteString(tok + "\n")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	swp, err := NewSugarWordPiece(vocab)
	require.NoError(t, err)

	sents := []string{
		"hello world",
		"the quick brown fox jumps over the lazy dog",
	}

	// Reference ids without special tokens, truncated to 8 like the collator does
	pyEnc := `import json
from transformers import AutoTokenizer
t=AutoTokenizer.from_pretrained("bert-base-uncased")
s=["hello world","the quick brown fox jumps over the lazy dog"]
print(json.dumps([t(x, add_special_tokens=False, truncation=True, max_length=8)['input_ids'] for x in s]))`

	out2, err := exec.Command(py, "-c", pyEnc).Output()
	if err != nil {
		t.Skipf("python encode failed: %v", err)
	}
	var want [][]int64
	require.NoError(t, sonic.Unmarshal(out2, &want))
	require.Len(t, want, len(sents))

	for i, s := range sents {
		got, err := swp.Encode(s, 8)
		require.NoError(t, err)
		require.Equal(t, want[i], got, "sentence %d", i)
	}
}
