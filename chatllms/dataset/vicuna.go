package dataset

import (
	"fmt"
	"strings"
)

const (
	vicunaSystem = "A chat between a curious user and an artificial intelligence assistant. The assistant gives helpful," +
		"          detailed, and polite answers to the user's questions."
	vicunaUser      = "USER"
	vicunaAssistant = "ASSISTANT"
)

var (
	vicunaRoles = map[string]string{"human": vicunaUser, "gpt": vicunaAssistant}
	vicunaSeps  = [2]string{" ", "</s>"}
)

type turn struct {
	role    string
	message string
}

// formatVicuna flattens a ShareGPT-style conversation into a transcript and
// splits it at the last assistant turn: everything up to "ASSISTANT: " is
// the input, the final reply is the output.
func formatVicuna(r Record) (Example, error) {
	raw, ok := r["conversations"].([]any)
	if !ok {
		return Example{}, fmt.Errorf("%w: %q", ErrMissingField, "conversations")
	}
	conv := make([]Record, 0, len(raw))
	for i, c := range raw {
		m, ok := c.(map[string]any)
		if !ok {
			return Example{}, fmt.Errorf("%w: conversation entry %d is not an object", ErrMalformedRecord, i)
		}
		conv = append(conv, Record(m))
	}
	if len(conv) == 0 {
		return Example{}, fmt.Errorf("%w: empty conversation", ErrMalformedRecord)
	}

	system := vicunaSystem
	if strings.ToLower(conv[0].Get("from")) == "system" {
		system = conv[0].Get("value")
		conv = conv[1:]
	}
	if len(conv) > 0 && vicunaRoles[conv[0].Get("from")] != vicunaUser {
		conv = conv[1:]
	}

	turns := make([]turn, 0, len(conv))
	for j, c := range conv {
		role, ok := vicunaRoles[c.Get("from")]
		if !ok {
			return Example{}, fmt.Errorf("%w: unknown speaker %q at index %d", ErrMalformedRecord, c.Get("from"), j)
		}
		want := vicunaUser
		if j%2 == 1 {
			want = vicunaAssistant
		}
		if role != want {
			return Example{}, fmt.Errorf("%w: unexpected role at index %d", ErrMalformedRecord, j)
		}
		turns = append(turns, turn{role: role, message: c.Get("value")})
	}

	var b strings.Builder
	b.WriteString(system)
	b.WriteString(vicunaSeps[0])
	for i, t := range turns {
		if t.message == "" {
			b.WriteString(t.role + ":")
			continue
		}
		b.WriteString(t.role + ": " + t.message + vicunaSeps[i%2])
	}
	transcript := b.String()

	sep := vicunaSeps[0] + vicunaAssistant + ": "
	cut := strings.LastIndex(transcript, sep)
	if cut < 0 {
		return Example{}, fmt.Errorf("%w: conversation has no assistant reply", ErrMalformedRecord)
	}
	return Example{
		Input:  transcript[:cut] + sep,
		Output: transcript[cut+len(sep):],
	}, nil
}
