package dataset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/armon/go-radix"
)

// FormatFunc maps one raw record to an Example. It must be pure.
type FormatFunc func(Record) (Example, error)

// registry is the flat name -> FormatFunc table. The radix tree keeps names
// sorted for listing.
var registry = struct {
	mu   sync.RWMutex
	tree *radix.Tree
}{tree: radix.New()}

func init() {
	Register("alpaca", formatAlpaca)
	Register("alpaca-clean", formatAlpaca)
	Register("dolly-15k", formatDolly)
	Register("chip2", formatChip2)
	Register("self-instruct", formatSelfInstruct)
	Register("hh-rlhf", formatHHRLHF)
	Register("oasst1", formatOASST1)
	Register("vicuna", formatVicuna)
	Register("evol_instruct", formatInstruct)
	Register("olcc", formatInstruct)
	Register("sharegpt", formatIdentity)
}

// Register adds or replaces the format for a dataset name.
func Register(name string, fn FormatFunc) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.tree.Insert(name, fn)
}

// Lookup returns the format registered for name. Unknown names get the
// identity format, which expects input/output columns.
func Lookup(name string) (FormatFunc, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	v, ok := registry.tree.Get(name)
	if !ok {
		return formatIdentity, false
	}
	return v.(FormatFunc), true
}

// Formats lists the registered dataset names in sorted order.
func Formats() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, 0, registry.tree.Len())
	registry.tree.Walk(func(s string, _ interface{}) bool {
		names = append(names, s)
		return false
	})
	return names
}

// Format applies the dataset's format to every record.
func Format(name string, records []Record) ([]Example, error) {
	fn, _ := Lookup(name)
	out := make([]Example, len(records))
	for i, r := range records {
		ex, err := fn(r)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: record %d: %w", name, i, err)
		}
		out[i] = ex
	}
	return out, nil
}

func formatIdentity(r Record) (Example, error) {
	output, err := r.Require("output")
	if err != nil {
		return Example{}, err
	}
	return Example{Input: r.Get("input"), Output: output}, nil
}

func formatAlpaca(r Record) (Example, error) {
	input, err := promptFormat(r, AlpacaPromptInput, AlpacaPromptNoInput)
	if err != nil {
		return Example{}, err
	}
	output, err := r.Require("output")
	if err != nil {
		return Example{}, err
	}
	return Example{Input: input, Output: output}, nil
}

func formatInstruct(r Record) (Example, error) {
	input, err := promptFormat(r, InstructPromptInput, InstructPromptNoInput)
	if err != nil {
		return Example{}, err
	}
	output, err := r.Require("output")
	if err != nil {
		return Example{}, err
	}
	return Example{Input: input, Output: output}, nil
}

// formatDolly renames context->input and response->output, then applies the
// alpaca template.
func formatDolly(r Record) (Example, error) {
	renamed := Record{"instruction": r["instruction"], "input": r["context"], "output": r["response"]}
	return formatAlpaca(renamed)
}

func formatChip2(r Record) (Example, error) {
	text, err := r.Require("text")
	if err != nil {
		return Example{}, err
	}
	parts := strings.Split(text, "\n<bot>: ")
	if len(parts) < 2 {
		return Example{}, fmt.Errorf("%w: chip2 text has no bot turn", ErrMalformedRecord)
	}
	return Example{
		Input:  strings.ReplaceAll(parts[0], "<human>: ", ""),
		Output: parts[1],
	}, nil
}

func formatSelfInstruct(r Record) (Example, error) {
	input, err := r.Require("prompt")
	if err != nil {
		return Example{}, err
	}
	output, err := r.Require("completion")
	if err != nil {
		return Example{}, err
	}
	return Example{Input: input, Output: output}, nil
}

func formatHHRLHF(r Record) (Example, error) {
	output, err := r.Require("chosen")
	if err != nil {
		return Example{}, err
	}
	return Example{Output: output}, nil
}

func formatOASST1(r Record) (Example, error) {
	output, err := r.Require("text")
	if err != nil {
		return Example{}, err
	}
	return Example{Output: output}, nil
}
