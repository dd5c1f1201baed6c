package dataset

import (
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
)

// Prompt templates. {instruction} and {input} are substituted in a single
// pass so that placeholders inside user text are left alone.
var (
	AlpacaPromptInput = heredoc.Doc(`
		Below is an instruction that describes a task, paired with an input that provides further context. Write a response that appropriately completes the request.

		### Instruction:
		{instruction}

		### Input:
		{input}

		### Response:`) + " "

	AlpacaPromptNoInput = heredoc.Doc(`
		Below is an instruction that describes a task. Write a response that appropriately completes the request.

		### Instruction:
		{instruction}

		### Response:`) + " "

	InstructPromptInput   = "{instruction}\n\n### Input:\n{input}### Response:"
	InstructPromptNoInput = "{instruction}\n\n### Response:"
)

func renderPrompt(tmpl, instruction, input string) string {
	return strings.NewReplacer("{instruction}", instruction, "{input}", input).Replace(tmpl)
}

// promptFormat renders the with-input or without-input template depending on
// whether the record carries a non-empty input field.
func promptFormat(r Record, withInput, noInput string) (string, error) {
	instruction, err := r.Require("instruction")
	if err != nil {
		return "", err
	}
	if input := r.Get("input"); input != "" {
		return renderPrompt(withInput, instruction, input), nil
	}
	return renderPrompt(noInput, instruction, ""), nil
}
