package ports

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v2"
)

// Terminal writes plain lines to out and draws progress bars on it.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewTerminal returns an Interactor writing to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) Output(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, message)
}

func (t *Terminal) Outputf(format string, args ...any) {
	t.Output(fmt.Sprintf(format, args...))
}

func (t *Terminal) Warning(message string) {
	t.Output("warning: " + message)
}

func (t *Terminal) Error(message string, err error) {
	if err != nil {
		t.Output(fmt.Sprintf("error: %s: %v", message, err))
		return
	}
	t.Output("error: " + message)
}

// StartProgress replaces any running bar.
func (t *Terminal) StartProgress(message string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, message)
	t.bar = progressbar.NewOptions(total, progressbar.OptionSetWriter(t.out))
}

func (t *Terminal) Advance(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bar != nil {
		_ = t.bar.Add(n)
	}
}

func (t *Terminal) StopProgress(success bool, message string) {
	t.mu.Lock()
	if t.bar != nil {
		if success {
			_ = t.bar.Finish()
		}
		fmt.Fprintln(t.out)
		t.bar = nil
	}
	t.mu.Unlock()

	if success {
		t.Output(message)
	} else {
		t.Warning(message)
	}
}

var _ Interactor = (*Terminal)(nil)
