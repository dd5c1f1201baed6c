package ports

// Interactor is how commands report to the user. Progress is counted in
// batches.
type Interactor interface {
	Output(message string)
	Outputf(format string, args ...any)
	Warning(message string)
	Error(message string, err error)
	StartProgress(message string, total int)
	Advance(n int)
	StopProgress(success bool, message string)
}
