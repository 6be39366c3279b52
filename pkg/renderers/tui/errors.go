package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (Ctrl+C) or declined to save.
	ErrAborted = errors.New("tui: aborted")
	// ErrLoadFailed is returned when the view carries a load error.
	ErrLoadFailed = errors.New("tui: form failed to load")
)
