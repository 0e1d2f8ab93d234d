// Package capture reads and writes raw event stream captures: the exact bytes
// a research server sent, as tee'd by the frame decoder. Captures can be
// replayed through a session later, or followed while still being written.
package capture

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// Open returns a reader over the capture at path. Stdin reads standard input
// and is not closed by the returned ReadCloser.
func Open(path string) (io.ReadCloser, error) {
	if path == "" || path == Stdin {
		return io.NopCloser(os.Stdin), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening capture: %w", err)
	}
	return f, nil
}

// Create truncates or creates a capture file at path, creating parent
// directories as needed.
func Create(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating capture directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating capture: %w", err)
	}
	return f, nil
}
