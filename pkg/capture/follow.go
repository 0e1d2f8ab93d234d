package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/dossier/pkg/logger"
)

// Follower reads a capture file that may still be growing. At end of file
// Read blocks until the file is written to again or the context is done, so
// the frame decoder sees a live stream.
type Follower struct {
	ctx     context.Context
	file    *os.File
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// Follow opens path for tailing. The parent directory is watched rather than
// the file so that truncation and atomic replacement are noticed.
func Follow(ctx context.Context, path string, log *slog.Logger) (*Follower, error) {
	if log == nil {
		log = logger.Nop()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening capture: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	if err := w.Add(filepath.Dir(path)); err != nil {
		f.Close()
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}

	return &Follower{
		ctx:     ctx,
		file:    f,
		watcher: w,
		logger:  log,
	}, nil
}

// Read implements io.Reader. It never returns io.EOF; the stream ends when
// the decoder sees the sentinel or the context is cancelled.
func (f *Follower) Read(p []byte) (int, error) {
	for {
		n, err := f.file.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}

		if err := f.wait(); err != nil {
			return 0, err
		}
	}
}

func (f *Follower) wait() error {
	name := filepath.Clean(f.file.Name())

	for {
		select {
		case <-f.ctx.Done():
			return f.ctx.Err()

		case ev, ok := <-f.watcher.Events:
			if !ok {
				return io.ErrClosedPipe
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				f.logger.Debug("capture grew", "path", name, "op", ev.Op.String())
				return nil
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				return fmt.Errorf("capture %s was removed while following", name)
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return io.ErrClosedPipe
			}
			return fmt.Errorf("watching capture: %w", err)
		}
	}
}

// Close stops watching and closes the file.
func (f *Follower) Close() error {
	werr := f.watcher.Close()
	ferr := f.file.Close()
	return errors.Join(werr, ferr)
}
