package clipboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

// Writer copies text to a system clipboard.
type Writer struct {
	write       func(string) error
	unsupported func() bool
}

// New returns a writer backed by the platform clipboard tool.
func New() *Writer {
	return &Writer{
		write:       clipboard.WriteAll,
		unsupported: func() bool { return clipboard.Unsupported },
	}
}

// Copy writes text to the clipboard. It gives up when ctx is done; the
// underlying tool may still finish in the background.
func (w *Writer) Copy(ctx context.Context, text string) error {
	if w.unsupported() {
		return ErrToolNotFound
	}

	done := make(chan error, 1)
	go func() { done <- w.write(text) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("clipboard command failed: %w", err)
		}
		return nil
	}
}

// Copy writes text with the platform clipboard.
func Copy(ctx context.Context, text string) error {
	return New().Copy(ctx, text)
}
