// Package clipboard writes the generated text to the system clipboard.
package clipboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnsupported is returned when the platform offers no clipboard utility.
var ErrUnsupported = errors.New("clipboard unsupported")

// Clipboard accepts text for the system clipboard.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// System uses the platform clipboard (pbcopy, xclip, xsel, wl-copy, Windows API).
type System struct{}

// WriteText copies text to the clipboard.
func (System) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("writing clipboard: %w", err)
	}
	return nil
}
