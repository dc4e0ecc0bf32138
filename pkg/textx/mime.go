package textx

import (
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotText is returned by RequireText for binary content.
var ErrNotText = errors.New("content is not text")

// RequireText rejects data that does not sniff as text, such as images or
// archives dropped onto the console list.
func RequireText(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported media type %s", ErrNotText, mt.String())
}
