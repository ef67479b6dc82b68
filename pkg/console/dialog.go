package console

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Icon selects the symbol shown by a dialog.
type Icon int

const (
	IconOK Icon = iota
	IconWarning
	IconQuestion
	IconInformation
)

// ClampIcon maps any integer onto a valid Icon.
func ClampIcon(n int) Icon {
	switch {
	case n < int(IconOK):
		return IconOK
	case n > int(IconInformation):
		return IconInformation
	default:
		return Icon(n)
	}
}

// String returns the icon name.
func (i Icon) String() string {
	switch i {
	case IconOK:
		return "ok"
	case IconWarning:
		return "warning"
	case IconQuestion:
		return "question"
	case IconInformation:
		return "information"
	default:
		return "unknown"
	}
}

// Dialog shows a blocking message to the user.
type Dialog interface {
	Show(title, message string, icon Icon)
}

// WriterDialog prints dialogs to a writer. It is the dialog used when no
// window system is attached.
type WriterDialog struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterDialog creates a dialog writing to w, or stderr if w is nil.
func NewWriterDialog(w io.Writer) *WriterDialog {
	if w == nil {
		w = os.Stderr
	}
	return &WriterDialog{w: w}
}

func (d *WriterDialog) Show(title, message string, icon Icon) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, "[%s] %s\n%s\n", ClampIcon(int(icon)), title, message)
}
