package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

// style is an ANSI SGR sequence.
type style string

const (
	styleReset  style = "\033[0m"
	styleRed    style = "\033[31m"
	styleYellow style = "\033[33m"
	styleCyan   style = "\033[36m"
	styleGray   style = "\033[90m"
	styleBold   style = "\033[1m"
)

var plain atomic.Bool

// DisableColors turns off ANSI styling, e.g. when stderr is not a terminal.
func DisableColors() {
	plain.Store(true)
}

// EnableColors turns ANSI styling back on.
func EnableColors() {
	plain.Store(false)
}

// paint applies styles to text unless colors are disabled.
func paint(text string, styles ...style) string {
	if plain.Load() || len(styles) == 0 {
		return text
	}
	var b strings.Builder
	for _, s := range styles {
		b.WriteString(string(s))
	}
	b.WriteString(text)
	b.WriteString(string(styleReset))
	return b.String()
}

const detailWidth = 70

// Format renders the error for a terminal: a header, the script location
// with surrounding source lines, the cause, the detail and a hint.
func (e *LimeError) Format() string {
	var b strings.Builder
	e.writeHeader(&b)
	e.writeSource(&b)

	if e.Wrapped != nil {
		fmt.Fprintf(&b, "  %s\n\n", e.Wrapped.Error())
	}
	if lines := wrapText(e.Detail, detailWidth); len(lines) > 0 {
		for _, line := range lines {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteByte('\n')
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", paint("Hint: ", styleCyan), e.Suggestion)
	}
	return b.String()
}

func (e *LimeError) writeHeader(w io.Writer) {
	label := paint("ERROR", styleRed, styleBold)
	if !e.Fatal() {
		label = paint("WARNING", styleYellow, styleBold)
	}
	title := e.Message
	if e.Code != "" {
		title = paint(e.Code+":", styleBold) + " " + e.Message
	}
	fmt.Fprintf(w, "\n%s %s\n\n", label, title)
}

// writeSource prints the location and marks the failing line among the
// context lines read from the script.
func (e *LimeError) writeSource(w io.Writer) {
	if e.Location == nil {
		return
	}
	fmt.Fprintf(w, "  %s\n\n", paint(e.Location.String(), styleCyan))
	if len(e.Context) == 0 {
		return
	}

	for i, src := range e.Context {
		n := e.ContextStart + i
		marker := "    "
		if n == e.Location.Line {
			marker = "  " + paint("→ ", styleRed)
		}
		fmt.Fprintf(w, "%s%4d%s%s\n", marker, n, paint(" │ ", styleGray), src)
	}
	fmt.Fprintln(w)
}

// FormatCompact returns "location: code: message: cause" on one line,
// leaving out the parts that are unset.
func (e *LimeError) FormatCompact() string {
	parts := make([]string, 0, 4)
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	parts = append(parts, e.Message)
	if e.Wrapped != nil {
		parts = append(parts, e.Wrapped.Error())
	}
	return strings.Join(parts, ": ")
}

// wrapText breaks text into lines of at most width bytes, splitting on
// whitespace. Words longer than width get a line of their own.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}

// PrintError prints err to stderr, using Format for coded errors.
func PrintError(err error) {
	var le *LimeError
	if stderrors.As(err, &le) {
		fmt.Fprint(os.Stderr, le.Format())
		return
	}
	fmt.Fprintf(os.Stderr, "\n%s %s\n\n", paint("ERROR:", styleRed, styleBold), err)
}
