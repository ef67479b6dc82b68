package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Category groups codes by the stage that produced them.
type Category string

const (
	CategoryStartup Category = "startup"
	CategoryScript  Category = "script"
	CategoryNetwork Category = "network"
	CategoryConfig  Category = "config"
	CategoryCLI     Category = "cli"
)

// contextLines is how many source lines are shown around a failing line.
const contextLines = 5

// Location is a position inside a script file.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l *Location) String() string {
	switch {
	case l == nil:
		return ""
	case l.Column > 0:
		return l.File + ":" + strconv.Itoa(l.Line) + ":" + strconv.Itoa(l.Column)
	default:
		return l.File + ":" + strconv.Itoa(l.Line)
	}
}

// LimeError carries a registry code along with what is needed to render it
// for a player or a script author: where it happened, the source around
// that point and how to fix it.
type LimeError struct {
	Code     string
	Category Category
	Message  string
	Detail   string

	Location *Location
	// Context holds source lines starting at ContextStart (1-based).
	Context      []string
	ContextStart int

	Suggestion string
	Wrapped    error
}

func (e *LimeError) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

func (e *LimeError) Unwrap() error { return e.Wrapped }

// Fatal reports whether errors of this category end the application.
// Network and CLI errors are reported and play continues.
func (e *LimeError) Fatal() bool {
	switch e.Category {
	case CategoryStartup, CategoryScript, CategoryConfig:
		return true
	default:
		return false
	}
}

// WithLocation points the error at file:line and loads the source around it.
func (e *LimeError) WithLocation(file string, line, column int) *LimeError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.ContextStart, e.Context = sourceAround(file, line)
	return e
}

// WithLocationFromError takes the location from a Lua error message of the
// form "file.lua:line: message". The error is unchanged if none is found.
func (e *LimeError) WithLocationFromError(err error) *LimeError {
	if err == nil {
		return e
	}
	if file, line, ok := ParseScriptLocation(err.Error()); ok {
		e.WithLocation(file, line, 0)
	}
	return e
}

func (e *LimeError) WithSuggestion(s string) *LimeError {
	e.Suggestion = s
	return e
}

func (e *LimeError) WithDetail(d string) *LimeError {
	e.Detail = d
	return e
}

func (e *LimeError) Wrap(err error) *LimeError {
	e.Wrapped = err
	return e
}

// ParseScriptLocation finds the first "name.lua:line" pair in msg.
func ParseScriptLocation(msg string) (file string, line int, ok bool) {
	for _, field := range strings.Fields(msg) {
		name, rest, found := strings.Cut(field, ":")
		if !found || !strings.HasSuffix(name, ".lua") {
			continue
		}
		num, _, _ := strings.Cut(rest, ":")
		n, err := strconv.Atoi(num)
		if err != nil || n <= 0 {
			continue
		}
		return name, n, true
	}
	return "", 0, false
}

// sourceAround returns up to contextLines lines centered on line, and the
// number of the first one. Unreadable files yield no context.
func sourceAround(path string, line int) (int, []string) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil
	}
	defer f.Close()

	first := max(line-contextLines/2, 1)
	last := line + contextLines/2

	var out []string
	sc := bufio.NewScanner(f)
	for n := 1; n <= last && sc.Scan(); n++ {
		if n >= first {
			out = append(out, sc.Text())
		}
	}
	if len(out) == 0 {
		return 0, nil
	}
	return first, out
}

// New builds an error from a registered code. Unregistered codes produce
// an "Unknown error" with no category.
func New(code string) *LimeError {
	t, ok := registry[code]
	if !ok {
		return &LimeError{Code: code, Message: "Unknown error"}
	}
	return &LimeError{
		Code:     code,
		Category: t.Category,
		Message:  t.Message,
		Detail:   t.Detail,
	}
}

// Newf builds an uncoded error.
func Newf(category Category, format string, args ...any) *LimeError {
	return &LimeError{Category: category, Message: fmt.Sprintf(format, args...)}
}

// FromError wraps err under code, unless err already is a LimeError.
func FromError(err error, code string) *LimeError {
	if err == nil {
		return nil
	}
	var le *LimeError
	if stderrors.As(err, &le) {
		return le
	}
	return New(code).Wrap(err)
}
