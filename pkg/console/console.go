// Package console records runtime messages and writes them out on
// shutdown.
//
// Every message goes to the structured logger and to an in-memory
// transcript. When output is enabled, WriteOutput hands the transcript to
// each configured Sink. A fatal script error forces output on so the
// transcript survives the crash.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Severity classifies a console message.
type Severity uint8

const (
	Normal Severity = iota
	Warning
	Error
	// NetworkVerbose messages are recorded only when verbose networking
	// is enabled.
	NetworkVerbose
)

// String returns the transcript label for the severity.
func (s Severity) String() string {
	switch s {
	case Normal:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case NetworkVerbose:
		return "NET"
	default:
		return "UNKNOWN"
	}
}

// Entry is one transcript line.
type Entry struct {
	Time     time.Time
	Severity Severity
	Text     string
}

// Sink receives the formatted transcript.
type Sink interface {
	Write(ctx context.Context, transcript []byte) error
}

// DefaultMaxEntries bounds the transcript; older entries are dropped first.
const DefaultMaxEntries = 10000

// Console is safe for concurrent use.
type Console struct {
	logger     *slog.Logger
	verbose    bool
	maxEntries int
	sinks      []Sink
	now        func() time.Time

	mu      sync.Mutex
	entries []Entry
	dropped int

	output atomic.Bool
}

// Option configures a Console.
type Option func(*Console)

// WithVerbose records NetworkVerbose messages.
func WithVerbose(verbose bool) Option {
	return func(c *Console) {
		c.verbose = verbose
	}
}

// WithSink adds an output destination.
func WithSink(s Sink) Option {
	return func(c *Console) {
		c.sinks = append(c.sinks, s)
	}
}

// WithMaxEntries bounds the transcript.
func WithMaxEntries(n int) Option {
	return func(c *Console) {
		c.maxEntries = n
	}
}

// WithOutput enables output from the start.
func WithOutput(enabled bool) Option {
	return func(c *Console) {
		c.output.Store(enabled)
	}
}

// New creates a console logging to logger.
func New(logger *slog.Logger, opts ...Option) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Console{
		logger:     logger.With("component", "console"),
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMsg records text with the given severity.
func (c *Console) SendMsg(text string, sev Severity) {
	switch sev {
	case Warning:
		c.logger.Warn(text)
	case Error:
		c.logger.Error(text)
	case NetworkVerbose:
		if !c.verbose {
			c.logger.Debug(text)
			return
		}
		c.logger.Info(text, "verbose", true)
	default:
		c.logger.Info(text)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, Entry{Time: c.now(), Severity: sev, Text: text})
	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		over := len(c.entries) - c.maxEntries
		c.entries = append(c.entries[:0], c.entries[over:]...)
		c.dropped += over
	}
}

// Printf records a formatted Normal message.
func (c *Console) Printf(format string, args ...any) {
	c.SendMsg(fmt.Sprintf(format, args...), Normal)
}

// Verbose reports whether NetworkVerbose messages are recorded.
func (c *Console) Verbose() bool {
	return c.verbose
}

// EnableOutput turns on WriteOutput.
func (c *Console) EnableOutput() {
	c.output.Store(true)
}

// OutputEnabled reports whether WriteOutput writes anything.
func (c *Console) OutputEnabled() bool {
	return c.output.Load()
}

// Entries returns a copy of the transcript.
func (c *Console) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Transcript formats the recorded entries, one per line.
func (c *Console) Transcript() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	if c.dropped > 0 {
		fmt.Fprintf(&b, "(%d earlier messages dropped)\n", c.dropped)
	}
	for _, e := range c.entries {
		fmt.Fprintf(&b, "%s [%s] %s\n", e.Time.Format("2006-01-02 15:04:05.000"), e.Severity, e.Text)
	}
	return []byte(b.String())
}

// WriteOutput writes the transcript to every sink when output is enabled.
// All sinks are attempted; their errors are joined.
func (c *Console) WriteOutput(ctx context.Context) error {
	if !c.output.Load() || len(c.sinks) == 0 {
		return nil
	}
	data := c.Transcript()

	var errs []error
	for _, s := range c.sinks {
		if err := s.Write(ctx, data); err != nil {
			c.logger.Error("output sink failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
