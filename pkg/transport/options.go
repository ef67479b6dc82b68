package transport

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	name     string
}

// Option configures a Host, Client or Network.
type Option func(*options)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithGatherer sets the metrics source served on /metrics.
// Default: prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *options) {
		o.gatherer = g
	}
}

// WithName sets the name a client announces in its hello.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   slog.Default(),
		gatherer: prometheus.DefaultGatherer,
		name:     "lime",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
