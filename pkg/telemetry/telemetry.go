package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "lime"

// Config configures metric registration and tracing.
type Config struct {
	// Namespace is the metrics namespace (default: "lime").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for tick and phase durations.
	Buckets []float64

	// Registry receives the collectors.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// TracerName names the tracer (default: "lime").
	TracerName string

	// TracerProvider supplies the tracer.
	// Default: otel.GetTracerProvider()
	TracerProvider trace.TracerProvider
}

// Option configures Telemetry.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

func defaultConfig() Config {
	return Config{
		Namespace:  "lime",
		Buckets:    []float64{.0005, .001, .0025, .005, .01, .0167, .025, .05, .1, .25},
		Registry:   prometheus.DefaultRegisterer,
		TracerName: defaultTracerName,
	}
}

// Telemetry records dispatcher metrics and spans. Methods are safe on a nil
// receiver, which records nothing.
type Telemetry struct {
	events         *prometheus.CounterVec
	packetsSent    *prometheus.CounterVec
	packetsDropped *prometheus.CounterVec
	callbacks      *prometheus.CounterVec
	frames         prometheus.Counter
	renderRequests prometheus.Counter
	queueDepth     *prometheus.GaugeVec
	tickDuration   prometheus.Histogram
	phaseDuration  *prometheus.HistogramVec
	fps            prometheus.Gauge

	tracer trace.Tracer
}

// New registers the collectors and resolves the tracer. Registering twice
// against the same registry panics, as promauto does.
func New(opts ...Option) *Telemetry {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}

	factory := promauto.With(cfg.Registry)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		}, labels)
	}

	return &Telemetry{
		events:         counter("events_total", "Network events drained by the dispatcher", "kind", "role"),
		packetsSent:    counter("packets_sent_total", "Packets handed to the transport", "mode"),
		packetsDropped: counter("packets_dropped_total", "Outbound packets dropped", "reason"),
		callbacks:      counter("callbacks_total", "Deferred callbacks by outcome", "outcome"),

		frames: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "frames_total",
			Help:        "Completed dispatcher ticks",
			ConstLabels: cfg.ConstLabels,
		}),

		renderRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "render_requests_total",
			Help:        "Render requests drained",
			ConstLabels: cfg.ConstLabels,
		}),

		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "queue_depth",
			Help:        "Items drained from each queue on the last tick",
			ConstLabels: cfg.ConstLabels,
		}, []string{"queue"}),

		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "tick_duration_seconds",
			Help:        "Dispatcher tick duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),

		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "phase_duration_seconds",
			Help:        "Dispatcher phase duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"phase"}),

		fps: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "fps",
			Help:        "Frames counted over the last second",
			ConstLabels: cfg.ConstLabels,
		}),

		tracer: cfg.TracerProvider.Tracer(cfg.TracerName),
	}
}

// RecordEvent counts a drained network event.
func (t *Telemetry) RecordEvent(kind, role string) {
	if t == nil {
		return
	}
	t.events.WithLabelValues(kind, role).Inc()
}

// RecordPacketSent counts a transport send.
func (t *Telemetry) RecordPacketSent(mode string) {
	if t == nil {
		return
	}
	t.packetsSent.WithLabelValues(mode).Inc()
}

// RecordPacketDropped counts a dropped outbound packet.
func (t *Telemetry) RecordPacketDropped(reason string) {
	if t == nil {
		return
	}
	t.packetsDropped.WithLabelValues(reason).Inc()
}

// RecordCallback counts a deferred callback outcome.
func (t *Telemetry) RecordCallback(outcome string) {
	if t == nil {
		return
	}
	t.callbacks.WithLabelValues(outcome).Inc()
}

// RecordRenderRequests counts drained render requests.
func (t *Telemetry) RecordRenderRequests(n int) {
	if t == nil || n <= 0 {
		return
	}
	t.renderRequests.Add(float64(n))
}

// SetQueueDepth records how many items a queue held when drained.
func (t *Telemetry) SetQueueDepth(queue string, n int) {
	if t == nil {
		return
	}
	t.queueDepth.WithLabelValues(queue).Set(float64(n))
}

// RecordTick counts a completed tick.
func (t *Telemetry) RecordTick(d time.Duration) {
	if t == nil {
		return
	}
	t.frames.Inc()
	t.tickDuration.Observe(d.Seconds())
}

// RecordPhase observes a phase duration.
func (t *Telemetry) RecordPhase(phase string, d time.Duration) {
	if t == nil {
		return
	}
	t.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// SetFPS publishes the frame rate.
func (t *Telemetry) SetFPS(fps int) {
	if t == nil {
		return
	}
	t.fps.Set(float64(fps))
}

// StartTick opens the span covering one tick.
func (t *Telemetry) StartTick(ctx context.Context, frame uint64) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "lime.tick",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int64("lime.frame", int64(frame))),
	)
}

// StartPhase opens a child span for a dispatcher phase.
func (t *Telemetry) StartPhase(ctx context.Context, phase string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "lime."+phase,
		trace.WithAttributes(attribute.String("lime.phase", phase)),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
