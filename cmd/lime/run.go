package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lime-engine/lime/internal/config"
	"github.com/lime-engine/lime/internal/errors"
	"github.com/lime-engine/lime/pkg/console"
	"github.com/lime-engine/lime/pkg/frame"
	"github.com/lime-engine/lime/pkg/netio"
	"github.com/lime-engine/lime/pkg/render"
	"github.com/lime-engine/lime/pkg/script"
	"github.com/lime-engine/lime/pkg/telemetry"
	"github.com/lime-engine/lime/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

type runOptions struct {
	listen    string
	connect   string
	frames    uint64
	limit     int
	verbose   bool
	output    bool
	debugLogs bool
}

func runCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Run a game",
		Long: `Run the game in dir (default: the current directory).

main.lua is searched for recursively under the script root configured
in lime.json. The game ends when the script calls Lime.stop(), the
frame limit set by --frames is reached, or the process is interrupted.

Examples:
  lime run
  lime run ./arena --listen=:7777 --verbose
  lime run --connect=ws://localhost:7777/ws`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runGame(ctx, dir, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.listen, "listen", "l", "", "Host games on this address (default from lime.json)")
	cmd.Flags().StringVarP(&opts.connect, "connect", "c", "", "Join the server at this WebSocket URL")
	cmd.Flags().Uint64Var(&opts.frames, "frames", 0, "Stop after this many frames")
	cmd.Flags().IntVar(&opts.limit, "fps", -1, "Frame limit, 0 for unpaced (default from lime.json)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every network event")
	cmd.Flags().BoolVar(&opts.output, "output", false, "Write the console transcript on exit")
	cmd.Flags().BoolVar(&opts.debugLogs, "debug", false, "Enable debug logging")

	return cmd
}

func (o runOptions) apply(cfg *config.Config) {
	if o.listen != "" {
		cfg.Network.Listen = o.listen
	}
	if o.connect != "" {
		cfg.Network.Connect = o.connect
	}
	if o.frames > 0 {
		cfg.Render.MaxFrames = o.frames
	}
	if o.limit >= 0 {
		cfg.Frame.Limit = o.limit
	}
	if o.verbose {
		cfg.Network.Verbose = true
	}
	if o.output {
		cfg.Output.Enabled = true
	}
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runGame(ctx context.Context, dir string, opts runOptions) error {
	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		return err
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(opts.debugLogs)

	entry, err := script.FindEntry(cfg.ScriptsPath())
	if err != nil {
		return errors.New("L001").
			WithDetail("Searched " + cfg.ScriptsPath()).
			WithSuggestion("Create main.lua under the script root or set \"scripts\" in lime.json")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tel := telemetry.New(
		telemetry.WithRegistry(reg),
		telemetry.WithNamespace(cfg.Metrics.Namespace),
	)

	consoleOpts := []console.Option{
		console.WithVerbose(cfg.Network.Verbose),
		console.WithSink(console.FileSink{Path: cfg.OutputPath()}),
	}
	if s3cfg, ok := cfg.S3(); ok {
		client := console.NewS3Client(s3cfg)
		consoleOpts = append(consoleOpts, console.WithSink(console.NewS3Sink(client, s3cfg.Bucket, s3cfg.Prefix)))
	}
	con := console.New(logger, consoleOpts...)
	dialog := console.NewWriterDialog(os.Stderr)

	queues := netio.NewQueues(cfg.Network.InboundQueue, cfg.Network.OutboundQueue)
	network := transport.NewNetwork(cfg.Transport(), queues.Inbound,
		transport.WithLogger(logger),
		transport.WithGatherer(reg),
		transport.WithName(cfg.Name),
	)

	headless := render.NewHeadless(cfg.Headless())
	renderQ := &render.Queue{}
	deferred := &script.Queue{}

	var d *frame.Dispatcher
	engine := script.NewLuaEngine(script.Bindings{
		Network:  queues.Outbound,
		Deferred: deferred,
		World:    &render.World{Scene: headless, Renderer: headless, Queue: renderQ},
		Log:      func(msg string) { con.SendMsg(msg, console.Normal) },
		Stop:     func() { d.Stop() },
		FPS:      func() int { return d.FPS() },
		Display: func(title, message string, icon int) {
			dialog.Show(title, message, console.ClampIcon(icon))
		},
	}, logger)
	defer engine.Close()

	d, err = frame.New(cfg.Runtime(), frame.Components{
		Queues:      queues,
		Transport:   network,
		Engine:      engine,
		Deferred:    deferred,
		Renderer:    headless,
		RenderQueue: renderQ,
		Console:     con,
		Dialog:      dialog,
		Telemetry:   tel,
		Logger:      logger,
	})
	if err != nil {
		network.Close()
		return err
	}

	if cfg.Network.Listen != "" {
		host, err := network.Listen()
		if err != nil {
			d.Shutdown()
			return fmt.Errorf("listen on %s: %w", cfg.Network.Listen, err)
		}
		info("Hosting on %s", host.Addr())
	}
	if cfg.Network.Connect != "" {
		if err := network.Connect(ctx, cfg.Network.Connect); err != nil {
			d.Shutdown()
			return fmt.Errorf("connect to %s: %w", cfg.Network.Connect, err)
		}
		info("Connected to %s", cfg.Network.Connect)
	}

	if err := engine.Load(entry); err != nil {
		d.Shutdown()
		return errors.New("L002").Wrap(err).WithLocationFromError(err)
	}

	if err := d.Run(ctx); err != nil {
		return err
	}
	success("Ended after %d frames", d.Frame())
	return nil
}
