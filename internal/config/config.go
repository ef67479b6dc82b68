package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lime-engine/lime/internal/errors"
	"github.com/lime-engine/lime/pkg/console"
	"github.com/lime-engine/lime/pkg/frame"
	"github.com/lime-engine/lime/pkg/netio"
	"github.com/lime-engine/lime/pkg/render"
	"github.com/lime-engine/lime/pkg/transport"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "lime.json"

	// DefaultScripts is the directory searched for main.lua.
	DefaultScripts = "."

	// DefaultFrameLimit is the default ticks per second.
	DefaultFrameLimit = 60
)

// Config represents the complete lime.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Scripts is the directory searched recursively for main.lua.
	Scripts string `json:"scripts,omitempty"`

	Frame   FrameConfig   `json:"frame,omitempty"`
	Network NetworkConfig `json:"network,omitempty"`
	Render  RenderConfig  `json:"render,omitempty"`
	Output  OutputConfig  `json:"output,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// FrameConfig controls the frame loop.
type FrameConfig struct {
	// Limit caps ticks per second. Zero runs unpaced.
	Limit int `json:"limit"`
}

// NetworkConfig controls the transport and the network queues.
type NetworkConfig struct {
	// Listen is the host address (e.g., ":7777"). Empty disables hosting.
	Listen string `json:"listen,omitempty"`

	// Connect is a server URL to join as a client.
	Connect string `json:"connect,omitempty"`

	// Path is the WebSocket endpoint.
	Path string `json:"path,omitempty"`

	// Verbose logs every connect, disconnect and dropped packet.
	Verbose bool `json:"verbose,omitempty"`

	// InboundQueue and OutboundQueue bound the network queues.
	InboundQueue  int `json:"inboundQueue,omitempty"`
	OutboundQueue int `json:"outboundQueue,omitempty"`

	// MaxPeers caps concurrent connections.
	MaxPeers int `json:"maxPeers,omitempty"`

	// Heartbeat is the ping interval (e.g., "10s").
	Heartbeat string `json:"heartbeat,omitempty"`

	// ReadTimeout closes idle connections (e.g., "30s").
	ReadTimeout string `json:"readTimeout,omitempty"`
}

// RenderConfig controls the render device.
type RenderConfig struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Legacy selects the built-in scene pass for the main view.
	Legacy bool `json:"legacy,omitempty"`

	// MaxFrames closes the device after this many frames. Zero runs until
	// the script stops.
	MaxFrames uint64 `json:"maxFrames,omitempty"`
}

// OutputConfig controls where the console transcript is written.
type OutputConfig struct {
	// Enabled writes the transcript on every shutdown. A fatal error
	// writes it regardless.
	Enabled bool `json:"enabled,omitempty"`

	// File is the transcript path, relative to the project root.
	File string `json:"file,omitempty"`

	// S3 uploads the transcript when Bucket is set.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config locates the transcript bucket.
type S3Config struct {
	Bucket    string `json:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty"`
}

// MetricsConfig controls Prometheus metric names.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Scripts: DefaultScripts,
		Frame: FrameConfig{
			Limit: DefaultFrameLimit,
		},
		Network: NetworkConfig{
			Path:          "/ws",
			InboundQueue:  netio.DefaultQueueCapacity,
			OutboundQueue: netio.DefaultQueueCapacity,
			MaxPeers:      4096,
			Heartbeat:     "10s",
			ReadTimeout:   "30s",
		},
		Render: RenderConfig{
			Width:  800,
			Height: 600,
		},
		Output: OutputConfig{
			File: console.DefaultOutputFile,
		},
		Metrics: MetricsConfig{
			Namespace: "lime",
		},
	}
}

// Load reads lime.json from dir. A directory without lime.json yields the
// defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if !Exists(dir) {
		cfg := New()
		cfg.configPath = path
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("L031").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("L031").
			WithDetail("Failed to parse lime.json: " + err.Error()).
			WithSuggestion("Check that lime.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// LoadFromDir finds lime.json in start or a parent directory and loads it.
// Without one, the defaults are rooted at start.
func LoadFromDir(start string) (*Config, error) {
	root, err := FindProjectRoot(start)
	if err != nil {
		return Load(start)
	}
	return Load(root)
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("L031").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("L031").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields. A zero frame
// limit is meaningful and kept.
func (c *Config) applyDefaults() {
	d := New()
	if c.Scripts == "" {
		c.Scripts = d.Scripts
	}
	if c.Network.Path == "" {
		c.Network.Path = d.Network.Path
	}
	if c.Network.InboundQueue == 0 {
		c.Network.InboundQueue = d.Network.InboundQueue
	}
	if c.Network.OutboundQueue == 0 {
		c.Network.OutboundQueue = d.Network.OutboundQueue
	}
	if c.Network.MaxPeers == 0 {
		c.Network.MaxPeers = d.Network.MaxPeers
	}
	if c.Network.Heartbeat == "" {
		c.Network.Heartbeat = d.Network.Heartbeat
	}
	if c.Network.ReadTimeout == "" {
		c.Network.ReadTimeout = d.Network.ReadTimeout
	}
	if c.Render.Width == 0 {
		c.Render.Width = d.Render.Width
	}
	if c.Render.Height == 0 {
		c.Render.Height = d.Render.Height
	}
	if c.Output.File == "" {
		c.Output.File = d.Output.File
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
}

// Validate checks if the configuration is valid. All problems are
// reported together in the error detail.
func (c *Config) Validate() error {
	var problems []string
	if c.Frame.Limit < 0 {
		problems = append(problems, "frame.limit must not be negative")
	}
	if c.Network.InboundQueue < 0 || c.Network.OutboundQueue < 0 {
		problems = append(problems, "network queue capacities must not be negative")
	}
	if c.Network.MaxPeers < 0 || c.Network.MaxPeers > 65536 {
		problems = append(problems, "network.maxPeers must be between 0 and 65536")
	}
	if !strings.HasPrefix(c.Network.Path, "/") {
		problems = append(problems, "network.path must start with /")
	}
	for _, f := range []struct{ name, value string }{
		{"network.heartbeat", c.Network.Heartbeat},
		{"network.readTimeout", c.Network.ReadTimeout},
	} {
		if f.value == "" {
			continue
		}
		if d, err := time.ParseDuration(f.value); err != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be a positive duration, got %q", f.name, f.value))
		}
	}
	if c.Render.Width < 0 || c.Render.Height < 0 {
		problems = append(problems, "render size must not be negative")
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New("L030").WithDetail(strings.Join(problems, "; "))
}

// Runtime returns the dispatcher configuration.
func (c *Config) Runtime() frame.RuntimeConfig {
	rc := frame.DefaultRuntimeConfig()
	rc.FrameLimit = c.Frame.Limit
	rc.VerboseNetwork = c.Network.Verbose
	rc.WriteOutput = c.Output.Enabled
	return rc
}

// Transport returns the transport configuration. Call Validate first;
// unparsable durations keep their defaults.
func (c *Config) Transport() *transport.Config {
	tc := transport.DefaultConfig()
	if c.Network.Listen != "" {
		tc.Address = c.Network.Listen
	}
	tc.Path = c.Network.Path
	if c.Network.MaxPeers > 0 {
		tc.MaxPeers = c.Network.MaxPeers
	}
	if d, err := time.ParseDuration(c.Network.Heartbeat); err == nil && d > 0 {
		tc.HeartbeatInterval = d
	}
	if d, err := time.ParseDuration(c.Network.ReadTimeout); err == nil && d > 0 {
		tc.ReadTimeout = d
	}
	return tc
}

// Headless returns the render device configuration.
func (c *Config) Headless() render.HeadlessConfig {
	return render.HeadlessConfig{
		Width:     c.Render.Width,
		Height:    c.Render.Height,
		Legacy:    c.Render.Legacy,
		MaxFrames: c.Render.MaxFrames,
	}
}

// S3 returns the transcript bucket settings and whether a bucket is set.
func (c *Config) S3() (console.S3Config, bool) {
	s := c.Output.S3
	return console.S3Config{
		Bucket:    s.Bucket,
		Prefix:    s.Prefix,
		Region:    s.Region,
		Endpoint:  s.Endpoint,
		PathStyle: s.PathStyle,
	}, s.Bucket != ""
}

// ScriptsPath returns the absolute path to the script root.
func (c *Config) ScriptsPath() string {
	return c.resolve(c.Scripts)
}

// OutputPath returns the absolute path to the transcript file.
func (c *Config) OutputPath() string {
	return c.resolve(c.Output.File)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing lime.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("L031").
				WithDetail("No lime.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
