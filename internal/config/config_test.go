package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lime-engine/lime/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Frame.Limit != DefaultFrameLimit {
		t.Errorf("Frame.Limit = %d, want %d", cfg.Frame.Limit, DefaultFrameLimit)
	}
	if cfg.Network.Listen != "" {
		t.Errorf("Network.Listen = %q, hosting should be off by default", cfg.Network.Listen)
	}
	if cfg.Output.File != "output.txt" {
		t.Errorf("Output.File = %q, want output.txt", cfg.Output.File)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("missing lime.json should yield defaults: %v", err)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}

	configJSON := `{
  "name": "arena",
  "scripts": "game",
  "frame": {"limit": 0},
  "network": {
    "listen": ":9000",
    "verbose": true,
    "inboundQueue": 128,
    "heartbeat": "2s"
  },
  "output": {"enabled": true, "s3": {"bucket": "logs", "region": "eu-west-1"}}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err = Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Name != "arena" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Frame.Limit != 0 {
		t.Errorf("explicit frame limit 0 should be kept, got %d", cfg.Frame.Limit)
	}
	if cfg.Network.InboundQueue != 128 {
		t.Errorf("InboundQueue = %d", cfg.Network.InboundQueue)
	}
	if cfg.Network.OutboundQueue != 4096 {
		t.Errorf("OutboundQueue default = %d", cfg.Network.OutboundQueue)
	}
	if cfg.Network.Path != "/ws" {
		t.Errorf("Path default = %q", cfg.Network.Path)
	}
	if got := cfg.ScriptsPath(); got != filepath.Join(tmpDir, "game") {
		t.Errorf("ScriptsPath() = %q", got)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("{invalid"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	var le *errors.LimeError
	if !stderrors.As(err, &le) || le.Code != "L031" {
		t.Fatalf("LoadFile() error = %v, want L031", err)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := New()
	cfg.Name = "saved"
	cfg.Network.Verbose = true

	path := filepath.Join(tmpDir, ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "saved" || !loaded.Network.Verbose {
		t.Errorf("loaded = %+v", loaded)
	}

	if err := New().Save(); err == nil {
		t.Error("Save() without a path should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative frame limit", func(c *Config) { c.Frame.Limit = -1 }, "frame.limit"},
		{"too many peers", func(c *Config) { c.Network.MaxPeers = 70000 }, "network.maxPeers"},
		{"bad path", func(c *Config) { c.Network.Path = "ws" }, "network.path"},
		{"bad heartbeat", func(c *Config) { c.Network.Heartbeat = "often" }, "network.heartbeat"},
		{"zero read timeout", func(c *Config) { c.Network.ReadTimeout = "0s" }, "network.readTimeout"},
		{"negative size", func(c *Config) { c.Render.Width = -5 }, "render size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			var le *errors.LimeError
			if !stderrors.As(err, &le) || le.Code != "L030" {
				t.Fatalf("Validate() = %v, want L030", err)
			}
			if !strings.Contains(le.Detail, tt.want) {
				t.Fatalf("detail %q does not mention %q", le.Detail, tt.want)
			}
		})
	}
}

func TestRuntime(t *testing.T) {
	cfg := New()
	cfg.Frame.Limit = 30
	cfg.Network.Verbose = true
	cfg.Output.Enabled = true

	rc := cfg.Runtime()
	if rc.FrameLimit != 30 || !rc.VerboseNetwork || !rc.WriteOutput {
		t.Fatalf("Runtime() = %+v", rc)
	}
	if rc.ShutdownTimeout <= 0 {
		t.Fatal("Runtime() should carry a shutdown timeout")
	}
}

func TestTransport(t *testing.T) {
	cfg := New()
	cfg.Network.Listen = "127.0.0.1:0"
	cfg.Network.MaxPeers = 8
	cfg.Network.Heartbeat = "250ms"

	tc := cfg.Transport()
	if tc.Address != "127.0.0.1:0" || tc.MaxPeers != 8 || tc.HeartbeatInterval != 250*time.Millisecond {
		t.Fatalf("Transport() = %+v", tc)
	}
	if err := tc.Validate(); err != nil {
		t.Fatalf("transport config should validate: %v", err)
	}
}

func TestS3(t *testing.T) {
	cfg := New()
	if _, ok := cfg.S3(); ok {
		t.Fatal("S3 should be disabled without a bucket")
	}
	cfg.Output.S3 = S3Config{Bucket: "logs", Prefix: "p/", Region: "us-east-1"}
	s, ok := cfg.S3()
	if !ok || s.Bucket != "logs" || s.Prefix != "p/" || s.Region != "us-east-1" {
		t.Fatalf("S3() = %+v, %v", s, ok)
	}
}

func TestHeadless(t *testing.T) {
	cfg := New()
	cfg.Render.MaxFrames = 10
	h := cfg.Headless()
	if h.Width != 800 || h.Height != 600 || h.MaxFrames != 10 {
		t.Fatalf("Headless() = %+v", h)
	}
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()
	if Exists(tmpDir) {
		t.Error("Exists() = true for empty dir")
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if !Exists(tmpDir) {
		t.Error("Exists() = false after writing lime.json")
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "scripts", "levels")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte(`{"name":"found"}`), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot() error: %v", err)
	}
	absRoot, _ := filepath.Abs(root)
	if got != absRoot {
		t.Errorf("FindProjectRoot() = %q, want %q", got, absRoot)
	}

	cfg, err := LoadFromDir(nested)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "found" {
		t.Errorf("LoadFromDir() Name = %q", cfg.Name)
	}
}

func TestLoadFromDir_NoConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir() error: %v", err)
	}
	if cfg.Frame.Limit != DefaultFrameLimit {
		t.Errorf("defaults expected, got %+v", cfg.Frame)
	}
}
