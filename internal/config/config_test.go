package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"
)

func TestLoadDefaults(t *testing.T) {
	cfg, path, err := Load(LoadOptions{SearchDirs: []string{t.TempDir()}})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want none", path)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	src := `
addr = ":9000"
views_dir = "templates"

[fragments]
open = "frag"
close = "endfrag"

[s3]
bucket = "views"
region = "eu-west-1"
`
	if err := os.WriteFile(filepath.Join(dir, "hyper.toml"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HYPER_ADDR", ":9100")
	t.Setenv("HYPER_LOCKED_SENSITIVE", "true")

	cfg, path, err := Load(LoadOptions{SearchDirs: []string{dir}})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if filepath.Base(path) != "hyper.toml" {
		t.Errorf("path = %q", path)
	}

	want := DefaultConfig()
	want.Addr = ":9100"
	want.ViewsDir = "templates"
	want.Fragments = FragmentsConfig{Open: "frag", Close: "endfrag"}
	want.S3 = S3Config{Bucket: "views", Region: "eu-west-1"}
	want.Locked.Sensitive = true
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	if _, _, err := Load(LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "missing.toml")}); err == nil {
		t.Error("Load() expected error for a missing explicit file")
	}

	path := filepath.Join(t.TempDir(), "custom.toml")
	if err := os.WriteFile(path, []byte("{{{invalid toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(LoadOptions{ConfigFilePath: path}); err == nil {
		t.Error("Load() expected error for invalid TOML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty marker", func(c *Config) { c.Fragments.Open = "" }},
		{"same markers", func(c *Config) { c.Fragments.Close = c.Fragments.Open }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestTOMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SecretKey = "s3cret"

	data, err := cfg.Redacted().TOML()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "s3cret") {
		t.Error("secret printed")
	}

	var back Config
	if err := toml.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.Fragments != cfg.Fragments || back.Addr != cfg.Addr {
		t.Errorf("round trip = %+v", back)
	}
	if cfg.SecretKey != "s3cret" {
		t.Error("Redacted() modified the original")
	}
}
