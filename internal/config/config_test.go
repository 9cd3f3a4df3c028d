package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if cfg != Default() {
			t.Errorf("Load() = %+v, want defaults", cfg)
		}
	})
	t.Run("Empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "c.yaml")
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg != Default() {
			t.Errorf("Load() = %+v, want defaults", cfg)
		}
	})
	t.Run("Override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "c.yaml")
		content := "path: data/db.yaml\nlog_level: debug\nwatch: true\nrate_limit_per_min: 0\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		want := Config{Path: "data/db.yaml", LogLevel: "debug", HTTP: "localhost:8080", Watch: true}
		if cfg != want {
			t.Errorf("Load() = %+v, want %+v", cfg, want)
		}
	})
	for name, content := range map[string]string{
		"UnknownKey": "colour: blue\n",
		"BadLevel":   "log_level: loud\n",
		"BadHTTP":    "http: nope\n",
		"NegRate":    "rate_limit_per_min: -1\n",
		"Syntax":     "path: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected error")
			} else if !strings.Contains(err.Error(), path) {
				t.Errorf("error %q does not name the file", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	c := Config{LogLevel: "x", HTTP: ":8080"}
	err := c.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"path is required", "unknown log level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() = %q, missing %q", err, want)
		}
	}
	d := Default()
	if err := d.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug, "info": slog.LevelInfo, "": slog.LevelInfo,
		"warn": slog.LevelWarn, "error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("trace"); err == nil {
		t.Error("expected error")
	}
}
