package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MegaGrindStone/chatwidget/internal/render"
	"github.com/MegaGrindStone/chatwidget/internal/widget"
	"gopkg.in/yaml.v3"
)

func TestConfigUnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    config
		wantErr string
	}{
		{
			name: "Defaults",
			yaml: "title: Knowledge base",
			want: func() config {
				c := defaultConfig()
				c.Title = "Knowledge base"
				return c
			}(),
		},
		{
			name: "Full",
			yaml: `
server: https://chat.example.com
mode: Buffered
render: markdown
timeout: 5s
log:
  file: "-"
  level: debug
`,
			want: func() config {
				c := defaultConfig()
				c.Server = "https://chat.example.com"
				c.Mode = widget.ModeBuffered
				c.Render = renderMarkdown
				c.Timeout = 5 * time.Second
				c.Log.File = "-"
				c.Log.Level = "debug"
				return c
			}(),
		},
		{
			name:    "Unknown mode",
			yaml:    "mode: polling",
			wantErr: "unknown mode",
		},
		{
			name:    "Unknown render",
			yaml:    "render: html",
			wantErr: "unknown render",
		},
		{
			name:    "Empty server",
			yaml:    `server: ""`,
			wantErr: "server is required",
		},
		{
			name:    "Negative timeout",
			yaml:    "timeout: -1s",
			wantErr: "timeout must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got config
			err := yaml.Unmarshal([]byte(tt.yaml), &got)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Unmarshal() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Unmarshal() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.yaml")
	cfg, err := loadConfig(missing, false)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg != defaultConfig() {
		t.Errorf("loadConfig() = %+v, want defaults", cfg)
	}

	if _, err := loadConfig(missing, true); err == nil {
		t.Error("loadConfig() should fail for an explicit missing file")
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if cfg, err := loadConfig(empty, true); err != nil || cfg != defaultConfig() {
		t.Errorf("loadConfig() = %+v, %v, want defaults", cfg, err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server: http://10.0.0.2:8080\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfig(path, true)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Server != "http://10.0.0.2:8080" {
		t.Errorf("Server = %q, want http://10.0.0.2:8080", cfg.Server)
	}

	t.Setenv(serverEnvKey, "http://env.example.com")
	cfg.applyEnv()
	if cfg.Server != "http://env.example.com" {
		t.Errorf("Server = %q, want env override", cfg.Server)
	}
}

func TestConfigProcessor(t *testing.T) {
	c := defaultConfig()
	if _, ok := c.processor().(render.Plain); !ok {
		t.Errorf("processor() = %T, want render.Plain", c.processor())
	}
	c.Render = renderMarkdown
	if _, ok := c.processor().(render.Markdown); !ok {
		t.Errorf("processor() = %T, want render.Markdown", c.processor())
	}
}
