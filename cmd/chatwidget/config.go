package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MegaGrindStone/chatwidget/internal/render"
	"github.com/MegaGrindStone/chatwidget/internal/widget"
	"gopkg.in/yaml.v3"
)

type config struct {
	Server  string        `yaml:"server"`
	Mode    widget.Mode   `yaml:"mode"`
	Render  string        `yaml:"render"`
	Timeout time.Duration `yaml:"timeout"`
	Title   string        `yaml:"title"`
	Log     logConfig     `yaml:"log"`
}

type logConfig struct {
	// File is the log file path. "-" logs to stderr.
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
}

const (
	renderPlain    = "plain"
	renderMarkdown = "markdown"

	serverEnvKey = "CHATWIDGET_SERVER"
)

func defaultConfig() config {
	return config{
		Server:  "http://localhost:5000",
		Mode:    widget.ModeStreaming,
		Render:  renderPlain,
		Timeout: 30 * time.Second,
		Title:   "Chat",
		Log: logConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

func defaultConfigPath() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting user config dir: %w", err)
	}
	return filepath.Join(cfgDir, "chatwidget", "config.yaml"), nil
}

// loadConfig reads the config file at path on top of the defaults. A missing file is only an error when
// the path was given explicitly.
func loadConfig(path string, explicit bool) (config, error) {
	cfg := defaultConfig()

	cfgFile, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer cfgFile.Close()

	if err := yaml.NewDecoder(cfgFile).Decode(&cfg); err != nil {
		// An empty file decodes to nothing.
		if errors.Is(err, io.EOF) {
			return defaultConfig(), nil
		}
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}
	return cfg, nil
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig config
	raw := rawConfig(defaultConfig())
	if err := value.Decode(&raw); err != nil {
		return err
	}

	*c = config(raw)
	return c.validate()
}

func (c *config) applyEnv() {
	if server := os.Getenv(serverEnvKey); server != "" {
		c.Server = server
	}
}

func (c *config) validate() error {
	if strings.TrimSpace(c.Server) == "" {
		return fmt.Errorf("server is required")
	}

	mode, err := widget.ParseMode(string(c.Mode))
	if err != nil {
		return err
	}
	c.Mode = mode

	c.Render = strings.ToLower(strings.TrimSpace(c.Render))
	switch c.Render {
	case renderPlain, renderMarkdown:
	default:
		return fmt.Errorf("unknown render: %s", c.Render)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

func (c config) processor() render.Processor {
	if c.Render == renderMarkdown {
		return render.NewMarkdown()
	}
	return render.Plain{}
}
