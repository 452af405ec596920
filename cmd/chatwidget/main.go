package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MegaGrindStone/chatwidget/internal/client"
	"github.com/MegaGrindStone/chatwidget/internal/render"
	"github.com/MegaGrindStone/chatwidget/internal/tui"
	"github.com/MegaGrindStone/chatwidget/internal/widget"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type flags struct {
	configPath string
	server     string
	mode       string
	render     string
	timeout    string
	message    string
	logFile    string
	logLevel   string
	echo       bool
}

type app struct {
	cfg    config
	logger *slog.Logger
	closer io.Closer
	client *client.Client
	echo   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "chatwidget",
		Short: "Chat with a knowledge base backend from the terminal",
		Long: "chatwidget sends messages to a chat backend's /api/chat endpoint and renders the replies, " +
			"either buffered or streamed over server-sent events.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, f)
			if err != nil {
				return err
			}
			defer a.closer.Close()
			return a.runChat(cmd.Context(), f.message, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/chatwidget/config.yaml)")
	pf.StringVar(&f.server, "server", "", "chat backend base URL")
	pf.StringVar(&f.timeout, "timeout", "", "time to wait for response headers, e.g. 30s")
	pf.StringVar(&f.logFile, "log-file", "", `log file path, "-" for stderr`)
	pf.StringVar(&f.logLevel, "log-level", "", "log level (debug|info|warn|error)")

	root.Flags().StringVar(&f.mode, "mode", "", "reply mode (buffered|streaming)")
	root.Flags().StringVar(&f.render, "render", "", "text processing (plain|markdown)")
	root.Flags().StringVarP(&f.message, "message", "m", "", "send one message, print the reply and exit")
	root.Flags().BoolVar(&f.echo, "echo", false, "print sent messages in line and one-shot mode")

	root.AddCommand(&cobra.Command{
		Use:   "refresh-logs",
		Short: "Ask the backend to refresh its logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, f)
			if err != nil {
				return err
			}
			defer a.closer.Close()
			return a.runRefreshLogs(cmd.Context(), cmd.OutOrStdout())
		},
	})

	return root
}

func newApp(cmd *cobra.Command, f *flags) (*app, error) {
	explicit := f.configPath != ""
	path := f.configPath
	if !explicit {
		var err error
		if path, err = defaultConfigPath(); err != nil {
			return nil, err
		}
	}

	cfg, err := loadConfig(path, explicit)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := f.apply(cmd, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, closer, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout
	c, err := client.New(cfg.Server,
		client.WithHTTPClient(&http.Client{Transport: transport}),
		client.WithLogger(logger),
	)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	logger.Info("Starting chatwidget",
		slog.String("server", cfg.Server),
		slog.String("mode", string(cfg.Mode)),
		slog.String("render", cfg.Render))

	return &app{cfg: cfg, logger: logger, closer: closer, client: c, echo: f.echo}, nil
}

func (f *flags) apply(cmd *cobra.Command, cfg *config) error {
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}

	if changed("server") {
		cfg.Server = f.server
	}
	if changed("mode") {
		cfg.Mode = widget.Mode(f.mode)
	}
	if changed("render") {
		cfg.Render = f.render
	}
	if changed("timeout") {
		d, err := time.ParseDuration(f.timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	return nil
}

func (a *app) controller(view widget.View) *widget.Controller {
	return widget.New(a.client, view,
		widget.WithMode(a.cfg.Mode),
		widget.WithProcessor(a.cfg.processor()),
		widget.WithLogger(a.logger),
	)
}

func (a *app) runChat(ctx context.Context, message string, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if message != "" {
		view := a.lineView(out)
		defer view.Flush()
		return a.controller(view).Submit(ctx, message)
	}

	if isTerminal(in) && isTerminal(out) {
		return a.runTUI(ctx)
	}
	return a.runLines(ctx, in, out)
}

func (a *app) runTUI(ctx context.Context) error {
	view := tui.NewProgramView()
	model := tui.NewModel(ctx, a.controller(view), a.cfg.Title, tui.DefaultStyles())

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	view.Attach(p)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running chat UI: %w", err)
	}
	return nil
}

// runLines reads one message per line until EOF, printing each reply before reading the next line.
func (a *app) runLines(ctx context.Context, in io.Reader, out io.Writer) error {
	view := a.lineView(out)
	ctrl := a.controller(view)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if err := ctrl.Submit(ctx, scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	return nil
}

func (a *app) lineView(out io.Writer) *tui.LineView {
	view := tui.NewLineView(out, render.PlainStyles())
	view.EchoUser = a.echo
	return view
}

func (a *app) runRefreshLogs(ctx context.Context, out io.Writer) error {
	view := tui.NewLineView(out, render.PlainStyles())
	return a.controller(view).RefreshLogs(ctx)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
