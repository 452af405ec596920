package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MegaGrindStone/chatwidget/internal/models"
	"github.com/MegaGrindStone/chatwidget/internal/stub"
	"github.com/spf13/cobra"
)

type flags struct {
	addr          string
	chunkDelay    time.Duration
	refreshStatus string
	refreshText   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:          "stubserver",
		Short:        "Serve a scripted chat backend for local testing",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(f)
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", ":5000", "listen address")
	cmd.Flags().DurationVar(&f.chunkDelay, "chunk-delay", 150*time.Millisecond, "delay between streamed chunks")
	cmd.Flags().StringVar(&f.refreshStatus, "refresh-status", models.RefreshStatusSuccess,
		"status returned by /api/refresh-logs")
	cmd.Flags().StringVar(&f.refreshText, "refresh-message", "", "message returned by /api/refresh-logs")

	return cmd
}

func run(f *flags) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s := stub.New(
		stub.WithChunkDelay(f.chunkDelay),
		stub.WithRefreshResponse(models.RefreshLogsResponse{Status: f.refreshStatus, Message: f.refreshText}),
		stub.WithLogger(logger),
	)

	srv := &http.Server{
		Addr:              f.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Server starting", slog.String("addr", f.addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("Server error", slog.String("err", err.Error()))
		return err

	case sig := <-shutdown:
		logger.Info("Start shutdown", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Graceful shutdown failed", slog.String("err", err.Error()))
			if err := srv.Close(); err != nil {
				logger.Error("Forcing server close", slog.String("err", err.Error()))
				return err
			}
		}
	}
	return nil
}
