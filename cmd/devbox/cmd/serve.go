package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abdullathedruid/devbox/internal/devserver"
	"github.com/abdullathedruid/devbox/internal/logging"
)

var (
	serveRoot  string
	serveAddr  string
	serveShell string
)

// serveCmd runs the development backend.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a local directory as a devbox backend",
	Long: `Serve exposes a local directory through the file API and starts a
shell in a pty for every terminal websocket, so the workspace shell can be
used without a remote sandbox.

Example:
  devbox serve                         # current directory on :8080
  devbox serve --root ~/src/app --addr 127.0.0.1:9000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveRoot, "root", ".", "directory to serve")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveShell, "shell", "", "shell for terminals (default: $SHELL, then /bin/sh)")
}

func runServe(cmd *cobra.Command, args []string) error {
	level := "info"
	if cfg, err := loadConfig(); err == nil {
		level = cfg.LogLevel
	}
	closer, err := logging.Setup(level, "", verbose)
	if err != nil {
		return err
	}
	defer closer.Close()

	srv, err := devserver.New(devserver.Options{Root: serveRoot, Addr: serveAddr, Shell: serveShell})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		log.Error().Err(err).Msg("devserver failed")
		return err
	}
	return nil
}
