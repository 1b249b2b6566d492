// Package cmd contains the CLI commands for devbox.
package cmd

import (
	"fmt"

	"github.com/go-errors/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abdullathedruid/devbox/internal/app"
	"github.com/abdullathedruid/devbox/internal/config"
	"github.com/abdullathedruid/devbox/internal/logging"
	"github.com/abdullathedruid/devbox/internal/version"
)

var (
	// Global flags
	cfgFile string
	verbose bool

	// Shell flags
	backendURL  string
	terminalURL string
	containerID string
)

// rootCmd opens the workspace shell when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "devbox",
	Short: "Edit files and run a shell in a remote dev sandbox",
	Long: `devbox opens a terminal workspace on a remote development sandbox:
a lazily loaded file tree, an editor that saves as you type, and a shell
attached to the sandbox over a websocket.

Example:
  devbox                                   # use ~/.config/devbox/config.yaml
  devbox --backend http://box:8080 --container web
  devbox serve --root ./project            # local backend for the shell`,
	SilenceUsage: true,
	RunE:         runShell,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/devbox/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().StringVar(&backendURL, "backend", "", "file API base URL (overrides backend_url)")
	rootCmd.Flags().StringVar(&terminalURL, "terminal", "", "terminal websocket URL (overrides terminal_url)")
	rootCmd.Flags().StringVar(&containerID, "container", "", "sandbox container id (overrides container_id)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config or the default file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
		if err == nil && cfg.Path == "" {
			cfg.Path = cfgFile
		}
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if backendURL != "" {
		cfg.BackendURL = backendURL
	}
	if terminalURL != "" {
		cfg.TerminalURL = terminalURL
	}
	if containerID != "" {
		cfg.ContainerID = containerID
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapPrefix(err, "invalid configuration", 0)
	}
	return cfg, nil
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The shell owns the terminal, so logs always go to the file.
	closer, err := logging.Setup(cfg.LogLevel, cfg.LogFile, verbose)
	if err != nil {
		return err
	}
	defer closer.Close()

	log.Info().
		Str("version", version.Short()).
		Str("backend", cfg.BackendURL).
		Str("terminal", cfg.TerminalURL).
		Str("container", cfg.ContainerID).
		Msg("starting devbox")

	application, err := app.New(cfg)
	if err != nil {
		return errors.WrapPrefix(err, "starting devbox", 0)
	}
	if err := application.Run(); err != nil {
		log.Error().Err(err).Msg("devbox exited with error")
		return err
	}
	log.Info().Msg("devbox stopped")
	return nil
}

// versionCmd displays version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}
