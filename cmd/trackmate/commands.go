package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/menta2k/trackmate/internal/api/middleware"
	"github.com/menta2k/trackmate/internal/app"
	"github.com/menta2k/trackmate/internal/config"
	"github.com/menta2k/trackmate/internal/logging"
	"github.com/menta2k/trackmate/internal/metrics"
	"github.com/menta2k/trackmate/pkg/detection"
	"github.com/menta2k/trackmate/pkg/processing"
)

const shutdownTimeout = 10 * time.Second

// options shared by every subcommand
type options struct {
	configPath string
}

func rootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "trackmate",
		Short:         "Webcam activity tracker backed by a vision-language model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./config.yaml or "+config.GetConfigPath()+")")

	rootCmd.AddCommand(
		serveCommand(opts),
		classifyCommand(opts),
		tokenCommand(opts),
		configCommand(),
	)
	return rootCmd
}

func (o *options) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func serveCommand(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.address")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			"address", cfg.Server.Address,
			"backend", cfg.Inference.Backend,
			"model", cfg.Inference.Model,
			"cache_ttl", a.Detector.CacheTTL(),
			"database", cfg.Database.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func classifyCommand(opts *options) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify one image file or URL and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in == "" {
				return errors.New("--in is required")
			}
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			m, err := metrics.New()
			if err != nil {
				return err
			}
			det, err := app.NewDetector(cfg, m, logger)
			if err != nil {
				return err
			}

			p := processing.NewProcessor(cfg.Image.MaxSize, cfg.Image.Quality)
			data, err := p.LoadSource(in)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			res, err := det.Detect(ctx, data)
			if err != nil {
				return fmt.Errorf("%s: %w", detection.FailureActivity(err), err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "input image path or URL (jpg/png/webp)")
	return cmd
}

func tokenCommand(opts *options) *cobra.Command {
	var userID uint64

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			token, err := middleware.IssueToken(cfg.Auth.JWTSecret, userID, cfg.Auth.TokenTTL, time.Now())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().Uint64Var(&userID, "user", 0, "user id to embed in the token")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GetConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Default().SaveToFile(path); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}

	cmd.AddCommand(initCmd)
	return cmd
}
