package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rivervm/internal/config"
	"github.com/roach88/rivervm/internal/rvm"
	"github.com/roach88/rivervm/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ConfigPath string
	Addr       string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP message endpoint",
		Long: `Start the River HTTP server.

Configuration comes from the optional CUE file given with --config, then
.env, then environment variables (RIVER_ADDR, ENV, DATABASE_URL,
DATABASE_PATH, REDIS_URL, LOG_LEVEL, MAX_BATCH_SIZE, RATE_LIMIT_WHITELIST).
PostgreSQL is used when DATABASE_URL is set, SQLite otherwise. Rate limiting
is enabled when REDIS_URL is set.

Examples:
  river serve
  river serve --config river.cue --addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to CUE config file")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}

	level, _ := cfg.SlogLevel()
	logger := opts.newLogger(level)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openLedger(ctx, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()
	logger.Info("database ready", "backend", db.Backend)

	srvOpts := []server.Option{
		server.WithLogger(logger),
		server.WithMaxBatchSize(cfg.MaxBatchSize),
		server.WithMaxBodyBytes(cfg.MaxBodyBytes),
		server.WithHealthCheck(db.Backend, db.Ping),
	}

	if cfg.RedisURL != "" {
		counter, err := server.NewRedisCounter(ctx, cfg.RedisURL)
		if err != nil {
			return WrapExitError(ExitCommandError, "redis connection failed", err)
		}
		defer counter.Close()
		logger.Info("connected to Redis")

		window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		limiter := server.NewRateLimiter(counter, cfg.RateLimit.Requests, window, cfg.RateLimit.Whitelist, logger)
		srvOpts = append(srvOpts,
			server.WithRateLimiter(limiter),
			server.WithHealthCheck("redis", counter.Ping),
		)
	}

	router := rvm.New(db, rvm.WithLogger(logger))
	srv := server.New(router, db, srvOpts...)

	logger.Info("starting river", "addr", cfg.Addr, "env", cfg.Env)
	if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	logger.Info("server stopped")
	return nil
}
