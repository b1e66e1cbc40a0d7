package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"inventra/backend/internal/cache"
	"inventra/backend/internal/config"
	"inventra/backend/internal/httpapi"
	"inventra/backend/internal/logger"
	"inventra/backend/internal/receipt"
	"inventra/backend/internal/service"
	"inventra/backend/internal/store"
	"inventra/backend/internal/store/memory"
	pgstore "inventra/backend/internal/store/postgres"
)

func main() {
	app := &cli.App{
		Name:   "inventra",
		Usage:  "Warehouse inbound, outbound and stock ledger service",
		Before: setupLogging,
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "Apply the postgres schema",
				Action: runMigrate,
			},
			{
				Name:   "seed",
				Usage:  "Apply the schema and load the demo catalogue into postgres",
				Action: runSeed,
			},
			{
				Name:  "token",
				Usage: "Issue a bearer token signed with AUTH_SECRET",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "token subject", Required: true},
					&cli.StringFlag{Name: "role", Usage: "role claim", Value: "staff"},
					&cli.DurationFlag{Name: "ttl", Usage: "token lifetime", Value: 8 * time.Hour},
				},
				Action: runToken,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("inventra stopped")
	}
}

func setupLogging(_ *cli.Context) error {
	cfg := config.Load()
	if cfg.LogConsole {
		logger.UseConsole()
	}
	logger.SetLevel(cfg.LogLevel)
	return nil
}

func validateConfig(cfg config.Config) error {
	if cfg.AuthSecret != "" && len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 characters when set")
	}
	if cfg.MinioEndpoint != "" && (cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "") {
		return fmt.Errorf("MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_BUCKET are required with MINIO_ENDPOINT")
	}
	return nil
}

func openPostgres(ctx context.Context, cfg config.Config) (*pgstore.Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	return pgstore.New(ctx, cfg.DatabaseURL, cfg.DBMaxConcurrentTx)
}

func runMigrate(c *cli.Context) error {
	pg, err := openPostgres(c.Context, config.Load())
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.Migrate(c.Context); err != nil {
		return err
	}
	logger.Log.Info().Msg("schema applied")
	return nil
}

func runSeed(c *cli.Context) error {
	pg, err := openPostgres(c.Context, config.Load())
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.Migrate(c.Context); err != nil {
		return err
	}
	if err := pg.Seed(c.Context); err != nil {
		return err
	}
	logger.Log.Info().Msg("demo catalogue seeded")
	return nil
}

func runToken(c *cli.Context) error {
	cfg := config.Load()
	if err := validateConfig(cfg); err != nil {
		return err
	}
	token, err := httpapi.NewActorResolver(cfg.AuthSecret).Sign(c.String("user"), c.String("role"), c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}

func runServe(c *cli.Context) error {
	cfg := config.Load()
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				logger.Log.Warn().Err(err).Msg("close error")
			}
		}
	}()

	if cfg.DatabaseURL != "" {
		pg, err := openPostgres(startCtx, cfg)
		if err != nil {
			return fmt.Errorf("postgres unavailable and DATABASE_URL is set, refusing to start with in-memory fallback: %w", err)
		}
		closers = append(closers, pg.Close)
		if err := pg.Migrate(startCtx); err != nil {
			return err
		}
		repo = pg
		logger.Log.Info().Msg("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		logger.Log.Info().Msg("repository: in-memory")
	}

	opts := []service.Option{}
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisListCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(startCtx); err != nil {
			logger.Log.Warn().Err(err).Msg("redis unavailable, list cache disabled")
			_ = redisCache.Close()
		} else {
			closers = append(closers, redisCache.Close)
			opts = append(opts, service.WithListCache(redisCache, time.Duration(cfg.ListCacheTTLSeconds)*time.Second))
			logger.Log.Info().Msg("cache: redis")
		}
	} else {
		logger.Log.Info().Msg("cache: noop")
	}

	if cfg.MinioEndpoint != "" {
		receipts, err := receipt.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return err
		}
		if err := receipts.EnsureBucket(startCtx); err != nil {
			return err
		}
		opts = append(opts, service.WithReceiptStore(receipts))
		logger.Log.Info().Str("bucket", cfg.MinioBucket).Msg("receipts: minio")
	} else {
		logger.Log.Info().Msg("receipts: in-memory")
	}

	actors := httpapi.NewActorResolver(cfg.AuthSecret)
	if !actors.TokensRequired() {
		logger.Log.Warn().Msg("AUTH_SECRET not set, trusting the X-Actor header")
	}
	api := httpapi.New(service.New(repo, opts...), actors, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Log.Info().Str("addr", cfg.Address()).Msg("inventra listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Log.Info().Msg("server stopped")
	return nil
}
