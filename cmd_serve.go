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

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parisxmas/OxiDB/OxiForms/internal/auth"
	"github.com/parisxmas/OxiDB/OxiForms/internal/config"
	"github.com/parisxmas/OxiDB/OxiForms/internal/db"
	"github.com/parisxmas/OxiDB/OxiForms/internal/handler"
	"github.com/parisxmas/OxiDB/OxiForms/internal/kvstore"
	"github.com/parisxmas/OxiDB/OxiForms/internal/logging"
	"github.com/parisxmas/OxiDB/OxiForms/internal/metrics"
	mw "github.com/parisxmas/OxiDB/OxiForms/internal/middleware"
	"github.com/parisxmas/OxiDB/OxiForms/internal/repository"
	"github.com/parisxmas/OxiDB/OxiForms/internal/router"
	"github.com/parisxmas/OxiDB/OxiForms/internal/service"
)

const (
	limiterSweepInterval = time.Minute
	limiterIdle          = 10 * time.Minute
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, *configPath)
		},
	}
}

// storage is the selected backend behind the service store interfaces.
type storage struct {
	forms  service.FormStore
	subs   service.SubmissionStore
	health handler.HealthChecker
	close  func() error
}

func openStorage(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*storage, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		d, err := db.Open(cfg.Path, cfg.PoolSize, cfg.HealthInterval, log.Named("db"))
		if err != nil {
			return nil, err
		}
		forms := repository.NewFormRepo(d)
		n, err := forms.Count(ctx)
		if err != nil {
			d.Close()
			return nil, err
		}
		log.Info("sqlite database opened", zap.String("path", d.Path()), zap.Int("forms", n))
		return &storage{
			forms:  forms,
			subs:   repository.NewSubmissionRepo(d),
			health: d,
			close:  d.Close,
		}, nil
	case config.DriverBadger:
		kv, err := kvstore.Open(cfg.Path, log.Named("badger"))
		if err != nil {
			return nil, err
		}
		return &storage{forms: kv, subs: kv, health: kv, close: kv.Close}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	lg, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer lg.Close()
	log := lg.Logger

	if cfg.JWT.Secret == config.DevJWTSecret {
		log.Warn("Warning: using the built-in JWT secret; set jwt.secret for production")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.close(); err != nil {
			log.Error("close storage", zap.Error(err))
		}
	}()
	log.Info("storage ready",
		zap.String("driver", cfg.Storage.Driver),
		zap.String("path", cfg.Storage.Path),
	)

	verifier, err := auth.NewStaticVerifier(cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.PasswordHash)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()

	// Services
	authSvc := service.NewAuthService(verifier, cfg.JWT.Secret, cfg.JWT.TTL, log)
	formSvc := service.NewFormService(store.forms, store.subs, cfg.FrontendURL, reg, log)
	subSvc := service.NewSubmissionService(store.subs, store.forms, reg, log)

	var limiter *mw.RateLimiterRegistry
	if cfg.RateLimit.RPS > 0 {
		limiter = mw.NewRateLimiterRegistry(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	// Router
	r := router.New(router.Options{
		JWTSecret:     cfg.JWT.Secret,
		AllowedOrigin: cfg.CORS.AllowedOrigin,
		Log:           log,
		Metrics:       reg,
		Limiter:       limiter,
	},
		handler.NewAuthHandler(authSvc, log),
		handler.NewFormHandler(formSvc, log),
		handler.NewSubmissionHandler(subSvc, log),
		handler.NewHealthHandler(store.health),
	)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(log.Named("http")),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("OxiForms server starting", zap.String("addr", cfg.HTTP.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Gracefully shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if limiter != nil {
		g.Go(func() error {
			return limiter.Run(gctx, limiterSweepInterval, limiterIdle)
		})
	}
	if configPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, configPath, log, func(c *config.Config) {
				if err := lg.SetLevel(c.Log.Level); err != nil {
					log.Warn("apply log level", zap.Error(err))
					return
				}
				log.Info("log level applied", zap.String("level", c.Log.Level))
			})
		})
	}

	return g.Wait()
}
