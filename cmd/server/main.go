package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/willemschots/newsletter/assets"
	"github.com/willemschots/newsletter/internal"
	"github.com/willemschots/newsletter/internal/auth"
	authdb "github.com/willemschots/newsletter/internal/auth/db"
	"github.com/willemschots/newsletter/internal/db"
	"github.com/willemschots/newsletter/internal/db/migrate"
	"github.com/willemschots/newsletter/internal/email"
	"github.com/willemschots/newsletter/internal/email/mailgun"
	"github.com/willemschots/newsletter/internal/email/postmark"
	"github.com/willemschots/newsletter/internal/krypto"
	"github.com/willemschots/newsletter/internal/metrics"
	"github.com/willemschots/newsletter/internal/newsletter"
	"github.com/willemschots/newsletter/internal/sessions"
	"github.com/willemschots/newsletter/internal/subscriber"
	subscriberdb "github.com/willemschots/newsletter/internal/subscriber/db"
	"github.com/willemschots/newsletter/internal/web"
	"github.com/willemschots/newsletter/internal/web/cookies"
	"github.com/willemschots/newsletter/internal/web/view"
	"github.com/willemschots/newsletter/internal/workpool"
	"github.com/willemschots/newsletter/migrations"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(w, nil))

	envFile, ok := os.LookupEnv("ENV_FILE")
	if !ok {
		envFile = ".env"
	}

	// Variables that are already set take precedence over the file.
	err := godotenv.Load(envFile)
	switch {
	case err == nil:
		logger.Info("loaded env file", "file", envFile)
	case errors.Is(err, fs.ErrNotExist):
		// running without an env file is fine.
	default:
		logger.Error("failed to load env file", "file", envFile, "error", err)
		return 1
	}

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	pools, err := db.OpenPools(ctx, cfg.db.file)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return 1
	}
	defer func() {
		err := pools.Close()
		if err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if cfg.db.migrate {
		logger.Info("attempting to migrate database", "file", cfg.db.file)

		ran, err := migrate.Up(ctx, pools.Write, migrations.FS, migrate.Metadata{
			AppVersion: internal.CurrentBuild.Revision,
			BuildTime:  internal.CurrentBuild.RevisionTime,
		})
		if err != nil {
			logger.Error("failed to migrate database", "error", err)
			return 1
		}

		for _, m := range ran {
			logger.Info("migration ran", "sequence", m.Sequence, "filename", m.Filename)
		}
	}

	registry := metrics.NewRegistry()

	hashPool, err := workpool.New(workpool.Config{
		Workers:   cfg.hash.workers,
		QueueSize: cfg.hash.queueSize,
		Name:      "argon2",
	}, registry)
	if err != nil {
		logger.Error("failed to create hash worker pool", "error", err)
		return 1
	}
	defer hashPool.Close()

	authService := auth.NewService(
		authdb.New(pools.Read, pools.Write),
		auth.NewHasher(hashPool, cfg.hash.params),
	)

	kv, closeKV, err := sessionKV(ctx, cfg.session)
	if err != nil {
		logger.Error("failed to set up session store", "store", cfg.session.store, "error", err)
		return 1
	}
	defer closeKV()

	encryptor, err := krypto.NewEncryptor(cfg.db.encryptionKeys)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		return 1
	}

	subscriberStore := subscriberdb.New(pools.Read, pools.Write, encryptor, cfg.db.blindIndexKey)

	sender, err := emailSender(logger, cfg.email)
	if err != nil {
		logger.Error("failed to create email sender", "driver", cfg.email.driver, "error", err)
		return 1
	}

	dispatcher, err := newsletter.NewDispatcher(logger, subscriberStore, sender, cfg.broadcast, registry)
	if err != nil {
		logger.Error("failed to create dispatcher", "error", err)
		return 1
	}

	viewRenderer, err := newViewRenderer(logger, cfg.http.viewDir)
	if err != nil {
		logger.Error("failed to create view renderer", "error", err)
		return 1
	}

	httpMetrics, err := metrics.NewHTTPMiddleware(registry)
	if err != nil {
		logger.Error("failed to create http metrics", "error", err)
		return 1
	}

	server := web.NewServer(&web.ServerDeps{
		Logger:            logger,
		ViewRenderer:      viewRenderer,
		AuthService:       authService,
		Authority:         sessions.NewAuthority(kv, cfg.session.ttl),
		SubscriberService: subscriber.NewService(logger, subscriberStore),
		Dispatcher:        dispatcher,
		CookieStore: cookies.NewStore(cfg.http.cookieKeys, cookies.Options{
			Secure: cfg.http.server.SecureCookie,
			MaxAge: cfg.session.ttl,
		}),
		StaticFS: http.FS(assets.DistFS),
		Metrics:  httpMetrics,
	}, cfg.http.server)

	srv := &http.Server{
		Addr:         cfg.http.addr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.writeTimeout,
		IdleTimeout:  cfg.http.idleTimeout,
		Handler:      server,
	}

	metricsSrv := &http.Server{
		Addr:         cfg.metricsAddr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.readTimeout,
		Handler:      metricsMux(registry),
	}

	// We need to run three tasks concurrently:
	// - Listen and serving of the HTTP server.
	// - Listen and serving of the metrics server.
	// - Waiting for a signal to stop both servers.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.http.addr, "build", internal.CurrentBuild)
		// ListenAndServe always returns a non-nil error,
		// g will cancel gCtx when an error is returned, so
		// this will also stop the other goroutines.
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		logger.Info("starting metrics server", "addr", cfg.metricsAddr)
		return metricsSrv.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.http.shutdownTimeout)
		defer cancel()

		return errors.Join(srv.Shutdown(shutCtx), metricsSrv.Shutdown(shutCtx))
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server stopped with error", "error", err)
		return 1
	}

	logger.Info("http server stopped successfully")

	return 0
}

// sessionKV returns the configured session backend and a func to release it.
func sessionKV(ctx context.Context, cfg sessionConfig) (sessions.KV, func(), error) {
	switch cfg.store {
	case "memory":
		return sessions.NewMemoryKV(), func() {}, nil
	case "redis":
		if cfg.redisURL == "" {
			return nil, nil, errors.New("REDIS_URL is required for the redis session store")
		}

		rdb, err := sessions.OpenRedis(ctx, cfg.redisURL)
		if err != nil {
			return nil, nil, err
		}

		return sessions.NewRedisKV(rdb, "newsletter:"), func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.store)
	}
}

func emailSender(logger *slog.Logger, cfg emailConfig) (email.Sender, error) {
	switch cfg.driver {
	case "log":
		return email.NewLogSender(logger), nil
	case "postmark":
		if cfg.postmark.ServerToken.IsEmpty() {
			return nil, errors.New("POSTMARK_SERVER_TOKEN is required for the postmark driver")
		}
		return postmark.NewSender(&http.Client{}, cfg.postmark), nil
	case "mailgun":
		if cfg.mailgun.Domain == "" || cfg.mailgun.Password.IsEmpty() {
			return nil, errors.New("MAILGUN_DOMAIN and MAILGUN_API_KEY are required for the mailgun driver")
		}
		return mailgun.NewSender(&http.Client{}, cfg.mailgun), nil
	default:
		return nil, fmt.Errorf("unknown email driver %q", cfg.driver)
	}
}

// newViewRenderer reads templates from dir on every render when it is set,
// which is convenient during development.
func newViewRenderer(logger *slog.Logger, dir string) (web.ViewRenderer, error) {
	if dir != "" {
		logger.Info("loading templates from disk", "dir", dir)
		return view.NewReloadingRenderer(os.DirFS(dir)), nil
	}

	return view.NewRenderer(assets.TemplateFS)
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler(reg))
	return mux
}
