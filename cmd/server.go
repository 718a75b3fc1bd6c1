package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/kaspadata/exgateway/internal/cache"
	"github.com/kaspadata/exgateway/internal/content"
	"github.com/kaspadata/exgateway/internal/server"
	"github.com/kaspadata/exgateway/internal/service"
	"github.com/lmittmann/tint"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

type config struct {
	ListenAddress string        `env:"ADDR" envDefault:":3010"`
	AllowlistFile string        `env:"ALLOWLIST_FILE" envDefault:"./config.yaml"`
	GithubToken   string        `env:"GITHUB_TOKEN"`
	GithubBaseURL string        `env:"GITHUB_BASE_URL"`
	ContentDir    string        `env:"CONTENT_DIR"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"300s"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// set global logger with custom options
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.DateTime,
		}),
	))

	cfg := config{}
	err := loadConfig(&cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	osFs := afero.NewOsFs()
	allowlist, err := content.LoadAllowlist(osFs, cfg.AllowlistFile)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load allowlist", "error", err)
		os.Exit(1)
	}

	var store content.Store
	if cfg.ContentDir != "" {
		slog.InfoContext(ctx, "serving content from local directory", "dir", cfg.ContentDir)
		store = content.NewLocalFS(osFs, cfg.ContentDir)
	} else {
		if cfg.GithubToken == "" {
			slog.WarnContext(ctx, "GITHUB_TOKEN not set, upstream quota will be tight")
		}
		store = content.NewGitHub(cfg.GithubBaseURL, cfg.GithubToken)
	}

	cacheStore := newCacheStore(ctx, cfg)
	coordinator := cache.NewCoordinator(cacheStore, cfg.CacheTTL)

	clk := clock.New()
	tickerSvc := service.NewTicker(store, allowlist.Default(), clk)
	contentSvc := service.NewContent(store, allowlist)
	handler := server.NewHandler(coordinator, tickerSvc, contentSvc)

	httpServer, err := server.New(ctx, cfg.ListenAddress, handler.Routes())
	if err != nil {
		slog.ErrorContext(ctx, "failed to create server", "error", err)
		os.Exit(1)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.InfoContext(ctx, "starting server", "listen_address", cfg.ListenAddress, "default_scope", allowlist.Default().String())
		if err := runHttpServer(ctx, cfg.ListenAddress, httpServer); err != nil {
			slog.ErrorContext(ctx, "failed to start server", "error", err)
			cancel()
			return err
		}
		return nil
	})

	// Handle graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.Info("shutting down server gracefully")

		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server terminated", "err", err)
	}
}

// newCacheStore connects to redis when configured, falling back to the
// in-memory store so a missing cache backend never blocks startup.
func newCacheStore(ctx context.Context, cfg config) cache.Store {
	if cfg.RedisAddr == "" {
		slog.InfoContext(ctx, "no redis configured, using in-memory cache")
		return cache.NewMemory(clock.New())
	}

	redisStore := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redisStore.Ping(pingCtx); err != nil {
		slog.WarnContext(ctx, "redis not reachable, using in-memory cache", "addr", cfg.RedisAddr, "error", err)
		return cache.NewMemory(clock.New())
	}

	slog.InfoContext(ctx, "redis cache connected", "addr", cfg.RedisAddr)
	return redisStore
}

func runHttpServer(ctx context.Context, listenAddress string, srv *server.Server) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return err
	}

	err = srv.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func loadConfig(config any) error {
	// Ignore error if .env is missing
	err := godotenv.Load()

	if err != nil && !os.IsNotExist(err) {
		return err
	}

	// Parse for built-in types
	if err := env.Parse(config); err != nil {
		return err
	}

	return nil
}
