package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/five82/sporthub/internal/api"
	"github.com/five82/sporthub/internal/config"
	"github.com/five82/sporthub/internal/metrics"
	"github.com/five82/sporthub/internal/prefs"
	"github.com/five82/sporthub/internal/query"
	"github.com/five82/sporthub/internal/state"
	"github.com/five82/sporthub/internal/timing"
	"github.com/five82/sporthub/internal/ui"
)

// Options configure the sporthub application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/sporthub/prefs.toml
	PollEvery  int    // seconds; zero uses the configured interval
	// Stderr receives diagnostic logs in Check mode. Nil means os.Stderr.
	Stderr io.Writer
}

const retryBackoffLimit = 30 * time.Second

// runtime is everything Run and Check share.
type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
	client  *api.Client
	cache   *query.Cache
	store   *state.Store
}

func newRuntime(cfg config.Config, logger *slog.Logger, notify func(query.Key)) (*runtime, error) {
	m := metrics.New()

	client, err := api.NewClient(cfg.APIBaseURL, cfg.APIKey, clientOptions(cfg, logger, m)...)
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}

	cacheOpts := []query.CacheOption{query.WithLogger(logger), query.WithMetrics(m)}
	if notify != nil {
		cacheOpts = append(cacheOpts, query.WithNotify(notify))
	}
	cache := query.NewCache(cacheOpts...)

	store := state.NewStore(cache, client, cfg.Endpoints,
		state.WithLogger(logger),
		state.WithQueryOptions(queryOptions(cfg)...),
	)

	return &runtime{cfg: cfg, logger: logger, metrics: m, client: client, cache: cache, store: store}, nil
}

func clientOptions(cfg config.Config, logger *slog.Logger, m *metrics.Collector) []api.Option {
	opts := []api.Option{
		api.WithLogger(logger),
		api.WithMetrics(m),
		api.WithCredentialHeader(cfg.CredentialHeader),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, api.WithTimeout(cfg.Timeout))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, api.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)))
	}
	if cfg.PropagateStatus {
		opts = append(opts, api.WithStatusPropagation())
	}
	if cfg.DedupeRequests {
		opts = append(opts, api.WithDeduplication())
	}
	return opts
}

func queryOptions(cfg config.Config) []query.Option {
	policy := query.RetryPolicy{MaxRetries: cfg.MaxRetries}
	if cfg.RetryBackoff > 0 {
		policy.Backoff = query.ExponentialBackoff(cfg.RetryBackoff, retryBackoffLimit)
	}
	return []query.Option{
		query.WithStaleTime(cfg.StaleTime),
		query.WithCacheTime(cfg.CacheTime),
		query.WithRetry(policy),
	}
}

func (rt *runtime) healthQuery() *query.Query[timing.HealthResponse] {
	return query.New(rt.cache, timing.HealthKey(), timing.HealthFetcher(rt.client),
		query.WithEnabled(false),
		query.WithStaleTime(0),
		query.WithRetry(query.NoRetry()),
	)
}

// Run boots the sporthub TUI until the context is cancelled or the user
// quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFile, err := openLogFile(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	logger := newLogger(logFile, cfg.SlogLevel(), true)
	slog.SetDefault(logger)

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	changes := make(chan struct{}, 1)
	rt, err := newRuntime(cfg, logger, func(query.Key) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := serveMetrics(ctx, cfg.MetricsAddr, rt.metrics, logger); err != nil {
				logger.Error("metrics server stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	interval := cfg.PollInterval
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}

	health := rt.healthQuery()
	health.Mount(ctx)
	defer health.Unmount()
	StartPoller(ctx, rt.store, health, interval, logger)

	rt.store.Mount(ctx)
	defer rt.store.Close()

	logger.Info("sporthub started",
		"base_url", rt.client.BaseURL(),
		"endpoints", len(cfg.Endpoints),
		"poll_interval", interval.String(),
	)

	return ui.Run(ui.Options{
		Context:      ctx,
		Store:        rt.store,
		BaseURL:      rt.client.BaseURL(),
		LogPath:      cfg.LogFile,
		Changes:      changes,
		ThemeName:    userPrefs.Theme,
		LastEndpoint: userPrefs.LastEndpoint,
		PrefsPath:    opts.PrefsPath,
	})
}

// Check tests every configured endpoint once, writes a report to w and
// returns an error when any endpoint failed.
func Check(ctx context.Context, opts Options, w io.Writer) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := newLogger(stderr, cfg.SlogLevel(), false)

	rt, err := newRuntime(cfg, logger, nil)
	if err != nil {
		return err
	}
	rt.store.Mount(ctx)
	defer rt.store.Close()

	testErr := rt.store.TestAll(ctx)
	writeReport(w, rt.client.BaseURL(), rt.store.Snapshot())
	return testErr
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func newLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(w, handlerOpts)
	} else {
		h = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(h).With("component", "sporthub")
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Collector, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metricsMux(m),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func metricsMux(m *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
