package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/eugenenazirov/balance-table/internal/api"
	"github.com/eugenenazirov/balance-table/internal/balance"
	"github.com/eugenenazirov/balance-table/internal/cache"
	"github.com/eugenenazirov/balance-table/internal/config"
	"github.com/eugenenazirov/balance-table/internal/storage"
)

const redisPingTimeout = 3 * time.Second

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage storage.Storage
	solver  balance.Solver
	cache   cache.Cache
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
	closers []func() error
}

// SolverOptions translates configuration into solver options shared by the
// batch command and the server.
func SolverOptions(cfg config.Config, logger *zap.Logger) []balance.Option {
	return []balance.Option{
		balance.WithBounds(cfg.Bounds()),
		balance.WithMaxCombinations(cfg.MaxCombinations),
		balance.WithWorkers(cfg.Workers),
		balance.WithLogger(logger),
	}
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store := storage.NewMemoryStorage()
	if err := store.SetInventory(cfg.InitialInventory); err != nil {
		return nil, fmt.Errorf("failed to apply initial inventory: %w", err)
	}

	tableCache, closers, err := newCache(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize table cache: %w", err)
	}

	solver := balance.New(SolverOptions(cfg, logger)...)
	handler := api.NewHandler(solver, store, cfg.Bounds(),
		api.WithCache(tableCache),
		api.WithHandlerLogger(logger),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithSolveTimeout(cfg.SolveTimeout),
	)

	return &App{
		storage: store,
		solver:  solver,
		cache:   tableCache,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, BuildRootHandler(apiRouter)),
		closers: closers,
	}, nil
}

// newCache selects Redis when an address is configured and falls back to an
// in-process cache otherwise.
func newCache(cfg config.Config, logger *zap.Logger) (cache.Cache, []func() error, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(cfg.CacheTTL), nil, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis at %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("using redis table cache", zap.String("addr", cfg.RedisAddr))
	return cache.NewRedisCache(client, cfg.CacheTTL), []func() error{client.Close}, nil
}

// BuildRootHandler constructs the root HTTP handler that routes API requests
// and answers the bare root with an endpoint index.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, "GET  /api/health")
		_, _ = fmt.Fprintln(w, "GET  /api/inventory")
		_, _ = fmt.Fprintln(w, "PUT  /api/inventory")
		_, _ = fmt.Fprintln(w, "GET  /api/lookup?target=<mass>")
		_, _ = fmt.Fprintln(w, "GET  /api/table")
	}))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Close releases external resources such as the Redis client.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
