package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/balance-table/internal/application"
	"github.com/eugenenazirov/balance-table/internal/balance"
	"github.com/eugenenazirov/balance-table/internal/config"
	"github.com/eugenenazirov/balance-table/internal/export"
	"github.com/eugenenazirov/balance-table/internal/inventory"
	"github.com/eugenenazirov/balance-table/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("balancer", "Balance Table - finds a pan placement of the available weights for every target mass")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	setByUser := map[string]bool{}
	markSet := func(name string) kingpin.Action {
		return func(*kingpin.ParseContext) error {
			setByUser[name] = true
			return nil
		}
	}
	minTarget := kingpinApp.Flag("min-target", "Smallest target mass covered by the table").Action(markSet("min-target")).Int()
	maxTarget := kingpinApp.Flag("max-target", "Largest target mass covered by the table").Action(markSet("max-target")).Int()
	maxCombinations := kingpinApp.Flag("max-combinations", "Refuse inventories with more combinations than this (0 disables the check)").Action(markSet("max-combinations")).Uint64()
	workers := kingpinApp.Flag("workers", "Concurrent enumeration workers (0 uses every CPU)").Default("-1").Int()
	retainUndershoot := kingpinApp.Flag("retain-undershoot", "Also keep the closest achievable mass below the minimum target").Bool()
	logLevel := kingpinApp.Flag("log-level", "Log level: debug, info, warn or error").String()

	solveCmd := kingpinApp.Command("solve", "Solve an inventory file and write the lookup table").Default()
	inputPath := solveCmd.Arg("input", "Inventory file: a header line, then one \"<value> <count>\" pair per line").Required().String()
	outputPath := solveCmd.Arg("output", "Path of the lookup table to write").Required().String()
	raw := solveCmd.Flag("raw", "Write every retained sum instead of one record per target mass").Bool()

	serveCmd := kingpinApp.Command("serve", "Serve table lookups over HTTP")
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	inventoryStr := serveCmd.Flag("inventory", "Comma-separated value:count pairs for the initial inventory").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	redisAddr := serveCmd.Flag("redis-addr", "Share solved tables through Redis at this address").String()

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}

	if setByUser["min-target"] {
		overrides.MinTarget = minTarget
	}
	if setByUser["max-target"] {
		overrides.MaxTarget = maxTarget
	}
	if setByUser["max-combinations"] {
		overrides.MaxCombinations = maxCombinations
	}
	if *workers >= 0 {
		overrides.Workers = workers
	}
	if *retainUndershoot {
		overrides.RetainUndershoot = retainUndershoot
	}
	if *raw {
		interpolate := false
		overrides.Interpolate = &interpolate
	}
	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}
	if *port != "" {
		overrides.Port = port
	}
	if *inventoryStr != "" {
		overrides.InventoryStr = inventoryStr
	}
	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}
	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}
	if *redisAddr != "" {
		overrides.RedisAddr = redisAddr
	}

	cfg, err := config.Load(overrides)
	kingpinApp.FatalIfError(err, "failed to load configuration")

	logger, err := logging.New(cfg.LogLevel)
	kingpinApp.FatalIfError(err, "failed to initialize logger")
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case solveCmd.FullCommand():
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runSolve(ctx, cfg, logger, *inputPath, *outputPath); err != nil {
			logger.Fatal("solve failed", zap.Error(err))
		}
	case serveCmd.FullCommand():
		runServe(cfg, logger)
	}
}

// runSolve reads the inventory at inputPath, builds the table and writes it to outputPath.
func runSolve(ctx context.Context, cfg config.Config, logger *zap.Logger, inputPath, outputPath string) error {
	logger.Info("solving inventory", zap.String("input", inputPath))

	start := time.Now()
	inv, err := inventory.Load(inputPath)
	if err != nil {
		return err
	}
	logger.Info("read inventory",
		zap.Duration("duration", time.Since(start)),
		zap.Int("denominations", len(inv)),
		zap.Uint64("estimated_combinations", balance.CombinationCount(inv)),
	)

	table, err := balance.New(application.SolverOptions(cfg, logger)...).Solve(ctx, inv)
	if err != nil {
		return fmt.Errorf("solve %s: %w", inputPath, err)
	}

	start = time.Now()
	if err := export.WriteFile(outputPath, table, cfg.Interpolate); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	logger.Info("wrote solution",
		zap.String("output", outputPath),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("interpolation", cfg.Interpolate),
	)
	return nil
}

func runServe(cfg config.Config, logger *zap.Logger) {
	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to release resources", zap.Error(err))
		}
	}()

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
