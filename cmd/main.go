package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hermes/internal/adapters/config"
	"hermes/internal/adapters/errors/noop"
	"hermes/internal/adapters/errors/sentry"
	adapterredis "hermes/internal/adapters/redis"
	"hermes/internal/agents"
	"hermes/internal/broker"
	"hermes/internal/domain/role"
	"hermes/internal/gateway"
	"hermes/internal/metrics"
	"hermes/internal/resolver"
	redisrepo "hermes/internal/repository/redis"
	"hermes/internal/scenario"
	"hermes/internal/workers"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()
	if cfg.Metrics.Enabled {
		startMetricsServer(cfg, log)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore := initTraceStore(cfg, log)
	defer closeStore()

	gw, err := initGateway(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize gateway: %v", err)
	}

	bind, err := agents.NewBinding(cfg)
	if err != nil {
		log.Fatalf("Failed to bind decision functions: %v", err)
	}

	b, err := broker.New(broker.Config{
		Name:              cfg.Broker.Name,
		HopLimit:          cfg.Broker.HopLimit,
		DecisionTimeout:   cfg.Broker.DecisionTimeout,
		ExecutiveFallback: cfg.Broker.KeywordFallback,
		Resolver: resolver.Config{
			Priorities:        resolverPriorities(cfg.Broker),
			PrimaryOwnerBoost: cfg.Broker.PrimaryOwnerBoost,
		},
	}, bind, gw)
	if err != nil {
		log.Fatalf("Failed to build broker: %v", err)
	}

	if cfg.Gateway.Mode == "none" {
		runScenario(ctx, cancel, cfg, b, store, log)
		return
	}

	runLive(ctx, cancel, cfg, b, gw, store, errorTracker, log)
}

// runScenario executes the configured (or built-in) scenario and writes the
// trace.
func runScenario(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, b *broker.Broker, store scenario.Store, log *logger.Logger) {
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Warn("Interrupt received, aborting scenario")
		cancel()
	}()

	sc := scenario.Sample()
	if cfg.Scenario.Path != "" {
		loaded, err := scenario.LoadFile(cfg.Scenario.Path)
		if err != nil {
			log.Fatalf("Failed to load scenario: %v", err)
		}
		sc = loaded
	}

	runner := scenario.NewRunner(b, store)
	trace, err := runner.Run(ctx, sc, cfg.Scenario.NumCycles)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Scenario run failed: %v", err)
	}

	if cfg.Scenario.OutputPath != "" {
		if err := trace.WriteFile(cfg.Scenario.OutputPath); err != nil {
			log.Fatalf("Failed to write trace: %v", err)
		}
		log.Infof("Trace written to %s", cfg.Scenario.OutputPath)
	} else if err := trace.WriteJSON(os.Stdout); err != nil {
		log.Fatalf("Failed to write trace: %v", err)
	}

	status := b.Status()
	log.Infof("Run complete: %d cycles, %d messages delivered", status.Cycles, status.TotalDelivered)
}

// runLive starts the intake worker against the external gateway and blocks
// until shutdown.
func runLive(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, b *broker.Broker, gw gateway.Gateway, store scenario.Store, errorTracker errors.Tracker, log *logger.Logger) {
	run := fmt.Sprintf("live-%s", time.Now().UTC().Format("20060102-150405"))

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(workers.NewIntakeWorker(b, gw, store, run, cfg.Gateway.PullInterval))

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	log.Infof("Live intake running against %s gateway (run %s)", cfg.Gateway.Mode, run)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	cancel()
	if err := scheduler.Stop(); err != nil {
		log.Warnf("Worker shutdown: %v", err)
	}
	if err := gw.Close(); err != nil {
		log.Warnf("Gateway close: %v", err)
	}
	if err := errorTracker.Flush(context.Background()); err != nil {
		log.Warnf("Failed to flush error tracker: %v", err)
	}

	log.Info("Shutdown complete")
}

// resolverPriorities builds the role priority table from configuration.
func resolverPriorities(cfg config.BrokerConfig) map[role.Role]int {
	table := make(map[role.Role]int, len(role.All()))
	for _, r := range role.All() {
		table[r] = cfg.PriorityDefault
	}
	table[role.RiskCompliance] = cfg.PriorityRiskCompliance
	table[role.Executive] = cfg.PriorityExecutive
	return table
}

// initErrorTracker initializes error tracking (Sentry or no-op).
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initTraceStore connects Redis when trace persistence is enabled. The
// returned closer is a no-op otherwise.
func initTraceStore(cfg *config.Config, log *logger.Logger) (scenario.Store, func()) {
	if !cfg.Scenario.PersistTrace {
		return nil, func() {}
	}

	client, err := adapterredis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	log.Infof("Trace persistence enabled (redis %s)", cfg.Redis.Addr())
	return redisrepo.NewTraceStore(client.Client()), func() {
		if err := client.Close(); err != nil {
			log.Warnf("Redis close: %v", err)
		}
	}
}

// initGateway builds the external gateway for the configured mode. Mode
// "none" yields no gateway; the scenario trace is the only output.
func initGateway(cfg *config.Config) (gateway.Gateway, error) {
	switch cfg.Gateway.Mode {
	case "none":
		return nil, nil
	case "kafka":
		return gateway.NewKafka(cfg.Kafka, cfg.Gateway.PullInterval), nil
	case "websocket":
		return gateway.NewWebsocket(cfg.Gateway.WebsocketURL)
	}
	return nil, errors.Wrapf(errors.ErrInvalidConfig, "unknown gateway mode %q", cfg.Gateway.Mode)
}

// startMetricsServer exposes Prometheus metrics.
func startMetricsServer(cfg *config.Config, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server failed: %v", err)
		}
	}()
	log.Infof("Metrics server listening on %s", addr)
}
