package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluxorio/txworker/pkg/admin"
	"github.com/fluxorio/txworker/pkg/config"
	"github.com/fluxorio/txworker/pkg/core"
	"github.com/fluxorio/txworker/pkg/core/concurrency"
	"github.com/fluxorio/txworker/pkg/lifecycle"
	"github.com/fluxorio/txworker/pkg/observability/prometheus"
	"github.com/fluxorio/txworker/pkg/observability/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	envPrefix := flag.String("env-prefix", config.DefaultEnvPrefix, "prefix for environment overrides")
	jobs := flag.Int("jobs", 20, "sample transactions submitted to each pool")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath, *envPrefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "txworker: %v\n", err)
		os.Exit(2)
	}

	os.Exit(run(cfg, *jobs))
}

func run(cfg *config.Config, jobs int) int {
	logger, err := core.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "txworker: %v\n", err)
		return 2
	}
	concurrency.SetDefaultLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdownTracing, err := tracing.Initialize(tracing.Config{
			ServiceName: cfg.Tracing.ServiceName,
			Exporter:    cfg.Tracing.Exporter,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			logger.Errorf("tracing: %v", err)
			return 1
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.Warnf("tracing shutdown: %v", err)
			}
		}()
	}

	var observers []concurrency.Observer
	if cfg.Metrics.Enabled {
		prometheus.RegisterRuntimeCollectors()
		observers = append(observers, prometheus.GetMetrics())
	}
	if cfg.Events.Enabled {
		pub, err := lifecycle.NewNATSPublisher(lifecycle.NATSConfig{
			URL:     cfg.Events.URL,
			Subject: cfg.Events.Subject,
			Name:    cfg.Events.Name,
			Logger:  logger,
		})
		if err != nil {
			logger.Errorf("lifecycle events: %v", err)
			return 1
		}
		defer pub.Close()
		observers = append(observers, pub)
	}

	registry := concurrency.NewRegistry(cfg.Group.Name,
		concurrency.WithRegistryLogger(logger),
		concurrency.WithRegistryObserver(concurrency.MultiObserver(observers...)),
		concurrency.WithRegistryPollInterval(cfg.Shutdown.PollInterval.Std()),
	)

	executors := make([]concurrency.Executor, 0, len(cfg.Executor.Pools))
	for _, pool := range cfg.Executor.Pools {
		// not tied to ctx so Shutdown can drain queued work after a signal
		executors = append(executors, concurrency.NewExecutor(context.Background(), concurrency.ExecutorConfig{
			Workers:   pool.Workers,
			QueueSize: pool.QueueSize,
			Factory:   registry.Create(pool.Name, pool.Daemon),
			Logger:    logger,
		}))
		logger.Infof("pool %s started: workers=%d daemon=%t", pool.Name, pool.Workers, pool.Daemon)
	}

	var adminServer *admin.Server
	if cfg.Admin.Enabled {
		adminCfg := admin.Config{
			Addr:    cfg.Admin.Addr,
			Auth:    admin.AuthConfig{Secret: cfg.Admin.AuthSecret, Issuer: cfg.Admin.AuthIssuer},
			MaxWait: cfg.Admin.MaxWait.Std(),
			Logger:  logger,
		}
		if adminCfg.Auth.Secret == "" {
			logger.Warnf("admin server on %s accepts POST /shutdown/wait without a token", cfg.Admin.Addr)
		}
		if cfg.Metrics.Enabled {
			adminServer = admin.NewServerWithPrometheus(registry, adminCfg)
		} else {
			adminServer = admin.NewServer(registry, adminCfg)
		}
		if err := adminServer.Start(ctx); err != nil {
			logger.Errorf("admin server: %v", err)
			return 1
		}
	}

	for i, exec := range executors {
		submitSampleWork(exec, cfg.Executor.Pools[i].Name, jobs, logger)
	}

	<-ctx.Done()
	logger.Info("Shutting down...")

	timeout := cfg.Shutdown.Timeout.Std()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, exec := range executors {
		if err := exec.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("executor shutdown: %v", err)
		}
	}

	ok := registry.WaitAllShutdown(timeout)

	if adminServer != nil {
		if err := adminServer.Stop(context.Background()); err != nil {
			logger.Warnf("admin server stop: %v", err)
		}
	}
	if !ok {
		return 1
	}
	return 0
}

// submitSampleWork queues n simulated transactions, each committing after a short delay
func submitSampleWork(exec concurrency.Executor, pool string, n int, logger core.Logger) {
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-tx-%d", pool, i+1)
		delay := time.Duration(50+rand.IntN(450)) * time.Millisecond
		task := concurrency.NewNamedTask(id, func(ctx context.Context) error {
			select {
			case <-time.After(delay):
				logger.Debugf("%s committed on %s after %s", id, concurrency.CurrentThread(ctx).Name(), delay)
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err := exec.SubmitWithTimeout(task, time.Second); err != nil {
			logger.Warnf("submit %s: %v", id, err)
		}
	}
}
