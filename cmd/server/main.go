package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	httpadapter "github.com/sairevanth-zz/signalsloop-sub011/internal/adapters/http"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/adapters/memory"
	pg "github.com/sairevanth-zz/signalsloop-sub011/internal/adapters/postgres"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/adapters/redisq"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/config"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/monitor"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/ports"
	scansvc "github.com/sairevanth-zz/signalsloop-sub011/internal/services/scans"
	statussvc "github.com/sairevanth-zz/signalsloop-sub011/internal/services/status"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/sources"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/workers/dispatcher"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.Warnf("config: %v", err)
	}
	if cfg.Env == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	retryPolicy := domain.RetryPolicy{BaseDelay: cfg.RetryBaseDelay, MaxDelay: cfg.RetryMaxDelay}

	var (
		scanStore ports.ScanStore
		jobStore  ports.JobStore
	)
	if cfg.DatabaseURL != "" {
		if err := pg.Migrate(ctx, cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		db, err := pg.Connect(ctx, cfg.DatabaseURL, retryPolicy)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer db.Close()
		scanStore, jobStore = db, db
	} else {
		log.Warn("DATABASE_URL unset, using in-memory store (state is lost on restart)")
		mem := memory.NewStore(retryPolicy)
		scanStore, jobStore = mem, mem
	}

	// Source registry: stubs for every configured platform. Swap in concrete
	// per-source clients here as they land.
	registry := sources.NewRegistry()
	for _, platform := range cfg.Sources {
		registry.Register(platform, sources.StubDiscoverer{Platform: platform, Items: 3, Delay: 100 * time.Millisecond})
	}
	resolver := sources.NewStaticResolver(registry, nil)

	var classifier ports.Classifier = dispatcher.LoggingClassifier{Log: log}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis url: %v", err)
		}
		classifier = redisq.New(redis.NewClient(opts), cfg.ClassifyQueueKey)
	}

	metrics := monitor.NewMetrics()
	scanner := scansvc.New(scanStore, resolver, cfg.MaxAttempts)
	status := statussvc.New(scanStore, jobStore)

	if cfg.ScanWorkers > 0 {
		disp := dispatcher.New(jobStore, scanStore, registry, resolver, classifier, metrics, log, dispatcher.Config{
			Workers:         cfg.ScanWorkers,
			PollInterval:    cfg.PollInterval,
			LeaseDuration:   cfg.LeaseDuration,
			DiscoverTimeout: cfg.DiscoverTimeout,
		})
		go func() {
			if err := disp.Run(ctx); err != nil {
				log.WithError(err).Error("dispatcher stopped")
			}
		}()
		log.Infof("scan workers started: %d", cfg.ScanWorkers)
	}

	mon := monitor.New(jobStore, metrics, log)
	if err := mon.Start(ctx, cfg.MonitorInterval); err != nil {
		log.Fatalf("monitor: %v", err)
	}
	defer mon.Stop()

	srv := httpadapter.New(scanner, status, metrics.Handler(), log)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	log.Infof("listening on %s", cfg.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Infof("shutting down on %s", sig)
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatalf("server error: %v", err)
	}
}
