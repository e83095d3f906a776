package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ProductManager/internal/auth"
	"ProductManager/internal/catalog"
	"ProductManager/internal/config"
	"ProductManager/internal/events"
	"ProductManager/internal/storage"
	"ProductManager/pkg/kit"
)

func main() {
	service := "product-manager"
	cfg := config.Load()

	log := kit.NewLogger(service, kit.LogOptions{Debug: cfg.Debug, File: cfg.LogFile})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slot, closeSlot, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("storage open failed", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	defer func() {
		if err := closeSlot(); err != nil {
			log.Warn("storage close failed", zap.Error(err))
		}
	}()

	ids, err := catalog.NewIDGenerator(cfg.IDStrategy, cfg.SnowflakeNode)
	if err != nil {
		log.Fatal("id generator", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bus := events.NewBus(log)
	gauges := catalog.NewGauges(reg)
	defer gauges.Listen(bus)()

	if cfg.AMQPURL != "" {
		relay, err := events.DialAMQP(events.AMQPConfig{URL: cfg.AMQPURL}, bus, log)
		if err != nil {
			log.Fatal("amqp relay", zap.Error(err))
		}
		if err := relay.Start(); err != nil {
			log.Fatal("amqp relay start", zap.Error(err))
		}
		defer func() { _ = relay.Close() }()
	}

	store := catalog.NewStore(ctx, catalog.Deps{
		Storage:    storage.NewAdapter(slot, log, catalog.ValidateCollection),
		StorageKey: cfg.StorageKey,
		Events:     bus,
		IDs:        ids,
		Log:        log,
	})
	gauges.Observe(store.GetMetrics())
	defer store.ServeMetricsRequests(bus)()

	var tokens *auth.TokenMaker
	if cfg.JWTSecret != "" {
		tokens = auth.NewTokenMaker(cfg.JWTSecret)
	} else {
		log.Warn("JWT_SECRET not set, mutating routes are open")
	}

	s := &catalog.Server{
		Store:      store,
		Log:        log,
		Events:     bus,
		Stream:     &events.Stream{Bus: bus, Log: log},
		Guard:      auth.RequireToken(tokens, log),
		AddLimiter: kit.NewIPRateLimiter(cfg.AddLimitPerMin, time.Minute),
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	})

	if err := kit.RunHTTPServer(ctx, ":"+cfg.Port, h, log); err != nil {
		log.Error("http server stopped", zap.Error(err))
	}
}
