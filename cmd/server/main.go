package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"webhook_processing/internal/alert"
	"webhook_processing/internal/cache"
	"webhook_processing/internal/config"
	"webhook_processing/internal/handlers"
	"webhook_processing/internal/kafka"
	"webhook_processing/internal/metrics"
	"webhook_processing/internal/partner"
	"webhook_processing/internal/repository"
	"webhook_processing/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func main() {
	ctx := context.Background()
	logger := log.Default()

	// ---------- config ----------
	cfg := config.Load()

	// без секрета любой сможет слать события - это фатальная ошибка
	// конфигурации, а не per-request условие
	if !cfg.SecretConfigured() {
		log.Fatal("WEBHOOK_SECRET_TOKEN is required")
	}

	// ---------- metrics ----------
	metrics.Register()

	// ---------- db ----------
	pool, err := repository.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal("db:", err)
	}
	defer pool.Close()

	eventRepo := repository.NewEventRepository(pool, cfg.TableName, cfg.DBTimeout)
	eventRepo.InitSchema(ctx, logger)

	metrics.StartDBCollector(ctx, eventRepo, 10*time.Second, logger)

	// ---------- duplicate fast-path cache ----------
	var dupCache cache.Cache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisCache.Close()
		dupCache = redisCache
		logger.Println("duplicate fast-path cache enabled:", cfg.RedisAddr)
	}

	// ---------- alerting ----------
	var alerts service.Alerter
	if cfg.AlertingConfigured() {
		mailer := alert.NewMailer(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUsername,
			cfg.SMTPPassword,
			cfg.SMTPSender,
			cfg.AlertEmail,
			cfg.AlertTimeout,
			logger,
		)
		alerts = service.StartAlertDispatcher(mailer, 100, logger)
		logger.Println("email alerting enabled:", cfg.AlertEmail)
	} else {
		logger.Println("email alerting disabled (ALERT_EMAIL/SMTP_HOST not set)")
	}

	// ---------- accepted-event publisher ----------
	var publishChan chan service.PublishJob
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewSyncProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatal("kafka producer:", err)
		}
		defer producer.Close()

		publishChan = make(chan service.PublishJob, 100)
		service.StartPublishWorker(publishChan, producer, logger)
		logger.Println("event publisher enabled, topic:", cfg.KafkaTopic)
	}

	// ---------- partners ----------
	registry := partner.NewRegistry()
	registry.Register(partner.NewEpnBz())

	// ---------- service ----------
	svc := service.NewWebhookService(
		registry,
		eventRepo,
		dupCache,
		cfg.RedisTTL,
		alerts,
		publishChan,
		logger,
	)

	// ---------- handlers ----------
	h := handlers.NewWebhookHandler(svc, registry, cfg, logger)

	// ---------- router ----------
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(metrics.HTTPMiddleware)

	handlers.RegisterRoutes(r, h)

	// ---------- start server ----------
	addr := ":" + cfg.HTTPPort
	logger.Printf("%s %s starting on %s (secret configured: %t, alerting: %t)",
		handlers.ServiceName, handlers.ServiceVersion, addr,
		cfg.SecretConfigured(), cfg.AlertingConfigured())

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal(err)
	}
}
