package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/khamis1992/rental-notify/config"
	"github.com/khamis1992/rental-notify/internal/dedup"
	"github.com/khamis1992/rental-notify/internal/health"
	"github.com/khamis1992/rental-notify/internal/httpserver"
	"github.com/khamis1992/rental-notify/internal/mailer"
	"github.com/khamis1992/rental-notify/internal/processor"
	"github.com/khamis1992/rental-notify/internal/queue"
	"github.com/khamis1992/rental-notify/internal/repository"
	"github.com/khamis1992/rental-notify/internal/selector"
	"github.com/khamis1992/rental-notify/pkg/circuitbreaker"
	"github.com/khamis1992/rental-notify/pkg/db"
	"github.com/khamis1992/rental-notify/pkg/logger"
	redisclient "github.com/khamis1992/rental-notify/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New()
	defer log.Sync()

	log.Info("Starting notifier service...")

	pool, err := db.NewPool(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Database connection established")

	rdb := redisclient.NewClient(cfg.Redis)
	defer rdb.Close()

	// Repositories
	ruleRepo := repository.NewRuleRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	queueRepo := repository.NewQueueRepository(pool)
	logRepo := repository.NewNotificationLogRepository(pool)
	metricsRepo := repository.NewMetricsRepository(pool)
	alertRepo := repository.NewAlertRepository(pool)

	// Outbound mail goes through one circuit breaker shared by all paths.
	send := mailer.WithBreaker(
		mailer.NewResendMailer(cfg.Mail.ResendAPIKey, log),
		circuitbreaker.New(circuitbreaker.DefaultConfig()),
	)

	guard := dedup.NewGuard(logRepo, dedup.NewRedisCache(rdb), cfg.Pipeline.DedupWindow(), log)
	sel := selector.New(profileRepo)
	resolver := processor.NewAttachmentResolver(profileRepo)

	proc := processor.New(
		ruleRepo,
		templateRepo,
		sel,
		guard,
		profileRepo,
		resolver,
		profileRepo,
		logRepo,
		metricsRepo,
		send,
		cfg.Mail.From,
		log,
	)

	worker := queue.NewWorker(
		queueRepo,
		templateRepo,
		logRepo,
		metricsRepo,
		send,
		cfg.Mail.From,
		queue.Config{
			BatchSize:   cfg.Pipeline.BatchSize,
			MaxRetries:  cfg.Pipeline.MaxRetries,
			BackoffBase: cfg.Pipeline.BackoffBase(),
			BackoffCap:  cfg.Pipeline.BackoffCap(),
		},
		log,
	)

	monitor := health.NewMonitor(
		metricsRepo,
		queueRepo,
		logRepo,
		alertRepo,
		send,
		cfg.Mail.From,
		cfg.Mail.AlertEmail,
		cfg.Pipeline.AlertThresholdPercent,
		log,
	)

	// Built-in scheduler: run the full cycle on a fixed interval. The same
	// jobs stay callable over HTTP for external cron and manual reruns.
	interval := time.Duration(cfg.Pipeline.PollIntervalSeconds) * time.Second
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			runCycle(proc, worker, monitor, log)
		}
	}()

	router := httpserver.NewRouter(httpserver.Deps{
		Rules:     proc,
		Drainer:   worker,
		Checker:   monitor,
		Templates: templateRepo,
		RuleStore: ruleRepo,
		Intake:    queueRepo,
		Logger:    log,
	})
	log.Info("HTTP server listening", zap.String("port", cfg.Server.Port))
	if err := router.Run(cfg.Server.Port); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}
}

func runCycle(proc *processor.Processor, worker *queue.Worker, monitor *health.Monitor, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now()

	ruleRes := proc.Process(ctx, now)
	log.Info("Rule run finished",
		zap.Int("processed", ruleRes.Processed),
		zap.Int("sent", ruleRes.Sent),
		zap.Int("failed", ruleRes.Failed),
		zap.Int("skipped", ruleRes.Skipped))

	queueRes := worker.Drain(ctx, time.Now())
	log.Info("Queue drain finished",
		zap.Int("claimed", queueRes.Claimed),
		zap.Int("sent", queueRes.Sent),
		zap.Int("failed", queueRes.Failed),
		zap.Int("rescheduled", queueRes.Rescheduled))

	report, err := monitor.Check(ctx, time.Now())
	if err != nil {
		log.Error("Health check failed", zap.Error(err))
		return
	}
	log.Info("Health check finished",
		zap.String("status", report.Status),
		zap.Bool("alerted", report.Alerted))
}
