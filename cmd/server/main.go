package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"

	"bulletin/internal/email"
	newsletterhandler "bulletin/internal/newsletter/handler"
	newsletterservice "bulletin/internal/newsletter/service"
	jobstore "bulletin/internal/newsletter/store/job"
	"bulletin/internal/platform/config"
	"bulletin/internal/platform/httpserver"
	"bulletin/internal/platform/logger"
	"bulletin/internal/platform/metrics"
	subscriptionhandler "bulletin/internal/subscription/handler"
	subscriptionservice "bulletin/internal/subscription/service"
	subscriberstore "bulletin/internal/subscription/store/subscriber"
	tokenstore "bulletin/internal/subscription/store/token"
	httptransport "bulletin/internal/transport/http"
	"bulletin/pkg/platform/tx"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	appMetrics := metrics.New()

	ctx := context.Background()

	sender := newSender(ctx, cfg, log)

	var (
		subscribers subscriptionservice.SubscriberStore
		tokens      subscriptionservice.TokenStore
		recipients  newsletterservice.SubscriberSource
		jobs        newsletterservice.JobStore
		storeTx     subscriptionservice.StoreTx
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err.Error())
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to reach database", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()

		pgSubscribers := subscriberstore.NewPostgres(db)
		subscribers = pgSubscribers
		recipients = pgSubscribers
		tokens = tokenstore.NewPostgres(db)
		jobs = jobstore.NewPostgres(db)
		storeTx = tx.NewRunner(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		memSubscribers := subscriberstore.NewInMemory()
		subscribers = memSubscribers
		recipients = memSubscribers
		tokens = tokenstore.NewInMemory()
		jobs = jobstore.NewInMemory()
	}

	subscriptionOpts := []subscriptionservice.Option{
		subscriptionservice.WithMetrics(appMetrics),
		subscriptionservice.WithBaseURL(cfg.BaseURL),
	}
	if storeTx != nil {
		subscriptionOpts = append(subscriptionOpts, subscriptionservice.WithTx(storeTx))
	}
	subscriptions := subscriptionservice.New(subscribers, tokens, sender, log, subscriptionOpts...)

	newsletters := newsletterservice.New(recipients, jobs, sender, log,
		newsletterservice.WithMetrics(appMetrics),
		newsletterservice.WithConcurrency(cfg.PublishConcurrency),
	)

	router := httptransport.NewRouter(log,
		subscriptionhandler.New(subscriptions, log),
		newsletterhandler.New(newsletters, log),
	)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting bulletin", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}

// newSender picks the SES transport when credentials are configured and falls
// back to the logging transport for development.
func newSender(ctx context.Context, cfg config.Server, log *slog.Logger) email.Sender {
	if cfg.AWSAccessKey == "" || cfg.AWSSecretKey == "" {
		log.Warn("AWS credentials not set, using log email transport")
		return email.NewLogSender(log)
	}
	sender, err := email.NewSESSender(ctx, cfg.AWSRegion, cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.SenderEmail, cfg.SenderName)
	if err != nil {
		log.Warn("failed to initialize SES, using log email transport", "error", err.Error())
		return email.NewLogSender(log)
	}
	return sender
}
