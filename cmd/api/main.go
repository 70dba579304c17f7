package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Levanhoa23/HL-Sports-Server1/internal/notify"
	"github.com/Levanhoa23/HL-Sports-Server1/internal/order/app"
	orderpg "github.com/Levanhoa23/HL-Sports-Server1/internal/order/infra/postgres"
	"github.com/Levanhoa23/HL-Sports-Server1/internal/order/infra/processor"
	"github.com/Levanhoa23/HL-Sports-Server1/internal/order/infra/rabbitmq"
	"github.com/Levanhoa23/HL-Sports-Server1/internal/order/web"
	"github.com/Levanhoa23/HL-Sports-Server1/internal/payment/stripe"
	"github.com/Levanhoa23/HL-Sports-Server1/pkg/config"
	"github.com/Levanhoa23/HL-Sports-Server1/pkg/logger"
	"github.com/Levanhoa23/HL-Sports-Server1/pkg/postgres"
	"github.com/Levanhoa23/HL-Sports-Server1/pkg/shutdown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service:   "order-api",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
	})

	root := context.Background()
	ctx, cancel := shutdown.WithSignals(root)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connect failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()

	repo := orderpg.NewOrderRepo(db)

	params := app.Params{
		Repo:                repo,
		Logger:              log,
		Currency:            cfg.Currency,
		VerifyClientConfirm: cfg.VerifyClientConfirm,
	}

	if cfg.StripeSecretKey == "" || cfg.StripeWebhookSecret == "" {
		log.Error("stripe keys are not configured")
		os.Exit(1)
	}
	client := stripe.NewClient(cfg.StripeSecretKey)
	verifier := stripe.NewWebhookVerifier(cfg.StripeWebhookSecret, cfg.WebhookTolerance)
	adapter := processor.NewStripe(client, verifier)
	params.Processor = adapter
	params.Events = adapter

	if cfg.SMTPHost != "" {
		params.Mailer = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
	} else {
		log.Warn("smtp is not configured, confirmation emails disabled")
	}

	var amqpConn *amqp.Connection
	if cfg.AMQPURL != "" {
		amqpConn, err = amqp.Dial(cfg.AMQPURL)
		if err != nil {
			log.Error("rabbitmq connect failed, order events disabled", slog.Any("err", err))
		} else {
			defer amqpConn.Close()
			publisher, err := rabbitmq.NewPublisher(amqpConn, cfg.OrderEventsQueue)
			if err != nil {
				log.Error("rabbitmq queue declare failed, order events disabled", slog.Any("err", err))
			} else {
				params.Publisher = publisher
			}
		}
	}

	svc := app.NewService(params)
	srv := web.NewServer(svc, web.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         log,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http server starting", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", slog.Any("err", err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", slog.Any("err", err))
	}

	wg.Wait()
	log.Info("bye")
}
