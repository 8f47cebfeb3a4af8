// main wires the bot: config, storage, bank client, Telegram transport, and
// the webhook HTTP server. Business logic lives in the internal services.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"velorent/internal/audit"
	"velorent/internal/bot"
	"velorent/internal/cleanup"
	"velorent/internal/fleet"
	"velorent/internal/i18n"
	"velorent/internal/identity"
	"velorent/internal/payment"
	"velorent/internal/platform/config"
	"velorent/internal/platform/httpserver"
	"velorent/internal/platform/logger"
	"velorent/internal/platform/postgres"
	platformredis "velorent/internal/platform/redis"
	"velorent/internal/registration"
	regmetrics "velorent/internal/registration/metrics"
	"velorent/internal/rental"
	"velorent/internal/settings"
	"velorent/internal/transfer"
	httptransport "velorent/internal/transport/http"
	"velorent/internal/verification"
)

const cleanupInterval = time.Hour

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := platformredis.New(cfg.RedisURL, cfg.Redis)
	if err != nil {
		log.Error("redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Error("telegram", "error", err)
		os.Exit(1)
	}

	var pub audit.Publisher = audit.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub, err := audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			log.Error("kafka", "error", err)
			os.Exit(1)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := kafkaPub.Close(flushCtx); err != nil {
				log.Warn("audit flush", "error", err)
			}
		}()
		pub = kafkaPub
	}

	// Stores.
	users := identity.NewPostgresUserStore(db)
	docs := identity.NewPostgresDocumentStore(db)
	bikes := fleet.NewPostgresBikeStore(db)
	batteries := fleet.NewPostgresBatteryStore(db)
	rentals := rental.NewPostgresStore(db)
	payments := payment.NewPostgresStore(db)
	settingsStore := settings.NewPostgresStore(db)
	staging := registration.NewRedisStaging(redisClient.Client)
	txr := identity.NewSQLTxRunner(db)

	// Services.
	tr := i18n.New()
	notifier := bot.NewNotifier(api, tr)
	gateway := transfer.NewGateway(bot.NewFetcher(api, cfg.MaxFileSize), cfg.UploadPath, log)
	regMetrics := regmetrics.New()
	committer := registration.NewCommitter(txr, users, docs, gateway, pub, log, regMetrics)
	flow := registration.NewFlow(staging, users, committer, bot.ReservedMenuLabels(tr), log, regMetrics)
	reviewSvc := verification.NewService(users, docs, notifier, pub, log)
	fleetSvc := fleet.NewService(bikes, batteries, log)

	provider := payment.NewTochkaClient(
		cfg.Tochka.BaseURL, cfg.Tochka.JWTToken, cfg.Tochka.CustomerCode, cfg.Tochka.MerchantID, log)
	paymentSvc, err := payment.NewService(payments, provider, pub, cfg.Tochka.WebhookKey, log)
	if err != nil {
		log.Error("payments", "error", err)
		os.Exit(1)
	}
	rentalSvc := rental.NewService(rentals, bikes, paymentSvc, txr, pub, log)
	paymentSvc.AttachSettler(rentalSvc)
	settingsSvc := settings.NewService(settingsStore, log)

	telegramBot := bot.New(bot.Deps{
		API:      api,
		Flow:     flow,
		Staging:  staging,
		Users:    users,
		Review:   reviewSvc,
		Fleet:    fleetSvc,
		Rentals:  rentalSvc,
		Settings: settingsSvc,
		Tr:       tr,
		IsAdmin:  cfg.IsAdmin,
		Logger:   log,
	})

	handler := httptransport.NewHandler(paymentSvc, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Health(ctx)
	}, log)
	srv := httpserver.New(cfg.HTTPAddr, httptransport.NewRouter(handler))

	sweeper := cleanup.NewSweeper(cfg.UploadPath, docs, cleanupInterval, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return telegramBot.Run(ctx)
	})
	g.Go(func() error {
		log.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("stopped")
}
