package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clayhaus/bookingbot/cmd/mainconfig"
	"github.com/clayhaus/bookingbot/internal/api/router"
	"github.com/clayhaus/bookingbot/internal/approvals"
	"github.com/clayhaus/bookingbot/internal/calendar"
	"github.com/clayhaus/bookingbot/internal/channels/instagram"
	appconfig "github.com/clayhaus/bookingbot/internal/config"
	"github.com/clayhaus/bookingbot/internal/dialog"
	"github.com/clayhaus/bookingbot/internal/faq"
	"github.com/clayhaus/bookingbot/internal/history"
	"github.com/clayhaus/bookingbot/internal/http/handlers"
	"github.com/clayhaus/bookingbot/internal/notify/telegram"
	"github.com/clayhaus/bookingbot/internal/observability/metrics"
	"github.com/clayhaus/bookingbot/internal/reservation"
	"github.com/clayhaus/bookingbot/internal/schedule"
	"github.com/clayhaus/bookingbot/internal/session"
	"github.com/clayhaus/bookingbot/pkg/logging"
)

// openCalendar stands in when no Google Calendar is configured: every slot
// inside opening hours reads as free.
type openCalendar struct{}

func (openCalendar) ListBusyIntervals(_ context.Context, _ time.Time) ([]schedule.Interval, error) {
	return nil, nil
}

// deferredMessenger breaks the protocol -> adapter -> engine -> protocol
// construction cycle. The inner messenger is set once the adapter exists.
type deferredMessenger struct {
	inner reservation.CustomerMessenger
}

func (d *deferredMessenger) SendText(ctx context.Context, customerID, text string) error {
	if d.inner == nil {
		return nil
	}
	return d.inner.SendText(ctx, customerID, text)
}

func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(registry)
}

func main() {
	godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting bookingbot API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		logger.Error("invalid business timezone", "timezone", cfg.BusinessTimezone, "error", err)
		os.Exit(1)
	}
	hours, err := schedule.ParseWeekSchedule(cfg.OpeningHours)
	if err != nil {
		logger.Error("invalid opening hours", "error", err)
		os.Exit(1)
	}

	// Calendar
	var busyLister schedule.BusyLister = openCalendar{}
	var calendarWriter reservation.CalendarWriter
	if cfg.GoogleCredentialsBase64 != "" {
		calClient, err := calendar.NewClient(rootCtx, cfg.GoogleCredentialsBase64, cfg.GoogleCalendarID, loc, logger)
		if err != nil {
			logger.Error("failed to init google calendar", "error", err)
			os.Exit(1)
		}
		busyLister = calClient
		calendarWriter = calClient
	} else {
		logger.Warn("no google calendar configured, all opening-hour slots read as free")
	}
	sched := schedule.NewEngine(busyLister, hours, loc)

	// Storage and queue
	var sessions session.Store
	var reservations reservation.Store
	var queue approvals.Queue
	if cfg.UseMemoryQueue {
		logger.Warn("using in-memory stores and queue, state is lost on restart")
		sessions = session.NewMemoryStore(cfg.SessionIdleTTL)
		reservations = reservation.NewMemoryStore()
		queue = approvals.NewMemoryQueue(64)
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(rootCtx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		dynamoClient := dynamodb.NewFromConfig(awsCfg)
		sessions = session.NewDynamoStore(dynamoClient, cfg.SessionsTable, cfg.SessionIdleTTL, logger)
		reservations = reservation.NewDynamoStore(dynamoClient, cfg.ReservationsTable, logger)
		queue = approvals.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ApprovalQueueURL)
	}

	metricsHandler, bookingMetrics := setupMetrics()

	// Two-party confirmation protocol
	messenger := &deferredMessenger{}
	protocol := reservation.NewProtocol(reservations, queue, calendarWriter, messenger, loc, logger)
	protocol.SetMetrics(bookingMetrics)

	// Dialog engine
	engine := dialog.NewEngine(sessions, sched, protocol, loc, logger,
		dialog.WithMaxHeadcount(cfg.MaxHeadcount),
	)

	// FAQ responder
	var responder faq.Responder
	if cfg.GeminiAPIKey != "" {
		gemini, err := faq.NewGeminiResponder(rootCtx, cfg.GeminiAPIKey, cfg.GeminiModelID, cfg.FAQTimeout, logger)
		if err != nil {
			logger.Error("failed to init gemini responder", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		responder = gemini
	} else {
		logger.Warn("no gemini api key, FAQ questions get the fallback answer")
	}

	// Conversation transcripts
	var transcripts *history.TranscriptStore
	if cfg.HistoryEnabled && cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		transcripts = history.NewTranscriptStore(redisClient)
	}

	// Instagram channel
	adapter := instagram.NewAdapter(
		cfg.InstagramToken,
		cfg.InstagramAppSecret,
		cfg.InstagramVerifyToken,
		engine,
		responder,
		transcripts,
		logger,
	)
	adapter.SetMetrics(bookingMetrics)
	messenger.inner = adapter

	// Telegram owner channel and approval worker
	var telegramWebhook *handlers.TelegramWebhookHandler
	var approvalWorker *approvals.Worker
	if cfg.TelegramBotToken != "" && cfg.OwnerTelegramChatID != "" {
		ownerChatID, err := strconv.ParseInt(cfg.OwnerTelegramChatID, 10, 64)
		if err != nil {
			logger.Error("invalid owner telegram chat id", "value", cfg.OwnerTelegramChatID, "error", err)
			os.Exit(1)
		}
		bot := telegram.NewBot(cfg.TelegramBotToken, ownerChatID, logger)
		dispatcher := telegram.NewDispatcher(bot, protocol, logger)
		telegramWebhook = handlers.NewTelegramWebhookHandler(dispatcher, cfg.TelegramWebhookSecret, logger)

		approvalWorker = approvals.NewWorker(queue, bot, logger,
			approvals.WithWorkerCount(cfg.WorkerCount),
			approvals.WithMaxAttempts(cfg.ApprovalRetryMaxAttempts),
			approvals.WithRetryBaseDelay(cfg.ApprovalRetryBaseDelay),
		)
		approvalWorker.Start(rootCtx)
	} else {
		logger.Warn("telegram not configured, approval requests will queue up undelivered")
	}

	// Reminder sweeper
	sweeper := reservation.NewSweeper(reservations, messenger, loc, logger,
		reservation.WithSweepInterval(cfg.SweepInterval),
		reservation.WithReminderWindow(cfg.ReminderWindow),
	)
	sweeper.SetMetrics(bookingMetrics)
	go sweeper.Run(rootCtx)

	// Admin surface
	admin := handlers.NewAdminHandler(engine, transcripts, reservations, logger)

	r := router.New(&router.Config{
		Logger:          logger,
		Instagram:       adapter,
		TelegramWebhook: telegramWebhook,
		Admin:           admin,
		AdminToken:      cfg.AdminToken,
		MetricsHandler:  metricsHandler,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopBackground()
	if approvalWorker != nil {
		approvalWorker.Wait()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
