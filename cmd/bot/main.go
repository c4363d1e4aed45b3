package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead_intake_bot/internal/app"
	"lead_intake_bot/internal/domain/lead"
	"lead_intake_bot/internal/infra/config"
	"lead_intake_bot/internal/infra/csvstore"
	idb "lead_intake_bot/internal/infra/database"
	"lead_intake_bot/internal/infra/logger"
	"lead_intake_bot/internal/infra/metrics"
	"lead_intake_bot/internal/infra/queue"
	"lead_intake_bot/internal/infra/scheduler"
	itelegram "lead_intake_bot/internal/infra/telegram"
	"lead_intake_bot/internal/infra/web"

	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Get().WithField("component", "main")

	// Lead store: postgres when configured, the CSV file otherwise.
	var leadRepo lead.Repository
	if cfg.DatabaseURL != "" {
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("FATAL: Could not connect to database: %v", err)
		}
		defer db.Close()
		if err := idb.EnsureSchema(db); err != nil {
			log.Fatalf("FATAL: Could not initialize database schema: %v", err)
		}
		leadRepo = idb.NewPostgresLeadRepository(db)
		log.Info("Lead store: postgres")
	} else {
		csvRepo, err := csvstore.NewCSVLeadRepository(cfg.LeadsCSVPath)
		if err != nil {
			log.Fatalf("FATAL: Could not initialize CSV lead store: %v", err)
		}
		leadRepo = csvRepo
		log.WithField("path", cfg.LeadsCSVPath).Info("Lead store: CSV file")
	}

	deliveryQueue := queue.NewMemoryQueue()
	instruments := metrics.New("lead_intake")

	convService := app.NewConversationService(
		leadRepo,
		deliveryQueue,
		logger.Get().WithField("component", "conversation"),
		instruments,
		cfg.DeclineResetTimeout,
	)
	followUpService := app.NewFollowUpService(
		leadRepo,
		deliveryQueue,
		logger.Get().WithField("component", "followup"),
		instruments,
		cfg.FollowUpDelay,
	)

	followUpScheduler := scheduler.NewFollowUpScheduler(
		followUpService,
		logger.Get().WithField("component", "scheduler"),
		cfg.SweepInterval,
		cfg.SweepBackoff,
	)
	if err := followUpScheduler.Start(); err != nil {
		log.Fatalf("FATAL: Could not start follow-up scheduler: %v", err)
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telegram transport is optional; the webchat API always runs.
	var bot *telebot.Bot
	if cfg.TelegramToken != "" {
		pref := telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				entry := logger.Get().WithField("component", "telebot").WithError(err)
				if c != nil && c.Sender() != nil {
					entry = entry.WithField("sender_id", c.Sender().ID)
				}
				entry.Error("Telegram handler error")
			},
		}
		bot, err = telebot.NewBot(pref)
		if err != nil {
			log.Fatalf("FATAL: Could not create Telegram bot: %v", err)
		}

		itelegram.RegisterLeadHandlers(rootCtx, bot, convService, logger.Get().WithField("component", "telegram"))
		if cfg.AdminTelegramID != 0 {
			adminService := app.NewAdminService(leadRepo, cfg.AdminTelegramID)
			itelegram.RegisterAdminHandlers(rootCtx, bot, adminService, logger.Get().WithField("component", "telegram"))
		}

		dispatcher := itelegram.NewNudgeDispatcher(
			convService,
			deliveryQueue,
			itelegram.NewTelebotAdapter(bot),
			logger.Get().WithField("component", "dispatcher"),
			cfg.DispatchInterval,
		)
		dispatcher.Start(rootCtx)

		go bot.Start()
		log.Info("Telegram transport started")
	} else {
		log.Info("TELEGRAM_TOKEN not set; Telegram transport disabled")
	}

	server := web.NewServer(cfg.HTTPAddr, convService, logger.Get().WithField("component", "web"))
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("FATAL: Web server failed: %v", err)
		}
	}()

	log.Info("Application setup complete")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	cancel() // stops the nudge dispatcher
	followUpScheduler.Stop()
	if bot != nil {
		bot.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Web server shutdown incomplete")
	}
	log.Info("Application shut down gracefully")
}
