package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ForWorkCodes/learn-en-bot/internal/app"
	"github.com/ForWorkCodes/learn-en-bot/internal/infra/config"
	idb "github.com/ForWorkCodes/learn-en-bot/internal/infra/database"
	"github.com/ForWorkCodes/learn-en-bot/internal/infra/gemini"
	"github.com/ForWorkCodes/learn-en-bot/internal/infra/logger"
	"github.com/ForWorkCodes/learn-en-bot/internal/infra/scheduler"
	"github.com/ForWorkCodes/learn-en-bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatalf("Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	log := logger.Get().WithField("component", "main")
	log.WithField("environment", cfg.Environment).Info("Learn-EN bot starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	log.Info("Database connection established")

	if err := idb.RunMigrations(ctx, db); err != nil {
		log.WithError(err).Fatal("Could not apply database migrations")
	}
	log.Info("Database migrations applied")

	// Repositories
	userRepo := idb.NewPostgresUserRepository(db)
	assignmentRepo := idb.NewPostgresAssignmentRepository(db)

	// Gemini content provider and speech synthesis
	geminiClient, err := gemini.NewClient(
		ctx,
		cfg.GeminiAPIKey,
		cfg.GeminiModel,
		cfg.GeminiTTSModel,
		cfg.GeminiTTSVoice,
		logger.Get().WithField("component", "gemini"),
	)
	if err != nil {
		log.WithError(err).Fatal("Could not initialize Gemini client")
	}

	loc := cfg.Location()
	assignmentService := app.NewAssignmentService(
		userRepo,
		assignmentRepo,
		geminiClient,
		loc,
		logger.Get().WithField("component", "assignment_service"),
	)

	// Telegram bot
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
	bot, err := telebot.NewBot(pref)
	if err != nil {
		log.WithError(err).Fatal("Could not create Telegram bot")
	}

	sink := telegram.NewTelebotAdapter(bot)

	lessonScheduler := scheduler.NewLessonScheduler(
		userRepo,
		assignmentRepo,
		assignmentService,
		sink,
		geminiClient,
		telegram.MainMenu,
		logger.Get().WithField("component", "scheduler"),
		cfg.ScheduleCron,
		loc,
	)
	if err := lessonScheduler.Initialize(ctx); err != nil {
		log.WithError(err).Fatal("Could not initialize lesson scheduler")
	}
	lessonScheduler.Start()

	handlers := telegram.NewHandlers(
		userRepo,
		assignmentService,
		lessonScheduler,
		geminiClient,
		logger.Get().WithField("component", "handlers"),
	)
	handlers.Register(ctx, bot)
	log.Info("Bot command handlers registered")

	go bot.Start()
	log.Info("Bot started, polling for updates")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	cancel()
	bot.Stop()
	lessonScheduler.Stop()
	log.Info("Shut down gracefully")
}
