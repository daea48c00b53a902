package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"

	"github.com/davronov/tg-speaking-exam/pkg/audio"
	"github.com/davronov/tg-speaking-exam/pkg/bot/ads"
	"github.com/davronov/tg-speaking-exam/pkg/bot/handlers"
	"github.com/davronov/tg-speaking-exam/pkg/config"
	"github.com/davronov/tg-speaking-exam/pkg/db"
	"github.com/davronov/tg-speaking-exam/pkg/exam"
	"github.com/davronov/tg-speaking-exam/pkg/logger"
	"github.com/davronov/tg-speaking-exam/pkg/questions"
	"github.com/davronov/tg-speaking-exam/pkg/scoring"
	"github.com/davronov/tg-speaking-exam/pkg/speech"
	"github.com/davronov/tg-speaking-exam/pkg/web"
)

func main() {
	if err := config.LoadConfig("config.json"); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := logger.Configure(logger.Options{
		Level: config.AppConfig.Logging.Level,
		File:  config.AppConfig.Logging.File,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}

	if err := db.InitDB(config.AppConfig.Database); err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	bank, err := questions.Load(config.AppConfig.Exam.QuestionsFile)
	if err != nil {
		logger.Error("failed to load question bank", "error", err)
		os.Exit(1)
	}
	logger.Info("question bank loaded", "tests", bank.Len())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	scorer, err := scoring.NewScorer(ctx, config.AppConfig.Scoring, scoring.DefaultAdjustPolicy)
	if err != nil {
		logger.Error("failed to create scorer", "error", err)
		os.Exit(1)
	}

	examService := exam.NewService(
		bank,
		audio.NewConverter(""),
		speech.NewWhisperTranscriber(config.AppConfig.Speech),
		scorer,
		config.AppConfig.Exam,
		nil,
	)
	handlers.Configure(examService, speech.NewOpenAISynthesizer(config.AppConfig.Speech))

	b, err := bot.New(config.AppConfig.Telegram.Token,
		bot.WithDefaultHandler(handlers.DefaultHandler),
	)
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	examService.Subscribed = handlers.SubscriptionChecker(b, config.AppConfig.Telegram.Channel)
	examService.OnTimeout = func(userID int64, fb *exam.Feedback, err error) {
		if err != nil {
			logger.Error("timeout completion failed", "user_id", userID, "error", err)
			return
		}
		notifyTimeout(b, userID, fb)
	}

	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, handlers.HandleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/exam", bot.MatchTypeExact, handlers.HandleExamStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/referral", bot.MatchTypeExact, handlers.HandleReferral)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/progress", bot.MatchTypeExact, handlers.HandleProgress)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/admin_add", bot.MatchTypePrefix, handlers.HandleAddAdmin)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/upgrade_gold", bot.MatchTypePrefix, handlers.HandleUpgradeGold)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/downgrade", bot.MatchTypePrefix, handlers.HandleDowngrade)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/send_all", bot.MatchTypePrefix, handlers.HandleSendAll)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypeExact, handlers.HandleStats)

	go ads.StartBroadcaster(ctx, b)

	server := web.NewServer(examService, bank,
		config.AppConfig.Telegram.Token, config.AppConfig.Server.JWTSecret, nil)
	go func() {
		logger.Info("starting web server", "addr", config.AppConfig.Server.Addr)
		if err := server.Run(config.AppConfig.Server.Addr); err != nil {
			logger.Error("web server stopped", "error", err)
			cancel()
		}
	}()

	logger.Info("starting bot")
	b.Start(ctx)
}

func notifyTimeout(b *bot.Bot, userID int64, fb *exam.Feedback) {
	ctx, cancel := context.WithTimeout(context.Background(), handlers.NotifyTimeoutBudget)
	defer cancel()

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: userID,
		Text:   "⏰ Time is up! The exam has ended. Here is your feedback.",
	}); err != nil {
		logger.Error("failed to notify timeout", "user_id", userID, "error", err)
	}
	handlers.SendFeedback(ctx, b, userID, fb)
}
