package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"subtrack/internal/amqp"
	"subtrack/internal/cli"
	"subtrack/internal/config"
	applog "subtrack/internal/log"
	"subtrack/internal/notify"
	"subtrack/internal/rates"
	"subtrack/internal/service"
	gsheet "subtrack/internal/sheets/google"
	"subtrack/internal/store"
	"subtrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting subtrack-notifier")

	cfg := cli.LoadAndValidateConfig(logger)

	// The notifier only consumes; without a broker there is nothing to do.
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}

	backend := cli.OpenStore(context.Background(), logger, cfg)
	if backend.Cleanup != nil {
		defer backend.Cleanup()
	}

	converter := rates.NewService(
		rates.NewClient(cfg.BOTAPIToken),
		rates.NewFileCache(cfg.RatesCachePath()),
		cfg.RatesCacheTTL,
		logger.Logger,
	)

	reminders := buildReminders(logger, cfg, backend.Store, converter)
	pusher := buildPusher(logger, cfg, backend.Store, converter)
	if reminders == nil && pusher == nil {
		logger.Error("Neither reminders nor the sheets mirror are configured, nothing to consume for")
		os.Exit(1)
	}

	notifyWorker := worker.NewNotifyWorker(reminders, pusher)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// One connection, both queues. A broker restart tears down the
	// group and RunConsumer redials.
	consume := func(ctx context.Context, client *amqp.Client) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return client.ConsumeMirrorSync(gctx, func(msg *amqp.MirrorSyncMessage) error {
				return notifyWorker.HandleMirrorSync(gctx, msg)
			})
		})
		g.Go(func() error {
			return client.ConsumeReminderDispatch(gctx, func(msg *amqp.ReminderDispatchMessage) error {
				return notifyWorker.HandleReminderDispatch(gctx, msg)
			})
		})
		return g.Wait()
	}

	logger.Info("Consuming notifier queues",
		"exchange", cfg.AMQPExchange,
		"reminders", reminders != nil,
		"mirror", pusher != nil)
	if err := amqp.RunConsumer(ctx, cfg.AMQPURL, cfg.AMQPExchange, consume); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Notifier stopped gracefully")
}

// buildReminders wires the reminder service, or returns nil when no
// mail driver is configured.
func buildReminders(logger *applog.Logger, cfg *config.Config, st store.SubscriptionStore, converter *rates.Service) *service.ReminderService {
	if !cfg.RemindersEnabled() {
		logger.Info("Reminders disabled - no NOTIFY_DRIVER provided")
		return nil
	}

	sender, err := notify.New(notify.Config{
		Driver:         cfg.NotifyDriver,
		SMTPServer:     cfg.SMTPServer,
		SMTPPort:       cfg.SMTPPort,
		SMTPUsername:   cfg.SMTPUsername,
		SMTPPassword:   cfg.SMTPPassword,
		SendGridAPIKey: cfg.SendGridAPIKey,
		SenderEmail:    cfg.SenderEmail,
		RecipientEmail: cfg.RecipientEmail,
	})
	if err != nil {
		logger.Error("Failed to initialize mail sender", "driver", cfg.NotifyDriver, "error", err)
		os.Exit(1)
	}

	rules, err := service.LoadReminderRules(cfg.ReminderRulesPath)
	if err != nil {
		logger.Error("Failed to load reminder rules", "path", cfg.ReminderRulesPath, "error", err)
		os.Exit(1)
	}

	logger.Info("Reminder service initialized", "driver", cfg.NotifyDriver)
	return service.NewReminderService(st, sender, converter, rules, cfg.ReminderLogPath())
}

// buildPusher wires the Google Sheets mirror, or returns nil when no
// spreadsheet is configured.
func buildPusher(logger *applog.Logger, cfg *config.Config, st store.SubscriptionStore, converter *rates.Service) *worker.MirrorPusher {
	if !cfg.MirrorEnabled() {
		logger.Info("Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil
	}

	mirror, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	logger.Info("Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return worker.NewMirrorPusher(
		st,
		service.NewSummaryService(converter, cfg.WarningDays),
		service.NewHistoryService(cfg.HistoryPath()),
		mirror,
	)
}
