package main

import (
	"context"
	"os"
	"time"

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
	logger.Info("Starting subtrack-renewd")

	cfg := cli.LoadAndValidateConfig(logger)

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

	// Follow-up work goes through the broker when one is configured and
	// runs in-process otherwise, so broker-less installs still get
	// reminders and mirror refreshes.
	var dispatcher worker.Dispatcher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in local dispatch mode", "error", err)
		} else {
			defer amqpClient.Close()
			dispatcher = amqpClient
			logger.Info("AMQP client initialized - follow-up work goes through the notifier")
		}
	}
	if dispatcher == nil {
		dispatcher = worker.NewLocalDispatcher(
			localReminders(logger, cfg, backend.Store, converter),
			localPusher(logger, cfg, backend.Store, converter),
		)
		logger.Info("Local dispatch mode - reminders and mirror pushes run in-process")
	}

	renew := worker.NewRenewWorker(
		backend.Store,
		service.NewRenewalProcessor(backend.Store),
		service.NewSummaryService(converter, cfg.WarningDays),
		service.NewHistoryService(cfg.HistoryPath()),
		dispatcher,
		cfg.ReminderDays,
	)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Renewal daemon configured",
		"interval", cfg.RenewdInterval,
		"backend", cfg.DataBackend,
		"reminder_days", cfg.ReminderDays)

	ticker := time.NewTicker(cfg.RenewdInterval)
	defer ticker.Stop()

	// Run initial cycle on startup
	logger.Info("Running initial renewal cycle...")
	if err := renew.RunOnce(ctx); err != nil {
		logger.Error("Initial renewal cycle failed", "error", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if err := renew.RunOnce(ctx); err != nil {
					logger.Error("Renewal cycle failed", "error", err)
				} else {
					logger.Info("Renewal cycle finished",
						"next_check", now.Add(cfg.RenewdInterval).Format("15:04:05"))
				}
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Renewal daemon stopped gracefully")
}

// localReminders builds the in-process reminder service. Failures only
// disable reminders: the daemon's renewal duty is not affected.
func localReminders(logger *applog.Logger, cfg *config.Config, st store.SubscriptionStore, converter *rates.Service) *service.ReminderService {
	if !cfg.RemindersEnabled() {
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
		logger.Warn("Failed to initialize mail sender, reminders disabled",
			"driver", cfg.NotifyDriver, "error", err)
		return nil
	}

	rules, err := service.LoadReminderRules(cfg.ReminderRulesPath)
	if err != nil {
		logger.Warn("Failed to load reminder rules, continuing without them",
			"path", cfg.ReminderRulesPath, "error", err)
		rules = service.ReminderRules{}
	}

	return service.NewReminderService(st, sender, converter, rules, cfg.ReminderLogPath())
}

// localPusher builds the in-process sheets mirror. Failures only
// disable mirroring.
func localPusher(logger *applog.Logger, cfg *config.Config, st store.SubscriptionStore, converter *rates.Service) *worker.MirrorPusher {
	if !cfg.MirrorEnabled() {
		return nil
	}

	mirror, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
	})
	if err != nil {
		logger.Warn("Failed to initialize Google Sheets client, mirror disabled", "error", err)
		return nil
	}

	return worker.NewMirrorPusher(
		st,
		service.NewSummaryService(converter, cfg.WarningDays),
		service.NewHistoryService(cfg.HistoryPath()),
		mirror,
	)
}
