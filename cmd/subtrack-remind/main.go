package main

import (
	"context"
	"fmt"
	"os"

	"github.com/GiGurra/boa/pkg/boa"

	"subtrack/internal/cli"
	"subtrack/internal/notify"
	"subtrack/internal/rates"
	"subtrack/internal/service"
)

// The one-shot CLI looks a week ahead; the daily digest window comes
// from REMINDER_DAYS instead.
const defaultWindowDays = 7

type Params struct {
	Days    int    `descr:"Reminder window in days (default 7)"`
	Email   bool   `descr:"Send the email digest instead of only printing"`
	Force   bool   `descr:"Send even if a reminder already went out today"`
	DryRun  bool   `descr:"With --email, report what would be sent without sending"`
	DataDir string `descr:"Override the data directory"`
}

func main() {
	boa.NewCmdT[Params]("subtrack-remind").
		WithShort("Print or email reminders for soon-due subscriptions").
		WithLong("Scans the subscription store for payments due within the reminder window, prints them as a table, and with --email sends the same digest through the configured mail driver. Sending is deduplicated per subscription per day unless --force is given.").
		WithRunFunc(run).
		Run()
}

func run(params *Params) {
	cli.LoadEnvFile()

	// Keep table output clean unless the user asks for logs.
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger := cli.SetupLogger(level)

	cfg := cli.LoadAndValidateConfig(logger)
	if params.DataDir != "" {
		cfg.DataDir = params.DataDir
	}

	ctx := context.Background()
	backend := cli.OpenStore(ctx, logger, cfg)
	if backend.Cleanup != nil {
		defer backend.Cleanup()
	}

	converter := rates.NewService(
		rates.NewClient(cfg.BOTAPIToken),
		rates.NewFileCache(cfg.RatesCachePath()),
		cfg.RatesCacheTTL,
		logger.Logger,
	)

	rules, err := service.LoadReminderRules(cfg.ReminderRulesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading reminder rules: %v\n", err)
		os.Exit(1)
	}

	// The sender is only needed when mail actually goes out; a dry run
	// works without any driver configured.
	var sender notify.Sender
	if params.Email && !params.DryRun {
		if !cfg.RemindersEnabled() {
			fmt.Fprintln(os.Stderr, "Error: NOTIFY_DRIVER must be configured to send email")
			os.Exit(1)
		}
		sender, err = notify.New(notify.Config{
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
			fmt.Fprintf(os.Stderr, "Error initializing mail sender: %v\n", err)
			os.Exit(1)
		}
	}

	reminders := service.NewReminderService(backend.Store, sender, converter, rules, cfg.ReminderLogPath())

	days := params.Days
	if days == 0 {
		days = defaultWindowDays
	}

	if params.Email {
		result, err := reminders.CheckAndSend(ctx, service.ReminderOptions{
			Days:   days,
			Force:  params.Force,
			DryRun: params.DryRun,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(result.Due) == 0 {
			fmt.Printf("No subscriptions due within %d days.\n", days)
			return
		}
		printDue(ctx, os.Stdout, converter, result.Due, cfg.BaseCurrency)
		fmt.Println()
		fmt.Println(summaryLine(result))
		return
	}

	due, muted, err := reminders.Scan(ctx, days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(due) == 0 {
		fmt.Printf("No subscriptions due within %d days.\n", days)
		return
	}
	printDue(ctx, os.Stdout, converter, due, cfg.BaseCurrency)
	if len(muted) > 0 {
		fmt.Printf("\n%d muted by reminder rules.\n", len(muted))
	}
}

func summaryLine(result service.ReminderResult) string {
	line := result.Message
	if len(result.Skipped) > 0 {
		line += fmt.Sprintf(" (%d already reminded today)", len(result.Skipped))
	}
	if len(result.Muted) > 0 {
		line += fmt.Sprintf(" (%d muted)", len(result.Muted))
	}
	return line
}
