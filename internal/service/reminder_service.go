package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"subtrack/internal/core"
	"subtrack/internal/notify"
	"subtrack/internal/store"
)

// CurrencyConverter converts an amount in a given currency to the base
// currency. *rates.Service satisfies it.
type CurrencyConverter interface {
	ToBase(ctx context.Context, amount decimal.Decimal, currency string) decimal.Decimal
}

// ReminderItem is one subscription inside the reminder window.
type ReminderItem struct {
	Subscription core.Subscription
	DaysLeft     int
	Note         string
}

// ReminderOptions control one reminder run.
type ReminderOptions struct {
	Days   int  // reminder window in days, inclusive
	Force  bool // ignore the sent-today dedup log
	DryRun bool // report what would be sent without sending or logging
}

// ReminderResult summarizes a reminder run.
type ReminderResult struct {
	Due     []ReminderItem // in the window, after mute rules
	Sent    []string       // names actually mailed
	Skipped []string       // names deduped by the daily log
	Muted   []string       // names suppressed by mute rules
	Message string
}

// ReminderService scans for soon-due subscriptions and mails a single
// digest for them, at most once per subscription per day.
type ReminderService struct {
	store   store.SubscriptionReader
	sender  notify.Sender
	conv    CurrencyConverter
	rules   ReminderRules
	logPath string
	now     func() time.Time
}

func NewReminderService(st store.SubscriptionReader, sender notify.Sender, conv CurrencyConverter, rules ReminderRules, logPath string) *ReminderService {
	return &ReminderService{
		store:   st,
		sender:  sender,
		conv:    conv,
		rules:   rules,
		logPath: logPath,
		now:     time.Now,
	}
}

// WithClock overrides the wall clock, used by tests.
func (s *ReminderService) WithClock(now func() time.Time) *ReminderService {
	s.now = now
	return s
}

// Scan returns the subscriptions inside the reminder window, sorted by
// urgency. Already-expired subscriptions are excluded: past payments
// cannot be acted on.
func (s *ReminderService) Scan(ctx context.Context, days int) ([]ReminderItem, []string, error) {
	subs, err := s.store.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list subscriptions: %w", err)
	}

	today := dateOf(s.now())
	var due []ReminderItem
	var muted []string
	for _, sub := range subs {
		left := sub.DaysLeft(today)
		window := s.rules.Window(sub.Category, days)
		if left < 0 || left > window {
			continue
		}
		if s.rules.Muted(sub.Name) {
			muted = append(muted, sub.Name)
			continue
		}
		due = append(due, ReminderItem{
			Subscription: sub,
			DaysLeft:     left,
			Note:         s.rules.Note(sub.Name),
		})
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].DaysLeft < due[j].DaysLeft })
	return due, muted, nil
}

// CheckAndSend runs one reminder pass: scan, dedup against the daily
// log, send the digest, record what was sent.
func (s *ReminderService) CheckAndSend(ctx context.Context, opts ReminderOptions) (ReminderResult, error) {
	due, muted, err := s.Scan(ctx, opts.Days)
	if err != nil {
		return ReminderResult{}, err
	}

	result := ReminderResult{Due: due, Muted: muted}
	if len(due) == 0 {
		result.Message = fmt.Sprintf("no subscriptions due within %d days", opts.Days)
		return result, nil
	}

	today := dateOf(s.now())
	log := loadReminderLog(s.logPath)

	var toSend []ReminderItem
	for _, item := range due {
		if !opts.Force && alreadySentToday(log, item.Subscription.Name, today) {
			result.Skipped = append(result.Skipped, item.Subscription.Name)
			continue
		}
		toSend = append(toSend, item)
	}

	if len(toSend) == 0 {
		result.Message = fmt.Sprintf("all %d due subscriptions were already reminded today", len(due))
		return result, nil
	}

	if opts.DryRun {
		result.Message = fmt.Sprintf("dry run: would send a reminder for %d subscriptions", len(toSend))
		return result, nil
	}

	if s.sender == nil {
		return result, fmt.Errorf("no mail driver configured")
	}

	msg := notify.BuildDigest(s.digestItems(ctx, toSend), s.now())
	if err := s.sender.Send(ctx, msg); err != nil {
		return result, fmt.Errorf("send reminder digest: %w", err)
	}

	for _, item := range toSend {
		result.Sent = append(result.Sent, item.Subscription.Name)
		log = append(log, reminderLogEntry{
			Name:      item.Subscription.Name,
			SentDate:  today,
			DaysLeft:  item.DaysLeft,
			EmailSent: true,
		})
	}
	log = pruneReminderLog(log, today)
	if err := saveReminderLog(s.logPath, log); err != nil {
		slog.WarnContext(ctx, "Failed to save reminder log", "path", s.logPath, "error", err)
	}

	result.Message = fmt.Sprintf("reminder sent for %d subscriptions", len(toSend))
	slog.InfoContext(ctx, "Reminder digest sent",
		"sent", len(result.Sent),
		"skipped", len(result.Skipped),
		"muted", len(result.Muted))
	return result, nil
}

func (s *ReminderService) digestItems(ctx context.Context, items []ReminderItem) []notify.DigestItem {
	out := make([]notify.DigestItem, 0, len(items))
	for _, item := range items {
		sub := item.Subscription
		base := sub.Amount.Value
		if s.conv != nil {
			base = s.conv.ToBase(ctx, sub.Amount.Value, sub.Currency)
		}
		out = append(out, notify.DigestItem{
			Name:       sub.Name,
			Category:   sub.Category,
			Amount:     sub.Amount.Value,
			Currency:   sub.Currency,
			AmountBase: base,
			DaysLeft:   item.DaysLeft,
			AutoRenew:  sub.AutoRenew,
			Note:       item.Note,
		})
	}
	return out
}

func dateOf(t time.Time) core.Date {
	return core.NewDate(t.Year(), int(t.Month()), t.Day())
}
