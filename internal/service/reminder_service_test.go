package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"subtrack/internal/core"
	"subtrack/internal/notify"
	"subtrack/internal/store/memory"
)

type stubSender struct {
	messages []notify.Message
	err      error
}

func (s *stubSender) Send(_ context.Context, msg notify.Message) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

type fixedConverter struct {
	rates map[string]decimal.Decimal
}

func (c fixedConverter) ToBase(_ context.Context, amount decimal.Decimal, currency string) decimal.Decimal {
	if rate, ok := c.rates[currency]; ok {
		return amount.Mul(rate).Round(2)
	}
	return amount
}

func reminderClock() time.Time {
	return time.Date(2025, 7, 15, 8, 30, 0, 0, time.UTC)
}

func reminderSub(name, category string, next core.Date, autoRenew bool) core.Subscription {
	return core.Subscription{
		Name:        name,
		Category:    category,
		Cycle:       core.CycleMonthly,
		Amount:      core.MoneyFromFloat(419),
		Currency:    "THB",
		NextPayment: next,
		AutoRenew:   autoRenew,
	}
}

func writeRules(t *testing.T, yaml string) ReminderRules {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	rules, err := LoadReminderRules(path)
	if err != nil {
		t.Fatalf("LoadReminderRules() error: %v", err)
	}
	return rules
}

func TestScanWindowAndRules(t *testing.T) {
	ctx := context.Background()
	st := memory.NewSeeded([]core.Subscription{
		reminderSub("Netflix", "Video", core.NewDate(2025, 7, 17), true),
		reminderSub("iCloud", "Software", core.NewDate(2025, 7, 15), false),
		reminderSub("Expired", "Video", core.NewDate(2025, 7, 10), true),
		reminderSub("FarOut", "Video", core.NewDate(2025, 8, 30), true),
		reminderSub("Trial Plus", "Video", core.NewDate(2025, 7, 16), true),
		reminderSub("SysBackup", "System", core.NewDate(2025, 7, 25), true),
	})
	rules := writeRules(t, `
mute:
  - "^Trial "
lead_days:
  System: 14
notes:
  iCloud: "family plan"
`)

	svc := NewReminderService(st, nil, nil, rules, "").WithClock(reminderClock)
	due, muted, err := svc.Scan(ctx, 3)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	var names []string
	for _, item := range due {
		names = append(names, item.Subscription.Name)
	}
	want := []string{"iCloud", "Netflix", "SysBackup"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("Scan() order %v, want %v", names, want)
	}
	if due[0].DaysLeft != 0 || due[1].DaysLeft != 2 || due[2].DaysLeft != 10 {
		t.Errorf("Scan() days left %d/%d/%d, want 0/2/10", due[0].DaysLeft, due[1].DaysLeft, due[2].DaysLeft)
	}
	if due[0].Note != "family plan" {
		t.Errorf("iCloud note = %q, want %q", due[0].Note, "family plan")
	}
	if len(muted) != 1 || muted[0] != "Trial Plus" {
		t.Errorf("muted = %v, want [Trial Plus]", muted)
	}
}

func TestCheckAndSendDedupsPerDay(t *testing.T) {
	ctx := context.Background()
	logPath := filepath.Join(t.TempDir(), "reminder_log.csv")
	st := memory.NewSeeded([]core.Subscription{
		reminderSub("Netflix", "Video", core.NewDate(2025, 7, 17), true),
		reminderSub("iCloud", "Software", core.NewDate(2025, 7, 15), false),
	})
	sender := &stubSender{}
	svc := NewReminderService(st, sender, nil, ReminderRules{}, logPath).WithClock(reminderClock)

	// First run sends a single digest for both subscriptions.
	result, err := svc.CheckAndSend(ctx, ReminderOptions{Days: 3})
	if err != nil {
		t.Fatalf("CheckAndSend() error: %v", err)
	}
	if len(result.Sent) != 2 {
		t.Fatalf("Sent = %v, want both", result.Sent)
	}
	if result.Message != "reminder sent for 2 subscriptions" {
		t.Errorf("Message = %q", result.Message)
	}
	if len(sender.messages) != 1 {
		t.Fatalf("sender received %d messages, want 1", len(sender.messages))
	}
	msg := sender.messages[0]
	if !strings.Contains(msg.Subject, "2 subscriptions due soon") {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Text, "Netflix") || !strings.Contains(msg.Text, "iCloud") {
		t.Errorf("digest text missing names:\n%s", msg.Text)
	}

	raw, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reminder log not written: %v", err)
	}
	log := string(raw)
	if !strings.Contains(log, "Netflix,2025-07-15,2,TRUE") {
		t.Errorf("log missing Netflix entry:\n%s", log)
	}

	// Second run the same day sends nothing.
	result, err = svc.CheckAndSend(ctx, ReminderOptions{Days: 3})
	if err != nil {
		t.Fatalf("CheckAndSend() second run error: %v", err)
	}
	if len(result.Sent) != 0 || len(result.Skipped) != 2 {
		t.Errorf("second run sent %v skipped %v, want all skipped", result.Sent, result.Skipped)
	}
	if result.Message != "all 2 due subscriptions were already reminded today" {
		t.Errorf("Message = %q", result.Message)
	}
	if len(sender.messages) != 1 {
		t.Errorf("sender received %d messages after second run, want still 1", len(sender.messages))
	}

	// Force ignores the log.
	result, err = svc.CheckAndSend(ctx, ReminderOptions{Days: 3, Force: true})
	if err != nil {
		t.Fatalf("CheckAndSend() force error: %v", err)
	}
	if len(result.Sent) != 2 {
		t.Errorf("force run sent %v, want both", result.Sent)
	}
	if len(sender.messages) != 2 {
		t.Errorf("sender received %d messages after force, want 2", len(sender.messages))
	}
}

func TestCheckAndSendDryRun(t *testing.T) {
	ctx := context.Background()
	logPath := filepath.Join(t.TempDir(), "reminder_log.csv")
	st := memory.NewSeeded([]core.Subscription{
		reminderSub("Netflix", "Video", core.NewDate(2025, 7, 17), true),
	})
	sender := &stubSender{}
	svc := NewReminderService(st, sender, nil, ReminderRules{}, logPath).WithClock(reminderClock)

	result, err := svc.CheckAndSend(ctx, ReminderOptions{Days: 3, DryRun: true})
	if err != nil {
		t.Fatalf("CheckAndSend() error: %v", err)
	}
	if result.Message != "dry run: would send a reminder for 1 subscriptions" {
		t.Errorf("Message = %q", result.Message)
	}
	if len(sender.messages) != 0 {
		t.Error("dry run sent mail")
	}
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Error("dry run wrote the reminder log")
	}
}

func TestCheckAndSendNothingDue(t *testing.T) {
	ctx := context.Background()
	st := memory.NewSeeded([]core.Subscription{
		reminderSub("FarOut", "Video", core.NewDate(2025, 12, 1), true),
	})
	svc := NewReminderService(st, &stubSender{}, nil, ReminderRules{}, "").WithClock(reminderClock)

	result, err := svc.CheckAndSend(ctx, ReminderOptions{Days: 3})
	if err != nil {
		t.Fatalf("CheckAndSend() error: %v", err)
	}
	if result.Message != "no subscriptions due within 3 days" {
		t.Errorf("Message = %q", result.Message)
	}
}

func TestCheckAndSendNoSender(t *testing.T) {
	ctx := context.Background()
	st := memory.NewSeeded([]core.Subscription{
		reminderSub("Netflix", "Video", core.NewDate(2025, 7, 17), true),
	})
	svc := NewReminderService(st, nil, nil, ReminderRules{}, filepath.Join(t.TempDir(), "log.csv")).WithClock(reminderClock)

	_, err := svc.CheckAndSend(ctx, ReminderOptions{Days: 3})
	if err == nil || !strings.Contains(err.Error(), "no mail driver configured") {
		t.Errorf("CheckAndSend() error = %v, want mail driver error", err)
	}
}

func TestCheckAndSendSenderFailure(t *testing.T) {
	ctx := context.Background()
	logPath := filepath.Join(t.TempDir(), "reminder_log.csv")
	st := memory.NewSeeded([]core.Subscription{
		reminderSub("Netflix", "Video", core.NewDate(2025, 7, 17), true),
	})
	sender := &stubSender{err: os.ErrDeadlineExceeded}
	svc := NewReminderService(st, sender, nil, ReminderRules{}, logPath).WithClock(reminderClock)

	_, err := svc.CheckAndSend(ctx, ReminderOptions{Days: 3})
	if err == nil {
		t.Fatal("CheckAndSend() succeeded despite sender failure")
	}
	// A failed send must not mark the subscription as reminded.
	if _, statErr := os.Stat(logPath); !os.IsNotExist(statErr) {
		t.Error("reminder log written after failed send")
	}
}

func TestCheckAndSendConvertsDigestTotal(t *testing.T) {
	ctx := context.Background()
	logPath := filepath.Join(t.TempDir(), "reminder_log.csv")
	usd := reminderSub("iCloud", "Software", core.NewDate(2025, 7, 15), false)
	usd.Amount = core.MoneyFromFloat(2.99)
	usd.Currency = "USD"
	st := memory.NewSeeded([]core.Subscription{
		reminderSub("Netflix", "Video", core.NewDate(2025, 7, 17), true),
		usd,
	})
	sender := &stubSender{}
	conv := fixedConverter{rates: map[string]decimal.Decimal{"USD": decimal.NewFromFloat(35.5)}}
	svc := NewReminderService(st, sender, conv, ReminderRules{}, logPath).WithClock(reminderClock)

	if _, err := svc.CheckAndSend(ctx, ReminderOptions{Days: 3}); err != nil {
		t.Fatalf("CheckAndSend() error: %v", err)
	}
	if len(sender.messages) != 1 {
		t.Fatalf("sender received %d messages, want 1", len(sender.messages))
	}

	text := sender.messages[0].Text
	// Per-item amounts stay in their own currency, the total is in THB:
	// 419 + 2.99 x 35.5 = 525.15.
	if !strings.Contains(text, "$2.99") {
		t.Errorf("digest missing USD amount:\n%s", text)
	}
	if !strings.Contains(text, "฿525.15") {
		t.Errorf("digest missing THB total:\n%s", text)
	}
}
