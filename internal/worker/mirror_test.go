package worker

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"subtrack/internal/core"
	"subtrack/internal/service"
	sheetmem "subtrack/internal/sheets/memory"
	"subtrack/internal/store/memory"
)

func workerSub(name, category string, amount float64, next core.Date, autoRenew bool) core.Subscription {
	return core.Subscription{
		Name:        name,
		Category:    category,
		Cycle:       core.CycleMonthly,
		Amount:      core.MoneyFromFloat(amount),
		Currency:    "THB",
		NextPayment: next,
		AutoRenew:   autoRenew,
	}
}

func inDays(n int) core.Date {
	return core.Date{Time: core.Today().Time.AddDate(0, 0, n)}
}

func TestMirrorPushReplacesBothTabs(t *testing.T) {
	ctx := context.Background()
	st := memory.NewSeeded([]core.Subscription{
		workerSub("Netflix", "Video", 419, inDays(10), true),
		workerSub("Dropbox", "Software", 350, inDays(20), true),
	})
	summaries := service.NewSummaryService(nil, 7)
	history := service.NewHistoryService(filepath.Join(t.TempDir(), "history.csv"))

	// Seed one snapshot so the history tab has a row to mirror.
	subs, _ := st.List(ctx)
	if err := history.Snapshot(summaries.Cost(ctx, subs, core.Today()), core.Today()); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	mirror := sheetmem.New()
	pusher := NewMirrorPusher(st, summaries, history, mirror)

	if err := pusher.Push(ctx); err != nil {
		t.Fatalf("Push() error: %v", err)
	}

	if got := mirror.Pushes(); got != 2 {
		t.Errorf("pushes = %d, want 2 (subscriptions + history)", got)
	}
	pushed := mirror.Subscriptions()
	if len(pushed) != 2 {
		t.Fatalf("mirrored subscriptions = %d, want 2", len(pushed))
	}
	if pushed[0].Name != "Netflix" || pushed[0].MonthlyCost.String() != "419.00" {
		t.Errorf("unexpected first row: %+v", pushed[0])
	}
	if hist := mirror.History(); len(hist) != 1 || hist[0].Count != 2 {
		t.Errorf("unexpected history: %+v", hist)
	}
}

func TestMirrorPushEmptyHistory(t *testing.T) {
	ctx := context.Background()
	st := memory.NewSeeded([]core.Subscription{
		workerSub("Netflix", "Video", 419, inDays(10), true),
	})
	history := service.NewHistoryService(filepath.Join(t.TempDir(), "history.csv"))
	mirror := sheetmem.New()
	pusher := NewMirrorPusher(st, service.NewSummaryService(nil, 7), history, mirror)

	// No snapshot file yet; the history tab is replaced with nothing.
	if err := pusher.Push(ctx); err != nil {
		t.Fatalf("Push() error: %v", err)
	}
	if hist := mirror.History(); len(hist) != 0 {
		t.Errorf("history = %+v, want empty", hist)
	}
}

func TestMirrorPushPropagatesErrors(t *testing.T) {
	ctx := context.Background()
	st := memory.NewSeeded([]core.Subscription{
		workerSub("Netflix", "Video", 419, inDays(10), true),
	})
	history := service.NewHistoryService(filepath.Join(t.TempDir(), "history.csv"))
	mirror := sheetmem.New()
	mirror.FailWith(errors.New("quota exceeded"))
	pusher := NewMirrorPusher(st, service.NewSummaryService(nil, 7), history, mirror)

	err := pusher.Push(ctx)
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("Push() error = %v, want quota error", err)
	}
}
