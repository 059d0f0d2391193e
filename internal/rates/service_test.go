package rates

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type stubFetcher struct {
	fixings map[string]decimal.Decimal
	asOf    time.Time
	err     error
	calls   int
}

func (f *stubFetcher) FetchLatest(ctx context.Context) (map[string]decimal.Decimal, time.Time, error) {
	f.calls++
	if f.err != nil {
		return nil, time.Time{}, f.err
	}
	return f.fixings, f.asOf, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testService(t *testing.T, fetcher *stubFetcher, now time.Time) (*Service, *FileCache) {
	t.Helper()
	cache := NewFileCache(filepath.Join(t.TempDir(), "rates_cache.csv"))
	svc := NewService(fetcher, cache, time.Hour, discardLogger(),
		WithServiceClock(func() time.Time { return now }))
	return svc, cache
}

func usdFixings() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"THB": decimal.NewFromInt(1),
		"USD": decimal.RequireFromString("35.50"),
	}
}

func TestServiceServesFreshCache(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.Local)
	fetcher := &stubFetcher{err: errors.New("should not be called")}
	svc, cache := testService(t, fetcher, now)

	if err := cache.Save(usdFixings(), now.Add(-30*time.Minute)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got := svc.Rates(context.Background(), false)
	if fetcher.calls != 0 {
		t.Errorf("fetcher calls = %d, want 0 for fresh cache", fetcher.calls)
	}
	if !got["USD"].Equal(decimal.RequireFromString("35.50")) {
		t.Errorf("USD = %v, want 35.50", got["USD"])
	}
	snap := svc.Status()
	if snap.Status != StatusCached {
		t.Errorf("Status = %q, want %q", snap.Status, StatusCached)
	}
	if snap.Source != "cache" {
		t.Errorf("Source = %q, want cache", snap.Source)
	}

	// Second read inside the TTL stays in memory.
	svc.Rates(context.Background(), false)
	if fetcher.calls != 0 {
		t.Errorf("fetcher calls = %d, want 0 on repeat read", fetcher.calls)
	}
}

func TestServiceFetchesWhenCacheStale(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.Local)
	asOf := time.Date(2025, 7, 14, 0, 0, 0, 0, time.Local)
	fetcher := &stubFetcher{fixings: usdFixings(), asOf: asOf}
	svc, cache := testService(t, fetcher, now)

	stale := map[string]decimal.Decimal{
		"THB": decimal.NewFromInt(1),
		"USD": decimal.RequireFromString("30.00"),
	}
	if err := cache.Save(stale, now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got := svc.Rates(context.Background(), false)
	if fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", fetcher.calls)
	}
	if !got["USD"].Equal(decimal.RequireFromString("35.50")) {
		t.Errorf("USD = %v, want fetched 35.50", got["USD"])
	}
	snap := svc.Status()
	if snap.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", snap.Status, StatusSuccess)
	}
	if snap.Source != "Bank of Thailand" {
		t.Errorf("Source = %q, want Bank of Thailand", snap.Source)
	}
	if !snap.LastUpdated.Equal(asOf) {
		t.Errorf("LastUpdated = %v, want %v", snap.LastUpdated, asOf)
	}

	// The fetch must rewrite the cache file.
	reloaded, updatedAt := cache.Load()
	if !reloaded["USD"].Equal(decimal.RequireFromString("35.50")) {
		t.Errorf("cached USD = %v, want 35.50 after refresh", reloaded["USD"])
	}
	if !updatedAt.Equal(now) {
		t.Errorf("cache updatedAt = %v, want %v", updatedAt, now)
	}
}

func TestServiceStaleCacheBeatsStatic(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.Local)
	fetcher := &stubFetcher{err: errors.New("gateway timeout")}
	svc, cache := testService(t, fetcher, now)

	stale := map[string]decimal.Decimal{
		"THB": decimal.NewFromInt(1),
		"USD": decimal.RequireFromString("30.00"),
	}
	if err := cache.Save(stale, now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got := svc.Rates(context.Background(), false)
	if !got["USD"].Equal(decimal.RequireFromString("30.00")) {
		t.Errorf("USD = %v, want stale 30.00", got["USD"])
	}
	snap := svc.Status()
	if snap.Status != StatusCached {
		t.Errorf("Status = %q, want %q", snap.Status, StatusCached)
	}
	if snap.Source != "cache (expired)" {
		t.Errorf("Source = %q, want cache (expired)", snap.Source)
	}
}

func TestServiceStaticFallback(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.Local)
	fetcher := &stubFetcher{err: errors.New("gateway timeout")}
	svc, _ := testService(t, fetcher, now)

	got := svc.Rates(context.Background(), false)
	if !got["USD"].Equal(decimal.RequireFromString("35.50")) {
		t.Errorf("USD = %v, want static 35.50", got["USD"])
	}
	snap := svc.Status()
	if snap.Status != StatusFallback {
		t.Errorf("Status = %q, want %q", snap.Status, StatusFallback)
	}
	if snap.Source != "static table" {
		t.Errorf("Source = %q, want static table", snap.Source)
	}
}

func TestServiceForceSkipsCache(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.Local)
	fetcher := &stubFetcher{fixings: usdFixings(), asOf: now.AddDate(0, 0, -1)}
	svc, cache := testService(t, fetcher, now)

	if err := cache.Save(usdFixings(), now.Add(-time.Minute)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	svc.Rates(context.Background(), true)
	if fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1 on force refresh", fetcher.calls)
	}
}

func TestServiceConvert(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.Local)
	fetcher := &stubFetcher{
		fixings: map[string]decimal.Decimal{
			"THB": decimal.NewFromInt(1),
			"USD": decimal.RequireFromString("35.50"),
			"ZRO": decimal.Zero,
		},
		asOf: now.AddDate(0, 0, -1),
	}
	svc, _ := testService(t, fetcher, now)
	ctx := context.Background()

	tests := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"to base rounds half up", svc.ToBase(ctx, decimal.RequireFromString("9.99"), "USD"), "354.65"},
		{"to base passthrough", svc.ToBase(ctx, decimal.RequireFromString("349.00"), "THB"), "349"},
		{"to base static rate", svc.ToBase(ctx, decimal.NewFromInt(10), "EUR"), "388"},
		{"to base unknown currency", svc.ToBase(ctx, decimal.RequireFromString("12.34"), "XXX"), "12.34"},
		{"from base", svc.FromBase(ctx, decimal.RequireFromString("354.65"), "USD"), "9.99"},
		{"from base zero rate", svc.FromBase(ctx, decimal.NewFromInt(100), "ZRO"), "0"},
		{"cross rate via base", svc.Convert(ctx, decimal.RequireFromString("35.50"), "USD", "EUR"), "32.48"},
		{"same currency passthrough", svc.Convert(ctx, decimal.NewFromInt(50), "USD", "USD"), "50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("= %v, want %s", tt.got, tt.want)
			}
		})
	}
}
