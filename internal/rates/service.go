package rates

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Status describes where the rates currently being served came from.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusSuccess  Status = "success"
	StatusUpdating Status = "updating"
	StatusError    Status = "error"
	StatusCached   Status = "cached"
	StatusFallback Status = "fallback"
)

// Snapshot is a point-in-time view of the rate source for status endpoints.
type Snapshot struct {
	Status      Status
	Message     string
	Source      string
	LastUpdated time.Time
}

// Fetcher pulls daily fixings from the upstream rate provider.
type Fetcher interface {
	FetchLatest(ctx context.Context) (map[string]decimal.Decimal, time.Time, error)
}

// Service resolves exchange rates through a layered fallback: a fresh
// file cache is served as-is, otherwise the provider is consulted and
// the cache rewritten, otherwise a stale cache beats the static table.
// All rates are THB per one unit of foreign currency.
type Service struct {
	fetcher Fetcher
	cache   *FileCache
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	rates    map[string]decimal.Decimal
	loadedAt time.Time
	snap     Snapshot
}

type ServiceOption func(*Service)

// WithServiceClock overrides the wall clock, used by tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(fetcher Fetcher, cache *FileCache, ttl time.Duration, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		snap:    Snapshot{Status: StatusUnknown},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rates returns the current THB fixings, refreshing them when the cache
// has expired. force skips the freshness check and always asks the
// provider. The returned map is a copy and always contains THB at 1.
func (s *Service) Rates(ctx context.Context, force bool) map[string]decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !force && s.rates != nil && now.Sub(s.loadedAt) < s.ttl {
		return copyRates(s.rates)
	}

	if !force {
		if cached, updatedAt := s.cache.Load(); len(cached) > 1 && now.Sub(updatedAt) < s.ttl {
			s.keep(cached, now, Snapshot{
				Status:      StatusCached,
				Message:     "using cached exchange rates",
				Source:      "cache",
				LastUpdated: updatedAt,
			})
			return copyRates(cached)
		}
	}

	s.snap = Snapshot{Status: StatusUpdating, Message: "fetching exchange rates", Source: s.snap.Source, LastUpdated: s.snap.LastUpdated}
	fetched, asOf, err := s.fetcher.FetchLatest(ctx)
	if err == nil {
		if saveErr := s.cache.Save(fetched, now); saveErr != nil {
			s.logger.WarnContext(ctx, "Failed to persist exchange rate cache", "error", saveErr)
		}
		s.keep(fetched, now, Snapshot{
			Status:      StatusSuccess,
			Message:     "exchange rates updated from Bank of Thailand",
			Source:      "Bank of Thailand",
			LastUpdated: asOf,
		})
		return copyRates(fetched)
	}
	s.logger.WarnContext(ctx, "Exchange rate fetch failed", "error", err)
	s.snap = Snapshot{Status: StatusError, Message: err.Error(), Source: s.snap.Source, LastUpdated: s.snap.LastUpdated}

	if stale, updatedAt := s.cache.Load(); len(stale) > 1 {
		s.keep(stale, now, Snapshot{
			Status:      StatusCached,
			Message:     "provider unavailable, using expired cache",
			Source:      "cache (expired)",
			LastUpdated: updatedAt,
		})
		return copyRates(stale)
	}

	s.logger.WarnContext(ctx, "Serving static exchange rates")
	s.keep(StaticRates(), now, Snapshot{
		Status:      StatusFallback,
		Message:     "provider unavailable, using static fallback rates",
		Source:      "static table",
		LastUpdated: now,
	})
	return copyRates(s.rates)
}

func (s *Service) keep(fixings map[string]decimal.Decimal, loadedAt time.Time, snap Snapshot) {
	s.rates = fixings
	s.loadedAt = loadedAt
	s.snap = snap
}

// Status reports the source of the rates most recently served.
func (s *Service) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Rate returns the THB value of one unit of the given currency,
// falling back to the static table and finally to 1 for unknown codes.
func (s *Service) Rate(ctx context.Context, currency string) decimal.Decimal {
	if currency == BaseCurrency {
		return decimal.NewFromInt(1)
	}
	current := s.Rates(ctx, false)
	if rate, ok := current[currency]; ok {
		return rate
	}
	if rate, ok := staticRates[currency]; ok {
		return rate
	}
	return decimal.NewFromInt(1)
}

// ToBase converts an amount in the given currency to THB, rounded to
// two decimal places.
func (s *Service) ToBase(ctx context.Context, amount decimal.Decimal, currency string) decimal.Decimal {
	if currency == BaseCurrency {
		return amount
	}
	return amount.Mul(s.Rate(ctx, currency)).Round(2)
}

// FromBase converts a THB amount into the given currency. A zero rate
// yields zero rather than a division error.
func (s *Service) FromBase(ctx context.Context, amount decimal.Decimal, currency string) decimal.Decimal {
	if currency == BaseCurrency {
		return amount
	}
	rate := s.Rate(ctx, currency)
	if rate.IsZero() {
		return decimal.Zero
	}
	return amount.Div(rate).Round(2)
}

// Convert moves an amount between two currencies through the THB cross
// rate.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) decimal.Decimal {
	if from == to {
		return amount
	}
	return s.FromBase(ctx, s.ToBase(ctx, amount, from), to)
}

func copyRates(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
