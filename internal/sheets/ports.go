// Package sheets defines the ports for mirroring dashboard data to an
// external spreadsheet. Implementations live in subpackages; the Google
// Sheets client is the production one, the memory fake backs tests.
package sheets

import (
	"context"

	"subtrack/internal/core"
	"subtrack/internal/service"
)

// Ports for outbound adapters.
type (
	// SubscriptionMirror replaces the subscription sheet with the current
	// costed snapshot. The mirror is one-way: the spreadsheet is a read
	// model for people who live in Sheets, never a source of truth.
	SubscriptionMirror interface {
		ReplaceSubscriptions(ctx context.Context, costed []core.CostedSubscription) error
	}

	// HistoryMirror replaces the monthly history sheet with the full trend.
	HistoryMirror interface {
		ReplaceHistory(ctx context.Context, entries []service.HistoryEntry) error
	}

	// Mirror is the full push target used by the notify worker.
	Mirror interface {
		SubscriptionMirror
		HistoryMirror
	}
)
