// Package store defines the persistence ports for subscriptions and the
// factory that selects a backend (csv, sqlite or memory) at startup.
package store

import (
	"context"

	"subtrack/internal/core"
)

// Ports for outbound adapters.
type (
	// SubscriptionReader provides read access to the stored subscriptions.
	SubscriptionReader interface {
		List(ctx context.Context) ([]core.Subscription, error)
	}

	// SubscriptionWriter mutates individual subscriptions.
	SubscriptionWriter interface {
		Add(ctx context.Context, s core.Subscription) (id int64, err error)
		Update(ctx context.Context, s core.Subscription) error
		Delete(ctx context.Context, id int64) error
	}

	// BulkReplacer swaps the entire subscription set in one operation.
	// Used by imports in replace mode and by merge commits.
	BulkReplacer interface {
		ReplaceAll(ctx context.Context, subs []core.Subscription) error
	}

	// SubscriptionStore is the full persistence surface a backend provides.
	SubscriptionStore interface {
		SubscriptionReader
		SubscriptionWriter
		BulkReplacer
		Get(ctx context.Context, id int64) (core.Subscription, error)
	}
)
