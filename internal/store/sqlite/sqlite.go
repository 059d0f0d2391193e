package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"subtrack/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Repository stores subscriptions in a local SQLite database.
// Deletes are soft so an accidental removal can be recovered with the
// sqlite3 shell.
type Repository struct {
	db *sql.DB
}

func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const selectColumns = "id, name, vendor, category, cycle, amount, currency, next_payment, auto_renew"

func (r *Repository) List(ctx context.Context) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM subscriptions WHERE deleted_at IS NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []core.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (core.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM subscriptions WHERE id = ? AND deleted_at IS NULL", id)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return core.Subscription{}, core.ErrNotFound
	}
	if err != nil {
		return core.Subscription{}, fmt.Errorf("get subscription %d: %w", id, err)
	}
	return sub, nil
}

func (r *Repository) Add(ctx context.Context, sub core.Subscription) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (name, vendor, category, cycle, amount, currency, next_payment, auto_renew)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.Name, sub.Vendor, sub.Category, sub.Cycle.String(),
		sub.Amount.String(), sub.Currency, sub.NextPayment.String(), boolToInt(sub.AutoRenew))
	if err != nil {
		return 0, fmt.Errorf("insert subscription: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert subscription id: %w", err)
	}

	slog.InfoContext(ctx, "Subscription saved",
		"id", id,
		"subscription", sub.Name,
		"cycle", sub.Cycle.String(),
		"amount", sub.Amount.String(),
		"currency", sub.Currency)

	return id, nil
}

func (r *Repository) Update(ctx context.Context, sub core.Subscription) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions
		 SET name = ?, vendor = ?, category = ?, cycle = ?, amount = ?, currency = ?,
		     next_payment = ?, auto_renew = ?, updated_at = datetime('now')
		 WHERE id = ? AND deleted_at IS NULL`,
		sub.Name, sub.Vendor, sub.Category, sub.Cycle.String(),
		sub.Amount.String(), sub.Currency, sub.NextPayment.String(), boolToInt(sub.AutoRenew),
		sub.ID)
	if err != nil {
		return fmt.Errorf("update subscription %d: %w", sub.ID, err)
	}
	return requireRow(res, sub.ID)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE subscriptions SET deleted_at = datetime('now') WHERE id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("delete subscription %d: %w", id, err)
	}
	return requireRow(res, id)
}

func (r *Repository) ReplaceAll(ctx context.Context, subs []core.Subscription) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE subscriptions SET deleted_at = datetime('now') WHERE deleted_at IS NULL"); err != nil {
		return fmt.Errorf("clear subscriptions: %w", err)
	}
	for _, sub := range subs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO subscriptions (name, vendor, category, cycle, amount, currency, next_payment, auto_renew)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sub.Name, sub.Vendor, sub.Category, sub.Cycle.String(),
			sub.Amount.String(), sub.Currency, sub.NextPayment.String(), boolToInt(sub.AutoRenew)); err != nil {
			return fmt.Errorf("insert subscription %q: %w", sub.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (core.Subscription, error) {
	var (
		sub       core.Subscription
		cycle     string
		amount    string
		due       string
		autoRenew int64
	)
	err := row.Scan(&sub.ID, &sub.Name, &sub.Vendor, &sub.Category, &cycle,
		&amount, &sub.Currency, &due, &autoRenew)
	if err != nil {
		return core.Subscription{}, err
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("subscription %d amount %q: %w", sub.ID, amount, err)
	}
	sub.Amount = core.NewMoney(value)

	sub.NextPayment, err = core.ParseDate(due)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("subscription %d date %q: %w", sub.ID, due, err)
	}

	sub.Cycle = core.NormalizeCycle(cycle)
	sub.AutoRenew = autoRenew != 0
	return sub, nil
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
