// Package google pushes the subscription dashboard into a Google
// spreadsheet. Each push rewrites a whole sheet tab, so the spreadsheet
// always shows the latest snapshot rather than an append log.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"subtrack/internal/core"
	"subtrack/internal/service"
	ports "subtrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultSubscriptionsSheet = "Subscriptions"
	defaultHistorySheet       = "History"
)

// Config carries everything the client needs. Exactly one of
// CredentialsFile and CredentialsJSON must be set.
type Config struct {
	SpreadsheetID      string
	CredentialsFile    string
	CredentialsJSON    string
	SubscriptionsSheet string // default "Subscriptions"
	HistorySheet       string // default "History"
}

// Client mirrors subscriptions and monthly history to one spreadsheet.
type Client struct {
	svc                *gsheet.Service
	spreadsheetID      string
	subscriptionsSheet string
	historySheet       string
}

// Ensure interface conformance
var (
	_ ports.SubscriptionMirror = (*Client)(nil)
	_ ports.HistoryMirror      = (*Client)(nil)
	_ ports.Mirror             = (*Client)(nil)
)

// New creates a Sheets client from service account credentials, either
// inline JSON or a file path.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	credentials, err := resolveCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	subsSheet := strings.TrimSpace(cfg.SubscriptionsSheet)
	if subsSheet == "" {
		subsSheet = defaultSubscriptionsSheet
	}
	histSheet := strings.TrimSpace(cfg.HistorySheet)
	if histSheet == "" {
		histSheet = defaultHistorySheet
	}

	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		subscriptionsSheet: subsSheet,
		historySheet:       histSheet,
	}, nil
}

// resolveCredentials picks inline JSON over a credentials file.
func resolveCredentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		credentials, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return credentials, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}
}

// ReplaceSubscriptions clears the subscriptions tab and writes the
// current costed snapshot, header included.
func (c *Client) ReplaceSubscriptions(ctx context.Context, costed []core.CostedSubscription) error {
	return c.replaceSheet(ctx, c.subscriptionsSheet, subscriptionRows(costed))
}

// ReplaceHistory clears the history tab and writes the full monthly
// trend, header included.
func (c *Client) ReplaceHistory(ctx context.Context, entries []service.HistoryEntry) error {
	return c.replaceSheet(ctx, c.historySheet, historyRows(entries))
}

func (c *Client) replaceSheet(ctx context.Context, sheet string, rows [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:Z", sheet)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear sheet %s: %w", sheet, err)
	}

	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A1", sheet), vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update sheet %s: %w", sheet, err)
	}
	return nil
}
