// Package rates converts subscription amounts between currencies using the
// Bank of Thailand daily average exchange-rate feed.
//
// Rates are THB per one unit of foreign currency. The feed has no data on
// weekends and Thai banking holidays, so the client probes backwards day by
// day until it finds a published fixing.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL = "https://gateway.api.bot.or.th"
	dailyRatesPath = "/Stat-ExchangeRate/v2/DAILY_AVG_EXG_RATE/"

	// maxProbeDays bounds the backwards search for a published fixing.
	// A week covers any weekend plus the longest Thai holiday cluster.
	maxProbeDays = 7
)

// ErrNoToken means BOT_API_TOKEN is not configured.
var ErrNoToken = errors.New("BOT API token not configured")

// ErrNoData means the probed window had no published fixings.
var ErrNoData = errors.New("no exchange rate data in probe window")

// Client calls the Bank of Thailand exchange-rate API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	now        func() time.Time
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different host. Used by tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock replaces the time source. Used by tests.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// dailyResponse mirrors the BOT API envelope.
type dailyResponse struct {
	Result struct {
		Data struct {
			DataDetail []struct {
				CurrencyID string `json:"currency_id"`
				MidRate    string `json:"mid_rate"`
			} `json:"data_detail"`
		} `json:"data"`
	} `json:"result"`
}

// FetchDaily returns the fixings published for one calendar day.
// The returned map always contains THB at 1.0; a map with only THB means
// the day had no data (weekend or holiday).
func (c *Client) FetchDaily(ctx context.Context, day time.Time) (map[string]decimal.Decimal, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}

	date := day.Format("2006-01-02")
	q := url.Values{}
	q.Set("start_period", date)
	q.Set("end_period", date)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+dailyRatesPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates for %s: %w", date, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("rates API returned status %d for %s", resp.StatusCode, date)
	}

	var payload dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rates response: %w", err)
	}

	result := map[string]decimal.Decimal{BaseCurrency: decimal.NewFromInt(1)}
	for _, item := range payload.Result.Data.DataDetail {
		if item.CurrencyID == "" || item.MidRate == "" {
			continue
		}
		rate, err := decimal.NewFromString(item.MidRate)
		if err != nil {
			continue
		}
		result[item.CurrencyID] = rate
	}
	return result, nil
}

// FetchLatest probes backwards from yesterday until it finds a day with
// published fixings. Returns ErrNoData when the whole window is empty.
func (c *Client) FetchLatest(ctx context.Context) (map[string]decimal.Decimal, time.Time, error) {
	for daysAgo := 1; daysAgo <= maxProbeDays; daysAgo++ {
		day := c.now().AddDate(0, 0, -daysAgo)
		fixings, err := c.FetchDaily(ctx, day)
		if err != nil {
			return nil, time.Time{}, err
		}
		if len(fixings) > 1 {
			return fixings, day, nil
		}
	}
	return nil, time.Time{}, ErrNoData
}
