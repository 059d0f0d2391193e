package http

import (
	"html/template"
	"net/http"
	"strconv"

	"subtrack/internal/core"
	"subtrack/internal/service"
)

// daysText renders a days-left count for humans.
func daysText(days int) string {
	switch {
	case days < 0:
		return "overdue"
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	default:
		return strconv.Itoa(days) + " days"
	}
}

// handleOverview renders the KPI card partial.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	summary, err := s.getSummary(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "overview error", "error", err)
		_, _ = w.Write([]byte(`<section id="overview" class="overview"><div class="placeholder">Error loading overview</div></section>`))
		return
	}

	data := struct {
		Total          int
		Active         int
		MonthlyTotal   string
		YearlyEstimate string
		Warnings       int
		Growth         string
		GrowthUp       bool
		HasGrowth      bool
	}{
		Total:          summary.Total,
		Active:         summary.Active,
		MonthlyTotal:   formatMoney(summary.MonthlyTotal, s.baseCurrency),
		YearlyEstimate: formatMoney(summary.YearlyEstimate, s.baseCurrency),
		Warnings:       summary.Warnings,
	}
	if s.history != nil {
		if rate, ok := s.history.GrowthRate(); ok {
			data.HasGrowth = true
			data.GrowthUp = rate.Sign() > 0
			sign := ""
			if data.GrowthUp {
				sign = "+"
			}
			data.Growth = sign + rate.StringFixed(1) + "%"
		}
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="overview" class="overview"><div class="placeholder">Monthly: ` + template.HTMLEscapeString(data.MonthlyTotal) + `</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "overview.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "template execution error", "error", err, "template", "overview.html")
		_, _ = w.Write([]byte(`<section id="overview" class="overview"><div class="placeholder">Error rendering overview</div></section>`))
	}
}

type subscriptionRow struct {
	ID          int64
	Name        string
	Vendor      string
	Category    string
	Cycle       string
	Amount      string
	Monthly     string
	NextPayment string
	DaysLeft    int
	DaysText    string
	Badge       string
	AutoRenew   bool
	Lifetime    bool
}

// handleSubscriptionTable renders the sortable table partial.
// Query: sort=name|category|amount|days (default days), dir=asc|desc.
func (s *Server) handleSubscriptionTable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	costed, err := s.getCosted(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "subscription table error", "error", err)
		_, _ = w.Write([]byte(`<section id="subscription-table" class="subscription-table"><div class="placeholder">Error loading subscriptions</div></section>`))
		return
	}

	sortKey := sanitizeInput(r.URL.Query().Get("sort"))
	sortDir := sanitizeInput(r.URL.Query().Get("dir"))
	sortCosted(costed, sortKey, sortDir == "desc")

	data := struct {
		Rows    []subscriptionRow
		Count   int
		SortKey string
		SortDir string
	}{Count: len(costed), SortKey: sortKey, SortDir: sortDir}

	for _, c := range costed {
		data.Rows = append(data.Rows, subscriptionRow{
			ID:          c.ID,
			Name:        c.Name,
			Vendor:      c.Vendor,
			Category:    c.Category,
			Cycle:       c.Cycle.String(),
			Amount:      formatMoney(c.Amount, c.Currency),
			Monthly:     formatMoney(c.MonthlyCost, s.baseCurrency),
			NextPayment: c.NextPayment.String(),
			DaysLeft:    c.DaysLeft,
			DaysText:    daysText(c.DaysLeft),
			Badge:       daysBadge(c.DaysLeft),
			AutoRenew:   c.AutoRenew,
			Lifetime:    c.Cycle == core.CycleLifetime,
		})
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="subscription-table" class="subscription-table"><div class="placeholder">` + strconv.Itoa(data.Count) + ` subscriptions</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "subscription_table.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "template execution error", "error", err, "template", "subscription_table.html")
		_, _ = w.Write([]byte(`<section id="subscription-table" class="subscription-table"><div class="placeholder">Error rendering subscriptions</div></section>`))
	}
}

type chartRow struct {
	Name   string
	Amount string
	Share  string
	Width  int
}

// handleAnalytics renders the spend breakdown partial: category bars,
// cycle distribution, top subscriptions, and the 12-month trend.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	summary, err := s.getSummary(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "analytics error", "error", err)
		_, _ = w.Write([]byte(`<section id="analytics" class="analytics"><div class="placeholder">Error loading analytics</div></section>`))
		return
	}

	data := struct {
		Categories []chartRow
		Cycles     []chartRow
		Top        []chartRow
		Trend      []chartRow
		HasTrend   bool
	}{}

	var maxCat float64
	for _, c := range summary.ByCategory {
		if v := c.Monthly.Float64(); v > maxCat {
			maxCat = v
		}
	}
	for _, c := range summary.ByCategory {
		data.Categories = append(data.Categories, chartRow{
			Name:   c.Name,
			Amount: formatMoney(c.Monthly, s.baseCurrency),
			Share:  strconv.FormatFloat(c.Share, 'f', 1, 64) + "%",
			Width:  barWidth(c.Monthly.Float64(), maxCat),
		})
	}

	var maxCount int
	for _, c := range summary.ByCycle {
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}
	for _, c := range summary.ByCycle {
		data.Cycles = append(data.Cycles, chartRow{
			Name:   c.Cycle.String(),
			Amount: strconv.Itoa(c.Count),
			Share:  strconv.FormatFloat(c.Share, 'f', 1, 64) + "%",
			Width:  barWidth(float64(c.Count), float64(maxCount)),
		})
	}

	var maxTop float64
	for _, t := range summary.Top {
		if v := t.MonthlyCost.Float64(); v > maxTop {
			maxTop = v
		}
	}
	for _, t := range summary.Top {
		data.Top = append(data.Top, chartRow{
			Name:   t.Name,
			Amount: formatMoney(t.MonthlyCost, s.baseCurrency),
			Width:  barWidth(t.MonthlyCost.Float64(), maxTop),
		})
	}

	if s.history != nil {
		entries, err := s.history.Trend(12)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "trend error", "error", err)
		}
		var maxMonth float64
		for _, e := range entries {
			if v := e.MonthlyTotal.Float64(); v > maxMonth {
				maxMonth = v
			}
		}
		for _, e := range entries {
			data.Trend = append(data.Trend, chartRow{
				Name:   e.Date.Time.Format("Jan 2006"),
				Amount: formatMoney(e.MonthlyTotal, s.baseCurrency),
				Width:  barWidth(e.MonthlyTotal.Float64(), maxMonth),
			})
		}
		data.HasTrend = len(data.Trend) > 0
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="analytics" class="analytics"><div class="placeholder">Analytics unavailable</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "analytics.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "template execution error", "error", err, "template", "analytics.html")
		_, _ = w.Write([]byte(`<section id="analytics" class="analytics"><div class="placeholder">Error rendering analytics</div></section>`))
	}
}

type upcomingRow struct {
	Name     string
	Due      string
	DaysText string
	Badge    string
	Amount   string
}

// handleUpcoming renders the payment timeline partial. Query: days,
// default 90, clamped to 1..365.
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	days := queryInt(r, "days", service.DefaultUpcomingHorizon)
	if days < 1 || days > 365 {
		days = service.DefaultUpcomingHorizon
	}

	costed, err := s.getCosted(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "upcoming payments error", "error", err)
		_, _ = w.Write([]byte(`<section id="upcoming" class="upcoming"><div class="placeholder">Error loading upcoming payments</div></section>`))
		return
	}

	payments := s.summaries.Upcoming(costed, days)
	data := struct {
		Rows        []upcomingRow
		HorizonDays int
	}{HorizonDays: days}
	for _, p := range payments {
		data.Rows = append(data.Rows, upcomingRow{
			Name:     p.Name,
			Due:      p.Due.String(),
			DaysText: daysText(p.DaysLeft),
			Badge:    daysBadge(p.DaysLeft),
			Amount:   formatMoney(p.Amount, p.Currency),
		})
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="upcoming" class="upcoming"><div class="placeholder">` + strconv.Itoa(len(data.Rows)) + ` payments ahead</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "upcoming.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "template execution error", "error", err, "template", "upcoming.html")
		_, _ = w.Write([]byte(`<section id="upcoming" class="upcoming"><div class="placeholder">Error rendering upcoming payments</div></section>`))
	}
}

// handleRateStatus renders the exchange rate badge in the header.
func (s *Server) handleRateStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if s.rates == nil {
		_, _ = w.Write([]byte(`<span id="rate-status" class="rate-badge rate-unknown">rates unavailable</span>`))
		return
	}

	snap := s.rates.Status()
	data := struct {
		Status  string
		Message string
		Source  string
		Updated string
	}{
		Status:  string(snap.Status),
		Message: snap.Message,
		Source:  snap.Source,
	}
	if !snap.LastUpdated.IsZero() {
		data.Updated = snap.LastUpdated.Format("2006-01-02 15:04")
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<span id="rate-status" class="rate-badge rate-` + template.HTMLEscapeString(data.Status) + `">` + template.HTMLEscapeString(data.Status) + `</span>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "rate_status.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "template execution error", "error", err, "template", "rate_status.html")
		_, _ = w.Write([]byte(`<span id="rate-status" class="rate-badge rate-unknown">rates unavailable</span>`))
	}
}
