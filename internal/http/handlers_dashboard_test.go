package http

import (
	"net/http"
	"strings"
	"testing"
)

func TestOverviewPartial(t *testing.T) {
	s, _ := newTestServer(t, fixtureSubs())

	rec := doRequest(s, http.MethodGet, "/ui/overview", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /ui/overview status = %d", rec.Code)
	}
	body := rec.Body.String()

	// Three subscriptions, two with a future payment date, one auto-renew
	// falling inside the 7-day warning window.
	for _, want := range []string{
		`<span class="kpi-value">3</span>`,
		`<span class="kpi-value">2</span>`,
		`<span class="kpi-value">1</span>`,
		"renewing within 7 days",
		`kpi-card warn`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("overview missing %q:\n%s", want, body)
		}
	}
}

func TestSubscriptionTableDefaultOrder(t *testing.T) {
	s, _ := newTestServer(t, fixtureSubs())

	rec := doRequest(s, http.MethodGet, "/ui/subscriptions", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /ui/subscriptions status = %d", rec.Code)
	}
	body := rec.Body.String()

	// Default order is soonest payment first, overdue on top.
	thesaurus := strings.Index(body, "Thesaurus Pro")
	adobe := strings.Index(body, "Adobe CC")
	netflix := strings.Index(body, "Netflix")
	if thesaurus < 0 || adobe < 0 || netflix < 0 {
		t.Fatalf("table missing fixture rows:\n%s", body)
	}
	if !(thesaurus < adobe && adobe < netflix) {
		t.Errorf("row order = thesaurus@%d adobe@%d netflix@%d, want days ascending", thesaurus, adobe, netflix)
	}
	if !strings.Contains(body, "overdue") {
		t.Errorf("table missing overdue badge for the lapsed lifetime entry")
	}
}

func TestSubscriptionTableSortByAmount(t *testing.T) {
	s, _ := newTestServer(t, fixtureSubs())

	rec := doRequest(s, http.MethodGet, "/ui/subscriptions?sort=amount&dir=desc", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()

	// Monthly cost in base currency: Adobe (599.88 USD / 12 at 35.5) beats
	// Netflix (419 THB), and the lifetime purchase normalizes to zero.
	adobe := strings.Index(body, "Adobe CC")
	netflix := strings.Index(body, "Netflix")
	thesaurus := strings.Index(body, "Thesaurus Pro")
	if !(adobe < netflix && netflix < thesaurus) {
		t.Errorf("row order = adobe@%d netflix@%d thesaurus@%d, want monthly cost descending", adobe, netflix, thesaurus)
	}
}

func TestSubscriptionTableSortByName(t *testing.T) {
	s, _ := newTestServer(t, fixtureSubs())

	body := doRequest(s, http.MethodGet, "/ui/subscriptions?sort=name", nil, "").Body.String()
	adobe := strings.Index(body, "Adobe CC")
	netflix := strings.Index(body, "Netflix")
	thesaurus := strings.Index(body, "Thesaurus Pro")
	if !(adobe < netflix && netflix < thesaurus) {
		t.Errorf("row order = adobe@%d netflix@%d thesaurus@%d, want name ascending", adobe, netflix, thesaurus)
	}
}

func TestAnalyticsPartial(t *testing.T) {
	s, _ := newTestServer(t, fixtureSubs())

	rec := doRequest(s, http.MethodGet, "/ui/analytics", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /ui/analytics status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"By category", "By billing cycle", "Most expensive", "Video", "Software", "monthly", "yearly", "lifetime"} {
		if !strings.Contains(body, want) {
			t.Errorf("analytics missing %q", want)
		}
	}
	// Fresh server, empty history file: the trend chart stays hidden.
	if strings.Contains(body, "last 12 months") {
		t.Errorf("analytics shows trend chart without history data")
	}
}

func TestUpcomingPartial(t *testing.T) {
	s, _ := newTestServer(t, fixtureSubs())

	rec := doRequest(s, http.MethodGet, "/ui/upcoming?days=5", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /ui/upcoming status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "next 5 days") {
		t.Errorf("upcoming missing horizon text:\n%s", body)
	}
	if !strings.Contains(body, "Adobe CC") {
		t.Errorf("upcoming missing Adobe CC (due in 3 days)")
	}
	if strings.Contains(body, "Netflix") {
		t.Errorf("upcoming lists Netflix, due beyond the 5-day horizon")
	}
	if strings.Contains(body, "Thesaurus Pro") {
		t.Errorf("upcoming lists an overdue lifetime purchase")
	}
}

func TestUpcomingHorizonClamp(t *testing.T) {
	s, _ := newTestServer(t, fixtureSubs())

	for _, query := range []string{"days=9999", "days=0", "days=-4", "days=abc"} {
		body := doRequest(s, http.MethodGet, "/ui/upcoming?"+query, nil, "").Body.String()
		if !strings.Contains(body, "next 90 days") {
			t.Errorf("query %q: horizon not reset to default:\n%s", query, body)
		}
	}
}

func TestRateStatusPartial(t *testing.T) {
	s, _ := newTestServer(t, fixtureSubs())

	rec := doRequest(s, http.MethodGet, "/ui/rate-status", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /ui/rate-status status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "rate-success") {
		t.Errorf("rate status missing rate-success class:\n%s", body)
	}
	if !strings.Contains(body, "rates success") {
		t.Errorf("rate status missing status text:\n%s", body)
	}
}
