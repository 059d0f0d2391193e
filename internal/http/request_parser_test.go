package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func parserFor(t *testing.T, body, contentType string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/subscriptions/delete", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return NewRequestBodyParser(req)
}

func TestParserFormBody(t *testing.T) {
	p := parserFor(t, "id=3&name=Netflix", "application/x-www-form-urlencoded")
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.IsJSON() {
		t.Errorf("IsJSON() = true for form body")
	}
	if got := p.Get("name"); got != "Netflix" {
		t.Errorf("Get(name) = %q", got)
	}
	id, ok := p.GetID()
	if !ok || id != 3 {
		t.Errorf("GetID() = %d, %v, want 3, true", id, ok)
	}
}

func TestParserJSONBody(t *testing.T) {
	p := parserFor(t, `{"id": 7, "note": "hello"}`, "application/json")
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !p.IsJSON() {
		t.Errorf("IsJSON() = false for json body")
	}
	if got := p.Get("note"); got != "hello" {
		t.Errorf("Get(note) = %q", got)
	}
	// JSON numbers arrive as float64; integral IDs must survive.
	id, ok := p.GetID()
	if !ok || id != 7 {
		t.Errorf("GetID() = %d, %v, want 7, true", id, ok)
	}
}

func TestParserEmptyBody(t *testing.T) {
	p := parserFor(t, "", "")
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := p.Get("id"); got != "" {
		t.Errorf("Get(id) = %q, want empty", got)
	}
	if _, ok := p.GetID(); ok {
		t.Errorf("GetID() ok on empty body")
	}
}

func TestParserMalformedJSON(t *testing.T) {
	p := parserFor(t, `{"id": `, "application/json")
	if err := p.Parse(); err == nil {
		t.Errorf("Parse() = nil for malformed json")
	}
}

func TestParserRejectsBadIDs(t *testing.T) {
	for _, body := range []string{"id=0", "id=-4", "id=abc", "id="} {
		p := parserFor(t, body, "application/x-www-form-urlencoded")
		if err := p.Parse(); err != nil {
			t.Fatalf("Parse(%q) error = %v", body, err)
		}
		if id, ok := p.GetID(); ok {
			t.Errorf("GetID() with body %q = %d, true, want rejection", body, id)
		}
	}
}

func TestParserSanitizesValues(t *testing.T) {
	p := parserFor(t, "name=Net%00flix%01", "application/x-www-form-urlencoded")
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := p.Get("name"); got != "Netflix" {
		t.Errorf("Get(name) = %q, want control characters stripped", got)
	}
}

func TestRequireMethod(t *testing.T) {
	get := httptest.NewRequest(http.MethodGet, "/", nil)
	post := httptest.NewRequest(http.MethodPost, "/", nil)

	if resp := RequirePOST(post); resp != nil {
		t.Errorf("RequirePOST(POST) = %v, want nil", resp)
	}
	resp := RequirePOST(get)
	if resp == nil {
		t.Fatalf("RequirePOST(GET) = nil, want 405 response")
	}
	rec := httptest.NewRecorder()
	resp.Write(rec)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if got := rec.Header().Get("Allow"); got != "POST" {
		t.Errorf("Allow = %q, want POST", got)
	}

	del := httptest.NewRequest(http.MethodDelete, "/", nil)
	if resp := RequireDeleteOrPOST(del); resp != nil {
		t.Errorf("RequireDeleteOrPOST(DELETE) = %v, want nil", resp)
	}
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"days=30", 30},
		{"days=-5", -5},
		{"days=abc", 90},
		{"days=", 90},
		{"", 90},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ui/upcoming?"+tt.query, nil)
		if got := queryInt(r, "days", 90); got != tt.want {
			t.Errorf("queryInt(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
