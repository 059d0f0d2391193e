package http

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"subtrack/internal/core"
)

func TestExportCSV(t *testing.T) {
	s, _ := newTestServer(t, fixtureSubs())

	rec := doRequest(s, http.MethodGet, "/export?format=csv", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /export status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, `filename="subscriptions_`) || !strings.Contains(got, `.csv"`) {
		t.Errorf("Content-Disposition = %q", got)
	}

	body := rec.Body.Bytes()
	if !bytes.HasPrefix(body, []byte("\xef\xbb\xbf")) {
		t.Errorf("csv export missing BOM prefix")
	}
	for _, want := range []string{"name,vendor,category", "Netflix", "Adobe CC", "Thesaurus Pro"} {
		if !bytes.Contains(body, []byte(want)) {
			t.Errorf("csv export missing %q", want)
		}
	}
}

func TestExportDefaultsToCSV(t *testing.T) {
	s, _ := newTestServer(t, fixtureSubs())

	rec := doRequest(s, http.MethodGet, "/export", nil, "")
	if got := rec.Header().Get("Content-Type"); got != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q, want csv", got)
	}
}

func TestExportJSON(t *testing.T) {
	s, _ := newTestServer(t, fixtureSubs())

	rec := doRequest(s, http.MethodGet, "/export?format=json", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	body := rec.Body.String()
	for _, want := range []string{`"subscriptions"`, `"exported_at"`, `"count": 3`, `"Netflix"`} {
		if !strings.Contains(body, want) {
			t.Errorf("json export missing %q", want)
		}
	}
}

func TestExportXLSX(t *testing.T) {
	s, _ := newTestServer(t, fixtureSubs())

	rec := doRequest(s, http.MethodGet, "/export?format=xlsx", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// Workbooks are zip archives.
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Errorf("xlsx export is not a zip archive")
	}
}

func TestExportUnknownFormat(t *testing.T) {
	s, _ := newTestServer(t, fixtureSubs())

	rec := doRequest(s, http.MethodGet, "/export?format=docx", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// multipartUpload builds an import request body with one file part.
func multipartUpload(t *testing.T, filename, content, mode string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if mode != "" {
		if err := mw.WriteField("mode", mode); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func futureDate(days int) string {
	return core.Date{Time: core.Today().Time.AddDate(0, 0, days)}.String()
}

func TestImportReplace(t *testing.T) {
	s, st := newTestServer(t, fixtureSubs())

	csvData := "name,category,cycle,amount,currency,next_payment,auto_renew\n" +
		"Spotify,Video,monthly,149,THB," + futureDate(5) + ",TRUE\n" +
		"Dropbox,Software,yearly,3550,THB," + futureDate(60) + ",FALSE\n"
	body, contentType := multipartUpload(t, "backup.csv", csvData, "replace")

	rec := doRequest(s, http.MethodPost, "/import", body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /import status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Imported 2 subscriptions") {
		t.Errorf("response missing import count:\n%s", rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "overview:refresh") {
		t.Errorf("HX-Trigger missing overview:refresh")
	}

	subs, err := st.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("store has %d subscriptions after replace, want 2", len(subs))
	}
	names := map[string]bool{}
	for _, sub := range subs {
		names[sub.Name] = true
	}
	if !names["Spotify"] || !names["Dropbox"] {
		t.Errorf("store contents after replace = %v", names)
	}
}

func TestImportMergeUpdatesByName(t *testing.T) {
	s, st := newTestServer(t, fixtureSubs())

	csvData := "name,category,cycle,amount,currency,next_payment,auto_renew\n" +
		"Netflix,Video,monthly,599,THB," + futureDate(10) + ",TRUE\n"
	body, contentType := multipartUpload(t, "backup.csv", csvData, "merge")

	rec := doRequest(s, http.MethodPost, "/import", body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	subs, _ := st.List(context.Background())
	if len(subs) != 3 {
		t.Fatalf("store has %d subscriptions after merge, want 3", len(subs))
	}
	for _, sub := range subs {
		if sub.Name == "Netflix" && sub.Amount.String() != "599.00" {
			t.Errorf("Netflix amount = %s, want 599.00", sub.Amount.String())
		}
	}
}

func TestImportReportsSkippedRows(t *testing.T) {
	s, st := newTestServer(t, nil)

	csvData := "name,category,cycle,amount,currency,next_payment,auto_renew\n" +
		"Spotify,Video,monthly,149,THB," + futureDate(5) + ",TRUE\n" +
		"Broken,Video,monthly,,THB," + futureDate(5) + ",TRUE\n"
	body, contentType := multipartUpload(t, "backup.csv", csvData, "replace")

	rec := doRequest(s, http.MethodPost, "/import", body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "row 3") {
		t.Errorf("response does not name the skipped row:\n%s", rec.Body.String())
	}

	if subs, _ := st.List(context.Background()); len(subs) != 1 {
		t.Errorf("store has %d subscriptions, want 1", len(subs))
	}
}

func TestImportMissingFile(t *testing.T) {
	s, _ := newTestServer(t, nil)

	body, contentType := multipartUpload(t, "", "", "replace")
	rec := doRequest(s, http.MethodPost, "/import", body, contentType)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestImportUnsupportedFileType(t *testing.T) {
	s, _ := newTestServer(t, nil)

	body, contentType := multipartUpload(t, "notes.txt", "hello", "")
	rec := doRequest(s, http.MethodPost, "/import", body, contentType)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestImportNoRows(t *testing.T) {
	s, _ := newTestServer(t, nil)

	body, contentType := multipartUpload(t, "empty.csv", "name,category,cycle,amount,currency,next_payment,auto_renew\n", "replace")
	rec := doRequest(s, http.MethodPost, "/import", body, contentType)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rec.Body.String(), "no importable rows") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
