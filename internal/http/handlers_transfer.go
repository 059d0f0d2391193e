package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"subtrack/internal/transfer"
)

// maxImportBytes caps upload size at 5 MB.
const maxImportBytes = 5 << 20

var exportContentTypes = map[string]string{
	"csv":  "text/csv; charset=utf-8",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"json": "application/json",
}

// handleExport streams the subscription set as a download.
// Query: format=csv|xlsx|json, default csv.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	format := strings.ToLower(sanitizeInput(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	contentType, ok := exportContentTypes[format]
	if !ok {
		BadRequestError("unsupported export format").Write(w)
		return
	}

	costed, err := s.getCosted(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "export list error", "error", err)
		InternalServerError("error loading subscriptions").Write(w)
		return
	}

	// Render into a buffer first so failures can still change the status.
	var buf bytes.Buffer
	switch format {
	case "csv":
		err = transfer.WriteCSV(&buf, costed)
	case "xlsx":
		summary, sumErr := s.getSummary(r.Context())
		if sumErr != nil {
			err = sumErr
			break
		}
		err = transfer.WriteXLSX(&buf, costed, summary)
	case "json":
		err = transfer.WriteJSON(&buf, costed, time.Now())
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "export render error", "error", err, "format", format)
		InternalServerError("error building export").Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.totalExports, 1)
	s.logger.InfoContext(r.Context(), "export served",
		"format", format, "records", len(costed), "bytes", buf.Len())

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", transfer.Filename(format, time.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleImport ingests an uploaded CSV/XLSX/JSON file.
// Form: file (the upload), mode (replace|append|merge, default merge).
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		s.logger.WarnContext(r.Context(), "import upload rejected", "error", err)
		BadRequestError("upload too large or malformed (5 MB limit)").Write(w)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequestError("missing file").Write(w)
		return
	}
	defer file.Close()

	format, err := transfer.DetectFormat(header.Filename)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	mode := transfer.MergeUpdate
	if v := sanitizeInput(r.FormValue("mode")); v != "" {
		mode, err = transfer.ParseMergeMode(v)
		if err != nil {
			UnprocessableEntityError("unknown merge mode").Write(w)
			return
		}
	}

	result, err := transfer.Read(file, format)
	if err != nil {
		s.logger.WarnContext(r.Context(), "import parse failed",
			"error", err, "filename", header.Filename, "format", format)
		UnprocessableEntityError("could not read file: "+err.Error()).Write(w)
		return
	}
	if len(result.Subscriptions) == 0 {
		UnprocessableEntityError(fmt.Sprintf("no importable rows found (%d skipped)", len(result.Skipped))).Write(w)
		return
	}

	existing, err := s.subs.List(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "import list error", "error", err)
		InternalServerError("error loading current subscriptions").Write(w)
		return
	}

	merged := transfer.Merge(existing, result.Subscriptions, mode)
	if err := s.subs.ReplaceAll(r.Context(), merged); err != nil {
		s.logger.ErrorContext(r.Context(), "import replace error",
			"error", err, "filename", header.Filename, "mode", string(mode))
		UnprocessableEntityError("import failed: "+err.Error()).Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.totalImports, 1)
	s.invalidate()

	s.logger.InfoContext(r.Context(), "import applied",
		"filename", header.Filename,
		"format", format,
		"mode", string(mode),
		"imported", len(result.Subscriptions),
		"skipped", len(result.Skipped),
		"total_after", len(merged))

	NewHTMXResponse().
		TriggerOverviewRefresh().
		TriggerSuccessNotification(fmt.Sprintf("imported %d subscriptions (%d skipped)", len(result.Subscriptions), len(result.Skipped))).
		BodyHTML(s.renderImportResult(result, len(merged), mode)).
		Write(w)
}

// renderImportResult builds the outcome fragment shown under the
// upload form. Skipped rows are listed up to a small cap.
func (s *Server) renderImportResult(result *transfer.ImportResult, totalAfter int, mode transfer.MergeMode) string {
	data := struct {
		Imported   int
		TotalAfter int
		Mode       string
		Skipped    []string
		MoreSkips  int
	}{
		Imported:   len(result.Subscriptions),
		TotalAfter: totalAfter,
		Mode:       string(mode),
	}
	const maxShown = 5
	for i, rowErr := range result.Skipped {
		if i == maxShown {
			data.MoreSkips = len(result.Skipped) - maxShown
			break
		}
		data.Skipped = append(data.Skipped, rowErr.Error())
	}

	if s.templates != nil {
		var buf bytes.Buffer
		if err := s.templates.ExecuteTemplate(&buf, "import_result.html", data); err == nil {
			return buf.String()
		}
	}
	return fmt.Sprintf(`<div class="success">Imported %d subscriptions, %d on file now.</div>`, data.Imported, data.TotalAfter)
}
