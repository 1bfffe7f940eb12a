package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/myrjola/velocoach/internal/errors"
)

// maxReportBodySize bounds report bodies. Browsers send well below 64KB.
const maxReportBodySize = 64 * 1024

// cspViolationReport is the legacy report-uri payload.
type cspViolationReport struct {
	CSPReport struct {
		DocumentURI        string `json:"document-uri"`
		Referrer           string `json:"referrer"`
		ViolatedDirective  string `json:"violated-directive"`
		EffectiveDirective string `json:"effective-directive"`
		OriginalPolicy     string `json:"original-policy"`
		Disposition        string `json:"disposition"`
		BlockedURI         string `json:"blocked-uri"`
		LineNumber         int    `json:"line-number"`
		ColumnNumber       int    `json:"column-number"`
		SourceFile         string `json:"source-file"`
		StatusCode         int    `json:"status-code"`
		ScriptSample       string `json:"script-sample"`
	} `json:"csp-report"`
}

// readReport decodes a size limited JSON report body into v.
func readReport(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxReportBodySize))
	if err != nil {
		return fmt.Errorf("read report body: %w", err)
	}
	if err = json.Unmarshal(body, v); err != nil {
		return errors.Wrap(err, "parse report", slog.String("body", string(body)))
	}
	return nil
}

func (app *application) checkReportContentType(r *http.Request) {
	switch contentType := r.Header.Get("Content-Type"); contentType {
	case "", "application/csp-report", "application/json", "application/reports+json":
	default:
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "report with unexpected content type",
			slog.String("content_type", contentType))
	}
}

// cspViolation logs reports sent to the report-uri directive.
func (app *application) cspViolation(w http.ResponseWriter, r *http.Request) {
	app.checkReportContentType(r)

	var report cspViolationReport
	if err := readReport(r, &report); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "invalid CSP violation report", errors.SlogError(err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	app.logger.LogAttrs(r.Context(), slog.LevelWarn, "CSP violation detected",
		slog.String("document_uri", report.CSPReport.DocumentURI),
		slog.String("violated_directive", report.CSPReport.ViolatedDirective),
		slog.String("effective_directive", report.CSPReport.EffectiveDirective),
		slog.String("blocked_uri", report.CSPReport.BlockedURI),
		slog.String("source_file", report.CSPReport.SourceFile),
		slog.Int("line_number", report.CSPReport.LineNumber),
		slog.Int("column_number", report.CSPReport.ColumnNumber),
		slog.String("script_sample", report.CSPReport.ScriptSample),
		slog.String("disposition", report.CSPReport.Disposition),
		slog.String("user_agent", r.Header.Get("User-Agent")),
		slog.String("referrer", report.CSPReport.Referrer))

	w.WriteHeader(http.StatusNoContent)
}

// reportingAPI logs reports sent by the Reporting API to the endpoint named in the Reporting-Endpoints header.
// See: https://developer.mozilla.org/en-US/docs/Web/API/Reporting_API
func (app *application) reportingAPI(w http.ResponseWriter, r *http.Request) {
	app.checkReportContentType(r)

	var reports []map[string]any
	if err := readReport(r, &reports); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "invalid report", errors.SlogError(err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	for _, report := range reports {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "report received via Reporting API",
			slog.Any("type", report["type"]),
			slog.Any("url", report["url"]),
			slog.Any("body", report["body"]),
			slog.String("user_agent", r.Header.Get("User-Agent")))
	}

	w.WriteHeader(http.StatusNoContent)
}
