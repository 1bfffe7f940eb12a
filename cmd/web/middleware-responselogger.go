package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// statusResponseWriter remembers the status code and the size of a response.
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	wroteHeader  bool
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK, bytesWritten: 0, wroteHeader: false}
}

func (sw *statusResponseWriter) WriteHeader(statusCode int) {
	if !sw.wroteHeader {
		sw.statusCode = statusCode
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(statusCode)
}

func (sw *statusResponseWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	n, err := sw.ResponseWriter.Write(b)
	sw.bytesWritten += n
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

// Unwrap lets [http.ResponseController] reach the underlying writer.
func (sw *statusResponseWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// logCompleted logs the outcome of a finished response. Server errors are logged as errors.
func (app *application) logCompleted(ctx context.Context, sw *statusResponseWriter, start time.Time) {
	level := slog.LevelInfo
	if sw.statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	app.logger.LogAttrs(ctx, level, "request completed",
		slog.Int("status_code", sw.statusCode),
		slog.Int("bytes", sw.bytesWritten),
		slog.Duration("duration", time.Since(start)))
}
