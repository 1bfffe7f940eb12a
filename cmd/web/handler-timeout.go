package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/myrjola/velocoach/internal/flightrecorder"
)

const timeoutBody = `<!doctype html>
<html lang="en">
<head><title>Timeout</title></head>
<body>
<h1>Timeout</h1>
<p>The request timed out. <a href="">Retry</a></p>
</body>
</html>
`

// handlerTimeout is a little shorter than the server's write timeout so that the timeout handler has a chance to
// respond before the server closes the connection.
const handlerTimeout = defaultTimeout - 200*time.Millisecond //nolint:mnd // writing the response takes time.

// timeout responds with 503 Service Unavailable when the handler does not meet the deadline. Plan generation runs
// outside the request so no route needs a longer deadline.
func (app *application) timeout(next http.Handler) http.Handler {
	timeoutHandler := http.TimeoutHandler(next, handlerTimeout, timeoutBody)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := newStatusResponseWriter(w)
		timeoutHandler.ServeHTTP(sw, r)
		if sw.statusCode == http.StatusServiceUnavailable && app.flightRecorder != nil {
			app.flightRecorder.Capture(r.Context(), flightrecorder.ReasonRequestTimeout)
		}
	})
}

// testTimeout sleeps for the number of milliseconds given in the sleep_ms query parameter.
func (app *application) testTimeout(w http.ResponseWriter, r *http.Request) {
	sleepMsStr := r.URL.Query().Get("sleep_ms")
	if sleepMsStr == "" {
		sleepMsStr = "0"
	}

	sleepMs, err := strconv.Atoi(sleepMsStr)
	if err != nil {
		http.Error(w, "Invalid sleep_ms parameter", http.StatusBadRequest)
		return
	}

	if sleepMs > 0 {
		select {
		case <-time.After(time.Duration(sleepMs) * time.Millisecond):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"completed","slept_ms":` + sleepMsStr + `}`))
}
