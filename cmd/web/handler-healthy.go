package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/myrjola/velocoach/internal/errors"
)

type healthResponse struct {
	Status string `json:"status"`
	// PlanGeneration is "available" or "unavailable". Retrieving stored plans works either way.
	PlanGeneration string `json:"planGeneration"`
}

// healthy reports whether the database is reachable. A missing AI key degrades the service but keeps it healthy.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := healthResponse{Status: "ok", PlanGeneration: "available"}
	status := http.StatusOK
	if err := app.db.Ping(ctx); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "health check failed", errors.SlogError(err))
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if !app.generationAvailable {
		resp.PlanGeneration = "unavailable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "failed to write health response", errors.SlogError(err))
	}
}
