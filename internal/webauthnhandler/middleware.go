package webauthnhandler

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/myrjola/velocoach/internal/contexthelpers"
	"github.com/myrjola/velocoach/internal/errors"
	"github.com/myrjola/velocoach/internal/logging"
)

// AuthenticateMiddleware marks the request context as authenticated when the session belongs to a known user
// and adds the session hash and user id to the logging context.
func (h *WebAuthnHandler) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		webauthnID := h.sessionManager.GetBytes(ctx, string(userIDSessionKey))

		var userID int
		if webauthnID != nil {
			var err error
			userID, err = h.getUserIntegerID(ctx, webauthnID)
			switch {
			case errors.Is(err, sql.ErrNoRows): // The user was deleted in another session.
				h.sessionManager.Remove(ctx, string(userIDSessionKey))
			case err != nil:
				h.logger.LogAttrs(ctx, slog.LevelError, "unable to fetch user", errors.SlogError(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			default:
				r = contexthelpers.AuthenticateContext(r, userID)
			}
		}

		// Hash token with sha256 to avoid leaking it in logs.
		tokenHash := sha256.Sum256([]byte(h.sessionManager.Token(ctx)))
		ctx = logging.WithAttrs(r.Context(),
			slog.String("session_hash", hex.EncodeToString(tokenHash[:])),
			slog.Int("user_id", userID),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
