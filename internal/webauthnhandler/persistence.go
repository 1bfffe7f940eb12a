package webauthnhandler

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/myrjola/velocoach/internal/errors"
)

// insertUser stores u and sets its primary key.
func (h *WebAuthnHandler) insertUser(ctx context.Context, u *user) error {
	stmt := `INSERT INTO users (webauthn_id, display_name)
VALUES (:webauthn_id, :display_name)
RETURNING id`
	if err := h.database.ReadWrite.QueryRowContext(ctx, stmt,
		sql.Named("webauthn_id", u.webauthnID),
		sql.Named("display_name", u.displayName),
	).Scan(&u.id); err != nil {
		return fmt.Errorf("db insert user %s (webauthn_id: %s): %w",
			u.displayName, hex.EncodeToString(u.webauthnID), err)
	}
	return nil
}

// getUser returns the user with the WebAuthn handle webauthnID together with their credentials.
func (h *WebAuthnHandler) getUser(ctx context.Context, webauthnID []byte) (*user, error) {
	var (
		err  error
		rows *sql.Rows
		u    = user{id: 0, webauthnID: webauthnID, displayName: "", credentials: nil}
	)

	stmt := `SELECT id, display_name FROM users WHERE webauthn_id = ?`
	if err = h.database.ReadOnly.QueryRowContext(ctx, stmt, webauthnID).Scan(&u.id, &u.displayName); err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}

	stmt = `SELECT id,
       public_key,
       attestation_type,
       transport,
       flag_user_present,
       flag_user_verified,
       flag_backup_eligible,
       flag_backup_state,
       authenticator_aaguid,
       authenticator_sign_count,
       authenticator_clone_warning,
       authenticator_attachment
FROM credentials
WHERE user_id = ?`
	if rows, err = h.database.ReadOnly.QueryContext(ctx, stmt, u.id); err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			h.logger.LogAttrs(ctx, slog.LevelError, "could not close rows",
				errors.SlogError(errors.Wrap(closeErr, "close rows")))
		}
	}()

	for rows.Next() {
		var (
			credential webauthn.Credential
			transport  string
		)
		if err = rows.Scan(
			&credential.ID,
			&credential.PublicKey,
			&credential.AttestationType,
			&transport,
			&credential.Flags.UserPresent,
			&credential.Flags.UserVerified,
			&credential.Flags.BackupEligible,
			&credential.Flags.BackupState,
			&credential.Authenticator.AAGUID,
			&credential.Authenticator.SignCount,
			&credential.Authenticator.CloneWarning,
			&credential.Authenticator.Attachment,
		); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		if err = json.Unmarshal([]byte(transport), &credential.Transport); err != nil {
			return nil, fmt.Errorf("JSON decode transport: %w", err)
		}
		u.credentials = append(u.credentials, credential)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("check rows error: %w", err)
	}

	return &u, nil
}

// getUserIntegerID maps a WebAuthn handle to the users primary key. It returns sql.ErrNoRows for unknown users.
func (h *WebAuthnHandler) getUserIntegerID(ctx context.Context, webauthnID []byte) (int, error) {
	var id int
	if err := h.database.ReadOnly.QueryRowContext(ctx,
		`SELECT id FROM users WHERE webauthn_id = ?`, webauthnID).Scan(&id); err != nil {
		return 0, fmt.Errorf("query user id: %w", err)
	}
	return id, nil
}

// deleteUser removes the user. Credentials cascade and plans are unlinked by the foreign keys.
func (h *WebAuthnHandler) deleteUser(ctx context.Context, webauthnID []byte) error {
	if _, err := h.database.ReadWrite.ExecContext(ctx,
		`DELETE FROM users WHERE webauthn_id = ?`, webauthnID); err != nil {
		return fmt.Errorf("db delete user (webauthn_id: %s): %w", hex.EncodeToString(webauthnID), err)
	}
	return nil
}

func (h *WebAuthnHandler) upsertCredential(ctx context.Context, userID int, credential *webauthn.Credential) error {
	stmt := `INSERT INTO credentials (id,
                         user_id,
                         public_key,
                         attestation_type,
                         transport,
                         flag_user_present,
                         flag_user_verified,
                         flag_backup_eligible,
                         flag_backup_state,
                         authenticator_aaguid,
                         authenticator_sign_count,
                         authenticator_clone_warning,
                         authenticator_attachment)
VALUES (:id, :user_id, :public_key, :attestation_type, :transport, :flag_user_present, :flag_user_verified,
        :flag_backup_eligible, :flag_backup_state, :authenticator_aaguid, :authenticator_sign_count,
        :authenticator_clone_warning, :authenticator_attachment)
ON CONFLICT (id) DO UPDATE SET transport                   = EXCLUDED.transport,
                               flag_user_present           = EXCLUDED.flag_user_present,
                               flag_user_verified          = EXCLUDED.flag_user_verified,
                               flag_backup_eligible        = EXCLUDED.flag_backup_eligible,
                               flag_backup_state           = EXCLUDED.flag_backup_state,
                               authenticator_sign_count    = EXCLUDED.authenticator_sign_count,
                               authenticator_clone_warning = EXCLUDED.authenticator_clone_warning`
	encodedTransport, err := json.Marshal(credential.Transport)
	if err != nil {
		return fmt.Errorf("JSON encode transport: %w", err)
	}
	if _, err = h.database.ReadWrite.ExecContext(ctx, stmt,
		sql.Named("id", credential.ID),
		sql.Named("user_id", userID),
		sql.Named("public_key", credential.PublicKey),
		sql.Named("attestation_type", credential.AttestationType),
		sql.Named("transport", string(encodedTransport)),
		sql.Named("flag_user_present", credential.Flags.UserPresent),
		sql.Named("flag_user_verified", credential.Flags.UserVerified),
		sql.Named("flag_backup_eligible", credential.Flags.BackupEligible),
		sql.Named("flag_backup_state", credential.Flags.BackupState),
		sql.Named("authenticator_aaguid", credential.Authenticator.AAGUID),
		sql.Named("authenticator_sign_count", credential.Authenticator.SignCount),
		sql.Named("authenticator_clone_warning", credential.Authenticator.CloneWarning),
		sql.Named("authenticator_attachment", string(credential.Authenticator.Attachment)),
	); err != nil {
		return fmt.Errorf("db upsert credential (user_id: %d, credential_id: %s): %w",
			userID, hex.EncodeToString(credential.ID), err)
	}
	return nil
}
