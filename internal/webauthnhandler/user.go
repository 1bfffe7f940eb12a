package webauthnhandler

import (
	"fmt"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// user implements webauthn.User. The id is the users table primary key and webauthnID the random user handle
// stored on the authenticator.
type user struct {
	id          int
	webauthnID  []byte
	displayName string
	credentials []webauthn.Credential
}

// newRandomUser creates an anonymous user. Riders never enter a name so the display name is derived from the
// handle.
func newRandomUser() (*user, error) {
	handle, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("new user handle: %w", err)
	}
	webauthnID, err := handle.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal user handle: %w", err)
	}
	return &user{
		id:          0,
		webauthnID:  webauthnID,
		displayName: "VeloCoach " + handle.String()[:8],
		credentials: nil,
	}, nil
}

func (u *user) WebAuthnID() []byte {
	return u.webauthnID
}

func (u *user) WebAuthnName() string {
	return u.displayName
}

func (u *user) WebAuthnDisplayName() string {
	return u.displayName
}

func (u *user) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}
