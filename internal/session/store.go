// Package session persists the client-side survey state: the participant
// identifier and the test-mode flag.
package session

import (
	"context"
	"crypto/subtle"
)

type Session struct {
	ParticipantID string `json:"participant_id"`
	TestMode      bool   `json:"test_mode"`
}

// Store loads and saves the persisted session. A missing session is not an
// error; Load returns a zero Session.
type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
}

// SecretMatches gates entry into test mode: the candidate must equal the
// configured shared secret, which must be non-empty.
func SecretMatches(configured, candidate string) bool {
	if configured == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(candidate)) == 1
}
