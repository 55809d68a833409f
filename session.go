package mailinglist

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionManager establishes and resolves server-side sessions. It never
// caches session state beyond a single call; every decision goes back to the
// store so revocation and expiry take effect immediately.
type SessionManager struct {
	store  SessionStore
	logger Logger
}

func NewSessionManager(store SessionStore) *SessionManager {
	return &SessionManager{
		store:  store,
		logger: defLogger{},
	}
}

func (m *SessionManager) WithLogger(logger Logger) *SessionManager {
	m.logger = logger
	return m
}

// Establish creates a session for userID and immediately rotates its public
// identifier before returning it. A session id planted on the victim before
// login is dead the moment privileges are elevated; only the rotated id is
// ever handed to the client, and the rotation is durable before we return.
func (m *SessionManager) Establish(ctx context.Context, userID uuid.UUID) (string, error) {
	initial, err := m.store.Create(ctx, userID)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "session create failed")
	}

	rotated, err := m.store.Rotate(ctx, initial)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "session rotation failed")
	}

	m.logger.Debug("session established for user %s", userID)

	return rotated, nil
}

// Authorize resolves sessionID to its record, failing closed: a missing or
// expired session is ErrUnauthorized, never "anonymous but allowed". It is a
// pure read; call Touch to record activity.
func (m *SessionManager) Authorize(ctx context.Context, sessionID string) (*SessionRecord, error) {
	if sessionID == "" {
		return nil, ErrUnauthorized
	}

	record, err := m.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "session lookup failed")
	}

	return record, nil
}

// Touch explicitly persists a last-seen update for sessionID. Kept separate
// from Authorize so reads stay reads.
func (m *SessionManager) Touch(ctx context.Context, sessionID string) error {
	if err := m.store.Touch(ctx, sessionID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "session touch failed")
	}
	return nil
}

// Destroy removes the session on logout. Destroying an already-gone session
// is not an error.
func (m *SessionManager) Destroy(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "session delete failed")
	}
	return nil
}
