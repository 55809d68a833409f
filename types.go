package mailinglist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Authenticator verifies credentials against the users table
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (uuid.UUID, error)
}

// SessionStore is the external server-side session storage. Inactivity and
// absolute expiry are owned by the store, not by SessionManager.
type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, sessionID string) (string, error)
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)
	Touch(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
}

// Mailer is the outbound email transport. Implementations collapse network
// and provider failures into a single opaque error.
type Mailer interface {
	Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error
	SendBatch(ctx context.Context, recipients []string, subject, htmlBody, textBody string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] MAILINGLIST "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] MAILINGLIST "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] MAILINGLIST "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func timePtr(t time.Time) *time.Time {
	return &t
}
