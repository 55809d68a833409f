package mailinglist_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-mailinglist"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var testDBSeq atomic.Int64

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	// each test gets its own named in-memory database so rows never leak
	// between tests
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBSeq.Add(1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, model := range []any{
		(*mailinglist.Subscriber)(nil),
		(*mailinglist.SubscriptionToken)(nil),
		(*mailinglist.User)(nil),
		(*mailinglist.SessionRecord)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	return db
}

func setupRepos(t *testing.T) (*bun.DB, mailinglist.RepositoryManager) {
	t.Helper()
	db := setupTestDB(t)
	return db, mailinglist.NewRepositoryManager(db)
}

type sentEmail struct {
	Recipient string
	Subject   string
	HTMLBody  string
	TextBody  string
}

// capturingMailer records every dispatch instead of sending
type capturingMailer struct {
	mu      sync.Mutex
	sent    []sentEmail
	batches [][]string
}

func (m *capturingMailer) Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{
		Recipient: recipient,
		Subject:   subject,
		HTMLBody:  htmlBody,
		TextBody:  textBody,
	})
	return nil
}

func (m *capturingMailer) SendBatch(ctx context.Context, recipients []string, subject, htmlBody, textBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, recipients)
	return nil
}

func (m *capturingMailer) Sent() []sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *capturingMailer) Batches() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.batches))
	copy(out, m.batches)
	return out
}

// failingMailer refuses every dispatch
type failingMailer struct{}

func (m failingMailer) Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	return errors.New("transport unavailable")
}

func (m failingMailer) SendBatch(ctx context.Context, recipients []string, subject, htmlBody, textBody string) error {
	return errors.New("transport unavailable")
}

// recordingSessionStore delegates to a real store while remembering every
// identifier it ever handed out pre-rotation.
type recordingSessionStore struct {
	mailinglist.SessionStore
	mu      sync.Mutex
	created []string
	rotated []string
}

func (s *recordingSessionStore) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	id, err := s.SessionStore.Create(ctx, userID)
	if err == nil {
		s.mu.Lock()
		s.created = append(s.created, id)
		s.mu.Unlock()
	}
	return id, err
}

func (s *recordingSessionStore) Rotate(ctx context.Context, sessionID string) (string, error) {
	id, err := s.SessionStore.Rotate(ctx, sessionID)
	if err == nil {
		s.mu.Lock()
		s.rotated = append(s.rotated, id)
		s.mu.Unlock()
	}
	return id, err
}

type silentLogger struct{}

func (silentLogger) Debug(format string, args ...any) {}
func (silentLogger) Info(format string, args ...any)  {}
func (silentLogger) Error(format string, args ...any) {}
