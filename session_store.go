package mailinglist

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const sessionIDByteLen = 32

// defaultSessionTTL is the inactivity window before a session is reaped
const defaultSessionTTL = 24 * time.Hour

// BunSessionStore keeps sessions in the sessions table. Expiry is owned
// here: Get refuses records whose last_seen is outside the inactivity
// window and reaps them on sight.
type BunSessionStore struct {
	db   *bun.DB
	ttl  time.Duration
	rand io.Reader
}

type BunSessionStoreOption func(*BunSessionStore) *BunSessionStore

func NewBunSessionStore(db *bun.DB, opts ...BunSessionStoreOption) *BunSessionStore {
	s := &BunSessionStore{
		db:   db,
		ttl:  defaultSessionTTL,
		rand: rand.Reader,
	}

	for _, opt := range opts {
		s = opt(s)
	}

	return s
}

func WithSessionTTL(ttl time.Duration) BunSessionStoreOption {
	return func(s *BunSessionStore) *BunSessionStore {
		s.ttl = ttl
		return s
	}
}

// WithSessionRand overrides the identifier source. Tests only.
func WithSessionRand(r io.Reader) BunSessionStoreOption {
	return func(s *BunSessionStore) *BunSessionStore {
		s.rand = r
		return s
	}
}

var _ SessionStore = (*BunSessionStore)(nil)

func (s *BunSessionStore) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	id, err := s.newSessionID()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	record := &SessionRecord{
		ID:        id,
		UserID:    userID,
		FirstSeen: now,
		LastSeen:  now,
	}

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return "", fmt.Errorf("session insert: %w", err)
	}

	return id, nil
}

// Rotate atomically re-keys the session under a fresh identifier. The old id
// stops resolving the instant this returns.
func (s *BunSessionStore) Rotate(ctx context.Context, sessionID string) (string, error) {
	next, err := s.newSessionID()
	if err != nil {
		return "", err
	}

	res, err := s.db.NewUpdate().
		Model((*SessionRecord)(nil)).
		Set("id = ?", next).
		Where("id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("session rotate: %w", err)
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return "", ErrSessionNotFound
	}

	return next, nil
}

func (s *BunSessionStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	record := &SessionRecord{}

	err := s.db.NewSelect().
		Model(record).
		Where("id = ?", sessionID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("session select: %w", err)
	}

	if time.Since(record.LastSeen) > s.ttl {
		_ = s.Delete(ctx, sessionID)
		return nil, ErrSessionNotFound
	}

	return record, nil
}

func (s *BunSessionStore) Touch(ctx context.Context, sessionID string) error {
	res, err := s.db.NewUpdate().
		Model((*SessionRecord)(nil)).
		Set("last_seen = ?", time.Now().UTC()).
		Where("id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("session touch: %w", err)
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (s *BunSessionStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("session delete: %w", err)
	}

	return nil
}

func (s *BunSessionStore) newSessionID() (string, error) {
	raw := make([]byte, sessionIDByteLen)
	if _, err := io.ReadFull(s.rand, raw); err != nil {
		return "", fmt.Errorf("session id entropy: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}
