package mailinglist

import (
	"context"
	"errors"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ConfirmSubscriberSQL = `UPDATE "subscriptions" AS "sub"
SET
	"status" = 'confirmed'
WHERE
	"sub"."id" = ?
AND "sub"."status" != 'confirmed';`

type Subscribers interface {
	repository.Repository[*Subscriber]

	Register(ctx context.Context, record *Subscriber) (*Subscriber, error)
	RegisterTx(ctx context.Context, tx bun.IDB, record *Subscriber) (*Subscriber, error)

	Confirm(ctx context.Context, id uuid.UUID) error
	ConfirmTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	ListConfirmed(ctx context.Context) ([]*Subscriber, error)
}

type subscribers struct {
	repository.Repository[*Subscriber]
	db *bun.DB
}

var _ Subscribers = (*subscribers)(nil)

func NewSubscribersRepository(db *bun.DB) Subscribers {
	repo := repository.NewRepository[*Subscriber](db, repository.ModelHandlers[*Subscriber]{
		NewRecord: func() *Subscriber { return &Subscriber{} },
		GetID: func(s *Subscriber) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Subscriber, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &subscribers{
		Repository: repo,
		db:         db,
	}
}

func (r *subscribers) Register(ctx context.Context, record *Subscriber) (*Subscriber, error) {
	return r.RegisterTx(ctx, r.db, record)
}

func (r *subscribers) RegisterTx(ctx context.Context, tx bun.IDB, record *Subscriber) (*Subscriber, error) {
	prepareSubscriberDefaults(record)
	return r.Repository.CreateTx(ctx, tx, record)
}

func (r *subscribers) Confirm(ctx context.Context, id uuid.UUID) error {
	return r.ConfirmTx(ctx, r.db, id)
}

// ConfirmTx flips the subscriber to confirmed. The guard in the WHERE clause
// makes replays a no-op; zero affected rows means the status was already
// confirmed, which is success, not failure.
func (r *subscribers) ConfirmTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewRaw(ConfirmSubscriberSQL, id).Exec(ctx)
	return err
}

func (r *subscribers) ListConfirmed(ctx context.Context) ([]*Subscriber, error) {
	var records []*Subscriber

	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.status = ?", SubscriberConfirmed).
		Order("subscribed_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func prepareSubscriberDefaults(record *Subscriber) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.Status == "" {
		record.Status = SubscriberPending
	}

	if record.SubscribedAt == nil {
		record.SubscribedAt = timePtr(time.Now().UTC())
	}
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
// The repository layer wraps driver errors in rich errors whose top-level
// message carries no driver text, so the whole unwrap chain is checked:
// first against the repository's own duplicate-key helper, then against the
// driver message text because bun fans out to sqlite and postgres drivers
// with incompatible error types.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	if repository.IsDuplicatedKey(err) {
		return true
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		if strings.Contains(msg, "UNIQUE constraint failed") ||
			strings.Contains(msg, "duplicate key value violates unique constraint") ||
			strings.Contains(msg, "constraint failed: UNIQUE") {
			return true
		}
	}

	return false
}
