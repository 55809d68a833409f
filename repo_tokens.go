package mailinglist

import (
	"context"
	"database/sql"
	"errors"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type SubscriptionTokens interface {
	repository.Repository[*SubscriptionToken]

	Issue(ctx context.Context, token string, subscriberID uuid.UUID) (*SubscriptionToken, error)
	IssueTx(ctx context.Context, tx bun.IDB, token string, subscriberID uuid.UUID) (*SubscriptionToken, error)

	FindSubscriberID(ctx context.Context, token string) (uuid.UUID, error)
}

type subscriptionTokens struct {
	repository.Repository[*SubscriptionToken]
	db *bun.DB
}

var _ SubscriptionTokens = (*subscriptionTokens)(nil)

func NewSubscriptionTokensRepository(db *bun.DB) SubscriptionTokens {
	repo := repository.NewRepository[*SubscriptionToken](db, repository.ModelHandlers[*SubscriptionToken]{
		NewRecord: func() *SubscriptionToken { return &SubscriptionToken{} },
		GetID: func(t *SubscriptionToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.SubscriberID
		},
		SetID: func(t *SubscriptionToken, id uuid.UUID) {
			if t != nil {
				t.SubscriberID = id
			}
		},
		GetIdentifier: func() string {
			return "subscription_token"
		},
	})

	return &subscriptionTokens{
		Repository: repo,
		db:         db,
	}
}

func (r *subscriptionTokens) Issue(ctx context.Context, token string, subscriberID uuid.UUID) (*SubscriptionToken, error) {
	return r.IssueTx(ctx, r.db, token, subscriberID)
}

func (r *subscriptionTokens) IssueTx(ctx context.Context, tx bun.IDB, token string, subscriberID uuid.UUID) (*SubscriptionToken, error) {
	record := &SubscriptionToken{
		Token:        token,
		SubscriberID: subscriberID,
	}

	return r.Repository.CreateTx(ctx, tx, record)
}

// FindSubscriberID resolves a well-shaped token to its subscriber. Absence is
// ErrUnauthorized: a token that decodes fine but is not ours gets the same
// answer as one belonging to somebody else.
func (r *subscriptionTokens) FindSubscriberID(ctx context.Context, token string) (uuid.UUID, error) {
	record := &SubscriptionToken{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.subscription_token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return uuid.Nil, ErrUnauthorized
		}
		return uuid.Nil, err
	}

	return record.SubscriberID, nil
}
