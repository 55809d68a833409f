package mailinglist

import (
	"context"
	"database/sql"
	"errors"
	"log"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Subscribers() Subscribers
	SubscriptionTokens() SubscriptionTokens
	Users() Users
}

type mngr struct {
	db          *bun.DB
	subscribers Subscribers
	tokens      SubscriptionTokens
	users       Users
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:          db,
		subscribers: NewSubscribersRepository(db),
		tokens:      NewSubscriptionTokensRepository(db),
		users:       NewUsersRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.subscribers == nil {
		return errors.New("repository subscribers should be initialized")
	}

	if m.tokens == nil {
		return errors.New("repository subscription tokens should be initialized")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Subscribers() Subscribers {
	return m.subscribers
}

func (m mngr) SubscriptionTokens() SubscriptionTokens {
	return m.tokens
}

func (m mngr) Users() Users {
	return m.users
}
