package mailinglist

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// Auther authenticates operator credentials against the users table.
//
// The algorithm is constant-shape: a missing username substitutes
// PlaceholderPasswordHash so that a full Argon2id verification runs on every
// call, and ErrUsernameNotFound is only returned after that verification
// completes. Bad-username and bad-password rejections are therefore
// statistically indistinguishable on the clock.
type Auther struct {
	repo   RepositoryManager
	hasher *PasswordHasher
	logger Logger
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Auther
func NewAuthenticator(repo RepositoryManager, hasher *PasswordHasher) *Auther {
	return &Auther{
		repo:   repo,
		hasher: hasher,
		logger: defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

// Authenticate resolves creds to a user id or a failure. It performs no
// writes; lockout bookkeeping belongs to callers.
func (s *Auther) Authenticate(ctx context.Context, creds Credentials) (uuid.UUID, error) {
	// Bounds are a public, non-sensitive rejection and may short-circuit.
	if err := creds.CheckBounds(); err != nil {
		return uuid.Nil, err
	}

	hash := PlaceholderPasswordHash
	userID := uuid.Nil

	user, err := s.repo.Users().GetByUsername(ctx, creds.Username)
	switch {
	case err == nil:
		hash = user.PasswordHash
		userID = user.ID
	case repository.IsRecordNotFound(err):
		// keep the placeholder hash in scope; verification still runs
	default:
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryInternal, "credential lookup failed")
	}

	verifyErr := s.hasher.Verify(ctx, creds.Password, hash)

	if userID == uuid.Nil {
		return uuid.Nil, ErrUsernameNotFound
	}

	if verifyErr != nil {
		return uuid.Nil, verifyErr
	}

	s.logger.Info("successful authentication for user %s", userID)

	return userID, nil
}
