package mailinglist

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type ConfirmSubscriptionMessage struct {
	TokenCandidate string `json:"subscription_token"`
}

func (m ConfirmSubscriptionMessage) Type() string { return "subscription.confirm" }

// ConfirmSubscriptionHandler resolves an emailed token and flips the
// subscriber to confirmed. Replaying a valid token succeeds again without
// touching the row.
type ConfirmSubscriptionHandler struct {
	repo   RepositoryManager
	issuer *TokenIssuer
	logger Logger
}

func NewConfirmSubscriptionHandler(repo RepositoryManager, issuer *TokenIssuer) *ConfirmSubscriptionHandler {
	return &ConfirmSubscriptionHandler{
		repo:   repo,
		issuer: issuer,
		logger: defLogger{},
	}
}

func (h *ConfirmSubscriptionHandler) WithLogger(logger Logger) *ConfirmSubscriptionHandler {
	h.logger = logger
	return h
}

func (h *ConfirmSubscriptionHandler) Execute(ctx context.Context, event ConfirmSubscriptionMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during subscription confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmSubscriptionHandler) execute(ctx context.Context, event ConfirmSubscriptionMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// Malformed input is a client error, distinct from a well-shaped token
	// that resolves to nothing.
	token, err := h.issuer.Parse(event.TokenCandidate)
	if err != nil {
		return err
	}

	subscriberID, err := h.repo.SubscriptionTokens().FindSubscriberID(ctx, token)
	if err != nil {
		return err
	}

	if err := h.repo.Subscribers().Confirm(ctx, subscriberID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm subscriber")
	}

	h.logger.Info("subscriber %s confirmed", subscriberID)

	return nil
}
