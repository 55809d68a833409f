package mailinglist

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// StandardSubscribeResponse is returned for fresh and duplicate subscriptions
// alike; the wording must never vary with the outcome.
const StandardSubscribeResponse = "If this email is not already subscribed, you will receive a confirmation email shortly."

// errAlreadySubscribed aborts the insert transaction from inside RunInTx so
// the rollback happens before we normalize the outcome to a success.
var errAlreadySubscribed = errors.New("email already subscribed")

type SubscribeMessage struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	OnResponse func(resp *SubscribeResponse)
}

func (m SubscribeMessage) Type() string { return "subscription.register" }

type SubscribeResponse struct {
	Message string
	Success bool
}

// SubscribeHandler runs the registration flow: validate, insert the
// subscriber and its confirmation token in one transaction, then dispatch
// the confirmation email outside of it.
type SubscribeHandler struct {
	repo    RepositoryManager
	issuer  *TokenIssuer
	mailer  Mailer
	baseURL string
	logger  Logger
}

func NewSubscribeHandler(repo RepositoryManager, issuer *TokenIssuer, mailer Mailer, baseURL string) *SubscribeHandler {
	return &SubscribeHandler{
		repo:    repo,
		issuer:  issuer,
		mailer:  mailer,
		baseURL: baseURL,
		logger:  defLogger{},
	}
}

func (h *SubscribeHandler) WithLogger(logger Logger) *SubscribeHandler {
	h.logger = logger
	return h
}

func (h *SubscribeHandler) Execute(ctx context.Context, event SubscribeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during subscriber registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

type issuedToken struct {
	token string
	err   error
}

func (h *SubscribeHandler) execute(ctx context.Context, event SubscribeMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// Token generation is independent of validation; run it alongside so the
	// two CPU tasks do not serialize. Both must finish before the transaction.
	tokenCh := make(chan issuedToken, 1)
	go func() {
		token, err := h.issuer.Generate()
		tokenCh <- issuedToken{token: token, err: err}
	}()

	subscriber, validationErr := ParseSubscriber(SubscriberPayload{
		Name:  event.Name,
		Email: event.Email,
	})
	issued := <-tokenCh

	if validationErr != nil {
		return validationErr
	}
	if issued.err != nil {
		return goerrors.Wrap(issued.err, goerrors.CategoryInternal, "failed to issue subscription token")
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Subscribers().RegisterTx(ctx, tx, subscriber); err != nil {
			if IsUniqueViolation(err) {
				return errAlreadySubscribed
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create subscriber")
		}

		if _, err := h.repo.SubscriptionTokens().IssueTx(ctx, tx, issued.token, subscriber.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not store subscription token")
		}

		return nil
	})

	if errors.Is(err, errAlreadySubscribed) {
		// The transaction rolled back; the caller gets the same answer as a
		// fresh subscription so existing emails cannot be probed.
		h.respond(event)
		return nil
	}

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "subscriber registration transaction failed")
	}

	if err := h.sendConfirmation(ctx, subscriber, issued.token); err != nil {
		// The subscriber is committed but never received their link. There is
		// no retry path here; surface it loudly instead of swallowing it.
		h.logger.Error("confirmation email dispatch failed for %s: %s", subscriber.ID, err)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "confirmation email dispatch failed")
	}

	h.respond(event)
	return nil
}

func (h *SubscribeHandler) respond(event SubscribeMessage) {
	if event.OnResponse == nil {
		return
	}

	event.OnResponse(&SubscribeResponse{
		Message: StandardSubscribeResponse,
		Success: true,
	})
}

func (h *SubscribeHandler) sendConfirmation(ctx context.Context, subscriber *Subscriber, token string) error {
	link := ConfirmationLink(h.baseURL, token)

	return h.mailer.Send(
		ctx,
		subscriber.Email,
		confirmationSubject,
		confirmationHTMLBody(subscriber.Name, link),
		confirmationTextBody(subscriber.Name, link),
	)
}
