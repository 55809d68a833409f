package mailinglist

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type PublishNewsletterMessage struct {
	Title       string `json:"title"`
	HTMLContent string `json:"html_content"`
	TextContent string `json:"text_content"`
}

func (m PublishNewsletterMessage) Type() string { return "newsletter.publish" }

// PublishNewsletterHandler dispatches an issue to every confirmed
// subscriber. Callers authenticate before dispatching this command.
type PublishNewsletterHandler struct {
	repo   RepositoryManager
	mailer Mailer
	logger Logger
}

func NewPublishNewsletterHandler(repo RepositoryManager, mailer Mailer) *PublishNewsletterHandler {
	return &PublishNewsletterHandler{
		repo:   repo,
		mailer: mailer,
		logger: defLogger{},
	}
}

func (h *PublishNewsletterHandler) WithLogger(logger Logger) *PublishNewsletterHandler {
	h.logger = logger
	return h
}

func (h *PublishNewsletterHandler) Execute(ctx context.Context, event PublishNewsletterMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during newsletter publication",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *PublishNewsletterHandler) execute(ctx context.Context, event PublishNewsletterMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	subscribers, err := h.repo.Subscribers().ListConfirmed(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load confirmed subscribers")
	}

	recipients := make([]string, 0, len(subscribers))
	for _, subscriber := range subscribers {
		// Stored emails were validated on the way in; a failure here means a
		// write path skipped validation and needs fixing.
		payload := SubscriberPayload{Name: subscriber.Name, Email: subscriber.Email}
		if err := payload.Validate(); err != nil {
			h.logger.Error("BUG: confirmed subscriber %s has an invalid stored email: %s", subscriber.ID, err)
			continue
		}
		recipients = append(recipients, subscriber.Email)
	}

	if len(recipients) == 0 {
		h.logger.Info("newsletter %q has no confirmed recipients", event.Title)
		return nil
	}

	if err := h.mailer.SendBatch(ctx, recipients, event.Title, event.HTMLContent, event.TextContent); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "newsletter dispatch failed")
	}

	h.logger.Info("newsletter %q sent to %d subscribers", event.Title, len(recipients))

	return nil
}
