package mailinglist

import (
	"context"
	"fmt"
)

const confirmationSubject = "Welcome to our newsletter!"

// ConfirmationLink builds the URL a subscriber visits to confirm. The raw
// token is embedded as a query parameter, matching what Parse accepts.
func ConfirmationLink(baseURL, token string) string {
	return fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s", baseURL, token)
}

func confirmationHTMLBody(name, link string) string {
	return fmt.Sprintf(
		"<p>Hi %s,</p><p>welcome to our newsletter! Please <a href=%q>click here</a> to confirm your subscription.</p>",
		name, link,
	)
}

func confirmationTextBody(name, link string) string {
	return fmt.Sprintf(
		"Hi %s, welcome to our newsletter! Visit %s to confirm your subscription.",
		name, link,
	)
}

// LogMailer is a development Mailer that prints instead of sending. It is
// the default everywhere a Mailer is optional.
type LogMailer struct {
	Logger Logger
}

var _ Mailer = (*LogMailer)(nil)

func NewLogMailer() *LogMailer {
	return &LogMailer{Logger: defLogger{}}
}

func (m *LogMailer) Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	m.Logger.Info("====== SENDING EMAIL NOTIFICATION =======")
	m.Logger.Info("to: %s", recipient)
	m.Logger.Info("subject: %s", subject)
	m.Logger.Info("body: %s", textBody)
	return nil
}

func (m *LogMailer) SendBatch(ctx context.Context, recipients []string, subject, htmlBody, textBody string) error {
	for _, recipient := range recipients {
		if err := m.Send(ctx, recipient, subject, htmlBody, textBody); err != nil {
			return err
		}
	}
	return nil
}
