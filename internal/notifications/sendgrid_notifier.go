package notifications

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGridNotifier struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridNotifier(apiKey, senderEmail, senderName string) *SendGridNotifier {
	return &SendGridNotifier{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(senderName, senderEmail),
	}
}

func (n *SendGridNotifier) Send(ctx context.Context, msg Message) error {
	to := mail.NewEmail("", msg.To)
	m := mail.NewSingleEmail(n.from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := n.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: sendgrid status %d: %s", ErrRejected, resp.StatusCode, resp.Body)
	}

	return nil
}
