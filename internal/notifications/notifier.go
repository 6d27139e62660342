package notifications

import (
	"context"
	"errors"
)

// ErrRejected wraps provider answers that retrying the same message cannot
// change, such as an invalid recipient.
var ErrRejected = errors.New("message rejected by provider")

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
