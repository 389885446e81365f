package mailer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Sender sends transactional email. Implementations must validate the
// message before handing it to the underlying provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound transactional email.
type Message struct {
	To       string
	Subject  string
	BodyHTML string
	Tag      string // optional provider-side category
}

var (
	ErrInvalidConfig  = errors.New("mailer: invalid configuration")
	ErrInvalidMessage = errors.New("mailer: invalid message")
	ErrSendFailed     = errors.New("mailer: send failed")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks the message has a valid recipient, a subject and a body.
func (m Message) Validate() error {
	if !emailRegex.MatchString(m.To) {
		return fmt.Errorf("%w: recipient %q", ErrInvalidMessage, m.To)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: empty subject", ErrInvalidMessage)
	}
	if m.BodyHTML == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidMessage)
	}
	return nil
}
