// Package email delivers changelog posts as HTML emails.
package email

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"regexp"
	"strings"

	"changelog-bot/lib/notify"

	"github.com/jordan-wright/email"
)

type Options struct {
	// Addr is the "host:port" of the SMTP server.
	Addr     string
	Username string
	Password string
	From     string
	// Subject defaults to the first line of the message with markup removed.
	Subject string
}

// sendFunc matches (*email.Email).Send so tests can capture messages.
type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

type Notifier struct {
	opts Options
	send sendFunc
}

func New(opts Options) (*Notifier, error) {
	if opts.Addr == "" || opts.From == "" {
		return nil, errors.New("email: addr and from are required")
	}
	return &Notifier{
		opts: opts,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}, nil
}

var tags = regexp.MustCompile(`<[^>]*>`)

func subjectOf(text string) string {
	first, _, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(tags.ReplaceAllString(first, ""))
}

// Build creates the email for a message without sending it.
func (n *Notifier) Build(to, text string) *email.Email {
	e := email.NewEmail()
	e.From = n.opts.From
	e.To = []string{to}
	e.Subject = n.opts.Subject
	if e.Subject == "" {
		e.Subject = subjectOf(text)
	}
	e.Text = []byte(tags.ReplaceAllString(text, ""))
	e.HTML = []byte(strings.ReplaceAll(text, "\n", "<br>\n"))
	return e
}

// Notify sends text to the address given as chatID. SMTP permanent failures
// (5xx replies) are reported as Rejected.
func (n *Notifier) Notify(ctx context.Context, chatID, text string) (notify.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var auth smtp.Auth
	if n.opts.Username != "" {
		host, _, err := net.SplitHostPort(n.opts.Addr)
		if err != nil {
			return nil, fmt.Errorf("email: %w", err)
		}
		auth = smtp.PlainAuth("", n.opts.Username, n.opts.Password, host)
	}

	err := n.send(n.Build(chatID, text), n.opts.Addr, auth)
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code >= 500 {
		return notify.Rejected{Reason: protoErr.Msg}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}
	return notify.Delivered{}, nil
}
