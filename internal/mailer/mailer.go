// Package mailer is the mail-sending collaborator: given a composed
// message it authenticates against the configured provider and delivers or
// fails. Dispatch does not depend on provider internals beyond "raises on
// authentication or connection failure, otherwise delivers".
package mailer

import (
	"context"
	"fmt"
	"strings"
)

// Attachment is one binary attachment.
type Attachment struct {
	Filename string
	Content  []byte
}

// Message is a fully composed outbound email.
type Message struct {
	From        string
	To          []string
	Cc          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Transport delivers messages for one dispatch run. Implementations that
// hold a session (SMTP) open it lazily on the first Send and reuse it for
// the rest of the batch; Close releases it.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
	Close() error
}

// TransportError is an authentication or connection failure. It aborts the
// remaining batch; already-sent messages are not rolled back.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mail transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Config selects and configures a provider.
type Config struct {
	Provider string // "smtp" (default), "resend" or "ses"

	SMTPHost string
	SMTPPort int
	Username string
	Password string

	ResendAPIKey string
	AWSRegion    string
}

// New builds the transport for the configured provider.
func New(cfg Config) (Transport, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "smtp":
		return NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password), nil
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("resend provider requires an API key")
		}
		return NewResendTransport(cfg.ResendAPIKey), nil
	case "ses":
		return NewSESTransport(cfg.AWSRegion)
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}
