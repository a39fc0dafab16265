package mailer

import (
	"context"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// ResendTransport sends through the Resend API. Stateless: each Send is an
// authenticated HTTP request, so there is no session to reuse or close.
type ResendTransport struct {
	client *resend.Client
}

// NewResendTransport creates the Resend-backed transport.
func NewResendTransport(apiKey string) *ResendTransport {
	return &ResendTransport{client: resend.NewClient(apiKey)}
}

// Send delivers one message via Resend.
func (t *ResendTransport) Send(ctx context.Context, msg *Message) error {
	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Cc:      msg.Cc,
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	for _, a := range msg.Attachments {
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Filename: a.Filename,
			Content:  a.Content,
		})
	}

	sent, err := t.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return &TransportError{Op: "resend", Err: err}
	}
	slog.Debug("email accepted by Resend", "email_id", sent.Id, "subject", msg.Subject)
	return nil
}

// Close is a no-op for the stateless API transport.
func (t *ResendTransport) Close() error {
	return nil
}
