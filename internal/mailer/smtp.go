package mailer

import (
	"context"
	"io"
	"log/slog"

	mail "gopkg.in/mail.v2"
)

// SMTPTransport sends over an authenticated SMTP relay. The connection is
// dialed and authenticated once, on the first Send, then reused for every
// message of the batch.
type SMTPTransport struct {
	dialer  *mail.Dialer
	session mail.SendCloser
}

// NewSMTPTransport configures the relay. Port 465 uses implicit TLS, which
// is what the production relay expects.
func NewSMTPTransport(host string, port int, username, password string) *SMTPTransport {
	d := mail.NewDialer(host, port, username, password)
	d.SSL = port == 465
	return &SMTPTransport{dialer: d}
}

// Send delivers one message over the shared session.
func (t *SMTPTransport) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Op: "send", Err: err}
	}

	if t.session == nil {
		session, err := t.dialer.Dial()
		if err != nil {
			return &TransportError{Op: "connect", Err: err}
		}
		slog.Debug("SMTP session opened", "host", t.dialer.Host, "port", t.dialer.Port)
		t.session = session
	}

	m := mail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	for _, a := range msg.Attachments {
		content := a.Content
		m.Attach(a.Filename, mail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
	}

	if err := mail.Send(t.session, m); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

// Close shuts the session down if one was opened.
func (t *SMTPTransport) Close() error {
	if t.session == nil {
		return nil
	}
	err := t.session.Close()
	t.session = nil
	return err
}
