package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESTransport sends through AWS SES. Like Resend it is stateless per
// message. Attachments are not supported with simple content and are
// rejected up front rather than silently dropped.
type SESTransport struct {
	client *sesv2.Client
}

// NewSESTransport loads the default AWS credential chain for the region.
func NewSESTransport(region string) (*SESTransport, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	slog.Debug("SES transport initialized", "region", region)
	return &SESTransport{client: sesv2.NewFromConfig(cfg)}, nil
}

// Send delivers one message via SES.
func (t *SESTransport) Send(ctx context.Context, msg *Message) error {
	if len(msg.Attachments) > 0 {
		return &TransportError{Op: "ses", Err: fmt.Errorf("attachments require the smtp or resend provider")}
	}
	if t.client == nil {
		return &TransportError{Op: "ses", Err: fmt.Errorf("SES client not initialized")}
	}

	subject := msg.Subject
	htmlBody := msg.HTML
	input := &sesv2.SendEmailInput{
		FromEmailAddress: &msg.From,
		Destination: &types.Destination{
			ToAddresses: msg.To,
			CcAddresses: msg.Cc,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
				},
			},
		},
	}

	if _, err := t.client.SendEmail(ctx, input); err != nil {
		return &TransportError{Op: "ses", Err: err}
	}
	return nil
}

// Close is a no-op for the stateless API transport.
func (t *SESTransport) Close() error {
	return nil
}
