// Package handoff notifies the human support team when a conversation
// escalates. Delivery is best-effort: failures are logged and never affect
// the message result.
package handoff

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"supportbot-engine/internal/common/logger"
)

// EmailSender is satisfied by the SES client wrapper.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSPublisher is satisfied by the SNS client wrapper.
type SMSPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Event describes one escalation for the team notification.
type Event struct {
	SessionKey string    `json:"sessionKey"`
	Reason     string    `json:"reason"`
	Intent     string    `json:"intent"`
	Sentiment  float64   `json:"sentiment"`
	Timestamp  time.Time `json:"timestamp"`
}

type Config struct {
	FromEmail string
	TeamEmail string
	TeamPhone string
}

type Notifier struct {
	email  EmailSender
	sms    SMSPublisher
	cfg    Config
	logger logger.Logger
}

// NewNotifier accepts nil senders; a nil channel is simply skipped.
func NewNotifier(email EmailSender, sms SMSPublisher, cfg Config, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{email: email, sms: sms, cfg: cfg, logger: log}
}

// NotifyEscalation fans the event out to every configured channel.
func (n *Notifier) NotifyEscalation(ctx context.Context, ev Event) {
	subject := fmt.Sprintf("Conversation escalated: %s", ev.Reason)
	body := fmt.Sprintf(
		"Session %s escalated at %s.\nReason: %s\nLast intent: %s\nSentiment score: %.2f\n",
		ev.SessionKey, ev.Timestamp.Format(time.RFC3339), ev.Reason, ev.Intent, ev.Sentiment,
	)

	n.sendEmail(ctx, subject, body)
	n.sendSMS(ctx, fmt.Sprintf("Escalation (%s) on session %s", ev.Reason, ev.SessionKey))
}

// NotifyTeam sends an ad-hoc message, used by notify_team actions.
func (n *Notifier) NotifyTeam(ctx context.Context, subject, body string) {
	n.sendEmail(ctx, subject, body)
}

func (n *Notifier) sendEmail(ctx context.Context, subject, body string) {
	if n.email == nil || n.cfg.TeamEmail == "" {
		return
	}

	input := &ses.SendEmailInput{
		Source: aws.String(n.cfg.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{n.cfg.TeamEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	}

	if _, err := n.email.SendEmail(ctx, input); err != nil {
		n.logger.Error("handoff email failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (n *Notifier) sendSMS(ctx context.Context, message string) {
	if n.sms == nil || n.cfg.TeamPhone == "" {
		return
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(n.cfg.TeamPhone),
		Message:     aws.String(message),
	}

	if _, err := n.sms.Publish(ctx, input); err != nil {
		n.logger.Error("handoff sms failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
