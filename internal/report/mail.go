package report

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("report")

type MailConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

// Attachment is a file sent along with a mail.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewMail builds a plain text mail from the configured address.
func NewMail(config MailConfig, subject, body string, attachments ...Attachment) (*email.Email, error) {
	if len(config.To) == 0 {
		return nil, fmt.Errorf("no recipients configured")
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Survey Logic Helper <%s>", config.EmailAddress)
	mail.To = config.To
	mail.Subject = subject
	mail.Text = []byte(body)

	for _, a := range attachments {
		_, err := mail.Attach(bytes.NewReader(a.Data), a.Name, a.ContentType)
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Name, err)
		}
	}
	return mail, nil
}

// Send delivers `mail` through the configured smtp server, falling back to no
// auth when the server doesn't support it.
func Send(ctx context.Context, config MailConfig, mail *email.Email) error {
	_, span := tracer.Start(ctx, "report:send")
	defer span.End()

	addr := fmt.Sprintf("%s:%d", config.Server, config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", config.EmailAddress, config.Password, config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
