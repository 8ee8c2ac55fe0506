package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"contentreview/common"
)

var validate = validator.New()

// IsValidAddress reports whether addr is a syntactically valid email address.
func IsValidAddress(addr string) bool {
	return validate.Var(addr, "required,email") == nil
}

// Message is one outgoing review email. Data carries the structured values
// the body was rendered from, for transports that template on their side.
type Message struct {
	To       string
	From     string
	Subject  string
	HTMLBody string
	Data     map[string]any
}

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
	logger   *zap.Logger
}

func NewEmailService(cfg common.SMTPConfig, logger *zap.Logger) *EmailService {
	return &EmailService{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
		logger:   logger,
	}
}

// Send delivers msg as a single HTML email. The envelope sender is the
// message's From, or the SMTP_FROM address when it is blank.
func (e *EmailService) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := msg.From
	if from == "" {
		from = e.from
	}

	message := buildMessage(from, msg)

	var auth smtp.Auth
	if e.user != "" && e.password != "" {
		auth = smtp.PlainAuth("", e.user, e.password, e.host)
	}
	addr := fmt.Sprintf("%s:%s", e.host, e.port)

	err := smtp.SendMail(addr, auth, from, []string{msg.To}, message)
	if err != nil {
		e.logger.Error("failed to send email", zap.String("to", msg.To), zap.Error(err))
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}

	e.logger.Debug("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func buildMessage(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTMLBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}
