package smtp

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/immunopass-go/internal/config"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		send:     smtp.SendMail,
	}
}

func (m *mailer) SendEmail(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return m.send(addr, auth, m.from, []string{to}, []byte(msg))
}

// OTPMailer delivers login codes to EMAIL identifiers.
type OTPMailer struct {
	mailer Mailer
}

func NewOTPMailer(m Mailer) *OTPMailer {
	return &OTPMailer{mailer: m}
}

// SendOTP sends the code by mail. net/smtp takes no context, so a cancelled
// ctx is only honoured before the dial.
func (o *OTPMailer) SendOTP(ctx context.Context, name, to, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body := fmt.Sprintf("Hi %s,\r\n\r\nYour ImmunoPass login OTP is %s. It is valid for 15 minutes.\r\n", name, code)
	return o.mailer.SendEmail(to, "Your ImmunoPass login OTP", body)
}
