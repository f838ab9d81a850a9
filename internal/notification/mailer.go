package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ridewell/benefit-api/internal/config"
)

// OTPMailer delivers passwordless sign-in codes.
type OTPMailer interface {
	SendOTP(recipientEmail, code string) error
}

// SMTPOTPMailer sends sign-in codes using an SMTP server.
type SMTPOTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPOTPMailer constructs a new SMTPOTPMailer from config.
func NewSMTPOTPMailer(cfg config.EmailConfig) (*SMTPOTPMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, fmt.Errorf("smtp_host is required")
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("email from address is required")
	}

	return &SMTPOTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}, nil
}

// SendOTP dispatches a sign-in code to the invited employee.
func (m *SMTPOTPMailer) SendOTP(recipientEmail, code string) error {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		m.from, recipientEmail, "Your sign-in code")

	body := strings.Builder{}
	body.WriteString("Hello,\n\n")
	body.WriteString(fmt.Sprintf("Enter this code to sign in: %s\n\n", code))
	body.WriteString("The code expires shortly. If you did not request it, you can ignore this email.\n\n")
	body.WriteString("Thanks,\nThe Ridewell Team\n")

	message := []byte(headers + body.String())

	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if strings.TrimSpace(m.username) != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{recipientEmail}, message)
}
