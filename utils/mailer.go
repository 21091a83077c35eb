package utils

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type Mailer interface {
	SendActivationEmail(to, name, code string) error
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(host string, port int, username, password, from string) Mailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (m *smtpMailer) SendActivationEmail(to, name, code string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Verify your Email")
	msg.SetBody("text/html", activationBody(name, code))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send activation email: %w", err)
	}

	return nil
}

func activationBody(name, code string) string {
	return fmt.Sprintf(`
		<div style="font-family: 'Helvetica Neue', Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h1 style="color: #4CAF50; text-align: center;">Email Verification</h1>
			<p>Hi %s, please use the following OTP to verify your email address:</p>
			<div style="background: #f5f5f5; padding: 15px; text-align: center; border-radius: 5px; margin: 20px 0;">
				<h2 style="margin: 0; color: #333; letter-spacing: 3px;">%s</h2>
			</div>
			<p style="color: #777; text-align: center;">This OTP will expire in 5 minutes. Do not share it with anyone.</p>
			<p style="color: #999; font-size: 14px; text-align: center;">If you didn't request this, please ignore this email.</p>
		</div>
	`, name, code)
}
