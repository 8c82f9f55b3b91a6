// Package mailer sends transactional mail over SMTP.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

type Mailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func New(host, port, username, password, from string) *Mailer {
	return &Mailer{host: host, port: port, username: username, password: password, from: from}
}

func (m *Mailer) Send(to, subject, body string) error {
	if m.host == "" {
		return fmt.Errorf("smtp configuration incomplete: missing host")
	}

	auth := smtp.PlainAuth("", m.username, m.password, m.host)

	headers := []string{
		fmt.Sprintf("From: %s", m.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

// SendResetCode mails the 6-digit password reset code.
func (m *Mailer) SendResetCode(to, name, code string) error {
	subject := "Your password reset code (valid for 10 minutes)"
	body := fmt.Sprintf(
		"Hi %s,\n\nWe received a request to reset your password.\nYour reset code is: %s\n\nIf you did not request this, you can ignore this email.\n",
		name, code,
	)
	return m.Send(to, subject, body)
}
