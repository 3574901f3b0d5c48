// Package mail はSMTP経由のメール送信を提供する。
package mail

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
)

// Config はSMTP接続設定。
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer はjordan-wright/emailを使用したメール送信クライアント。
type SMTPMailer struct {
	config  Config
	timeout time.Duration
}

// NewSMTPMailer はSMTPMailerを生成する。
func NewSMTPMailer(config Config) *SMTPMailer {
	return &SMTPMailer{
		config:  config,
		timeout: 10 * time.Second,
	}
}

// Send はプレーンテキストメールを1通送信する。
func (m *SMTPMailer) Send(to, subject, body string) error {
	e := email.NewEmail()
	e.From = m.config.From
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	return nil
}
