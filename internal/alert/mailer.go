package alert

import (
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"time"
)

// Mailer отправляет алерты о недоступности БД на почту дежурного.
// Весь обмен с SMTP-сервером ограничен общим дедлайном на соединении,
// чтобы зависший сервер не держал воркер алертов.
type Mailer struct {
	host     string
	port     string
	username string
	password string
	sender   string
	to       string
	timeout  time.Duration
	logger   *log.Logger
}

func NewMailer(host, port, username, password, sender, to string, timeout time.Duration, logger *log.Logger) *Mailer {
	if sender == "" {
		sender = "no-reply@localhost"
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		sender:   sender,
		to:       to,
		timeout:  timeout,
		logger:   logger,
	}
}

func (m *Mailer) Send(subject, body string) error {
	addr := net.JoinHostPort(m.host, m.port)

	conn, err := net.DialTimeout("tcp", addr, m.timeout)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	// общий дедлайн на весь SMTP-диалог
	_ = conn.SetDeadline(time.Now().Add(m.timeout))

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if m.username != "" && m.password != "" {
		auth := smtp.PlainAuth("", m.username, m.password, m.host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(m.sender); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(m.to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", m.sender, m.to, subject) +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n" +
		body

	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}

	if err := c.Quit(); err != nil {
		m.logger.Printf("smtp quit: %v", err)
	}
	return nil
}
