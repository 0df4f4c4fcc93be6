package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"ridefuture-be/internal/logger"

	"go.uber.org/zap"
)

type Message struct {
	To      []string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
	send     sendFunc
	now      func() time.Time
}

func NewSMTPSender(host, port, username, password, from string) *SMTPSender {
	if from == "" {
		from = username
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		send:     smtp.SendMail,
		now:      time.Now,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	log := logger.FromCtx(ctx).With(
		zap.String("component", "smtp"),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
	)

	if len(msg.To) == 0 {
		return errors.New("mail has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	addr := s.host + ":" + s.port
	if err := s.send(addr, auth, s.from, msg.To, s.build(msg)); err != nil {
		log.Error("failed to send mail", zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}

	log.Info("mail sent")
	return nil
}

func (s *SMTPSender) build(msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return b.Bytes()
}

// LogSender only logs outgoing mail. Used when no SMTP credentials are configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	logger.FromCtx(ctx).Info("mail suppressed (no SMTP credentials)",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
