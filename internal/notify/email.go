package notify

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"go-relief-hub/pkg/config"
	"go-relief-hub/pkg/logger"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Sender 发送一封纯文本邮件
type Sender interface {
	Send(ctx context.Context, to, subject, text string) error
}

// NewSender 按配置选择邮件服务商
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if cfg.From == "" {
		return nil, errors.New("email from address is required")
	}
	switch cfg.Provider {
	case "mailgun":
		if cfg.Mailgun.Key == "" || cfg.Mailgun.Domain == "" {
			return nil, errors.New("invalid Mailgun configuration")
		}
		return &MailgunSender{mg: mailgun.NewMailgun(cfg.Mailgun.Domain, cfg.Mailgun.Key), from: cfg.From}, nil
	case "sendgrid":
		if cfg.SendGrid.Key == "" {
			return nil, errors.New("invalid SendGrid configuration")
		}
		return &SendGridSender{key: cfg.SendGrid.Key, from: cfg.From}, nil
	case "smtp":
		if cfg.SMTP.Host == "" || cfg.SMTP.Port == "" {
			return nil, errors.New("invalid SMTP configuration")
		}
		return &SMTPSender{cfg: cfg.SMTP, from: cfg.From}, nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %q", cfg.Provider)
	}
}

type MailgunSender struct {
	mg   mailgun.Mailgun
	from string
}

func (s *MailgunSender) Send(ctx context.Context, to, subject, text string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	message := s.mg.NewMessage(s.from, subject, text, to)
	_, id, err := s.mg.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	logger.L.Debug("Email queued", zap.String("provider", "mailgun"), zap.String("id", id))
	return nil
}

type SendGridSender struct {
	key  string
	from string
}

func (s *SendGridSender) Send(ctx context.Context, to, subject, text string) error {
	message := mail.NewSingleEmail(mail.NewEmail("Relief Hub", s.from), subject, mail.NewEmail("", to), text, "")
	client := sendgrid.NewSendClient(s.key)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode != http.StatusAccepted && response.StatusCode != http.StatusOK {
		return fmt.Errorf("sendgrid send: status code %d", response.StatusCode)
	}
	return nil
}

type SMTPSender struct {
	cfg  config.SMTPConfig
	from string
}

func (s *SMTPSender) Send(_ context.Context, to, subject, text string) error {
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	msg := buildMessage(s.from, to, subject, text)
	if err := smtp.SendMail(s.cfg.Host+":"+s.cfg.Port, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// buildMessage 组装纯文本邮件; 头部值去掉CR/LF, 主题按RFC 2047编码
func buildMessage(from, to, subject, text string) []byte {
	var b strings.Builder
	writeHeader := func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}
	writeHeader("From", headerValue(from))
	writeHeader("To", headerValue(to))
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", headerValue(subject)))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", "text/plain; charset=utf-8")
	writeHeader("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	b.WriteString(text)
	return []byte(b.String())
}

func headerValue(v string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, v)
}

// EmailNotifier 给收件人发邮件, 收件人是群组时发给每个成员
type EmailNotifier struct {
	sender Sender
	dir    Directory
}

func NewEmailNotifier(sender Sender, dir Directory) *EmailNotifier {
	return &EmailNotifier{sender: sender, dir: dir}
}

func (n *EmailNotifier) Notify(ctx context.Context, to Recipient, p Payload) error {
	var addrs []string
	if to.IsGroup() {
		emails, err := n.dir.GroupMemberEmails(to.GroupID)
		if err != nil {
			return fmt.Errorf("resolve group %d emails: %w", to.GroupID, err)
		}
		addrs = emails
	} else {
		email, err := n.dir.UserEmail(to.UserID)
		if err != nil {
			return fmt.Errorf("resolve user %d email: %w", to.UserID, err)
		}
		if email != "" {
			addrs = append(addrs, email)
		}
	}

	var errs []error
	for _, addr := range addrs {
		if err := n.sender.Send(ctx, addr, subject(p), body(p)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
