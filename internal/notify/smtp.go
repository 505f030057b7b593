package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	cfg  SMTPConfig
	send func(ctx context.Context, m *mail.Msg) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	s := &SMTPSender{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

func (s *SMTPSender) Channel() Channel {
	return ChannelEmail
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := s.buildMail(msg)
	if err != nil {
		return err
	}
	if err := s.send(ctx, m); err != nil {
		return fmt.Errorf("отправка письма %s: %w", msg.To, err)
	}
	return nil
}

func (s *SMTPSender) buildMail(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("некорректный отправитель %q: %w", s.cfg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("некорректный получатель %q: %w", msg.To, err)
	}
	// заголовок кодируется go-mail, переводы строк из названия задачи не должны его разорвать
	m.Subject(singleLine(msg.Subject))
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

func (s *SMTPSender) dialAndSend(ctx context.Context, m *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("настройка SMTP клиента: %w", err)
	}
	return client.DialAndSendWithContext(ctx, m)
}

func singleLine(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}
