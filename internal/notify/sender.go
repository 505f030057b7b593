// Package notify доставляет уведомления о задачах по email и SMS.
// Ядро только публикует события, вся работа с внешними сервисами живёт здесь.
package notify

import (
	"context"
	"eofficeTracker/internal/logger"

	"go.uber.org/zap"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type Message struct {
	Channel Channel `json:"channel"`
	To      string  `json:"to"`
	Subject string  `json:"subject,omitempty"`
	Body    string  `json:"body"`
}

type Sender interface {
	Channel() Channel
	Send(ctx context.Context, msg Message) error
}

// LogSender пишет сообщение в лог. Используется, когда провайдер канала не настроен.
type LogSender struct {
	channel Channel
}

func NewLogSender(channel Channel) *LogSender {
	return &LogSender{channel: channel}
}

func (s *LogSender) Channel() Channel {
	return s.channel
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	logger.Info("Notify: Сообщение (без провайдера)",
		zap.String("channel", string(msg.Channel)),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}
