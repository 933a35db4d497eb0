// Package notify delivers operator notifications to one or more sinks.
package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/churchevent-ux/registerform--event-final/internal/presence"
)

// Message is one notification.
type Message struct {
	Kind string
	Text string
}

// Sink delivers messages.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// FromSignal renders a presence signal for operators.
func FromSignal(s presence.Signal) Message {
	who := s.Name
	if s.Identifier != "" {
		who = fmt.Sprintf("%s (%s)", s.Name, s.Identifier)
	}
	var text string
	switch s.Type {
	case presence.SignalNewRegistration:
		if s.Identifier != "" {
			text = "New registration: " + who
		} else if s.Count > 1 {
			text = fmt.Sprintf("%d new users registered", s.Count)
		} else {
			text = "New user registered"
		}
	case presence.SignalOnline:
		text = who + " is now online"
	case presence.SignalOffline:
		text = who + " went offline"
	case presence.SignalBreakStarted:
		text = who + " started a break"
	case presence.SignalBreakEnded:
		text = who + " ended the break"
	case presence.SignalLongBreak:
		text = who + " has been on break for over an hour"
	default:
		text = s.Type + ": " + who
	}
	return Message{Kind: s.Type, Text: text}
}

// LogSink writes messages to the structured log.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Send(_ context.Context, msg Message) error {
	s.log.Info("notification", zap.String("kind", msg.Kind), zap.String("text", msg.Text))
	return nil
}

// botAPI is the part of tgbotapi.BotAPI the sink uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink posts messages to an admin chat.
type TelegramSink struct {
	bot    botAPI
	chatID int64
}

// NewTelegramSink connects to the Bot API.
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramSink{bot: bot, chatID: chatID}, nil
}

func (s *TelegramSink) Send(_ context.Context, msg Message) error {
	_, err := s.bot.Send(tgbotapi.NewMessage(s.chatID, msg.Text))
	return err
}

// Fanout sends to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OTPDelivery adapts a sink to deliver sign-in codes.
func OTPDelivery(s Sink) func(ctx context.Context, to, code string) error {
	return func(ctx context.Context, to, code string) error {
		return s.Send(ctx, Message{Kind: "otp", Text: fmt.Sprintf("Sign-in code for %s: %s", to, code)})
	}
}
