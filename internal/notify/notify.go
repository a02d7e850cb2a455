// Package notify delivers streak reminders.
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNoChat is returned when a user has no chat to send reminders to
var ErrNoChat = errors.New("user has no telegram chat configured")

// Reminder asks a user to practice before the streak breaks
type Reminder struct {
	UserID   string
	ChatID   int64
	Streak   int
	DueWords int
}

// Text renders the reminder message
func (r Reminder) Text() string {
	days := "days"
	if r.Streak == 1 {
		days = "day"
	}
	msg := fmt.Sprintf("Your %d %s practice streak ends today. Spell a few words to keep it going!", r.Streak, days)
	switch {
	case r.DueWords == 1:
		msg += " 1 word is waiting for review."
	case r.DueWords > 1:
		msg += fmt.Sprintf(" %d words are waiting for review.", r.DueWords)
	}
	return msg
}

// Notifier sends reminders
type Notifier interface {
	SendReminder(ctx context.Context, r Reminder) error
}

// Log writes reminders to the log. It stands in when no bot token is set.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) SendReminder(_ context.Context, r Reminder) error {
	l.logger.Info("Streak reminder",
		zap.String("user_id", r.UserID),
		zap.Int("streak", r.Streak),
		zap.String("text", r.Text()))
	return nil
}
