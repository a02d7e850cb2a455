package models

import "time"

// SettingsDocID is the fixed document ID of a user's settings
const SettingsDocID = "current"

// Settings holds per-user practice preferences
type Settings struct {
	UserID           string    `json:"user_id" db:"user_id"`
	SelectedLanguage string    `json:"selected_language" db:"selected_language"`
	SelectedListID   string    `json:"selected_list_id" db:"selected_list_id"`
	WordsPerLevel    int       `json:"words_per_level" db:"words_per_level"`
	PassScore        int       `json:"pass_score" db:"pass_score"` // percent needed to complete a level
	SoundEnabled     bool      `json:"sound_enabled" db:"sound_enabled"`
	ReminderEnabled  bool      `json:"reminder_enabled" db:"reminder_enabled"`
	ReminderHour     int       `json:"reminder_hour" db:"reminder_hour"` // 0-23, local time
	TelegramChatID   int64     `json:"telegram_chat_id" db:"telegram_chat_id"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Stamp implements Timestamped
func (s *Settings) Stamp() time.Time {
	return s.UpdatedAt
}
