package models

import "time"

// SessionResult records the outcome of one finished practice session
type SessionResult struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Language    string        `json:"language"`
	ListID      string        `json:"list_id"`
	Level       int           `json:"level"` // 0 for review sessions
	TotalWords  int           `json:"total_words"`
	Correct     int           `json:"correct"`
	Score       int           `json:"score"` // percent
	Misspelled  []string      `json:"misspelled"`
	Duration    time.Duration `json:"duration"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Stamp implements Timestamped
func (r *SessionResult) Stamp() time.Time {
	return r.CompletedAt
}
