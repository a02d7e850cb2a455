package models

import "time"

// StatisticsDocID is the fixed document ID of a user's statistics
const StatisticsDocID = "summary"

// DateLayout is the calendar day format used for streak tracking
const DateLayout = "2006-01-02"

// Statistics aggregates a user's practice history and streaks
type Statistics struct {
	UserID           string    `json:"user_id" db:"user_id"`
	TotalSessions    int       `json:"total_sessions" db:"total_sessions"`
	TotalWords       int       `json:"total_words" db:"total_words"`
	CorrectWords     int       `json:"correct_words" db:"correct_words"`
	CurrentStreak    int       `json:"current_streak" db:"current_streak"`
	LongestStreak    int       `json:"longest_streak" db:"longest_streak"`
	LastPracticeDate string    `json:"last_practice_date" db:"last_practice_date"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Stamp implements Timestamped
func (s *Statistics) Stamp() time.Time {
	return s.UpdatedAt
}

// Accuracy returns the share of correctly spelled words in percent
func (s *Statistics) Accuracy() float64 {
	if s.TotalWords == 0 {
		return 0
	}
	return float64(s.CorrectWords) / float64(s.TotalWords) * 100
}
