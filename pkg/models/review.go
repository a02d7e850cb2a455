package models

import "time"

// WordReview is the spaced repetition state of one word for one user
type WordReview struct {
	UserID           string    `json:"user_id" db:"user_id"`
	Language         string    `json:"language" db:"language"`
	ListID           string    `json:"list_id" db:"list_id"`
	Word             string    `json:"word" db:"word"`
	EasinessFactor   float64   `json:"easiness_factor" db:"easiness_factor"`
	Interval         int       `json:"interval" db:"interval_days"` // days
	Repetitions      int       `json:"repetitions" db:"repetitions"`
	LastQuality      int       `json:"last_quality" db:"last_quality"`
	ConsecutiveRight int       `json:"consecutive_right" db:"consecutive_right"`
	LastReviewDate   time.Time `json:"last_review_date" db:"last_review_date"`
	NextReviewDate   time.Time `json:"next_review_date" db:"next_review_date"`
}
