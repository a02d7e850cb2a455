package models

import "time"

// SearchHistoryEntry is a query the user typed into word search
type SearchHistoryEntry struct {
	UserID     string    `json:"user_id" db:"user_id"`
	Query      string    `json:"query" db:"query"`
	SearchedAt time.Time `json:"searched_at" db:"searched_at"`
}
