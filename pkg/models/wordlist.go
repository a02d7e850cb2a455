package models

import "time"

// ListSource tells where a word list came from
type ListSource string

const (
	// SourceBundled marks lists shipped with the application
	SourceBundled ListSource = "bundled"
	// SourceUser marks lists created or imported by a user
	SourceUser ListSource = "user"
)

// WordList is a named collection of words for one language
type WordList struct {
	ID        string     `json:"id" db:"id"`
	Language  string     `json:"language" db:"language"`
	Name      string     `json:"name" db:"name"`
	Source    ListSource `json:"source" db:"source"`
	OwnerID   string     `json:"owner_id" db:"owner_id"`
	Words     []Word     `json:"words" db:"-"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}
