package models

// Word is a single entry of a word list. Its position inside the list decides
// which level it belongs to.
type Word struct {
	Text       string `json:"text" db:"text"`
	Definition string `json:"definition" db:"definition"`
}
