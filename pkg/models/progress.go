package models

import (
	"sort"
	"time"
)

// Progress tracks a user's completed levels, mastered words and best level
// scores for one word list
type Progress struct {
	UserID          string      `json:"user_id"`
	Language        string      `json:"language"`
	ListID          string      `json:"list_id"`
	CompletedLevels []int       `json:"completed_levels"`
	MasteredWords   []string    `json:"mastered_words"`
	LevelScores     map[int]int `json:"level_scores"` // best score percent per level
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ProgressDocID is the document ID of the progress record for a list
func ProgressDocID(language, listID string) string {
	return language + "_" + listID
}

// DocID returns the remote document ID of the record
func (p *Progress) DocID() string {
	return ProgressDocID(p.Language, p.ListID)
}

// Stamp implements Timestamped
func (p *Progress) Stamp() time.Time {
	return p.UpdatedAt
}

// IsCompleted reports whether a level was passed at least once
func (p *Progress) IsCompleted(level int) bool {
	for _, l := range p.CompletedLevels {
		if l == level {
			return true
		}
	}
	return false
}

// MarkCompleted adds a level to the completed set keeping it sorted
func (p *Progress) MarkCompleted(level int) {
	if p.IsCompleted(level) {
		return
	}
	p.CompletedLevels = append(p.CompletedLevels, level)
	sort.Ints(p.CompletedLevels)
}

// RecordScore keeps the best score seen for a level
func (p *Progress) RecordScore(level, score int) {
	if p.LevelScores == nil {
		p.LevelScores = make(map[int]int)
	}
	if best, ok := p.LevelScores[level]; !ok || score > best {
		p.LevelScores[level] = score
	}
}

// AddMastered adds words to the mastered set keeping it sorted and unique
func (p *Progress) AddMastered(words ...string) {
	seen := make(map[string]bool, len(p.MasteredWords))
	for _, w := range p.MasteredWords {
		seen[w] = true
	}
	for _, w := range words {
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		p.MasteredWords = append(p.MasteredWords, w)
	}
	sort.Strings(p.MasteredWords)
}
