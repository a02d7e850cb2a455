// Package spaced_repetition schedules word reviews with SuperMemo-2, adapted
// to spelling answers.
package spaced_repetition

import (
	"sort"
	"time"

	"github.com/example/spellsync/pkg/models"
)

// DefaultEasiness is the easiness factor of a word never reviewed
const DefaultEasiness = 2.5

const minEasiness = 1.3

// SM2 implements the SuperMemo-2 algorithm for spaced repetition
type SM2 struct {
	// Answers of this quality and above count as correct
	PassThreshold int
	// Longest interval in days
	MaxInterval int
	// Intervals for the first correct repetitions, in days
	InitialIntervals []int
	// Consecutive correct reviews after which a word is mastered
	MasteryStreak int
}

// NewSM2 returns the default scheduler
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold:    int(QualityCorrectDifficult),
		MaxInterval:      365,
		InitialIntervals: []int{1, 3, 7},
		MasteryStreak:    3,
	}
}

// QualityResponse represents the quality of response in SM-2
type QualityResponse int

const (
	// Misspelled
	QualityIncorrect QualityResponse = 1
	// Spelled correctly after at least one miss
	QualityCorrectDifficult QualityResponse = 3
	// Spelled correctly on the first try
	QualityPerfect QualityResponse = 5
)

// QualityFor grades a spelling answer
func QualityFor(correct, firstTry bool) QualityResponse {
	switch {
	case !correct:
		return QualityIncorrect
	case firstTry:
		return QualityPerfect
	default:
		return QualityCorrectDifficult
	}
}

// NewReview returns the review record of a word that was never practiced
func NewReview(userID, language, listID, word string) models.WordReview {
	return models.WordReview{
		UserID:         userID,
		Language:       language,
		ListID:         listID,
		Word:           word,
		EasinessFactor: DefaultEasiness,
	}
}

// Process updates a review after an answer given at now
func (sm *SM2) Process(review *models.WordReview, quality QualityResponse, now time.Time) {
	review.LastReviewDate = now
	review.LastQuality = int(quality)

	if review.EasinessFactor == 0 {
		review.EasinessFactor = DefaultEasiness
	}
	q := float64(quality)
	ef := review.EasinessFactor + (0.1 - (5.0-q)*(0.08+(5.0-q)*0.02))
	if ef < minEasiness {
		ef = minEasiness
	}
	review.EasinessFactor = ef

	if int(quality) >= sm.PassThreshold {
		review.ConsecutiveRight++

		var next int
		if review.Repetitions < len(sm.InitialIntervals) {
			next = sm.InitialIntervals[review.Repetitions]
		} else {
			next = int(float64(review.Interval) * ef)
		}
		if next > sm.MaxInterval {
			next = sm.MaxInterval
		}
		if next < 1 {
			next = 1
		}
		review.Interval = next
		review.Repetitions++
	} else {
		// repetitions are kept for statistics
		review.ConsecutiveRight = 0
		review.Interval = 1
	}

	review.NextReviewDate = now.AddDate(0, 0, review.Interval)
}

// IsMastered reports whether a word needs no more practice
func (sm *SM2) IsMastered(review *models.WordReview) bool {
	return review.ConsecutiveRight >= sm.MasteryStreak
}

// NextDue returns up to limit reviews due at now. Words never reviewed come
// first, then the hardest words, then the most overdue ones.
func (sm *SM2) NextDue(reviews []models.WordReview, now time.Time, limit int) []models.WordReview {
	var due []models.WordReview
	for _, r := range reviews {
		if r.LastReviewDate.IsZero() || !r.NextReviewDate.After(now) {
			due = append(due, r)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		ni, nj := due[i].LastReviewDate.IsZero(), due[j].LastReviewDate.IsZero()
		if ni != nj {
			return ni
		}
		if due[i].EasinessFactor != due[j].EasinessFactor {
			return due[i].EasinessFactor < due[j].EasinessFactor
		}
		return due[i].NextReviewDate.Before(due[j].NextReviewDate)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}
