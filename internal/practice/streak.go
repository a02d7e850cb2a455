package practice

import (
	"time"

	"github.com/example/spellsync/pkg/models"
)

// RecordPractice counts a practice day for the streak. Practicing again the
// same day changes nothing, the next day extends the streak and any later
// day starts over at one.
func RecordPractice(stats *models.Statistics, day time.Time) {
	today := day.Format(models.DateLayout)
	yesterday := day.AddDate(0, 0, -1).Format(models.DateLayout)

	switch stats.LastPracticeDate {
	case today:
		if stats.CurrentStreak == 0 {
			stats.CurrentStreak = 1
		}
	case yesterday:
		stats.CurrentStreak++
	default:
		stats.CurrentStreak = 1
	}
	stats.LastPracticeDate = today
	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
}

// CurrentStreak is the streak as of day. A streak whose last practice day
// is before yesterday is already broken.
func CurrentStreak(stats *models.Statistics, day time.Time) int {
	switch stats.LastPracticeDate {
	case day.Format(models.DateLayout), day.AddDate(0, 0, -1).Format(models.DateLayout):
		return stats.CurrentStreak
	}
	return 0
}

// StreakAtRisk reports whether the streak ends unless the user practices on day
func StreakAtRisk(stats *models.Statistics, day time.Time) bool {
	return stats.CurrentStreak > 0 &&
		stats.LastPracticeDate == day.AddDate(0, 0, -1).Format(models.DateLayout)
}
