package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOperationKind(t *testing.T) {
	assert.True(t, OpSettings.Coalesces())
	assert.True(t, OpProgress.Coalesces())
	assert.True(t, OpStatistics.Coalesces())
	assert.False(t, OpResults.Coalesces())

	assert.True(t, OpResults.Valid())
	assert.False(t, OperationKind("words").Valid())
}

func TestNormalizeStamp(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	in := time.Date(2024, 5, 10, 12, 30, 0, 123456789, loc)

	got := NormalizeStamp(in)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 123000000, got.Nanosecond())
	assert.True(t, got.Equal(in.Truncate(time.Millisecond)))
	assert.Equal(t, got, NormalizeStamp(got))
}

func TestProgress(t *testing.T) {
	p := &Progress{Language: "en", ListID: "animals"}
	assert.Equal(t, "en_animals", p.DocID())

	p.MarkCompleted(3)
	p.MarkCompleted(1)
	p.MarkCompleted(3)
	assert.Equal(t, []int{1, 3}, p.CompletedLevels)
	assert.True(t, p.IsCompleted(1))
	assert.False(t, p.IsCompleted(2))

	p.RecordScore(1, 70)
	p.RecordScore(1, 60)
	p.RecordScore(1, 90)
	assert.Equal(t, 90, p.LevelScores[1])

	p.AddMastered("owl", "cat", "", "owl")
	p.AddMastered("bee")
	assert.Equal(t, []string{"bee", "cat", "owl"}, p.MasteredWords)
}

func TestStatisticsAccuracy(t *testing.T) {
	assert.Zero(t, (&Statistics{}).Accuracy())
	assert.InDelta(t, 75.0, (&Statistics{TotalWords: 8, CorrectWords: 6}).Accuracy(), 0.001)
}
