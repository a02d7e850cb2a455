package practice

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/example/spellsync/pkg/models"
)

func TestIsUnlocked(t *testing.T) {
	assert.True(t, IsUnlocked(nil, 1))
	assert.False(t, IsUnlocked(nil, 2))
	assert.False(t, IsUnlocked(nil, 0))

	p := &models.Progress{CompletedLevels: []int{1}}
	assert.True(t, IsUnlocked(p, 2))
	assert.False(t, IsUnlocked(p, 3))
}

func TestOverview(t *testing.T) {
	list := &models.WordList{ID: "l", Language: "en"}
	for i := 0; i < 7; i++ {
		list.Words = append(list.Words, models.Word{Text: fmt.Sprintf("w%d", i)})
	}

	tests := []struct {
		name     string
		progress *models.Progress
		want     []LevelState
	}{
		{
			name: "no progress",
			want: []LevelState{
				{Level: 1, Words: 3, Status: LevelOpen},
				{Level: 2, Words: 3, Status: LevelLocked},
				{Level: 3, Words: 1, Status: LevelLocked},
			},
		},
		{
			name:     "first level completed",
			progress: &models.Progress{CompletedLevels: []int{1}, LevelScores: map[int]int{1: 90, 2: 40}},
			want: []LevelState{
				{Level: 1, Words: 3, Status: LevelCompleted, BestScore: 90, Played: true},
				{Level: 2, Words: 3, Status: LevelOpen, BestScore: 40, Played: true},
				{Level: 3, Words: 1, Status: LevelLocked},
			},
		},
		{
			name:     "all completed",
			progress: &models.Progress{CompletedLevels: []int{1, 2, 3}, LevelScores: map[int]int{1: 100, 2: 80, 3: 100}},
			want: []LevelState{
				{Level: 1, Words: 3, Status: LevelCompleted, BestScore: 100, Played: true},
				{Level: 2, Words: 3, Status: LevelCompleted, BestScore: 80, Played: true},
				{Level: 3, Words: 1, Status: LevelCompleted, BestScore: 100, Played: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overview(list, tt.progress, 3)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Overview() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
