package database

import "github.com/jmoiron/sqlx"

// Repositories bundles every repository over one connection
type Repositories struct {
	WordLists     *WordListRepository
	Progress      *ProgressRepository
	Settings      *SettingsRepository
	Statistics    *StatisticsRepository
	Results       *ResultRepository
	SearchHistory *SearchHistoryRepository
	Reviews       *ReviewRepository
	Operations    *OperationRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		WordLists:     NewWordListRepository(db),
		Progress:      NewProgressRepository(db),
		Settings:      NewSettingsRepository(db),
		Statistics:    NewStatisticsRepository(db),
		Results:       NewResultRepository(db),
		SearchHistory: NewSearchHistoryRepository(db),
		Reviews:       NewReviewRepository(db),
		Operations:    NewOperationRepository(db),
	}
}
