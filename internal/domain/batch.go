package domain

import "time"

// BatchStats holds statistics about a daily generation run.
type BatchStats struct {
	Requested        int           `json:"requested"`
	Generated        int           `json:"generated"`
	Persisted        int           `json:"persisted"`
	GenerationErrors int           `json:"generation_errors"`
	PersistErrors    int           `json:"persist_errors"`
	Published        int           `json:"published"`
	Duration         time.Duration `json:"duration"`
}

type BatchResult struct {
	Articles []Article
	Stats    BatchStats
}
