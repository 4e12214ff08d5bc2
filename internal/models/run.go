package models

import (
	"time"
)

// JobRunRecord is one persisted collection run
type JobRunRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RunID      string    `gorm:"uniqueIndex;not null" json:"run_id"` // UUID
	SourceKey  string    `gorm:"index;not null" json:"source_key"`
	Outcome    string    `json:"outcome"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	ErrorMsg   string    `json:"error_msg"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the table name for JobRunRecord model
func (JobRunRecord) TableName() string {
	return "job_runs"
}
