package models

import (
	"time"
)

// SampleRecord is one persisted collection metrics sample
type SampleRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SourceKey        string    `gorm:"index:idx_samples_source_time;not null" json:"source_key"`
	Timestamp        time.Time `gorm:"index:idx_samples_source_time;not null" json:"timestamp"`
	RecordsProcessed int       `json:"records_processed"`
	RecordsChanged   int       `json:"records_changed"`
	ErrorsCount      int       `json:"errors_count"`
	ResponseTimeMS   float64   `json:"response_time_ms"`
	UrgencyScore     float64   `json:"urgency_score"`
	SystemLoad       float64   `json:"system_load"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName returns the table name for SampleRecord model
func (SampleRecord) TableName() string {
	return "metric_samples"
}
