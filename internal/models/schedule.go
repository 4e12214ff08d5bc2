package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScheduleRecord is the persisted schedule entry for one source
type ScheduleRecord struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	SourceKey       string         `gorm:"uniqueIndex;not null" json:"source_key"`
	SourceName      string         `json:"source_name"`
	Level           string         `gorm:"not null" json:"frequency_level"`
	IntervalMinutes int            `json:"interval_minutes"`
	Reason          string         `json:"reason"`
	Factors         datatypes.JSON `json:"adaptive_factors"`
	LastRunAt       *time.Time     `json:"last_run_at"`
	NextRunAt       *time.Time     `json:"next_run_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TableName returns the table name for ScheduleRecord model
func (ScheduleRecord) TableName() string {
	return "schedules"
}
