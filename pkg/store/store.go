package store

import (
	"encoding/json"
	"fmt"
	"time"

	"casewatch/internal/models"
	"casewatch/pkg/config"
	"casewatch/pkg/dispatcher"
	"casewatch/pkg/logger"
	"casewatch/pkg/metrics"
	"casewatch/pkg/scheduler"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store persists samples, schedules, and run records to SQLite so
// state survives restarts. All scheduling decisions still happen
// against the in-memory tables; this layer is write-through only.
type Store struct {
	db *gorm.DB
}

// Open opens the database and migrates the schema. An empty path
// disables persistence and returns a nil store, which every method
// tolerates.
func Open(cfg *config.DatabaseConfig) (*Store, error) {
	if cfg == nil || cfg.Path == "" {
		logger.Info("Persistence disabled, running in-memory only")
		return nil, nil
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Path, err)
	}

	if err := db.AutoMigrate(
		&models.SampleRecord{},
		&models.ScheduleRecord{},
		&models.JobRunRecord{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.Info("Persistence enabled", zap.String("path", cfg.Path))
	return &Store{db: db}, nil
}

// SaveSample persists one metrics sample
func (s *Store) SaveSample(sample metrics.Sample) error {
	if s == nil {
		return nil
	}

	record := models.SampleRecord{
		SourceKey:        sample.SourceKey,
		Timestamp:        sample.Timestamp,
		RecordsProcessed: sample.RecordsProcessed,
		RecordsChanged:   sample.RecordsChanged,
		ErrorsCount:      sample.ErrorsCount,
		ResponseTimeMS:   sample.ResponseTimeMS,
		UrgencyScore:     sample.UrgencyScore,
		SystemLoad:       sample.SystemLoad,
	}
	return s.db.Create(&record).Error
}

// LoadSamples returns all persisted samples inside the window,
// oldest first, ready for a metrics store restore
func (s *Store) LoadSamples(windowHours int) ([]metrics.Sample, error) {
	if s == nil {
		return nil, nil
	}

	cutoff := time.Now().Add(-time.Duration(windowHours) * time.Hour)

	var records []models.SampleRecord
	if err := s.db.Where("timestamp >= ?", cutoff).
		Order("timestamp asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load samples: %w", err)
	}

	samples := make([]metrics.Sample, 0, len(records))
	for _, r := range records {
		samples = append(samples, metrics.Sample{
			SourceKey:        r.SourceKey,
			Timestamp:        r.Timestamp,
			RecordsProcessed: r.RecordsProcessed,
			RecordsChanged:   r.RecordsChanged,
			ErrorsCount:      r.ErrorsCount,
			ResponseTimeMS:   r.ResponseTimeMS,
			UrgencyScore:     r.UrgencyScore,
			SystemLoad:       r.SystemLoad,
		})
	}
	return samples, nil
}

// PruneSamples deletes persisted samples older than the window
func (s *Store) PruneSamples(windowHours int) error {
	if s == nil {
		return nil
	}

	cutoff := time.Now().Add(-time.Duration(windowHours) * time.Hour)
	return s.db.Where("timestamp < ?", cutoff).
		Delete(&models.SampleRecord{}).Error
}

// SaveSchedules upserts the full schedule table
func (s *Store) SaveSchedules(entries []scheduler.ScheduleEntry) error {
	if s == nil {
		return nil
	}

	for _, entry := range entries {
		factors, err := json.Marshal(entry.Factors)
		if err != nil {
			return fmt.Errorf("failed to encode factors for %s: %w", entry.SourceKey, err)
		}

		record := models.ScheduleRecord{
			SourceKey:       entry.SourceKey,
			SourceName:      entry.SourceName,
			Level:           string(entry.Level),
			IntervalMinutes: entry.IntervalMinutes,
			Reason:          entry.Reason,
			Factors:         datatypes.JSON(factors),
		}
		if !entry.LastRunAt.IsZero() {
			t := entry.LastRunAt
			record.LastRunAt = &t
		}
		if !entry.NextRunAt.IsZero() {
			t := entry.NextRunAt
			record.NextRunAt = &t
		}

		err = s.db.Where(models.ScheduleRecord{SourceKey: entry.SourceKey}).
			Assign(record).
			FirstOrCreate(&models.ScheduleRecord{}).Error
		if err != nil {
			return fmt.Errorf("failed to save schedule for %s: %w", entry.SourceKey, err)
		}
	}
	return nil
}

// LoadSchedules returns the persisted schedule table
func (s *Store) LoadSchedules() ([]scheduler.ScheduleEntry, error) {
	if s == nil {
		return nil, nil
	}

	var records []models.ScheduleRecord
	if err := s.db.Order("source_key asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}

	entries := make([]scheduler.ScheduleEntry, 0, len(records))
	for _, r := range records {
		entry := scheduler.ScheduleEntry{
			SourceKey:       r.SourceKey,
			SourceName:      r.SourceName,
			Level:           scheduler.FrequencyLevel(r.Level),
			IntervalMinutes: r.IntervalMinutes,
			Reason:          r.Reason,
		}
		if len(r.Factors) > 0 {
			if err := json.Unmarshal(r.Factors, &entry.Factors); err != nil {
				logger.Warn("Skipping corrupt adaptive factors",
					zap.String("source_key", r.SourceKey), zap.Error(err))
			}
		}
		if r.LastRunAt != nil {
			entry.LastRunAt = *r.LastRunAt
		}
		if r.NextRunAt != nil {
			entry.NextRunAt = *r.NextRunAt
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SaveRun persists one collection run record
func (s *Store) SaveRun(run dispatcher.JobRun) error {
	if s == nil {
		return nil
	}

	record := models.JobRunRecord{
		RunID:      run.ID,
		SourceKey:  run.SourceKey,
		Outcome:    string(run.Outcome),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		ErrorMsg:   run.Error,
	}
	return s.db.Create(&record).Error
}
