// Package journal keeps a local sqlite record of import runs and of every item
// they wrote to the note store.
package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/notestation-importer/internal/entities"
)

const defaultRecentRuns = 20

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("import run not found")

type Journal struct {
	db *gorm.DB
}

// Open opens (creating if needed) the journal database at path. ":memory:" gives a
// throwaway journal.
func Open(path string) (*Journal, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty in-memory database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&entities.ImportRun{}, &entities.ImportEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// StartRun records the beginning of an import.
func (j *Journal) StartRun(archive, insertionPoint string) (*entities.ImportRun, error) {
	run := &entities.ImportRun{
		ID:             uuid.NewString(),
		Archive:        archive,
		InsertionPoint: insertionPoint,
		Status:         entities.RunStatusRunning,
		StartedAt:      time.Now(),
	}
	if err := j.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("record run start: %w", err)
	}
	return run, nil
}

// RecordEvent saves an event of a run.
func (j *Journal) RecordEvent(event *entities.ImportEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return j.db.Create(event).Error
}

// CompleteRun stores the final status and counters of a run. runErr is recorded
// when not nil.
func (j *Journal) CompleteRun(runID string, status entities.RunStatus, counters entities.RunCounters, runErr error) error {
	now := time.Now()
	updates := map[string]any{
		"status":             status,
		"completed_at":       &now,
		"notebooks":          counters.Notebooks,
		"sections":           counters.Sections,
		"notes":              counters.Notes,
		"tags_linked":        counters.TagsLinked,
		"tags_skipped":       counters.TagsSkipped,
		"resources_uploaded": counters.ResourcesUploaded,
		"resources_reused":   counters.ResourcesReused,
		"warnings":           counters.Warnings,
	}
	if runErr != nil {
		updates["error"] = runErr.Error()
	}

	result := j.db.Model(&entities.ImportRun{}).Where("id = ?", runID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("record run completion: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// Run returns a single run.
func (j *Journal) Run(runID string) (*entities.ImportRun, error) {
	var run entities.ImportRun
	err := j.db.Where("id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RecentRuns returns the most recently started runs first.
func (j *Journal) RecentRuns(limit int) ([]entities.ImportRun, error) {
	if limit <= 0 {
		limit = defaultRecentRuns
	}
	var runs []entities.ImportRun
	err := j.db.Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// Events returns the events of a run in the order they were recorded.
func (j *Journal) Events(runID string) ([]entities.ImportEvent, error) {
	var events []entities.ImportEvent
	err := j.db.Where("run_id = ?", runID).Order("id ASC").Find(&events).Error
	return events, err
}

// EventCounts returns the number of events of a run per kind.
func (j *Journal) EventCounts(runID string) (map[entities.EventKind]int, error) {
	var rows []struct {
		Kind  entities.EventKind
		Count int
	}
	err := j.db.Model(&entities.ImportEvent{}).
		Select("kind, COUNT(*) AS count").
		Where("run_id = ?", runID).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[entities.EventKind]int, len(rows))
	for _, row := range rows {
		counts[row.Kind] = row.Count
	}
	return counts, nil
}
