package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"LoudGate/core/gate"
	"LoudGate/db"
	"LoudGate/model"

	"gorm.io/gorm"
)

// JobRepository defines the interface for mastering-job persistence.
type JobRepository interface {
	Create(job *model.MasterJob) error
	GetByID(id string) (*model.MasterJob, error)
	ListRecent(limit int) ([]*model.MasterJob, error)
	MarkProcessing(id string) error
	Complete(id string, result *gate.Result, artifactURL string) error
	Fail(id string, errText string) error
}

// gormJobRepository implements JobRepository on the GORM connection.
type gormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository creates a JobRepository backed by the global GORM DB.
func NewGormJobRepository() JobRepository {
	return &gormJobRepository{db: db.GormDB}
}

func (r *gormJobRepository) Create(job *model.MasterJob) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create master job: %w", err)
	}
	return nil
}

func (r *gormJobRepository) GetByID(id string) (*model.MasterJob, error) {
	var job model.MasterJob
	err := r.db.First(&job, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // job not found
		}
		return nil, fmt.Errorf("failed to query master job %s: %w", id, err)
	}
	return &job, nil
}

func (r *gormJobRepository) ListRecent(limit int) ([]*model.MasterJob, error) {
	if limit <= 0 {
		limit = 50
	}
	jobs := make([]*model.MasterJob, 0, limit)
	err := r.db.Order("created_at DESC").Limit(limit).Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list master jobs: %w", err)
	}
	return jobs, nil
}

func (r *gormJobRepository) MarkProcessing(id string) error {
	err := r.db.Model(&model.MasterJob{}).
		Where("id = ?", id).
		Update("status", model.JobProcessing).Error
	if err != nil {
		return fmt.Errorf("failed to mark job %s processing: %w", id, err)
	}
	return nil
}

// Complete records the gate outcome on the job, including the serialized
// attempt trail.
func (r *gormJobRepository) Complete(id string, result *gate.Result, artifactURL string) error {
	attemptLog, err := json.Marshal(result.Attempts)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt log: %w", err)
	}

	err = r.db.Model(&model.MasterJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          model.JobCompleted,
			"gain_db":         result.GainDb,
			"passes":          result.Passes,
			"attempt_count":   len(result.Attempts),
			"attempt_log":     string(attemptLog),
			"integrated_lufs": result.Metrics.IntegratedLufs,
			"true_peak_db":    result.Metrics.TruePeakDb,
			"artifact_url":    artifactURL,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	return nil
}

func (r *gormJobRepository) Fail(id string, errText string) error {
	err := r.db.Model(&model.MasterJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.JobFailed,
			"error_text": errText,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", id, err)
	}
	return nil
}
