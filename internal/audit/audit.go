// Package audit is the append-only journal of task transitions.
package audit

import (
	"context"

	"task-assigner/internal/apperr"
	"task-assigner/internal/models"

	"gorm.io/gorm"
)

type Log struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Log {
	return &Log{db: db}
}

// WithTx binds the log to a transaction so entries commit or roll back
// together with the task change they describe.
func (l *Log) WithTx(tx *gorm.DB) *Log {
	return &Log{db: tx}
}

func (l *Log) Append(ctx context.Context, taskID uint, action models.TaskAction, performedByID uint, message string) (*models.TaskLog, error) {
	if !action.Valid() {
		return nil, apperr.Validation("unknown audit action %q", action)
	}
	entry := models.TaskLog{
		TaskID:        taskID,
		Action:        action,
		PerformedByID: performedByID,
		Message:       message,
	}
	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, apperr.Internal(err, "failed to write audit entry")
	}
	return &entry, nil
}

// ListForTask returns the task's entries, oldest first.
func (l *Log) ListForTask(ctx context.Context, taskID uint) ([]models.TaskLog, error) {
	var logs []models.TaskLog
	err := l.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at asc, id asc").
		Find(&logs).Error
	if err != nil {
		return nil, apperr.Internal(err, "failed to load audit entries")
	}
	return logs, nil
}

// Participated reports whether userID appears as the performer of any entry
// for the task.
func (l *Log) Participated(ctx context.Context, taskID, userID uint) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&models.TaskLog{}).
		Where("task_id = ? AND performed_by_id = ?", taskID, userID).
		Count(&count).Error
	if err != nil {
		return false, apperr.Internal(err, "failed to load audit entries")
	}
	return count > 0, nil
}
