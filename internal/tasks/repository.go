package tasks

import (
	"context"
	"errors"

	"task-assigner/internal/apperr"
	"task-assigner/internal/database"
	"task-assigner/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository stores tasks. Status changes go through updateIf so that a
// concurrent transition on the same row is detected instead of overwritten.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Get(ctx context.Context, id uint) (*models.Task, error) {
	return r.first(r.db.WithContext(ctx), id)
}

// lock loads the task and, where the dialect supports it, holds a row lock
// until the surrounding transaction ends.
func (r *Repository) lock(ctx context.Context, id uint) (*models.Task, error) {
	q := r.db.WithContext(ctx)
	if database.SupportsRowLocks(r.db) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.first(q, id)
}

func (r *Repository) first(q *gorm.DB, id uint) (*models.Task, error) {
	var task models.Task
	if err := q.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("task %d not found", id)
		}
		return nil, apperr.Internal(err, "failed to load task")
	}
	return &task, nil
}

func (r *Repository) insert(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return apperr.Internal(err, "failed to save task")
	}
	return nil
}

// updateIf applies updates only while the task still has status from.
func (r *Repository) updateIf(ctx context.Context, id uint, from models.TaskStatus, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return apperr.Internal(res.Error, "failed to update task")
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("task %d was modified concurrently", id)
	}
	return nil
}

func (r *Repository) deleteIf(ctx context.Context, id uint, from models.TaskStatus) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, from).
		Delete(&models.Task{})
	if res.Error != nil {
		return apperr.Internal(res.Error, "failed to delete task")
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("task %d was modified concurrently", id)
	}
	return nil
}

// Filter narrows List. Zero fields are ignored.
type Filter struct {
	CreatedByID  uint
	AssignedToID uint
	Status       models.TaskStatus
}

func (r *Repository) List(ctx context.Context, f Filter) ([]models.Task, error) {
	q := r.db.WithContext(ctx).Order("created_at desc, id desc")

	if f.CreatedByID != 0 {
		q = q.Where("created_by_id = ?", f.CreatedByID)
	}
	if f.AssignedToID != 0 {
		q = q.Where("assigned_to_id = ?", f.AssignedToID)
	}
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, apperr.Validation("invalid status %q", f.Status)
		}
		q = q.Where("status = ?", f.Status)
	}

	var tasks []models.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, apperr.Internal(err, "failed to load tasks")
	}
	return tasks, nil
}
