// Package tasks implements the task lifecycle: who may move a task between
// statuses, and the storage that backs it.
//
// Every mutation runs in one database transaction that loads the task, checks
// the caller against the current status, writes the new state with a
// compare-and-set on the old status, and appends the audit entry. Either all
// of it commits or none of it does.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"task-assigner/internal/apperr"
	"task-assigner/internal/audit"
	"task-assigner/internal/auth"
	"task-assigner/internal/models"
	"task-assigner/internal/tracing"
	"task-assigner/internal/users"

	"gorm.io/gorm"
)

const maxTitleLen = 200

type Engine struct {
	db     *gorm.DB
	tasks  *Repository
	audit  *audit.Log
	users  *users.Store
	policy Policy
	log    *slog.Logger
	now    func() time.Time
}

func NewEngine(db *gorm.DB, store *users.Store, auditLog *audit.Log, policy Policy, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if policy.UpdateAction == "" {
		policy.UpdateAction = models.ActionUpdated
	}
	return &Engine{
		db:     db,
		tasks:  NewRepository(db),
		audit:  auditLog,
		users:  store,
		policy: policy,
		log:    log,
		now:    time.Now,
	}
}

func (e *Engine) Tasks() *Repository { return e.tasks }

type CreateInput struct {
	Title       string
	Description string
	Tag         models.TaskTag
}

// UpdateInput carries the editable fields; nil means unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	Tag         *models.TaskTag
}

func validateTitle(title string) error {
	if utf8.RuneCountInString(title) > maxTitleLen {
		return apperr.Validation("title must be at most %d characters", maxTitleLen)
	}
	return nil
}

func (e *Engine) Create(ctx context.Context, actor auth.Identity, in CreateInput) (task *models.Task, err error) {
	ctx, span := e.startSpan(ctx, models.ActionCreated, actor, 0)
	defer func() { tracing.EndSpan(span, err) }()

	if err := e.policy.authorize(models.ActionCreated, actor, nil); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.Description == "" || in.Tag == "" {
		return nil, apperr.Validation("title, description and tag are required")
	}
	if !in.Tag.Valid() {
		return nil, apperr.Validation("invalid tag %q", in.Tag)
	}
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}

	task = &models.Task{
		Title:       in.Title,
		Description: in.Description,
		Tag:         in.Tag,
		Status:      models.StatusPending,
		CreatedByID: actor.UserID,
	}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.tasks.WithTx(tx).insert(ctx, task); err != nil {
			return err
		}
		_, err := e.audit.WithTx(tx).Append(ctx, task.ID, models.ActionCreated, actor.UserID,
			fmt.Sprintf("task created by user %d", actor.UserID))
		return err
	})
	if err != nil {
		return nil, e.fail(models.ActionCreated, actor, 0, err)
	}
	e.log.Info("task transition", "action", models.ActionCreated, "task_id", task.ID, "actor_id", actor.UserID)
	return task, nil
}

func (e *Engine) Update(ctx context.Context, actor auth.Identity, id uint, in UpdateInput) (*models.Task, error) {
	return e.transition(ctx, actor, id, models.ActionUpdated, func(_ *gorm.DB, task *models.Task) (change, error) {
		updates := map[string]any{}
		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return change{}, apperr.Validation("title cannot be empty")
			}
			if err := validateTitle(title); err != nil {
				return change{}, err
			}
			updates["title"] = title
		}
		if in.Description != nil {
			desc := strings.TrimSpace(*in.Description)
			if desc == "" {
				return change{}, apperr.Validation("description cannot be empty")
			}
			updates["description"] = desc
		}
		if in.Tag != nil {
			if !in.Tag.Valid() {
				return change{}, apperr.Validation("invalid tag %q", *in.Tag)
			}
			updates["tag"] = *in.Tag
		}
		if len(updates) == 0 {
			return change{}, apperr.Validation("nothing to update")
		}
		return change{updates: updates, message: fmt.Sprintf("task updated by user %d", actor.UserID)}, nil
	})
}

func (e *Engine) Delete(ctx context.Context, actor auth.Identity, id uint) error {
	_, err := e.transition(ctx, actor, id, models.ActionDeleted, func(_ *gorm.DB, task *models.Task) (change, error) {
		return change{message: fmt.Sprintf("task %q deleted by user %d", task.Title, actor.UserID)}, nil
	})
	return err
}

func (e *Engine) Assign(ctx context.Context, actor auth.Identity, id, managerID uint) (*models.Task, error) {
	if managerID == 0 {
		return nil, apperr.Validation("managerId is required")
	}
	return e.transition(ctx, actor, id, models.ActionAssigned, func(tx *gorm.DB, task *models.Task) (change, error) {
		manager, err := e.users.WithTx(tx).FindByID(ctx, managerID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return change{}, apperr.Validation("managerId must reference an approved manager")
			}
			return change{}, err
		}
		if manager.Role != models.RoleManager || !manager.Approved() {
			return change{}, apperr.Validation("managerId must reference an approved manager")
		}
		return change{
			updates: map[string]any{"assigned_to_id": manager.ID},
			message: fmt.Sprintf("task assigned to manager %d by admin %d", manager.ID, actor.UserID),
		}, nil
	})
}

func (e *Engine) Accept(ctx context.Context, actor auth.Identity, id uint) (*models.Task, error) {
	return e.transition(ctx, actor, id, models.ActionAccepted, func(*gorm.DB, *models.Task) (change, error) {
		return change{updates: map[string]any{}, message: fmt.Sprintf("task accepted by manager %d", actor.UserID)}, nil
	})
}

func (e *Engine) Decline(ctx context.Context, actor auth.Identity, id uint) (*models.Task, error) {
	return e.transition(ctx, actor, id, models.ActionDeclined, func(*gorm.DB, *models.Task) (change, error) {
		return change{
			updates: map[string]any{"assigned_to_id": nil},
			message: fmt.Sprintf("task declined by manager %d", actor.UserID),
		}, nil
	})
}

func (e *Engine) Complete(ctx context.Context, actor auth.Identity, id uint) (*models.Task, error) {
	return e.transition(ctx, actor, id, models.ActionCompleted, func(*gorm.DB, *models.Task) (change, error) {
		return change{updates: map[string]any{}, message: fmt.Sprintf("task completed by manager %d", actor.UserID)}, nil
	})
}

// Logs returns the audit trail of a task. Unless the policy opens logs to
// everyone, only admins and the task's participants may read it. The trail
// of a deleted task stays readable.
func (e *Engine) Logs(ctx context.Context, actor auth.Identity, id uint) ([]models.TaskLog, error) {
	task, err := e.tasks.Get(ctx, id)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		return e.deletedLogs(ctx, actor, id, err)
	}
	if !e.policy.OpenLogs && !actor.Is(models.RoleAdmin) &&
		task.CreatedByID != actor.UserID && !task.AssignedTo(actor.UserID) {
		ok, err := e.audit.Participated(ctx, id, actor.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Forbidden("you are not a participant of this task")
		}
	}
	return e.audit.ListForTask(ctx, id)
}

// deletedLogs serves the trail of a task that no longer exists. A task that
// never existed has no entries and stays notFound.
func (e *Engine) deletedLogs(ctx context.Context, actor auth.Identity, id uint, notFound error) ([]models.TaskLog, error) {
	logs, err := e.audit.ListForTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, notFound
	}
	if e.policy.OpenLogs || actor.Is(models.RoleAdmin) {
		return logs, nil
	}
	for _, l := range logs {
		if l.PerformedByID == actor.UserID {
			return logs, nil
		}
	}
	return nil, apperr.Forbidden("you are not a participant of this task")
}

// change is what a transition writes. A nil updates map deletes the task.
type change struct {
	updates map[string]any
	message string
}

func (e *Engine) transition(ctx context.Context, actor auth.Identity, id uint, action models.TaskAction,
	plan func(tx *gorm.DB, task *models.Task) (change, error)) (result *models.Task, err error) {

	ctx, span := e.startSpan(ctx, action, actor, id)
	defer func() { tracing.EndSpan(span, err) }()

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := e.tasks.WithTx(tx)

		current, err := repo.lock(ctx, id)
		if err != nil {
			return err
		}
		if err := e.policy.authorize(action, actor, current); err != nil {
			return err
		}
		ch, err := plan(tx, current)
		if err != nil {
			return err
		}

		if ch.updates == nil {
			if err := repo.deleteIf(ctx, id, current.Status); err != nil {
				return err
			}
			result = current
		} else {
			ch.updates["status"] = next(action, current.Status)
			ch.updates["updated_at"] = e.now()
			if err := repo.updateIf(ctx, id, current.Status, ch.updates); err != nil {
				return err
			}
			if result, err = repo.Get(ctx, id); err != nil {
				return err
			}
		}

		logAction := action
		if action == models.ActionUpdated {
			logAction = e.policy.UpdateAction
		}
		_, err = e.audit.WithTx(tx).Append(ctx, id, logAction, actor.UserID, ch.message)
		return err
	})
	if err != nil {
		return nil, e.fail(action, actor, id, err)
	}

	e.log.Info("task transition", "action", action, "task_id", id, "actor_id", actor.UserID, "status", result.Status)
	return result, nil
}

// fail turns err into an *apperr.Error and logs unexpected failures.
func (e *Engine) fail(action models.TaskAction, actor auth.Identity, id uint, err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal(err, "failed to save task")
	}
	if appErr.Kind == apperr.KindInternal {
		e.log.Error("task transition failed", "action", action, "task_id", id, "actor_id", actor.UserID, "error", err)
	}
	return appErr
}

func (e *Engine) startSpan(ctx context.Context, action models.TaskAction, actor auth.Identity, id uint) (context.Context, *tracing.Span) {
	return tracing.StartSpan(ctx, "task."+string(action), map[string]string{
		"task.id":    strconv.FormatUint(uint64(id), 10),
		"actor.id":   strconv.FormatUint(uint64(actor.UserID), 10),
		"actor.role": string(actor.Role),
	})
}
