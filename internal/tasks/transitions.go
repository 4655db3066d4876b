package tasks

import (
	"task-assigner/internal/apperr"
	"task-assigner/internal/auth"
	"task-assigner/internal/models"
)

// Policy holds the lifecycle choices that differ between deployments.
type Policy struct {
	// UpdateAction labels the audit entry written for an update. Legacy
	// deployments recorded ActionCreated.
	UpdateAction models.TaskAction
	// CompleteFromAssigned lets the assignee complete a task without
	// accepting it first.
	CompleteFromAssigned bool
	// OpenLogs lets any authenticated user read any task's audit entries.
	OpenLogs bool
}

func DefaultPolicy() Policy {
	return Policy{UpdateAction: models.ActionUpdated}
}

// authorize checks role, ownership and current status for action. task is nil
// for ActionCreated. Anything not explicitly allowed is denied.
func (p Policy) authorize(action models.TaskAction, actor auth.Identity, task *models.Task) error {
	switch action {
	case models.ActionCreated:
		if !actor.Is(models.RoleEmployee) {
			return apperr.Forbidden("only employees can create tasks")
		}
		return nil

	case models.ActionUpdated, models.ActionDeleted:
		if !actor.Is(models.RoleEmployee) || task.CreatedByID != actor.UserID {
			return apperr.Forbidden("only the creator can change this task")
		}
		return requireStatus(task, models.StatusPending)

	case models.ActionAssigned:
		if !actor.Is(models.RoleAdmin) {
			return apperr.Forbidden("only admins can assign tasks")
		}
		return requireStatus(task, models.StatusPending)

	case models.ActionAccepted, models.ActionDeclined:
		if err := requireAssignee(actor, task); err != nil {
			return err
		}
		return requireStatus(task, models.StatusAssigned)

	case models.ActionCompleted:
		if err := requireAssignee(actor, task); err != nil {
			return err
		}
		if p.CompleteFromAssigned {
			return requireStatus(task, models.StatusInProgress, models.StatusAssigned)
		}
		return requireStatus(task, models.StatusInProgress)
	}
	return apperr.Forbidden("action %q is not permitted", action)
}

// next returns the status a task moves to. Delete has no successor.
func next(action models.TaskAction, current models.TaskStatus) models.TaskStatus {
	switch action {
	case models.ActionCreated, models.ActionUpdated:
		return models.StatusPending
	case models.ActionAssigned:
		return models.StatusAssigned
	case models.ActionAccepted:
		return models.StatusInProgress
	case models.ActionDeclined:
		return models.StatusDeclined
	case models.ActionCompleted:
		return models.StatusCompleted
	case models.ActionDeleted:
		return ""
	}
	return current
}

func requireAssignee(actor auth.Identity, task *models.Task) error {
	if !actor.Is(models.RoleManager) || !task.AssignedTo(actor.UserID) {
		return apperr.Forbidden("only the assigned manager can do this")
	}
	return nil
}

func requireStatus(task *models.Task, allowed ...models.TaskStatus) error {
	for _, s := range allowed {
		if task.Status == s {
			return nil
		}
	}
	return apperr.Forbidden("task is %s", task.Status)
}
