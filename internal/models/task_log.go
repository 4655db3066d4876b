package models

import "time"

type TaskAction string

const (
	ActionCreated   TaskAction = "created"
	ActionUpdated   TaskAction = "updated"
	ActionAssigned  TaskAction = "assigned"
	ActionAccepted  TaskAction = "accepted"
	ActionDeclined  TaskAction = "declined"
	ActionCompleted TaskAction = "completed"
	ActionDeleted   TaskAction = "deleted"
)

func (a TaskAction) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionAssigned, ActionAccepted,
		ActionDeclined, ActionCompleted, ActionDeleted:
		return true
	}
	return false
}

// TaskLog is an append-only audit entry. Rows are never updated or removed,
// including when the task they describe is deleted.
type TaskLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	TaskID        uint       `gorm:"not null;index" json:"taskId"`
	Action        TaskAction `gorm:"type:varchar(20);not null" json:"action"`
	PerformedByID uint       `gorm:"not null" json:"performedById"`
	Message       string     `gorm:"type:text" json:"message"`
}
