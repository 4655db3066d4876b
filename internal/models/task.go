package models

import "time"

type TaskTag string
type TaskStatus string

const (
	TagBug     TaskTag = "bug"
	TagFeature TaskTag = "feature"
	TagSupport TaskTag = "support"

	StatusPending    TaskStatus = "pending"
	StatusAssigned   TaskStatus = "assigned"
	StatusInProgress TaskStatus = "in_progress"
	StatusDeclined   TaskStatus = "declined"
	StatusCompleted  TaskStatus = "completed"
)

func (t TaskTag) Valid() bool {
	switch t {
	case TagBug, TagFeature, TagSupport:
		return true
	}
	return false
}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusDeclined, StatusCompleted:
		return true
	}
	return false
}

// HasAssignee reports whether a task in status s must carry an assignee.
func (s TaskStatus) HasAssignee() bool {
	switch s {
	case StatusAssigned, StatusInProgress, StatusCompleted:
		return true
	case StatusPending, StatusDeclined:
		return false
	}
	return false
}

type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Tag         TaskTag    `gorm:"type:varchar(20);not null" json:"tag"`
	Status      TaskStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	CreatedByID  uint  `gorm:"not null;index" json:"createdById"`
	AssignedToID *uint `gorm:"index" json:"assignedToId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AssignedTo reports whether userID is the current assignee.
func (t *Task) AssignedTo(userID uint) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}
