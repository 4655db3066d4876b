package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatusHasAssignee(t *testing.T) {
	cases := map[TaskStatus]bool{
		StatusPending:    false,
		StatusAssigned:   true,
		StatusInProgress: true,
		StatusDeclined:   false,
		StatusCompleted:  true,
		"archived":       false,
	}
	for status, want := range cases {
		assert.Equal(t, want, status.HasAssignee(), string(status))
	}
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, TagBug.Valid())
	assert.True(t, TagSupport.Valid())
	assert.False(t, TaskTag("chore").Valid())
	assert.False(t, TaskTag("").Valid())

	assert.True(t, StatusInProgress.Valid())
	assert.False(t, TaskStatus("done").Valid())

	assert.True(t, RoleManager.Valid())
	assert.False(t, UserRole("viewer").Valid())

	assert.True(t, ActionDeleted.Valid())
	assert.False(t, TaskAction("reopened").Valid())
}

func TestTaskAssignedTo(t *testing.T) {
	task := Task{}
	assert.False(t, task.AssignedTo(0))

	id := uint(7)
	task.AssignedToID = &id
	assert.True(t, task.AssignedTo(7))
	assert.False(t, task.AssignedTo(8))
}

func TestApprovalStatusString(t *testing.T) {
	assert.Equal(t, "pending", ApprovalPending.String())
	assert.Equal(t, "approved", ApprovalApproved.String())
	assert.Equal(t, "declined", ApprovalDeclined.String())
	assert.Equal(t, "unknown", ApprovalStatus(9).String())
}
