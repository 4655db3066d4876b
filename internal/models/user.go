package models

import "time"

type UserRole string

const (
	RoleEmployee UserRole = "employee"
	RoleManager  UserRole = "manager"
	RoleAdmin    UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// ApprovalStatus is stored as a small integer, matching the is_approved column.
type ApprovalStatus int

const (
	ApprovalPending  ApprovalStatus = 0
	ApprovalApproved ApprovalStatus = 1
	ApprovalDeclined ApprovalStatus = 2
)

func (a ApprovalStatus) String() string {
	switch a {
	case ApprovalPending:
		return "pending"
	case ApprovalApproved:
		return "approved"
	case ApprovalDeclined:
		return "declined"
	}
	return "unknown"
}

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Role         UserRole       `gorm:"type:varchar(20);not null;index" json:"role"`
	IsApproved   ApprovalStatus `gorm:"not null;default:0" json:"isApproved"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (u *User) Approved() bool {
	return u.IsApproved == ApprovalApproved
}
