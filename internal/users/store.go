// Package users persists accounts and their admin approval state.
package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"task-assigner/internal/apperr"
	"task-assigner/internal/models"

	"gorm.io/gorm"
)

const (
	minPasswordLen = 6
	// bcrypt only hashes the first 72 bytes and rejects anything longer.
	maxPasswordLen = 72
)

type Store struct {
	db *gorm.DB

	// HashCost is the bcrypt cost for new passwords; zero means bcrypt.DefaultCost.
	HashCost int
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx, HashCost: s.HashCost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create registers a new user awaiting approval.
func (s *Store) Create(ctx context.Context, name, email, password string, role models.UserRole) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" || email == "" || password == "" || role == "" {
		return nil, apperr.Validation("all fields are required")
	}
	if !role.Valid() {
		return nil, apperr.Validation("invalid role")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperr.Validation("invalid email")
	}
	if len(password) < minPasswordLen {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return nil, apperr.Validation("password must be at most %d bytes", maxPasswordLen)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return nil, apperr.Internal(err, "failed to check email")
	}
	if count > 0 {
		return nil, apperr.Conflict("email already registered")
	}

	hash, err := HashPassword(password, s.HashCost)
	if err != nil {
		return nil, apperr.Internal(err, "failed to hash password")
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsApproved:   models.ApprovalPending,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.Internal(err, "failed to save user")
	}
	return &user, nil
}

func (s *Store) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user %d not found", id)
		}
		return nil, apperr.Internal(err, "failed to load user")
	}
	return &user, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err, "failed to load user")
	}
	return &user, nil
}

// Authenticate checks the password only; approval is the caller's decision.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthenticated("invalid email or password")
		}
		return nil, err
	}
	if !CheckPassword(password, user.PasswordHash) {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	return user, nil
}

func (s *Store) setApproval(ctx context.Context, id uint, status models.ApprovalStatus) (*models.User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsApproved == status {
		return user, nil
	}
	err = s.db.WithContext(ctx).Model(user).Update("is_approved", status).Error
	if err != nil {
		return nil, apperr.Internal(err, "failed to update approval")
	}
	user.IsApproved = status
	return user, nil
}

// Approve marks the user approved. Approving twice is not an error.
func (s *Store) Approve(ctx context.Context, id uint) (*models.User, error) {
	return s.setApproval(ctx, id, models.ApprovalApproved)
}

// Decline revokes or refuses approval. With per-request approval checks this
// also ends the user's existing sessions.
func (s *Store) Decline(ctx context.Context, id uint) (*models.User, error) {
	return s.setApproval(ctx, id, models.ApprovalDeclined)
}

// ListPending returns users awaiting approval, optionally for one role.
func (s *Store) ListPending(ctx context.Context, role models.UserRole) ([]models.User, error) {
	q := s.db.WithContext(ctx).Where("is_approved = ?", models.ApprovalPending)
	if role != "" {
		if !role.Valid() {
			return nil, apperr.Validation("invalid role")
		}
		q = q.Where("role = ?", role)
	}

	var users []models.User
	if err := q.Order("id asc").Find(&users).Error; err != nil {
		return nil, apperr.Internal(err, "failed to load users")
	}
	return users, nil
}

// ListManagers returns approved managers, the candidates for assignment.
func (s *Store) ListManagers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("role = ? AND is_approved = ?", models.RoleManager, models.ApprovalApproved).
		Order("name asc").
		Find(&users).Error
	if err != nil {
		return nil, apperr.Internal(err, "failed to load managers")
	}
	return users, nil
}
