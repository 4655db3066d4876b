package users

import (
	"context"
	"log/slog"

	"task-assigner/internal/apperr"
	"task-assigner/internal/models"
)

// EnsureAdmin creates an approved admin when the database has none. Admins
// are never created through signup.
func (s *Store) EnsureAdmin(ctx context.Context, log *slog.Logger, name, email, password string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		return apperr.Internal(err, "failed to check admin user")
	}
	if count > 0 {
		return nil
	}

	if _, err := s.createApproved(ctx, name, email, password, models.RoleAdmin); err != nil {
		return err
	}
	log.Info("created default admin user", "email", MaskEmail(normalizeEmail(email)))
	return nil
}

// SeedDemo adds an approved employee and manager for local demos. Existing
// accounts are left alone.
func (s *Store) SeedDemo(ctx context.Context, log *slog.Logger) error {
	seeds := []struct {
		Name     string
		Email    string
		Password string
		Role     models.UserRole
	}{
		{"Demo Employee", "employee@tasks.local", "Employee123!", models.RoleEmployee},
		{"Demo Manager", "manager@tasks.local", "Manager123!", models.RoleManager},
	}

	for _, u := range seeds {
		_, err := s.createApproved(ctx, u.Name, u.Email, u.Password, u.Role)
		switch {
		case err == nil:
			log.Info("created seed user", "email", MaskEmail(u.Email), "role", u.Role)
		case apperr.Is(err, apperr.KindConflict):
			// already there
		default:
			return err
		}
	}
	return nil
}

func (s *Store) createApproved(ctx context.Context, name, email, password string, role models.UserRole) (*models.User, error) {
	user, err := s.Create(ctx, name, email, password, role)
	if err != nil {
		return nil, err
	}
	return s.Approve(ctx, user.ID)
}
