package auth

import (
	"context"

	"task-assigner/internal/apperr"
	"task-assigner/internal/models"
	"task-assigner/internal/users"
)

type Resolver struct {
	users  *users.Store
	tokens *Tokens

	// RecheckApproval rejects callers whose approval was revoked after they
	// logged in. When false, approval is only checked by Login.
	RecheckApproval bool
}

func NewResolver(store *users.Store, tokens *Tokens) *Resolver {
	return &Resolver{users: store, tokens: tokens, RecheckApproval: true}
}

func (r *Resolver) Tokens() *Tokens { return r.tokens }

// Login verifies credentials and the approval gate. No credential may be
// issued when it returns an error.
func (r *Resolver) Login(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	user, err := r.users.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := checkApproval(user); err != nil {
		return nil, err
	}
	return user, nil
}

func checkApproval(user *models.User) error {
	switch user.IsApproved {
	case models.ApprovalApproved:
		return nil
	case models.ApprovalDeclined:
		return apperr.Unapproved("account has been declined")
	default:
		return apperr.Unapproved("account is awaiting admin approval")
	}
}

// Resolve loads the current identity for a user id taken from a credential.
func (r *Resolver) Resolve(ctx context.Context, userID uint) (Identity, error) {
	if userID == 0 {
		return Identity{}, apperr.Unauthenticated("not authenticated")
	}
	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Identity{}, apperr.Unauthenticated("not authenticated")
		}
		return Identity{}, err
	}
	if r.RecheckApproval {
		if err := checkApproval(user); err != nil {
			return Identity{}, err
		}
	}
	return Identity{UserID: user.ID, Role: user.Role}, nil
}

// ResolveToken verifies a bearer token and resolves its subject.
func (r *Resolver) ResolveToken(ctx context.Context, token string) (Identity, error) {
	userID, err := r.tokens.Parse(token)
	if err != nil {
		return Identity{}, apperr.Unauthenticated("invalid or expired token")
	}
	return r.Resolve(ctx, userID)
}
