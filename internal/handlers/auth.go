package handlers

import (
	"net/http"

	"task-assigner/internal/apperr"
	"task-assigner/internal/auth"
	"task-assigner/internal/middleware"
	"task-assigner/internal/models"
	"task-assigner/internal/users"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Users    *users.Store
	Resolver *auth.Resolver
}

type signupRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
}

func (ac *AuthController) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}

	// admins come from configuration, never from signup
	switch req.Role {
	case models.RoleEmployee, models.RoleManager:
	case "":
		respondError(c, apperr.Validation("all fields are required"))
		return
	default:
		respondError(c, apperr.Validation("invalid role"))
		return
	}

	user, err := ac.Users.Create(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Signup successful, awaiting admin approval", gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := ac.Resolver.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := ac.Resolver.Tokens().Issue(user.ID)
	if err != nil {
		respondError(c, apperr.Internal(err, "failed to issue credential"))
		return
	}

	sess := sessions.Default(c)
	sess.Set(middleware.SessionUserKey, user.ID)
	if err := sess.Save(); err != nil {
		respondError(c, apperr.Internal(err, "failed to save session"))
		return
	}

	ok(c, http.StatusOK, "Login successful", gin.H{"user": user, "token": token})
}

func (ac *AuthController) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteStrictMode})
	_ = sess.Save()
	ok(c, http.StatusOK, "Logout successful", nil)
}

func (ac *AuthController) CheckAuth(c *gin.Context) {
	id, found := identity(c)
	if !found {
		return
	}
	user, err := ac.Users.FindByID(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, "User is authenticated", gin.H{"user": user})
}

func (ac *AuthController) PendingUsers(c *gin.Context) {
	role := models.UserRole(c.Query("role"))
	list, err := ac.Users.ListPending(c.Request.Context(), role)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, "Pending users", gin.H{"users": list})
}

func (ac *AuthController) Approve(c *gin.Context) {
	id, valid := parseID(c, "user")
	if !valid {
		return
	}
	user, err := ac.Users.Approve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, "User approved", gin.H{"user": user})
}

func (ac *AuthController) Decline(c *gin.Context) {
	caller, found := identity(c)
	if !found {
		return
	}
	id, valid := parseID(c, "user")
	if !valid {
		return
	}
	if id == caller.UserID {
		respondError(c, apperr.Forbidden("admins cannot decline themselves"))
		return
	}
	user, err := ac.Users.Decline(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, "User declined", gin.H{"user": user})
}
