package handlers

import (
	"net/http"
	"strconv"

	"task-assigner/internal/apperr"
	"task-assigner/internal/auth"
	"task-assigner/internal/middleware"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, err error) {
	middleware.RespondError(c, err)
}

// ok writes {"message": msg} merged with data.
func ok(c *gin.Context, status int, msg string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["message"] = msg
	c.JSON(status, data)
}

func parseID(c *gin.Context, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperr.Validation("invalid %s id", what))
		return 0, false
	}
	return uint(id), true
}

// identity returns the caller set by middleware.RequireAuth. Routes without
// that middleware get a 401.
func identity(c *gin.Context) (auth.Identity, bool) {
	id, found := middleware.CurrentIdentity(c)
	if !found {
		respondError(c, apperr.Unauthenticated("not authenticated"))
		return auth.Identity{}, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return false
	}
	return true
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
}
