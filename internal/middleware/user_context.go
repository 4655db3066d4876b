package middleware

import (
	"task-assigner/internal/auth"

	"github.com/gin-gonic/gin"
)

// CurrentIdentity returns the caller resolved by RequireAuth.
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	return auth.FromContext(c.Request.Context())
}
