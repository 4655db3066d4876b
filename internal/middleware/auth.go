package middleware

import (
	"strings"

	"task-assigner/internal/apperr"
	"task-assigner/internal/auth"
	"task-assigner/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// SessionUserKey is the only value stored in the session cookie.
const SessionUserKey = "user_id"

// RequireAuth resolves the caller from the session cookie, or from a bearer
// token when there is no session, and stores the identity in the request
// context. The user is re-read on every request so role and approval
// changes apply immediately.
func RequireAuth(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var (
			id  auth.Identity
			err error
		)
		sess := sessions.Default(c)
		if uid, ok := sess.Get(SessionUserKey).(uint); ok && uid > 0 {
			id, err = resolver.Resolve(ctx, uid)
			if err != nil && apperr.Is(err, apperr.KindUnauthenticated) {
				sess.Clear()
				_ = sess.Save()
			}
		} else if token, ok := bearerToken(c); ok {
			id, err = resolver.ResolveToken(ctx, token)
		} else {
			err = apperr.Unauthenticated("not authenticated")
		}

		if err != nil {
			RespondError(c, err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(ctx, id))
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := map[models.UserRole]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		id, ok := auth.FromContext(c.Request.Context())
		if !ok {
			RespondError(c, apperr.Unauthenticated("not authenticated"))
			c.Abort()
			return
		}
		if _, ok := roleSet[id.Role]; !ok {
			RespondError(c, apperr.Forbidden("access denied"))
			c.Abort()
			return
		}
		c.Next()
	}
}
