package middleware

import (
	"task-assigner/internal/apperr"

	"github.com/gin-gonic/gin"
)

// RespondError writes err as {"error": message} with the status of its kind.
// Internal details never reach the client.
func RespondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		_ = c.Error(err)
	}
	c.JSON(kind.HTTPStatus(), gin.H{"error": apperr.PublicMessage(err)})
}
