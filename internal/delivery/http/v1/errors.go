package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/planhub/go-tasks/internal/services"
)

const (
	codeUnauthorized   = "UNAUTHORIZED"
	codeNotFound       = "NOT_FOUND"
	codeInvalidRequest = "INVALID_REQUEST"
	codeInternalError  = "INTERNAL_ERROR"
)

func respondData(c *gin.Context, status int, data gin.H) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps the service error taxonomy onto HTTP:
// not-found to 404, validation to 400, anything else to 500.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		respondError(c, http.StatusNotFound, codeNotFound, "Task not found")
	case errors.Is(err, services.ErrAssignmentNotFound):
		respondError(c, http.StatusNotFound, codeNotFound, "Assignment not found")
	case errors.Is(err, services.ErrEmptyTaskTitle),
		errors.Is(err, services.ErrMissingDeadline),
		errors.Is(err, services.ErrInvalidTaskStatus),
		errors.Is(err, services.ErrInvalidTaskUrgency),
		errors.Is(err, services.ErrNoFieldsToUpdate),
		errors.Is(err, services.ErrStatusTransition),
		errors.Is(err, services.ErrUserNotFound):
		respondError(c, http.StatusBadRequest, codeInvalidRequest, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, codeInternalError, "Database error")
	}
}
