package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"TrendPipeline/internal/domain"
)

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success":   false,
		"errorCode": code,
		"message":   message,
	})
}

// respondServiceError maps use-case errors onto HTTP statuses. fallbackCode
// names the operation when the error is not a known domain error.
func respondServiceError(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case domain.IsStateConflict(err):
		respondError(c, http.StatusConflict, "STATE_CONFLICT", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}
