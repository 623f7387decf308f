package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/gin-gonic/gin"
)

func respond(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"success": false, "message": err.Error()}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) && len(conflict.Unavailable) > 0 {
		body["unavailable_seats"] = conflict.Unavailable
	}
	if status == http.StatusInternalServerError {
		body["message"] = "internal error"
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}

func statusFor(err error) int {
	switch {
	case domain.IsValidation(err), domain.IsState(err):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsConflict(err), domain.IsIntegrity(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
