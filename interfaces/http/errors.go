package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

const ErrorUnmarshal = "Error while unmarshal"

// statusFor maps an error kind onto the HTTP status returned to clients.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrInvalidState),
		errors.Is(err, model.ErrStateExpired),
		errors.Is(err, model.ErrDenied),
		errors.Is(err, model.ErrNotSupported):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAuthExchange), errors.Is(err, model.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func abortWithError(ctx *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.GetLogger().WithField("error", err).WithField("path", ctx.FullPath()).Error("Request failed")
		ctx.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	ctx.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func currentUser(ctx *gin.Context) (string, bool) {
	userID := ctx.GetString("user_id")
	if userID == "" {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return "", false
	}
	return userID, true
}
