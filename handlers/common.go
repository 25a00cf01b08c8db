// Package handlers holds the gin handlers for the HTTP API.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"scribe/models"
	"scribe/observability"

	"github.com/gin-gonic/gin"
)

const requestTimeout = 10 * time.Second

var statusByCode = map[string]int{
	models.CodeValidation:       http.StatusBadRequest,
	models.CodeUnauthenticated:  http.StatusUnauthorized,
	models.CodeUnauthorized:     http.StatusForbidden,
	models.CodeNotFound:         http.StatusNotFound,
	models.CodeConflict:         http.StatusConflict,
	models.CodeRateLimited:      http.StatusTooManyRequests,
	models.CodeUploadFailed:     http.StatusBadGateway,
	models.CodeStoreUnavailable: http.StatusServiceUnavailable,
	models.CodeUnavailable:      http.StatusServiceUnavailable,
}

// StatusFor maps an AppError code to its HTTP status.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}
	status := StatusFor(appErr.Code)
	if status >= http.StatusInternalServerError {
		observability.Logger.ErrorContext(c.Request.Context(), "request error",
			slog.String("code", appErr.Code),
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	_ = c.Error(err)
	c.JSON(status, models.ErrorResponse{Error: appErr.Message, Code: appErr.Code})
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, models.NewValidationError(err.Error()))
		return false
	}
	return true
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}
