package api

import (
	"errors"
	"net/http"
	"time"

	"ecommerce-service/internal/apperr"
	"ecommerce-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const timestampLayout = "2006-01-02 15:04:05"

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success   bool     `json:"success"`
	Code      string   `json:"code"`
	Status    int      `json:"status"`
	Message   string   `json:"message"`
	Details   []string `json:"details,omitempty"`
	Timestamp string   `json:"timestamp"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders err and aborts the request. Internal failures are
// logged and their detail is never sent to the client.
func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal("internal server error", err)
	}

	status := statusFor(appErr.Kind)
	message := appErr.Message
	if appErr.Kind == apperr.KindInternal {
		util.GetLogger().Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		message = "internal server error"
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Success:   false,
		Code:      appErr.Code,
		Status:    status,
		Message:   message,
		Timestamp: time.Now().Format(timestampLayout),
	})
}

// respondBindError renders a request binding failure with one detail per invalid field.
func respondBindError(c *gin.Context, err error) {
	details := []string{err.Error()}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details = details[:0]
		for _, fe := range fieldErrs {
			details = append(details, fe.Field()+": failed on '"+fe.Tag()+"'")
		}
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Success:   false,
		Code:      apperr.CodeInvalidInput,
		Status:    http.StatusBadRequest,
		Message:   "invalid request",
		Details:   details,
		Timestamp: time.Now().Format(timestampLayout),
	})
}
