package handlers

import (
	"net/http"

	"github.com/geocoder89/carehub/internal/http/middlewares"
	"github.com/geocoder89/carehub/internal/observability"
	"github.com/gin-gonic/gin"
)

// Every JSON response is one of these two envelopes.
type (
	successBody struct {
		Success bool        `json:"success"`
		Message string      `json:"message"`
		Meta    *ListMeta   `json:"meta,omitempty"`
		Data    interface{} `json:"data"`
	}

	errorBody struct {
		Success bool     `json:"success"`
		Message string   `json:"message"`
		Error   APIError `json:"error"`
	}
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

type ListMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

func RespondOK(ctx *gin.Context, status int, message string, data interface{}) {
	ctx.JSON(status, successBody{Success: true, Message: message, Data: data})
}

func RespondList(ctx *gin.Context, message string, meta ListMeta, data interface{}) {
	ctx.JSON(http.StatusOK, successBody{Success: true, Message: message, Meta: &meta, Data: data})
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, errorBody{
		Message: message,
		Error: APIError{
			Code:      code,
			Message:   message,
			RequestID: requestID(ctx),
			Details:   details,
		},
	})
}

func requestID(ctx *gin.Context) string {
	if id, ok := observability.RequestIDFrom(ctx.Request.Context()); ok {
		return id
	}
	return ctx.GetString(middlewares.CtxRequestID)
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnauthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusForbidden, code, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}
