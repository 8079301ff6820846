// internal/utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardswap/cardswap-backend/internal/i18n"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// statusErrors holds the envelope code and fallback message per HTTP status.
var statusErrors = map[int]struct {
	code       string
	defaultKey string
}{
	http.StatusBadRequest:          {"BAD_REQUEST", i18n.KeyValidationFailed},
	http.StatusUnauthorized:        {"UNAUTHORIZED", i18n.KeyAuthRequired},
	http.StatusForbidden:           {"FORBIDDEN", i18n.KeyOwnership},
	http.StatusNotFound:            {"NOT_FOUND", i18n.KeyInternalError},
	http.StatusConflict:            {"CONFLICT", i18n.KeyRecomputeBusy},
	http.StatusInternalServerError: {"INTERNAL_ERROR", i18n.KeyInternalError},
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: meta})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

func PaginatedResponse(c *gin.Context, result PaginationResult) {
	SetPaginationHeaders(c, result)
	SuccessResponseWithMeta(c, result.Data, gin.H{"pagination": result.Meta()})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, APIResponse{
		Error: &APIError{Code: code, Message: message, Details: details},
	})
}

// StatusErrorResponse writes the standard error for statusCode. An empty
// message is replaced by the localized default for that status.
func StatusErrorResponse(c *gin.Context, statusCode int, message string, details interface{}) {
	se, ok := statusErrors[statusCode]
	if !ok {
		se = statusErrors[http.StatusInternalServerError]
	}
	if message == "" {
		message = i18n.T(GetLangFromContext(c), se.defaultKey)
	}
	ErrorResponse(c, statusCode, se.code, message, details)
}

func BadRequestResponse(c *gin.Context, message string, details interface{}) {
	StatusErrorResponse(c, http.StatusBadRequest, message, details)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	StatusErrorResponse(c, http.StatusUnauthorized, message, nil)
}

func ForbiddenResponse(c *gin.Context, message string) {
	StatusErrorResponse(c, http.StatusForbidden, message, nil)
}

// NotFoundResponse takes an i18n key rather than a message.
func NotFoundResponse(c *gin.Context, key string) {
	StatusErrorResponse(c, http.StatusNotFound, i18n.T(GetLangFromContext(c), key), nil)
}

func ConflictResponse(c *gin.Context, message string) {
	StatusErrorResponse(c, http.StatusConflict, message, nil)
}

func InternalErrorResponse(c *gin.Context, message string) {
	StatusErrorResponse(c, http.StatusInternalServerError, message, nil)
}

func ValidationErrorResponse(c *gin.Context, errors []ValidationError) {
	message := i18n.T(GetLangFromContext(c), i18n.KeyValidationFailed)
	ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", message, errors)
}
