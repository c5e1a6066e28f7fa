package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/leapstack-ai/sop-copilot-backend/internal/pkg/errors"
)

// Response is the uniform JSON envelope for non-streaming endpoints
type Response struct {
	Code    int         `json:"code"`              // business code (0 means success)
	Message string      `json:"message,omitempty"` // human-readable message
	Data    interface{} `json:"data"`              // payload (may be an empty object)
}

// Success writes a 200 response
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(http.StatusOK, Response{
		Code:    apperrors.Success,
		Message: "",
		Data:    data,
	})
}

// Created writes a 201 response
func Created(c *gin.Context, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(http.StatusCreated, Response{
		Code:    apperrors.Success,
		Message: "",
		Data:    data,
	})
}

// Error writes an error response with an explicit HTTP status
func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, Response{
		Code:    httpStatus,
		Message: message,
		Data:    struct{}{},
	})
}

// BadRequest writes a 400 response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// NotFound writes a 404 response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError writes a 500 response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// HandleError maps an AppError (or plain error) to an HTTP response
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := apperrors.ExtractCode(err)
	httpStatus := apperrors.GetHTTPStatus(code)
	message := apperrors.FormatError(code, apperrors.GetDetails(err))

	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Data:    struct{}{},
	})
}

// ErrorWithCode writes an error response from a business code
func ErrorWithCode(c *gin.Context, code int, details ...string) {
	httpStatus := apperrors.GetHTTPStatus(code)
	message := apperrors.FormatError(code, details...)

	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Data:    struct{}{},
	})
}
