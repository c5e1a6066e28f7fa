package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrForbidden       = 1004
	ErrConflict        = 1005
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007
	ErrServiceUnavail  = 1008

	// Chat errors (2000-2999)
	ErrChatNotFound        = 2000
	ErrMessageNotFound     = 2001
	ErrMessageInvalidRole  = 2002
	ErrMessageEmptyContent = 2003
	ErrTurnInProgress      = 2004

	// SOP errors (3000-3999)
	ErrSOPNotFound     = 3000
	ErrSOPInvalid      = 3001
	ErrSOPProtected    = 3002
	ErrSOPRunNotFound  = 3003
	ErrSOPRunActive    = 3004
	ErrSOPStepNotFound = 3005

	// Document errors (4000-4999)
	ErrDocumentNotFound = 4000
	ErrDocumentInvalid  = 4001

	// AI provider errors (5000-5999)
	ErrAIStreamFailed   = 5000
	ErrAIInvalidConfig  = 5001
	ErrAIDecisionFailed = 5002
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:       {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	// Chat errors
	ErrChatNotFound:        {ErrChatNotFound, http.StatusNotFound, "Chat not found"},
	ErrMessageNotFound:     {ErrMessageNotFound, http.StatusNotFound, "Message not found"},
	ErrMessageInvalidRole:  {ErrMessageInvalidRole, http.StatusBadRequest, "Invalid message role"},
	ErrMessageEmptyContent: {ErrMessageEmptyContent, http.StatusBadRequest, "Message content cannot be empty"},
	ErrTurnInProgress:      {ErrTurnInProgress, http.StatusConflict, "Another turn is already in progress for this chat"},

	// SOP errors
	ErrSOPNotFound:     {ErrSOPNotFound, http.StatusNotFound, "SOP not found"},
	ErrSOPInvalid:      {ErrSOPInvalid, http.StatusBadRequest, "Invalid SOP definition"},
	ErrSOPProtected:    {ErrSOPProtected, http.StatusForbidden, "Built-in SOP cannot be deleted"},
	ErrSOPRunNotFound:  {ErrSOPRunNotFound, http.StatusNotFound, "SOP run not found"},
	ErrSOPRunActive:    {ErrSOPRunActive, http.StatusConflict, "An SOP run is already active for this chat"},
	ErrSOPStepNotFound: {ErrSOPStepNotFound, http.StatusNotFound, "SOP step not found"},

	// Document errors
	ErrDocumentNotFound: {ErrDocumentNotFound, http.StatusNotFound, "Document not found"},
	ErrDocumentInvalid:  {ErrDocumentInvalid, http.StatusBadRequest, "Invalid document"},

	// AI provider errors
	ErrAIStreamFailed:   {ErrAIStreamFailed, http.StatusBadGateway, "AI completion stream failed"},
	ErrAIInvalidConfig:  {ErrAIInvalidConfig, http.StatusInternalServerError, "Invalid AI provider configuration"},
	ErrAIDecisionFailed: {ErrAIDecisionFailed, http.StatusBadGateway, "Step decision call failed"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsSuccess checks if the code represents success
func IsSuccess(code int) bool {
	return code == Success
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
