package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is an API error with an HTTP status and a stable machine code
type Error struct {
	Status  int               `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d (%s): %s", e.Status, e.Code, e.Message)
}

// NewValidationError reports malformed input with optional field detail
func NewValidationError(message string, fields map[string]string) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    "validation_error",
		Message: message,
		Fields:  fields,
	}
}

// NewNotFoundError reports a missing or unmoderated resource. Missing
// and not-yet-approved are deliberately indistinguishable so moderation
// state does not leak.
func NewNotFoundError(what string) *Error {
	return &Error{
		Status:  http.StatusNotFound,
		Code:    "not_found",
		Message: what + " not found",
	}
}

// NewDuplicateVoteError reports a strict-mode repeat vote
func NewDuplicateVoteError() *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    "duplicate_vote",
		Message: "you have already voted this action on this post",
	}
}

// NewRateLimitedError reports an exhausted admission budget
func NewRateLimitedError() *Error {
	return &Error{
		Status:  http.StatusTooManyRequests,
		Code:    "rate_limited",
		Message: "too many requests, try again later",
	}
}

// NewInternalError reports a storage or infrastructure failure without
// exposing details
func NewInternalError() *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "internal server error",
	}
}

// NewUnauthorizedError reports a failed admin key check
func NewUnauthorizedError() *Error {
	return &Error{
		Status:  http.StatusUnauthorized,
		Code:    "unauthorized",
		Message: "invalid or missing admin key",
	}
}

// abortWithError writes the error response and stops the handler chain
func abortWithError(c *gin.Context, err *Error) {
	if err.Status == http.StatusTooManyRequests {
		c.Header("Retry-After", "60")
	}
	c.AbortWithStatusJSON(err.Status, gin.H{"error": err})
}
