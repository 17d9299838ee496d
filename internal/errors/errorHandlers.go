package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeBadRequest          ErrorType = "BAD_REQUEST"
	ErrorTypeUnauthorized        ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden           ErrorType = "FORBIDDEN"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeInternalServerError ErrorType = "INTERNAL_SERVER_ERROR"

	// Review workflow failures.
	ErrorTypeDuplicateAssignment ErrorType = "DUPLICATE_ASSIGNMENT"
	ErrorTypeAlreadyCompleted    ErrorType = "ALREADY_COMPLETED"
	ErrorTypeNotAssigned         ErrorType = "NOT_ASSIGNED"
	ErrorTypeIncompleteReview    ErrorType = "INCOMPLETE_REVIEW"
)

// CustomError represents a custom error with associated HTTP status code and type
type CustomError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Internal   error
}

// Error implements the error interface
func (e *CustomError) Error() string {
	return e.Message
}

// Unwrap exposes the internal cause to errors.Is / errors.As.
func (e *CustomError) Unwrap() error {
	return e.Internal
}

// newError creates a new CustomError
func newError(errType ErrorType, message string, statusCode int, internal error) *CustomError {
	return &CustomError{
		Type:       errType,
		Message:    message,
		StatusCode: statusCode,
		Internal:   internal,
	}
}

// New400Error creates a new bad request error
func New400Error(message string) *CustomError {
	return newError(ErrorTypeBadRequest, message, http.StatusBadRequest, nil)
}

// New401Error creates a new unauthorized error
func New401Error() *CustomError {
	return newError(ErrorTypeUnauthorized, "Unauthorized access", http.StatusUnauthorized, nil)
}

// New403Error creates a new forbidden error
func New403Error() *CustomError {
	return newError(ErrorTypeForbidden, "Access forbidden", http.StatusForbidden, nil)
}

// NewForbiddenError is a forbidden error with a specific message.
func NewForbiddenError(message string) *CustomError {
	return newError(ErrorTypeForbidden, message, http.StatusForbidden, nil)
}

// New404Error creates a new not found error
func New404Error(message string) *CustomError {
	return newError(ErrorTypeNotFound, message, http.StatusNotFound, nil)
}

// New500Error creates a new internal server error
func New500Error(internal error) *CustomError {
	return newError(ErrorTypeInternalServerError, "An unexpected error occurred", http.StatusInternalServerError, internal)
}

// NewDuplicateAssignmentError reports that the reviewer already holds a
// review for the paper. Lost insert races are reported the same way.
func NewDuplicateAssignmentError(internal error) *CustomError {
	return newError(ErrorTypeDuplicateAssignment, "Reviewer is already assigned to this paper", http.StatusConflict, internal)
}

// NewAlreadyCompletedError reports a second submission of a completed review.
func NewAlreadyCompletedError(internal error) *CustomError {
	return newError(ErrorTypeAlreadyCompleted, "Review has already been completed", http.StatusConflict, internal)
}

// NewNotAssignedError reports an actor acting on a review bound to someone else.
func NewNotAssignedError() *CustomError {
	return newError(ErrorTypeNotAssigned, "Review is not assigned to you", http.StatusForbidden, nil)
}

// NewIncompleteReviewError reports a review submission that failed validation.
func NewIncompleteReviewError(message string) *CustomError {
	return newError(ErrorTypeIncompleteReview, message, http.StatusUnprocessableEntity, nil)
}

// TypeOf returns the ErrorType carried by err, or "" when err is not a CustomError.
func TypeOf(err error) ErrorType {
	var customErr *CustomError
	if stderrors.As(err, &customErr) {
		return customErr.Type
	}
	return ""
}

// Is reports whether err is a CustomError of the given type.
func Is(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// HandleError handles the custom error and sends an appropriate JSON response
func HandleError(c *gin.Context, err error) {
	var customErr *CustomError
	if !stderrors.As(err, &customErr) {
		customErr = New500Error(err)
	}

	// Log internal server errors
	if customErr.Type == ErrorTypeInternalServerError {
		logger := zerolog.Ctx(c.Request.Context())
		if logger.GetLevel() == zerolog.Disabled {
			l := log.Logger
			logger = &l
		}
		logger.Error().
			Err(customErr.Internal).
			Str("url", c.Request.URL.String()).
			Msg("Internal Server Error")
	}

	c.AbortWithStatusJSON(customErr.StatusCode, gin.H{
		"error": gin.H{
			"type":    customErr.Type,
			"message": customErr.Message,
		},
	})
}

// LogAndReturn500 logs an internal error and returns a 500 error
func LogAndReturn500(internal error) *CustomError {
	log.Error().Err(internal).Msg("Internal Server Error")
	return New500Error(internal)
}
