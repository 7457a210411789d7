// Package errors renders the JSON error envelope of the API and maps domain
// errors onto it.
package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/stwalsh4118/sitetrack/internal/middleware"
	"github.com/stwalsh4118/sitetrack/internal/pins"
	"github.com/stwalsh4118/sitetrack/internal/services"
	"github.com/stwalsh4118/sitetrack/internal/session"
	"github.com/stwalsh4118/sitetrack/internal/timeline"
	"github.com/stwalsh4118/sitetrack/internal/viewer"
)

// Error codes
const (
	ErrNotFound           = "NOT_FOUND"
	ErrBadRequest         = "BAD_REQUEST"
	ErrConflict           = "CONFLICT"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrValidation         = "VALIDATION_ERROR"
	ErrDatabaseConnection = "DATABASE_CONNECTION_ERROR"
	ErrUploadFailed       = "UPLOAD_FAILED"
	ErrPayloadTooLarge    = "PAYLOAD_TOO_LARGE"
)

// ErrorResponse is the top-level error response structure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

func respond(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: middleware.GetRequestID(c),
		},
	})
}

func warn(c *gin.Context, msg string, fields map[string]interface{}) {
	log := middleware.GetLogger(c)
	if log == nil {
		return
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["path"] = c.Request.URL.Path
	log.Warn(msg, fields)
}

// NotFound returns a 404 Not Found error response.
func NotFound(c *gin.Context, message string) {
	warn(c, "Resource not found", map[string]interface{}{"message": message})
	respond(c, http.StatusNotFound, ErrNotFound, message, nil)
}

// BadRequest returns a 400 Bad Request error response with optional details.
func BadRequest(c *gin.Context, message string, details map[string]interface{}) {
	fields := map[string]interface{}{"message": message}
	if details != nil {
		fields["details"] = details
	}
	warn(c, "Bad request", fields)
	respond(c, http.StatusBadRequest, ErrBadRequest, message, details)
}

// Conflict returns a 409 response for a request that clashes with the
// current state: a duplicate upload, or a workspace action not allowed in
// its current mode.
func Conflict(c *gin.Context, message string) {
	warn(c, "Conflict", map[string]interface{}{"message": message})
	respond(c, http.StatusConflict, ErrConflict, message, nil)
}

// UploadFailed returns a 502 response when the object store rejected a file.
func UploadFailed(c *gin.Context, err error) {
	if log := middleware.GetLogger(c); log != nil {
		log.Error("Upload to object storage failed", err, map[string]interface{}{
			"path": c.Request.URL.Path,
		})
	}
	respond(c, http.StatusBadGateway, ErrUploadFailed, "The file could not be stored, please try again", nil)
}

// PayloadTooLarge returns a 413 response.
func PayloadTooLarge(c *gin.Context) {
	warn(c, "Request body too large", nil)
	respond(c, http.StatusRequestEntityTooLarge, ErrPayloadTooLarge, "Request body is too large", nil)
}

// InternalServerError returns a 500 response. The cause is logged but never
// sent to the client.
func InternalServerError(c *gin.Context, message string, err error) {
	if log := middleware.GetLogger(c); log != nil {
		log.Error("Internal server error", err, map[string]interface{}{
			"message": message,
			"path":    c.Request.URL.Path,
			"method":  c.Request.Method,
		})
	}
	respond(c, http.StatusInternalServerError, ErrInternalServer, message, nil)
}

// ValidationError returns a 400 response listing the fields that failed
// binding validation.
func ValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	details := make(map[string]interface{}, len(validationErrors))
	for _, fe := range validationErrors {
		details[fe.Field()] = formatValidationError(fe)
	}
	fieldErrors(c, details)
}

func fieldErrors(c *gin.Context, details map[string]interface{}) {
	warn(c, "Validation error", map[string]interface{}{"fields": details})
	respond(c, http.StatusBadRequest, ErrValidation, "Validation failed for one or more fields", details)
}

// BindError reports a request that could not be bound: validation failures
// become field errors, an oversized body becomes 413 and anything else a
// plain 400.
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &verrs):
		ValidationError(c, verrs)
	case stderrors.As(err, &tooLarge):
		PayloadTooLarge(c)
	default:
		BadRequest(c, "Invalid request body", map[string]interface{}{"error": err.Error()})
	}
}

// FromError writes the response matching a domain error.
func FromError(c *gin.Context, err error) {
	var verr *services.ValidationError
	var tooLarge *http.MaxBytesError

	switch {
	case stderrors.As(err, &verr):
		details := make(map[string]interface{}, len(verr.Fields))
		for field, msg := range verr.Fields {
			details[field] = msg
		}
		fieldErrors(c, details)
	case stderrors.As(err, &tooLarge):
		PayloadTooLarge(c)
	case stderrors.Is(err, services.ErrUpload):
		UploadFailed(c, err)
	case isAny(err, services.ErrNotFound, session.ErrNotFound, pins.ErrPinNotFound,
		timeline.ErrVisitNotFound, viewer.ErrVisitNotFound):
		NotFound(c, err.Error())
	case isAny(err, services.ErrDuplicateFile, pins.ErrRepositioning, pins.ErrMovePending, pins.ErrStale,
		pins.ErrNoActivePlan, timeline.ErrStale, timeline.ErrNoTarget, session.ErrNoSelection,
		viewer.ErrClosed, viewer.ErrNoVisits, viewer.ErrNoModel, viewer.ErrNotComparing, viewer.ErrNotBIM):
		Conflict(c, err.Error())
	case isAny(err, pins.ErrOutsidePlan, viewer.ErrInvalidSide, viewer.ErrPhotoNotInVisit,
		session.ErrWrongPlan, services.ErrValidation):
		BadRequest(c, err.Error(), nil)
	default:
		InternalServerError(c, "An unexpected error occurred", err)
	}
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if stderrors.Is(err, target) {
			return true
		}
	}
	return false
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "notblank":
		return "Must not be blank"
	case "min":
		return "Value is too short or small (minimum: " + err.Param() + ")"
	case "max":
		return "Value is too long or large (maximum: " + err.Param() + ")"
	case "gte":
		return "Must be greater than or equal to " + err.Param()
	case "lte":
		return "Must be less than or equal to " + err.Param()
	case "oneof":
		return "Must be one of: " + err.Param()
	case "url":
		return "Must be a valid URL"
	case "uuid":
		return "Must be a valid UUID"
	case "datetime":
		return "Must be a date formatted as " + err.Param()
	default:
		return "Validation failed for tag: " + err.Tag()
	}
}
