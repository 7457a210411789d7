package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/stwalsh4118/sitetrack/internal/repository"
)

// Service-level errors
var (
	ErrValidation    = errors.New("validation failed")
	ErrUpload        = errors.New("upload failed")
	ErrPersistence   = errors.New("persistence failed")
	ErrNotFound      = errors.New("not found")
	ErrDuplicateFile = errors.New("a floor plan with this file name already exists in the project")
)

// ValidationError lists the offending input fields. It matches ErrValidation
// with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// persistenceErr maps repository failures into the service taxonomy.
func persistenceErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrPersistence, err)
}
