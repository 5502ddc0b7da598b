package service

import (
	"errors"
	"fmt"

	"finreports/internal/parameter"

	"gorm.io/gorm"
)

var (
	ErrNotFound                 = errors.New("not found")
	ErrInvalidInput             = errors.New("invalid input")
	ErrValidation               = parameter.ErrValidation
	ErrMissingRequiredParameter = parameter.ErrMissingRequired
	ErrGenerationFailed         = errors.New("report generation failed")
	ErrTransitionConflict       = errors.New("concurrent status transition")
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrSystemTemplate           = errors.New("system templates cannot be deleted")
	ErrFileNotFound             = errors.New("report file not found")
)

// GenerationError is returned when the artifact could not be produced. The report
// has already been moved to ERROR when the caller sees it.
type GenerationError struct {
	ReportID string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation of report %s failed: %v", e.ReportID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailed }

func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
