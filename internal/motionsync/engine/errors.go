package engine

import (
	"fmt"

	"github.com/tphakala/motionsync-go/internal/errors"
)

// ComponentEngine identifies this package in enhanced errors.
const ComponentEngine = "motionsync.engine"

var (
	// ErrEngineAlreadyExists is returned when an engine of the same type is already initialized.
	ErrEngineAlreadyExists = errors.New(errors.NewStd("analysis engine already initialized")).
				Component(ComponentEngine).
				Category(errors.CategoryConflict).
				Build()

	// ErrBackendNotRegistered is returned when no factory is registered for a type.
	ErrBackendNotRegistered = errors.New(errors.NewStd("no backend registered for analysis type")).
				Component(ComponentEngine).
				Category(errors.CategoryNotFound).
				Build()

	// ErrBackendAlreadyRegistered is returned when a type is registered twice.
	ErrBackendAlreadyRegistered = errors.New(errors.NewStd("backend already registered for analysis type")).
					Component(ComponentEngine).
					Category(errors.CategoryConflict).
					Build()

	// ErrEngineClosed is returned when using an engine after it was closed.
	ErrEngineClosed = errors.New(errors.NewStd("analysis engine is closed")).
			Component(ComponentEngine).
			Category(errors.CategoryState).
			Build()

	// ErrProcessorClosed is returned when analyzing with a closed processor.
	ErrProcessorClosed = errors.New(errors.NewStd("processor is closed")).
				Component(ComponentEngine).
				Category(errors.CategoryState).
				Build()

	// ErrInvalidArgument is the base for analysis argument validation errors.
	ErrInvalidArgument = errors.New(errors.NewStd("invalid analysis argument")).
				Component(ComponentEngine).
				Category(errors.CategoryValidation).
				Build()
)

// invalidArgument builds a validation error that matches ErrInvalidArgument.
func invalidArgument(operation, format string, args ...any) *errors.EnhancedError {
	return errors.New(fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))).
		Component(ComponentEngine).
		Category(errors.CategoryValidation).
		Context("operation", operation).
		Build()
}
