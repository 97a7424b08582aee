package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEnvironmentUnsupported signals a node invoked outside a network-capable executor.
	ErrEnvironmentUnsupported = errors.New("environment unsupported")
	// ErrMissingInput signals a parameter toggled to input with no bound value.
	ErrMissingInput = errors.New("missing input")
	// ErrInvalidPayload signals payload text that does not parse as an object.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrInvalidFilter signals filter text that does not parse as an object.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidIdentifier signals a point identifier that is neither string nor number.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrInvalidOffset signals a scroll offset that is neither string nor number.
	ErrInvalidOffset = errors.New("invalid offset")
	// ErrInvalidVector signals an embedding input that is not a numeric sequence.
	ErrInvalidVector = errors.New("invalid vector")
	// ErrInvalidInput signals an input value of the wrong type for its port.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidNodeData signals static node data that does not decode.
	ErrInvalidNodeData = errors.New("invalid node data")
	// ErrService signals a failure reported by the vector database.
	ErrService = errors.New("service error")
	// ErrUnknownNode signals a node type missing from the registry.
	ErrUnknownNode = errors.New("unknown node type")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// MissingInputError wraps ErrMissingInput with the port that had no value.
type MissingInputError struct {
	Port string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s: port %q has no value", ErrMissingInput.Error(), e.Port)
}

func (e *MissingInputError) Unwrap() error { return ErrMissingInput }

// NewMissingInput creates a missing input error for a port.
func NewMissingInput(port string) error {
	return &MissingInputError{Port: port}
}

// ServiceError is a failure talking to the vector database: a non-2xx answer,
// or a transport failure with StatusCode 0 and the cause in Err.
type ServiceError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s: %s", ErrService.Error(), e.Op, e.Message)
	}
	if e.Message == "" {
		return fmt.Sprintf("%s: %s: http %d", ErrService.Error(), e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: http %d: %s", ErrService.Error(), e.Op, e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrService}
	}
	return []error{ErrService, e.Err}
}
