package plugin

import "github.com/qdrant/rivet-plugin-qdrant/internal/domain"

// Errors returned by Process. Match with errors.Is.
var (
	ErrEnvironmentUnsupported = domain.ErrEnvironmentUnsupported
	ErrMissingInput           = domain.ErrMissingInput
	ErrInvalidPayload         = domain.ErrInvalidPayload
	ErrInvalidFilter          = domain.ErrInvalidFilter
	ErrInvalidIdentifier      = domain.ErrInvalidIdentifier
	ErrInvalidOffset          = domain.ErrInvalidOffset
	ErrInvalidVector          = domain.ErrInvalidVector
	ErrInvalidInput           = domain.ErrInvalidInput
	ErrInvalidNodeData        = domain.ErrInvalidNodeData
	ErrService                = domain.ErrService
	ErrUnknownNode            = domain.ErrUnknownNode
	ErrEmbeddingProvider      = domain.ErrEmbeddingProviderError
)

type (
	// MissingInputError names the input port that had no value.
	MissingInputError = domain.MissingInputError
	// ServiceError is a non-2xx answer from Qdrant.
	ServiceError = domain.ServiceError
)
