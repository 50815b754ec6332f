package models

import "errors"

// Pipeline and registry error taxonomy. Handlers map these onto HTTP status
// codes; the pipeline maps them onto job failure causes.
var (
	// ErrUnsupportedInputType is returned for upload extensions outside the
	// supported transcript/audio set. No job is created for these.
	ErrUnsupportedInputType = errors.New("unsupported input type")

	// ErrMalformedExtraction is returned when the model response cannot be
	// parsed into a complete extraction record.
	ErrMalformedExtraction = errors.New("malformed extraction output")

	// ErrUnknownPlaceholder is returned when the template references a
	// placeholder with no matching field definition.
	ErrUnknownPlaceholder = errors.New("unknown template placeholder")

	// ErrTemplateLoad is returned when the template source cannot be parsed.
	ErrTemplateLoad = errors.New("template load failed")

	// ErrConversion is returned when the document conversion engine fails or
	// produces output that does not verify as a PDF.
	ErrConversion = errors.New("document conversion failed")

	// ErrInvalidTransition is returned when a job is advanced to a state that
	// is not the valid successor of its current state.
	ErrInvalidTransition = errors.New("invalid job state transition")

	// ErrNotFound is returned for process IDs the registry has never issued.
	ErrNotFound = errors.New("process not found")

	// ErrArtifactNotReady is returned when a job exists but has not yet
	// produced the requested artifact kind.
	ErrArtifactNotReady = errors.New("artifact not ready")
)
