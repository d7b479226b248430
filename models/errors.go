package models

import "errors"

// Pipeline error taxonomy. Callers classify failures with errors.Is and the
// HTTP layer maps each class to a status code. Producers wrap these with
// fmt.Errorf("%w: ...") to attach the offending path, URL or cause.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrFetch             = errors.New("fetch failed")
	ErrNetwork           = errors.New("network failure")
	ErrParse             = errors.New("parse failed")
	ErrConfig            = errors.New("invalid configuration")
	ErrEmbeddingService  = errors.New("embedding service failure")
	ErrGenerationService = errors.New("generation service failure")
	ErrIndexUnavailable  = errors.New("index unavailable: document store is empty")
)
