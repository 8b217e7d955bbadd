package service

import (
	"errors"
	"net/http"

	"github.com/lyzr/cdn/common/identity"
	"github.com/lyzr/cdn/common/transform"
)

// Kind classifies why a blob request failed
type Kind string

const (
	KindInvalidRequest           Kind = "InvalidRequest"
	KindIdentityResolutionFailed Kind = "IdentityResolutionFailed"
	KindNoOriginEndpoint         Kind = "NoOriginEndpoint"
	KindOriginFetchFailed        Kind = "OriginFetchFailed"
	KindIntegrityMismatch        Kind = "IntegrityMismatch"
	KindUnrecognizedImage        Kind = "UnrecognizedImage"
	KindTransformFailed          Kind = "TransformFailed"
	KindStorageReadFailed        Kind = "StorageReadFailed"
	KindStorageWriteFailed       Kind = "StorageWriteFailed"
)

var kindStatus = map[Kind]int{
	KindInvalidRequest:           http.StatusBadRequest,
	KindIdentityResolutionFailed: http.StatusBadRequest,
	KindNoOriginEndpoint:         http.StatusNotFound,
	KindOriginFetchFailed:        http.StatusBadRequest,
	KindIntegrityMismatch:        http.StatusBadRequest,
	KindUnrecognizedImage:        http.StatusBadRequest,
	KindTransformFailed:          http.StatusBadRequest,
	KindStorageReadFailed:        http.StatusInternalServerError,
	KindStorageWriteFailed:       http.StatusInternalServerError,
}

// PipelineError is the only error type GetBlob returns
type PipelineError struct {
	Kind Kind
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// StatusCode maps the kind onto an HTTP status
func (e *PipelineError) StatusCode() int {
	if status, ok := kindStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Reason is the client-visible cause, or nil when it is withheld
func (e *PipelineError) Reason() *string {
	switch e.Kind {
	case KindNoOriginEndpoint, KindStorageReadFailed, KindStorageWriteFailed:
		return nil
	}
	if e.Err == nil {
		return nil
	}
	reason := e.Err.Error()
	return &reason
}

// NewInvalidRequest reports a malformed request path
func NewInvalidRequest(err error) *PipelineError {
	return &PipelineError{Kind: KindInvalidRequest, Err: err}
}

// classifyResolveError splits resolver failures into their two kinds
func classifyResolveError(err error) *PipelineError {
	if errors.Is(err, identity.ErrNoOriginEndpoint) {
		return &PipelineError{Kind: KindNoOriginEndpoint, Err: err}
	}
	return &PipelineError{Kind: KindIdentityResolutionFailed, Err: err}
}

func classifyTransformError(err error) *PipelineError {
	if errors.Is(err, transform.ErrUnrecognizedImage) {
		return &PipelineError{Kind: KindUnrecognizedImage, Err: err}
	}
	return &PipelineError{Kind: KindTransformFailed, Err: err}
}
