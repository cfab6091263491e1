package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentParse signals an unreadable or malformed document file.
	ErrDocumentParse = errors.New("document parse error")
	// ErrDegenerateDataset signals a dataset that cannot be trained on.
	ErrDegenerateDataset = errors.New("degenerate dataset")
	// ErrArtifactLoad signals a missing, unreadable or incompatible model artifact.
	ErrArtifactLoad = errors.New("artifact load error")
	// ErrInferenceInput signals a document that lacks the structure needed for inference.
	ErrInferenceInput = errors.New("inference input error")
	// ErrNoCurrentModel signals that no model has been trained yet.
	ErrNoCurrentModel = errors.New("no current model")
)

// DocumentParseError wraps ErrDocumentParse with the offending file.
type DocumentParseError struct {
	Path string
	Err  error
}

func (e *DocumentParseError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrDocumentParse.Error(), e.Path, e.Err)
}

// Is reports ErrDocumentParse as the sentinel; Unwrap exposes the cause.
func (e *DocumentParseError) Is(target error) bool { return target == ErrDocumentParse }

func (e *DocumentParseError) Unwrap() error { return e.Err }

// DegenerateDatasetError wraps ErrDegenerateDataset with the observed label counts.
type DegenerateDatasetError struct {
	Relevant   int
	Irrelevant int
	Reason     string
}

func (e *DegenerateDatasetError) Error() string {
	return fmt.Sprintf("%s: %s (relevant=%d, irrelevant=%d)",
		ErrDegenerateDataset.Error(), e.Reason, e.Relevant, e.Irrelevant)
}

func (e *DegenerateDatasetError) Unwrap() error { return ErrDegenerateDataset }

// NewDegenerateDataset creates a degenerate dataset error.
func NewDegenerateDataset(relevant, irrelevant int, reason string) error {
	return &DegenerateDatasetError{Relevant: relevant, Irrelevant: irrelevant, Reason: reason}
}

// ArtifactLoadError wraps ErrArtifactLoad with the artifact path.
type ArtifactLoadError struct {
	Path string
	Err  error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrArtifactLoad.Error(), e.Path, e.Err)
}

// Is reports ErrArtifactLoad as the sentinel; Unwrap exposes the cause.
func (e *ArtifactLoadError) Is(target error) bool { return target == ErrArtifactLoad }

func (e *ArtifactLoadError) Unwrap() error { return e.Err }

// InferenceInputError wraps ErrInferenceInput with the document source.
type InferenceInputError struct {
	Path string
	Err  error
}

func (e *InferenceInputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", ErrInferenceInput.Error(), e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrInferenceInput.Error(), e.Path, e.Err)
}

// Is reports ErrInferenceInput as the sentinel; Unwrap exposes the cause.
func (e *InferenceInputError) Is(target error) bool { return target == ErrInferenceInput }

func (e *InferenceInputError) Unwrap() error { return e.Err }
