package repository

import "errors"

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrStageConflict means the document was not in the stage the caller expected.
	ErrStageConflict = errors.New("document stage changed")
)
