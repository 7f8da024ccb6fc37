package app

import (
	"time"

	"clausewise/internal/model"
)

type StageError struct {
	Stage   model.Stage `json:"stage"`
	Kind    string      `json:"kind"`
	Message string      `json:"message"`
	At      *time.Time  `json:"at,omitempty"`
}

// StatusView is the pipeline position of one document.
type StatusView struct {
	DocumentID         string             `json:"document_id"`
	FileName           string             `json:"file_name"`
	MimeType           string             `json:"mime_type"`
	DocumentType       model.DocumentType `json:"document_type,omitempty"`
	Stage              model.Stage        `json:"stage"`
	LastCompletedStage model.Stage        `json:"last_completed_stage"`
	NextStage          model.Stage        `json:"next_stage,omitempty"`
	Queryable          bool               `json:"queryable"`
	Error              *StageError        `json:"error,omitempty"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func newStatusView(doc *model.Document) *StatusView {
	v := &StatusView{
		DocumentID:         doc.ID,
		FileName:           doc.FileName,
		MimeType:           doc.MimeType,
		DocumentType:       doc.DocumentType,
		Stage:              doc.Stage,
		LastCompletedStage: doc.LastCompletedStage(),
		Queryable:          doc.Stage.AtLeast(model.StageIndexed),
		UpdatedAt:          doc.UpdatedAt,
	}
	if doc.Failed() {
		v.NextStage = doc.FailedStage
		v.Error = &StageError{
			Stage:   doc.FailedStage,
			Kind:    doc.ErrorKind,
			Message: doc.ErrorMessage,
			At:      doc.FailedAt,
		}
	} else if next, ok := doc.Stage.Next(); ok {
		v.NextStage = next
	}
	return v
}

// AnalysisView is the analyzed form of a document.
type AnalysisView struct {
	DocumentID   string                 `json:"document_id"`
	FileName     string                 `json:"file_name"`
	DocumentType model.DocumentType     `json:"document_type"`
	Summary      *model.AnalysisSummary `json:"summary"`
	Clauses      []model.Clause         `json:"clauses"`
	Disclaimer   string                 `json:"disclaimer"`
}
