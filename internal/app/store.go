package app

import (
	"context"

	"clausewise/internal/model"
	"clausewise/internal/repository"
)

// ArtifactStore is the persistence the pipeline needs. repository.ArtifactStore
// implements it on gorm.
type ArtifactStore interface {
	CreateDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListDocuments(ctx context.Context, limit, offset int) ([]model.Document, error)
	GetExtractedText(ctx context.Context, documentID string) (*model.ExtractedText, error)
	ListClauses(ctx context.Context, documentID string) ([]model.Clause, error)
	GetSummary(ctx context.Context, documentID string) (*model.AnalysisSummary, error)
	ListEmbeddings(ctx context.Context, scope string) ([]model.EmbeddingRecord, error)
	AppendQA(ctx context.Context, exchange *model.QAExchange) error
	ListQA(ctx context.Context, documentID string, limit int) ([]model.QAExchange, error)

	CommitStage(ctx context.Context, c repository.StageCommit) error
	RecordFailure(ctx context.Context, f repository.Failure) error
	Rewind(ctx context.Context, documentID string, expected, expectedFailed, to model.Stage) error
}

// BlobStore keeps the raw uploaded bytes.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

type Extractor interface {
	Supports(mimeType string) bool
	Extract(ctx context.Context, raw []byte, mimeType string) (*model.ExtractedText, error)
}

// AnalysisCache holds rendered analysis views. Implementations must tolerate
// being unavailable; a miss is never an error.
type AnalysisCache interface {
	Get(ctx context.Context, documentID string) (*AnalysisView, bool, error)
	Set(ctx context.Context, documentID string, view *AnalysisView) error
	Delete(ctx context.Context, documentID string) error
}

type EventPublisher interface {
	PublishStageEvent(ctx context.Context, event model.StageEvent) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*AnalysisView, bool, error) { return nil, false, nil }
func (noopCache) Set(context.Context, string, *AnalysisView) error         { return nil }
func (noopCache) Delete(context.Context, string) error                     { return nil }

type noopPublisher struct{}

func (noopPublisher) PublishStageEvent(context.Context, model.StageEvent) error { return nil }
