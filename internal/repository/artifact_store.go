package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"clausewise/internal/model"
)

// StageCommit is everything one stage produces. It is written in a single
// transaction together with the stage move, so a failed or abandoned stage
// leaves no partial artifacts.
type StageCommit struct {
	DocumentID string
	// Expected is the stage the document must be in. When it is failed,
	// ExpectedFailed must match the recorded failed stage.
	Expected       model.Stage
	ExpectedFailed model.Stage
	To             model.Stage

	DocumentType      model.DocumentType
	ExtractedText     *model.ExtractedText
	Clauses           []model.Clause
	ReplaceClauses    bool
	Summary           *model.AnalysisSummary
	Embeddings        []model.EmbeddingRecord
	ReplaceEmbeddings bool
}

type Failure struct {
	DocumentID     string
	Expected       model.Stage
	ExpectedFailed model.Stage
	Stage          model.Stage
	Kind           string
	Message        string
}

// ArtifactStore groups the per-entity repositories behind one transactional API.
type ArtifactStore struct {
	db *gorm.DB

	documents  *DocumentRepository
	texts      *ExtractedTextRepository
	clauses    *ClauseRepository
	summaries  *SummaryRepository
	embeddings *EmbeddingRepository
	qa         *QARepository
}

func NewArtifactStore(db *gorm.DB) *ArtifactStore {
	return &ArtifactStore{
		db:         db,
		documents:  NewDocumentRepository(db),
		texts:      NewExtractedTextRepository(db),
		clauses:    NewClauseRepository(db),
		summaries:  NewSummaryRepository(db),
		embeddings: NewEmbeddingRepository(db),
		qa:         NewQARepository(db),
	}
}

func (s *ArtifactStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	return s.documents.Create(ctx, doc)
}

func (s *ArtifactStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	return s.documents.GetByID(ctx, id)
}

func (s *ArtifactStore) ListDocuments(ctx context.Context, limit, offset int) ([]model.Document, error) {
	return s.documents.List(ctx, limit, offset)
}

func (s *ArtifactStore) GetExtractedText(ctx context.Context, documentID string) (*model.ExtractedText, error) {
	return s.texts.GetByDocumentID(ctx, documentID)
}

func (s *ArtifactStore) ListClauses(ctx context.Context, documentID string) ([]model.Clause, error) {
	return s.clauses.ListByDocumentID(ctx, documentID)
}

func (s *ArtifactStore) GetSummary(ctx context.Context, documentID string) (*model.AnalysisSummary, error) {
	return s.summaries.GetByDocumentID(ctx, documentID)
}

func (s *ArtifactStore) ListEmbeddings(ctx context.Context, scope string) ([]model.EmbeddingRecord, error) {
	return s.embeddings.ListByScope(ctx, scope)
}

func (s *ArtifactStore) AppendQA(ctx context.Context, exchange *model.QAExchange) error {
	return s.qa.Create(ctx, exchange)
}

func (s *ArtifactStore) ListQA(ctx context.Context, documentID string, limit int) ([]model.QAExchange, error) {
	return s.qa.ListByDocumentID(ctx, documentID, limit)
}

func (s *ArtifactStore) CommitStage(ctx context.Context, c StageCommit) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		docs := NewDocumentRepository(tx)
		if _, err := docs.lockForStage(c.DocumentID, c.Expected, c.ExpectedFailed); err != nil {
			return err
		}

		if c.ExtractedText != nil {
			c.ExtractedText.DocumentID = c.DocumentID
			if err := NewExtractedTextRepository(tx).Replace(c.ExtractedText); err != nil {
				return err
			}
		}
		if c.ReplaceClauses {
			for i := range c.Clauses {
				c.Clauses[i].DocumentID = c.DocumentID
			}
			if err := NewClauseRepository(tx).ReplaceForDocument(c.DocumentID, c.Clauses); err != nil {
				return err
			}
		}
		if c.Summary != nil {
			c.Summary.DocumentID = c.DocumentID
			if err := NewSummaryRepository(tx).Replace(c.Summary); err != nil {
				return err
			}
		}
		if c.ReplaceEmbeddings {
			if err := NewEmbeddingRepository(tx).ReplaceScope(model.DocumentScope(c.DocumentID), c.Embeddings); err != nil {
				return err
			}
		}

		return docs.setStage(c.DocumentID, c.To, c.DocumentType)
	})
}

func (s *ArtifactStore) RecordFailure(ctx context.Context, f Failure) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		docs := NewDocumentRepository(tx)
		if _, err := docs.lockForStage(f.DocumentID, f.Expected, f.ExpectedFailed); err != nil {
			return err
		}
		return docs.setFailure(f.DocumentID, f.Stage, f.Kind, f.Message, time.Now())
	})
}

// Rewind moves a document back to stage to and drops the artifacts of every
// later stage, so they are rebuilt by the next advance.
func (s *ArtifactStore) Rewind(ctx context.Context, documentID string, expected, expectedFailed, to model.Stage) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		docs := NewDocumentRepository(tx)
		if _, err := docs.lockForStage(documentID, expected, expectedFailed); err != nil {
			return err
		}

		rank := to.Rank()
		if rank < model.StageExtracted.Rank() {
			if err := NewExtractedTextRepository(tx).DeleteByDocumentID(documentID); err != nil {
				return err
			}
		}
		if rank < model.StageClassified.Rank() {
			if err := NewClauseRepository(tx).DeleteByDocumentID(documentID); err != nil {
				return err
			}
			if err := docs.clearDocumentType(documentID); err != nil {
				return err
			}
		}
		if rank < model.StageAnalyzed.Rank() {
			if err := NewSummaryRepository(tx).DeleteByDocumentID(documentID); err != nil {
				return err
			}
		}
		if rank < model.StageIndexed.Rank() {
			if err := NewEmbeddingRepository(tx).DeleteByScope(model.DocumentScope(documentID)); err != nil {
				return err
			}
		}
		return docs.setStage(documentID, to, "")
	})
}
