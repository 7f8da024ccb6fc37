package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"clausewise/internal/model"
	"clausewise/internal/platform/sqlite"
)

func newTestStore(t *testing.T) *ArtifactStore {
	t.Helper()
	db, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewArtifactStore(db)
}

func seedDocument(t *testing.T, s *ArtifactStore, id string) {
	t.Helper()
	require.NoError(t, s.CreateDocument(context.Background(), &model.Document{
		ID:       id,
		FileName: "lease.pdf",
		MimeType: "application/pdf",
		FileSize: 42,
		BlobKey:  "documents/" + id,
		Stage:    model.StageUploaded,
	}))
}

func embeddingRecord(chunkID string, vec ...float32) model.EmbeddingRecord {
	r := model.EmbeddingRecord{ChunkID: chunkID, Text: chunkID}
	r.SetEmbedding(vec)
	return r
}

func TestGetDocumentNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestCommitStageMovesStageWithArtifacts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedDocument(t, s, "d1")

	text := model.NewExtractedText("", []model.Paragraph{{Text: "Rent is due monthly.", Page: 1}}, nil)
	require.NoError(t, s.CommitStage(ctx, StageCommit{
		DocumentID:    "d1",
		Expected:      model.StageUploaded,
		To:            model.StageExtracted,
		ExtractedText: text,
	}))

	doc, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.StageExtracted, doc.Stage)

	stored, err := s.GetExtractedText(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, stored.ParagraphList(), 1)
	assert.Equal(t, "Rent is due monthly.", stored.ParagraphList()[0].Text)

	clauses := []model.Clause{
		{ClauseID: "c2", Seq: 2, ClauseType: "payment_terms", OriginalText: "b"},
		{ClauseID: "c1", Seq: 1, ClauseType: "parties_involved", OriginalText: "a"},
	}
	require.NoError(t, s.CommitStage(ctx, StageCommit{
		DocumentID:     "d1",
		Expected:       model.StageExtracted,
		To:             model.StageClassified,
		DocumentType:   model.DocumentRentalAgreement,
		Clauses:        clauses,
		ReplaceClauses: true,
	}))

	listed, err := s.ListClauses(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "c1", listed[0].ClauseID)
	assert.Equal(t, "c2", listed[1].ClauseID)

	doc, err = s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.DocumentRentalAgreement, doc.DocumentType)
}

func TestCommitStageRejectsWrongStage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedDocument(t, s, "d1")

	err := s.CommitStage(ctx, StageCommit{
		DocumentID:     "d1",
		Expected:       model.StageExtracted,
		To:             model.StageClassified,
		Clauses:        []model.Clause{{ClauseID: "c1", Seq: 1, ClauseType: "other", OriginalText: "x"}},
		ReplaceClauses: true,
	})
	assert.ErrorIs(t, err, ErrStageConflict)

	doc, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.StageUploaded, doc.Stage)

	clauses, err := s.ListClauses(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, clauses)
}

func TestRecordFailureAndCommitFromFailed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedDocument(t, s, "d1")

	require.NoError(t, s.RecordFailure(ctx, Failure{
		DocumentID: "d1",
		Expected:   model.StageUploaded,
		Stage:      model.StageExtracted,
		Kind:       "extraction",
		Message:    "no text",
	}))

	doc, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.StageFailed, doc.Stage)
	assert.Equal(t, model.StageExtracted, doc.FailedStage)
	assert.Equal(t, "extraction", doc.ErrorKind)
	assert.NotNil(t, doc.FailedAt)

	// A retry must name the failed stage.
	err = s.CommitStage(ctx, StageCommit{
		DocumentID:     "d1",
		Expected:       model.StageFailed,
		ExpectedFailed: model.StageClassified,
		To:             model.StageClassified,
	})
	assert.ErrorIs(t, err, ErrStageConflict)

	require.NoError(t, s.CommitStage(ctx, StageCommit{
		DocumentID:     "d1",
		Expected:       model.StageFailed,
		ExpectedFailed: model.StageExtracted,
		To:             model.StageExtracted,
		ExtractedText:  model.NewExtractedText("", []model.Paragraph{{Text: "ok", Page: 1}}, nil),
	}))
	doc, err = s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.StageExtracted, doc.Stage)
	assert.Empty(t, doc.FailedStage)
	assert.Empty(t, doc.ErrorKind)
	assert.Nil(t, doc.FailedAt)
}

func TestEmbeddingsReplaceAtomically(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedDocument(t, s, "d1")
	s.documents.db.Model(&model.Document{}).Where("id = ?", "d1").Update("stage", model.StageAnalyzed)

	require.NoError(t, s.CommitStage(ctx, StageCommit{
		DocumentID:        "d1",
		Expected:          model.StageAnalyzed,
		To:                model.StageIndexed,
		Embeddings:        []model.EmbeddingRecord{embeddingRecord("old-1", 1, 0), embeddingRecord("old-2", 0, 1)},
		ReplaceEmbeddings: true,
	}))

	records, err := s.ListEmbeddings(ctx, model.DocumentScope("d1"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "old-1", records[0].ChunkID)
	assert.Equal(t, []float32{1, 0}, records[0].EmbeddingVector())

	// A failing replace keeps the old set.
	err = s.CommitStage(ctx, StageCommit{
		DocumentID:        "d1",
		Expected:          model.StageReady,
		To:                model.StageReady,
		Embeddings:        []model.EmbeddingRecord{embeddingRecord("new-1", 1, 1)},
		ReplaceEmbeddings: true,
	})
	assert.ErrorIs(t, err, ErrStageConflict)
	records, err = s.ListEmbeddings(ctx, model.DocumentScope("d1"))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.NoError(t, s.CommitStage(ctx, StageCommit{
		DocumentID:        "d1",
		Expected:          model.StageIndexed,
		To:                model.StageIndexed,
		Embeddings:        []model.EmbeddingRecord{embeddingRecord("new-1", 1, 1), embeddingRecord("new-2", 2, 2)},
		ReplaceEmbeddings: true,
	}))
	records, err = s.ListEmbeddings(ctx, model.DocumentScope("d1"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new-1", records[0].ChunkID)
	assert.Equal(t, "new-2", records[1].ChunkID)
	assert.Less(t, records[0].ID, records[1].ID)
}

func TestRewindDropsLaterArtifacts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedDocument(t, s, "d1")

	require.NoError(t, s.CommitStage(ctx, StageCommit{
		DocumentID: "d1", Expected: model.StageUploaded, To: model.StageExtracted,
		ExtractedText: model.NewExtractedText("", []model.Paragraph{{Text: "p", Page: 1}}, nil),
	}))
	require.NoError(t, s.CommitStage(ctx, StageCommit{
		DocumentID: "d1", Expected: model.StageExtracted, To: model.StageClassified, DocumentType: model.DocumentRentalAgreement,
		Clauses: []model.Clause{{ClauseID: "c1", Seq: 1, ClauseType: "other", OriginalText: "p"}}, ReplaceClauses: true,
	}))
	require.NoError(t, s.CommitStage(ctx, StageCommit{
		DocumentID: "d1", Expected: model.StageClassified, To: model.StageAnalyzed,
		Summary: &model.AnalysisSummary{OverallRisk: model.RiskLow, KeyFindings: datatypes.NewJSONType([]string{"none"})},
	}))

	require.NoError(t, s.Rewind(ctx, "d1", model.StageAnalyzed, "", model.StageClassified))
	doc, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.DocumentRentalAgreement, doc.DocumentType)

	require.NoError(t, s.Rewind(ctx, "d1", model.StageClassified, "", model.StageExtracted))

	doc, err = s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.StageExtracted, doc.Stage)
	assert.Empty(t, doc.DocumentType)

	_, err = s.GetExtractedText(ctx, "d1")
	assert.NoError(t, err)
	clauses, err := s.ListClauses(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, clauses)
	_, err = s.GetSummary(ctx, "d1")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestQAHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedDocument(t, s, "d1")

	base := time.Now()
	for i, q := range []string{"first", "second", "third"} {
		require.NoError(t, s.AppendQA(ctx, &model.QAExchange{
			DocumentID: "d1",
			Question:   q,
			Answer:     "a",
			Citations:  datatypes.NewJSONType([]string{"D1"}),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	list, err := s.ListQA(ctx, "d1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "third", list[0].Question)
	assert.Equal(t, "second", list[1].Question)
	assert.Equal(t, []string{"D1"}, list[0].CitationList())
}
