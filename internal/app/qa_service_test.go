package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clausewise/internal/ai"
	"clausewise/internal/model"
)

func readyLease(t *testing.T) (*pipelineFixture, *model.Document) {
	t.Helper()
	f := newPipelineFixture(t)
	doc := f.upload(t)
	_, err := f.coord.Process(context.Background(), doc.ID)
	require.NoError(t, err)
	return f, doc
}

func TestAskFiltersCitationsToOfferedSources(t *testing.T) {
	ctx := context.Background()
	f, doc := readyLease(t)
	f.gen.set(func(req ai.GenerateRequest) (string, error) {
		return `{"answer": "The landlord keeps the whole deposit after any breach.", "confidence": 1.7, "citations": ["D1", "L1", "D9", "d1", "Clause 3"]}`, nil
	})

	answer, err := f.qa.Ask(ctx, doc.ID, "  What happens to my security deposit?  ")
	require.NoError(t, err)

	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "D1", answer.Sources[0].Label)
	assert.Equal(t, "c3", answer.Sources[0].ChunkID)
	assert.Equal(t, "L1", answer.Sources[1].Label)
	assert.Equal(t, model.CorpusScope, answer.Sources[1].Scope)
	assert.Contains(t, answer.Sources[1].Citation, "Security Deposits")

	ex := answer.Exchange
	assert.Equal(t, "What happens to my security deposit?", ex.Question)
	assert.True(t, strings.HasSuffix(ex.Answer, Disclaimer))
	assert.Equal(t, 1.0, ex.Confidence)
	assert.Equal(t, []string{answer.Sources[0].Citation, answer.Sources[1].Citation}, ex.CitationList())

	// The prompt offers five clauses and two law passages.
	var prompt string
	for _, p := range f.gen.prompts {
		if strings.Contains(p, "Answer the question") {
			prompt = p
		}
	}
	assert.Contains(t, prompt, "[D4]")
	assert.NotContains(t, prompt, "[D5]")
	assert.Contains(t, prompt, "[L2]")
	assert.NotContains(t, prompt, "[L3]")

	history, err := f.qa.History(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ex.Question, history[0].Question)
}

func TestAskIncludesEarlierExchanges(t *testing.T) {
	ctx := context.Background()
	f, doc := readyLease(t)
	f.gen.set(replying(`{"answer": "Answer.", "confidence": 0.5, "citations": []}`))

	_, err := f.qa.Ask(ctx, doc.ID, "What is the rent?")
	require.NoError(t, err)
	_, err = f.qa.Ask(ctx, doc.ID, "And when is it due?")
	require.NoError(t, err)

	last := f.gen.prompts[len(f.gen.prompts)-1]
	assert.Contains(t, last, "Q: What is the rent?")
	assert.Contains(t, last, "Question: And when is it due?")

	history, err := f.qa.History(ctx, doc.ID, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "And when is it due?", history[0].Question)
}

func TestAskRejections(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t)
	doc := f.upload(t)

	_, err := f.qa.Ask(ctx, doc.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.qa.Ask(ctx, doc.ID, strings.Repeat("a", maxQuestionRunes+1))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.qa.Ask(ctx, "missing", "What?")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	for _, stage := range []model.Stage{model.StageExtracted, model.StageClassified, model.StageAnalyzed} {
		_, err := f.coord.Advance(ctx, doc.ID, stage)
		require.NoError(t, err)
		_, err = f.qa.Ask(ctx, doc.ID, "What is the rent?")
		assert.ErrorIs(t, err, ErrNotReady, "stage %s", stage)
	}
	assert.Zero(t, f.gen.calls("Answer the question"))
}

func TestAskGenerationFailure(t *testing.T) {
	ctx := context.Background()
	f, doc := readyLease(t)

	f.gen.set(replying(`{"answer": "", "citations": []}`))
	_, err := f.qa.Ask(ctx, doc.ID, "What is the rent?")
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, ErrSchemaValidation)

	f.gen.set(func(ai.GenerateRequest) (string, error) {
		return "", &ai.StatusError{StatusCode: 429, Body: "slow down"}
	})
	_, err = f.qa.Ask(ctx, doc.ID, "What is the rent?")
	assert.ErrorIs(t, err, ErrGeneration)
	assert.True(t, IsRetryable(err))

	history, err := f.qa.History(ctx, doc.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAskSurvivesCorpusOutage(t *testing.T) {
	ctx := context.Background()
	f, doc := readyLease(t)
	f.gen.set(replying(`{"answer": "Rent is $1,200.", "confidence": 0.9, "citations": ["D1", "L1"]}`))

	// A fresh indexer whose corpus has never been built and cannot be.
	emb := newHashEmbedder()
	ix := NewKnowledgeIndexer(emb, f.store, BuiltinCorpus(), IndexerConfig{})
	qa := NewQAService(f.store, ix, f.gen, QAConfig{DocumentTopK: 5, CorpusTopM: 2})
	ix.corpus.build = func(context.Context, []CorpusEntry) ([]model.EmbeddingRecord, error) {
		return nil, ErrEmbedding
	}

	answer, err := qa.Ask(ctx, doc.ID, "What is the rent?")
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "D1", answer.Sources[0].Label)
}

func TestSearchDocumentAndCorpus(t *testing.T) {
	ctx := context.Background()
	f, doc := readyLease(t)

	sources, err := f.qa.SearchDocument(ctx, doc.ID, "security deposit forfeited", 2)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "c3", sources[0].ChunkID)

	law, err := f.qa.SearchCorpus(ctx, "non-compete employment scope", 1)
	require.NoError(t, err)
	require.Len(t, law, 1)
	assert.Equal(t, "L1", law[0].Label)
	assert.Equal(t, "employment-non-compete", law[0].ChunkID)

	_, err = f.qa.SearchCorpus(ctx, " ", 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSuggestQuestions(t *testing.T) {
	got := SuggestQuestions(model.DocumentRentalAgreement, []model.Clause{
		{ClauseType: "security_deposit"},
		{ClauseType: "limitation_liability"},
	})
	require.Len(t, got, maxSuggestedQuestions)
	assert.Equal(t, "When and how will I get my security deposit back?", got[0])
	assert.Equal(t, "What damages can I recover if something goes wrong?", got[1])
	assert.Equal(t, "What happens if I miss a rent payment?", got[2])

	generic := SuggestQuestions(model.DocumentOther, nil)
	assert.Equal(t, baseQuestions, generic)
}

func TestSuggestedQuestionsForStoredDocument(t *testing.T) {
	ctx := context.Background()
	f, doc := readyLease(t)

	got, err := f.qa.SuggestedQuestions(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "When and how will I get my security deposit back?", got[0])

	fresh := f.upload(t)
	got, err = f.qa.SuggestedQuestions(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, baseQuestions, got)
}
