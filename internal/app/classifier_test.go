package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clausewise/internal/ai"
	"clausewise/internal/model"
)

func threeParagraphs() *model.ExtractedText {
	return model.NewExtractedText("d1", []model.Paragraph{
		{Text: "This lease is between Landlord and Tenant.", Page: 1},
		{Text: "Rent is $900 per month.", Page: 1},
		{Text: "A late fee of $50 applies after five days.", Page: 1},
	}, nil)
}

func replying(reply string) generatorFunc {
	return func(ai.GenerateRequest) (string, error) { return reply, nil }
}

func TestClassifyPicksBestLabel(t *testing.T) {
	gen := newScriptedGenerator(replying(`{
		"document_type": "rental_agreement",
		"clauses": [
			{"paragraph_start": 0, "paragraph_end": 0, "labels": [{"clause_type": "parties_involved", "confidence": 0.9}]},
			{"paragraph_start": 1, "paragraph_end": 2, "labels": [
				{"clause_type": "fees_charges", "confidence": 0.6},
				{"clause_type": "payment_terms", "confidence": 0.8}
			]}
		]
	}`))
	c := NewClauseClassifier(gen, ClassifierConfig{ConfidenceThreshold: 0.5, SchemaRetries: 1})

	result, err := c.Classify(context.Background(), threeParagraphs())
	require.NoError(t, err)

	assert.Equal(t, model.DocumentRentalAgreement, result.DocumentType)
	require.Len(t, result.Clauses, 2)
	assert.Equal(t, "c1", result.Clauses[0].ClauseID)
	assert.Equal(t, model.ClauseType("parties_involved"), result.Clauses[0].ClauseType)
	assert.Equal(t, "c2", result.Clauses[1].ClauseID)
	assert.Equal(t, model.ClauseType("payment_terms"), result.Clauses[1].ClauseType)
	assert.Equal(t, 0.8, result.Clauses[1].Confidence)
	assert.Equal(t, "Rent is $900 per month.\n\nA late fee of $50 applies after five days.", result.Clauses[1].OriginalText)
}

func TestClassifyThresholdAndTieBreak(t *testing.T) {
	gen := newScriptedGenerator(replying(`{
		"document_type": "mortgage deed",
		"clauses": [
			{"paragraph_start": 0, "paragraph_end": 0, "labels": [{"clause_type": "parties_involved", "confidence": 0.5}]},
			{"paragraph_start": 1, "paragraph_end": 1, "labels": [
				{"clause_type": "penalties", "confidence": 0.7},
				{"clause_type": "payment_terms", "confidence": 0.7}
			]},
			{"paragraph_start": 2, "paragraph_end": 2, "labels": [{"clause_type": "fees_charges", "confidence": 0.2}]}
		]
	}`))
	c := NewClauseClassifier(gen, ClassifierConfig{ConfidenceThreshold: 0.5})

	result, err := c.Classify(context.Background(), threeParagraphs())
	require.NoError(t, err)
	require.Len(t, result.Clauses, 3)

	// The best score must exceed the threshold.
	assert.Equal(t, model.ClauseOther, result.Clauses[0].ClauseType)
	assert.Equal(t, 0.5, result.Clauses[0].Confidence)
	// Ties go to the label earlier in the taxonomy.
	assert.Equal(t, model.ClauseType("payment_terms"), result.Clauses[1].ClauseType)
	assert.Equal(t, model.ClauseOther, result.Clauses[2].ClauseType)
	assert.Equal(t, model.DocumentOther, result.DocumentType)
}

func TestClassifyFillsSkippedParagraphs(t *testing.T) {
	gen := newScriptedGenerator(replying(`{"document_type": "rental_agreement", "clauses": [
		{"paragraph_start": 1, "paragraph_end": 1, "labels": [{"clause_type": "payment_terms", "confidence": 0.9}]}
	]}`))
	c := NewClauseClassifier(gen, ClassifierConfig{ConfidenceThreshold: 0.5})

	result, err := c.Classify(context.Background(), threeParagraphs())
	require.NoError(t, err)
	require.Len(t, result.Clauses, 3)
	assert.Equal(t, model.ClauseOther, result.Clauses[0].ClauseType)
	assert.Equal(t, model.ClauseType("payment_terms"), result.Clauses[1].ClauseType)
	assert.Equal(t, model.ClauseOther, result.Clauses[2].ClauseType)
	for i, cl := range result.Clauses {
		assert.Equal(t, i+1, cl.Seq)
		assert.Equal(t, i, cl.ParagraphStart)
		assert.Equal(t, i, cl.ParagraphEnd)
	}
}

func TestClassifyRetriesMalformedReplyOnce(t *testing.T) {
	valid := `{"document_type": "rental_agreement", "clauses": [
		{"paragraph_start": 0, "paragraph_end": 2, "labels": [{"clause_type": "payment_terms", "confidence": 0.9}]}
	]}`
	attempt := 0
	gen := newScriptedGenerator(func(ai.GenerateRequest) (string, error) {
		attempt++
		if attempt == 1 {
			return `{"document_type": "rental_agreement", "clauses": [
				{"paragraph_start": 0, "paragraph_end": 2, "labels": [{"clause_type": "rent_magic", "confidence": 0.9}]}
			]}`, nil
		}
		return valid, nil
	})
	c := NewClauseClassifier(gen, ClassifierConfig{ConfidenceThreshold: 0.5, SchemaRetries: 1})

	result, err := c.Classify(context.Background(), threeParagraphs())
	require.NoError(t, err)
	assert.Len(t, result.Clauses, 1)
	assert.Equal(t, 2, attempt)
}

func TestClassifySchemaFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "not json", reply: "I cannot help with that."},
		{name: "no clauses", reply: `{"document_type": "nda", "clauses": []}`},
		{name: "missing range", reply: `{"clauses": [{"labels": [{"clause_type": "other", "confidence": 0.9}]}]}`},
		{name: "out of range", reply: `{"clauses": [{"paragraph_start": 0, "paragraph_end": 3, "labels": [{"clause_type": "other", "confidence": 0.9}]}]}`},
		{name: "overlap", reply: `{"clauses": [
			{"paragraph_start": 0, "paragraph_end": 1, "labels": [{"clause_type": "other", "confidence": 0.9}]},
			{"paragraph_start": 1, "paragraph_end": 2, "labels": [{"clause_type": "other", "confidence": 0.9}]}
		]}`},
		{name: "missing confidence", reply: `{"clauses": [{"paragraph_start": 0, "paragraph_end": 2, "labels": [{"clause_type": "other"}]}]}`},
		{name: "confidence above one", reply: `{"clauses": [{"paragraph_start": 0, "paragraph_end": 2, "labels": [{"clause_type": "other", "confidence": 1.5}]}]}`},
		{name: "no labels", reply: `{"clauses": [{"paragraph_start": 0, "paragraph_end": 2, "labels": []}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newScriptedGenerator(replying(tt.reply))
			c := NewClauseClassifier(gen, ClassifierConfig{ConfidenceThreshold: 0.5, SchemaRetries: 1})

			_, err := c.Classify(context.Background(), threeParagraphs())
			assert.ErrorIs(t, err, ErrClassification)
			assert.ErrorIs(t, err, ErrSchemaValidation)
			assert.Equal(t, 2, gen.calls("Split the document"))
		})
	}
}

func TestClassifyDoesNotRetryEngineErrors(t *testing.T) {
	gen := newScriptedGenerator(func(ai.GenerateRequest) (string, error) {
		return "", &ai.StatusError{StatusCode: 503, Body: "overloaded"}
	})
	c := NewClauseClassifier(gen, ClassifierConfig{ConfidenceThreshold: 0.5, SchemaRetries: 1})

	_, err := c.Classify(context.Background(), threeParagraphs())
	assert.ErrorIs(t, err, ErrClassification)
	assert.NotErrorIs(t, err, ErrSchemaValidation)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 1, gen.calls("Split the document"))
}

func TestClassifyPromptListsTaxonomyAndParagraphs(t *testing.T) {
	gen := newScriptedGenerator(replying(`{"clauses": [{"paragraph_start": 0, "paragraph_end": 2, "labels": [{"clause_type": "other", "confidence": 0.9}]}]}`))
	c := NewClauseClassifier(gen, ClassifierConfig{ConfidenceThreshold: 0.5})

	_, err := c.Classify(context.Background(), threeParagraphs())
	require.NoError(t, err)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "- security_deposit: ")
	assert.Contains(t, gen.prompts[0], "[1] Rent is $900 per month.")
	assert.Contains(t, gen.prompts[0], "rental_agreement, loan_contract")
}
