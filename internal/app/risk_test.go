package app

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clausewise/internal/ai"
	"clausewise/internal/model"
)

func TestAggregateRisk(t *testing.T) {
	assert.Equal(t, model.RiskLow, AggregateRisk(nil))
	assert.Equal(t, model.RiskLow, AggregateRisk([]model.RiskLevel{model.RiskLow, model.RiskLow}))

	levels := []model.RiskLevel{model.RiskLow, model.RiskMedium, model.RiskHigh, model.RiskLow}
	permutations := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {2, 0, 3, 1}, {1, 3, 0, 2}}
	for _, perm := range permutations {
		shuffled := make([]model.RiskLevel, len(perm))
		for i, p := range perm {
			shuffled[i] = levels[p]
		}
		assert.Equal(t, model.RiskHigh, AggregateRisk(shuffled), "order %v", perm)
	}
	assert.Equal(t, model.RiskMedium, AggregateRisk([]model.RiskLevel{model.RiskMedium, model.RiskLow}))
}

// riskAnalyst rates a clause high when it forfeits the whole deposit, low otherwise.
func riskAnalyst(req ai.GenerateRequest) (string, error) {
	switch {
	case strings.Contains(req.Prompt, "Assess one clause"):
		if strings.Contains(req.Prompt, "forfeited entirely") {
			return `{"plain_language": "You lose the whole deposit if you break any rule.",
				"risk_level": "HIGH",
				"risk_reason": "Forfeiting the entire deposit for any breach is a disproportionate forfeiture.",
				"recommendations": ["Limit deductions to actual damages", " ", "Ask for an itemized statement", "Set a return deadline", "Get it in writing"],
				"citations": ["State Housing Law"]}`, nil
		}
		return `{"plain_language": "Standard wording.", "risk_level": "low", "risk_reason": "Balanced obligations.", "recommendations": []}`, nil
	case strings.Contains(req.Prompt, "Summarize this"):
		return `{"summary": "The deposit terms are one-sided.", "key_findings": ["Deposit can be forfeited entirely", "Rent is fixed"]}`, nil
	case strings.Contains(req.Prompt, "Answer the question"):
		return `{"answer": "See the deposit clause.", "confidence": 0.8, "citations": ["D1"]}`, nil
	}
	return "", fmt.Errorf("unexpected prompt")
}

func TestAssessSecurityDepositForfeiture(t *testing.T) {
	gen := newScriptedGenerator(riskAnalyst)
	a := NewRiskAssessor(gen, RiskAssessorConfig{Concurrency: 2})

	clauses := []model.Clause{
		{ClauseID: "c1", Seq: 1, ClauseType: "parties_involved", OriginalText: "Between Landlord and Tenant."},
		{ClauseID: "c2", Seq: 2, ClauseType: "security_deposit", OriginalText: "The deposit is forfeited entirely upon any breach."},
	}
	result, err := a.Assess(context.Background(), model.DocumentRentalAgreement, clauses)
	require.NoError(t, err)
	require.Len(t, result.Clauses, 2)

	deposit := result.Clauses[1]
	assert.Equal(t, model.RiskHigh, deposit.RiskLevel)
	assert.Contains(t, deposit.RiskRationale, "disproportionate forfeiture")
	assert.Equal(t, []string{"Limit deductions to actual damages", "Ask for an itemized statement", "Set a return deadline"}, deposit.RecommendationList())
	assert.Equal(t, []string{"State Housing Law"}, deposit.CitationList())
	assert.Equal(t, model.RiskLow, result.Clauses[0].RiskLevel)

	assert.Equal(t, model.RiskHigh, result.Summary.OverallRisk)
	assert.Equal(t, 2, result.Summary.ClauseCount)
	assert.Equal(t, 1, result.Summary.HighRiskCount)
	assert.Equal(t, 1, result.Summary.LowRiskCount)
	assert.Equal(t, "The deposit terms are one-sided.", result.Summary.Summary)
	assert.Len(t, result.Summary.KeyFindingList(), 2)

	// The red-flag rule for deposits reaches the engine.
	var depositPrompt string
	for _, p := range gen.prompts {
		if strings.Contains(p, "forfeited entirely upon any breach") && strings.Contains(p, "Assess one clause") {
			depositPrompt = p
		}
	}
	assert.Contains(t, depositPrompt, "disproportionate forfeiture")

	// Inputs are not modified.
	assert.Empty(t, clauses[1].RiskLevel)
}

func TestAssessFailsWholeDocumentOnOneBadClause(t *testing.T) {
	gen := newScriptedGenerator(func(req ai.GenerateRequest) (string, error) {
		if strings.Contains(req.Prompt, "Clause B") {
			return `{"plain_language": "x", "risk_level": "severe", "risk_reason": "y"}`, nil
		}
		return riskAnalyst(req)
	})
	a := NewRiskAssessor(gen, RiskAssessorConfig{Concurrency: 4})

	_, err := a.Assess(context.Background(), model.DocumentOther, []model.Clause{
		{ClauseID: "c1", ClauseType: "other", OriginalText: "Clause A"},
		{ClauseID: "c2", ClauseType: "other", OriginalText: "Clause B"},
	})
	assert.ErrorIs(t, err, ErrAnalysis)
	assert.ErrorIs(t, err, ErrSchemaValidation)
	assert.Contains(t, err.Error(), "c2")
}

func TestAssessEngineErrorIsAnalysisError(t *testing.T) {
	gen := newScriptedGenerator(func(ai.GenerateRequest) (string, error) {
		return "", &ai.StatusError{StatusCode: 500, Body: "boom"}
	})
	a := NewRiskAssessor(gen, RiskAssessorConfig{Concurrency: 1})

	_, err := a.Assess(context.Background(), model.DocumentOther, []model.Clause{{ClauseID: "c1", ClauseType: "other", OriginalText: "x"}})
	assert.ErrorIs(t, err, ErrAnalysis)
	assert.Equal(t, KindAnalysis, ErrorKind(err))
}
