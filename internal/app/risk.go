package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"clausewise/internal/ai"
	"clausewise/internal/logger"
	"clausewise/internal/model"
)

const (
	maxRecommendations = 3
	maxKeyFindings     = 5
)

type RiskAssessorConfig struct {
	// Concurrency bounds the clause assessments in flight for one document.
	Concurrency int
}

// RiskAssessor explains each clause in plain language, rates its risk and
// summarizes the document.
type RiskAssessor struct {
	gen ai.Generator
	cfg RiskAssessorConfig
	log *logrus.Entry
}

type AnalysisResult struct {
	Clauses []model.Clause
	Summary *model.AnalysisSummary
}

type assessReply struct {
	PlainLanguage   string   `json:"plain_language"`
	RiskLevel       string   `json:"risk_level"`
	RiskReason      string   `json:"risk_reason"`
	Recommendations []string `json:"recommendations"`
	Citations       []string `json:"citations"`
}

type summarizeReply struct {
	Summary     string   `json:"summary"`
	KeyFindings []string `json:"key_findings"`
}

func NewRiskAssessor(gen ai.Generator, cfg RiskAssessorConfig) *RiskAssessor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &RiskAssessor{gen: gen, cfg: cfg, log: logger.For("risk")}
}

// Assess enriches every clause and builds the document summary. The first
// failing clause cancels the others and nothing is returned.
func (a *RiskAssessor) Assess(ctx context.Context, docType model.DocumentType, clauses []model.Clause) (*AnalysisResult, error) {
	enriched := make([]model.Clause, len(clauses))
	copy(enriched, clauses)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i := range enriched {
		i := i
		g.Go(func() error {
			return a.assessClause(gctx, docType, &enriched[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysis, err)
	}

	summary, err := a.summarize(ctx, docType, enriched)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysis, err)
	}
	return &AnalysisResult{Clauses: enriched, Summary: summary}, nil
}

func (a *RiskAssessor) assessClause(ctx context.Context, docType model.DocumentType, clause *model.Clause) error {
	prompt, err := renderPrompt(promptAssess, assessPromptData{
		DocumentType: docType.Label(),
		Info:         clause.ClauseType.Info(),
		Text:         clause.OriginalText,
	})
	if err != nil {
		return err
	}

	var reply assessReply
	if err := generateJSON(ctx, a.gen, prompt, &reply); err != nil {
		return fmt.Errorf("clause %s: %w", clause.ClauseID, err)
	}

	level := model.RiskLevel(strings.ToLower(strings.TrimSpace(reply.RiskLevel)))
	switch {
	case strings.TrimSpace(reply.PlainLanguage) == "":
		return fmt.Errorf("clause %s: %w", clause.ClauseID, schemaErrorf("missing plain_language"))
	case !level.Valid():
		return fmt.Errorf("clause %s: %w", clause.ClauseID, schemaErrorf("invalid risk_level %q", reply.RiskLevel))
	case strings.TrimSpace(reply.RiskReason) == "":
		return fmt.Errorf("clause %s: %w", clause.ClauseID, schemaErrorf("missing risk_reason"))
	}

	clause.PlainLanguage = strings.TrimSpace(reply.PlainLanguage)
	clause.RiskLevel = level
	clause.RiskRationale = strings.TrimSpace(reply.RiskReason)
	clause.Recommendations = datatypes.NewJSONType(cleanList(reply.Recommendations, maxRecommendations))
	clause.Citations = datatypes.NewJSONType(cleanList(reply.Citations, 0))

	a.log.WithFields(logrus.Fields{
		"clause_id":   clause.ClauseID,
		"clause_type": clause.ClauseType,
		"risk":        level,
	}).Debug("clause assessed")
	return nil
}

func (a *RiskAssessor) summarize(ctx context.Context, docType model.DocumentType, clauses []model.Clause) (*model.AnalysisSummary, error) {
	summary := &model.AnalysisSummary{
		DocumentType: docType,
		ClauseCount:  len(clauses),
		CreatedAt:    time.Now(),
	}
	levels := make([]model.RiskLevel, 0, len(clauses))
	for _, c := range clauses {
		levels = append(levels, c.RiskLevel)
		switch c.RiskLevel {
		case model.RiskHigh:
			summary.HighRiskCount++
		case model.RiskMedium:
			summary.MediumRiskCount++
		case model.RiskLow:
			summary.LowRiskCount++
		}
	}
	summary.OverallRisk = AggregateRisk(levels)

	if len(clauses) == 0 {
		summary.Summary = "The document contains no classified clauses."
		summary.KeyFindings = datatypes.NewJSONType([]string{})
		return summary, nil
	}

	prompt, err := renderPrompt(promptSummarize, summarizePromptData{
		DocumentType: docType.Label(),
		OverallRisk:  summary.OverallRisk,
		Clauses:      clauses,
	})
	if err != nil {
		return nil, err
	}
	var reply summarizeReply
	if err := generateJSON(ctx, a.gen, prompt, &reply); err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	if strings.TrimSpace(reply.Summary) == "" {
		return nil, fmt.Errorf("summary: %w", schemaErrorf("missing summary"))
	}
	summary.Summary = strings.TrimSpace(reply.Summary)
	summary.KeyFindings = datatypes.NewJSONType(cleanList(reply.KeyFindings, maxKeyFindings))
	return summary, nil
}

// AggregateRisk is the highest level present, or low for an empty set. It
// depends only on the multiset of levels.
func AggregateRisk(levels []model.RiskLevel) model.RiskLevel {
	overall := model.RiskLow
	for _, l := range levels {
		if l.Severity() > overall.Severity() {
			overall = l
		}
	}
	return overall
}

// cleanList trims entries, drops blanks and caps the length when limit > 0.
func cleanList(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
