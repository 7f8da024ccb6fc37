package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"clausewise/internal/ai"
	"clausewise/internal/logger"
	"clausewise/internal/model"
)

type ClassifierConfig struct {
	// ConfidenceThreshold is the score the best label must exceed; otherwise
	// the clause is labelled other.
	ConfidenceThreshold float64
	// SchemaRetries is how many extra attempts a malformed reply gets.
	SchemaRetries int
}

// ClauseClassifier segments extracted text into clauses and labels each one
// from the fixed taxonomy.
type ClauseClassifier struct {
	gen ai.Generator
	cfg ClassifierConfig
	log *logrus.Entry
}

type ClassificationResult struct {
	DocumentType model.DocumentType
	Clauses      []model.Clause
}

type classifyReply struct {
	DocumentType string         `json:"document_type"`
	Clauses      []classifySpan `json:"clauses"`
}

type classifySpan struct {
	ParagraphStart *int            `json:"paragraph_start"`
	ParagraphEnd   *int            `json:"paragraph_end"`
	Labels         []classifyLabel `json:"labels"`
}

type classifyLabel struct {
	ClauseType string   `json:"clause_type"`
	Confidence *float64 `json:"confidence"`
}

func NewClauseClassifier(gen ai.Generator, cfg ClassifierConfig) *ClauseClassifier {
	if cfg.SchemaRetries < 0 {
		cfg.SchemaRetries = 0
	}
	return &ClauseClassifier{gen: gen, cfg: cfg, log: logger.For("classifier")}
}

// Classify returns the ordered clause set of text. Engine errors are not
// retried; a reply that fails validation is retried SchemaRetries times.
func (c *ClauseClassifier) Classify(ctx context.Context, text *model.ExtractedText) (*ClassificationResult, error) {
	paragraphs := text.ParagraphList()
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("%w: document has no paragraphs", ErrClassification)
	}

	docTypes := make([]string, 0, len(model.DocumentTypes()))
	for _, t := range model.DocumentTypes() {
		docTypes = append(docTypes, string(t))
	}
	prompt, err := renderPrompt(promptClassify, classifyPromptData{
		Taxonomy:      model.Taxonomy(),
		DocumentTypes: docTypes,
		Paragraphs:    paragraphs,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassification, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.SchemaRetries; attempt++ {
		var reply classifyReply
		err := generateJSON(ctx, c.gen, prompt, &reply)
		if err == nil {
			var result *ClassificationResult
			result, err = c.build(reply, paragraphs)
			if err == nil {
				return result, nil
			}
		}
		if !isSchemaError(err) {
			return nil, fmt.Errorf("%w: %w", ErrClassification, err)
		}
		lastErr = err
		c.log.WithFields(logrus.Fields{"attempt": attempt + 1, "error": err}).Warn("classification reply rejected")
	}
	return nil, fmt.Errorf("%w: %w", ErrClassification, lastErr)
}

func (c *ClauseClassifier) build(reply classifyReply, paragraphs []model.Paragraph) (*ClassificationResult, error) {
	if len(reply.Clauses) == 0 {
		return nil, schemaErrorf("reply has no clauses")
	}

	var (
		clauses []model.Clause
		next    int
	)
	for i, span := range reply.Clauses {
		if span.ParagraphStart == nil || span.ParagraphEnd == nil {
			return nil, schemaErrorf("clause %d: missing paragraph range", i)
		}
		start, end := *span.ParagraphStart, *span.ParagraphEnd
		if start < 0 || end >= len(paragraphs) || start > end {
			return nil, schemaErrorf("clause %d: paragraph range [%d,%d] outside 0..%d", i, start, end, len(paragraphs)-1)
		}
		if start < next {
			return nil, schemaErrorf("clause %d: paragraph range [%d,%d] overlaps or is out of order", i, start, end)
		}
		clauseType, confidence, err := c.pickLabel(span.Labels)
		if err != nil {
			return nil, schemaErrorf("clause %d: %v", i, err)
		}

		if start > next {
			clauses = append(clauses, gapClause(paragraphs, next, start-1))
		}
		clauses = append(clauses, model.Clause{
			ClauseType:     clauseType,
			Confidence:     confidence,
			ParagraphStart: start,
			ParagraphEnd:   end,
			OriginalText:   joinParagraphs(paragraphs, start, end),
		})
		next = end + 1
	}
	if next < len(paragraphs) {
		clauses = append(clauses, gapClause(paragraphs, next, len(paragraphs)-1))
	}

	for i := range clauses {
		clauses[i].Seq = i + 1
		clauses[i].ClauseID = model.ClauseIDFor(i + 1)
	}
	return &ClassificationResult{
		DocumentType: model.NormalizeDocumentType(reply.DocumentType),
		Clauses:      clauses,
	}, nil
}

// pickLabel returns the highest-confidence label. Ties go to the label that
// comes first in the taxonomy; a best score at or below the threshold yields other.
func (c *ClauseClassifier) pickLabel(labels []classifyLabel) (model.ClauseType, float64, error) {
	if len(labels) == 0 {
		return "", 0, fmt.Errorf("no labels")
	}
	var (
		best     model.ClauseType
		bestConf = -1.0
	)
	for _, l := range labels {
		t := model.ClauseType(strings.ToLower(strings.TrimSpace(l.ClauseType)))
		if !t.Valid() {
			return "", 0, fmt.Errorf("unknown clause type %q", l.ClauseType)
		}
		if l.Confidence == nil {
			return "", 0, fmt.Errorf("label %s has no confidence", t)
		}
		conf := *l.Confidence
		if conf < 0 || conf > 1 {
			return "", 0, fmt.Errorf("label %s confidence %v outside [0,1]", t, conf)
		}
		if conf > bestConf || (conf == bestConf && t.Order() < best.Order()) {
			best, bestConf = t, conf
		}
	}
	if bestConf <= c.cfg.ConfidenceThreshold {
		return model.ClauseOther, bestConf, nil
	}
	return best, bestConf, nil
}

// gapClause covers paragraphs the reply skipped so the clause set spans the
// whole document.
func gapClause(paragraphs []model.Paragraph, start, end int) model.Clause {
	return model.Clause{
		ClauseType:     model.ClauseOther,
		ParagraphStart: start,
		ParagraphEnd:   end,
		OriginalText:   joinParagraphs(paragraphs, start, end),
	}
}

func joinParagraphs(paragraphs []model.Paragraph, start, end int) string {
	parts := make([]string, 0, end-start+1)
	for _, p := range paragraphs[start : end+1] {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}
