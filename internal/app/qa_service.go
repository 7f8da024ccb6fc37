package app

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"clausewise/internal/ai"
	"clausewise/internal/logger"
	"clausewise/internal/metrics"
	"clausewise/internal/model"
	"clausewise/internal/retrieval"
)

const (
	Disclaimer = "This analysis is for educational purposes only and does not constitute legal advice. " +
		"Please consult with a qualified attorney for legal decisions."

	maxQuestionRunes = 2000
	// promptHistoryTurns is how many earlier exchanges are shown to the engine.
	promptHistoryTurns = 3
)

type QAConfig struct {
	DocumentTopK int
	CorpusTopM   int
	HistoryLimit int
	// Timeout bounds one Ask, retrieval and generation included.
	Timeout time.Duration
}

// Source is one retrieved passage offered to the engine. Label is D<n> for
// document clauses and L<n> for reference law.
type Source struct {
	Label    string  `json:"label"`
	Scope    string  `json:"scope"`
	ChunkID  string  `json:"chunk_id"`
	Citation string  `json:"citation"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

type Answer struct {
	Exchange model.QAExchange `json:"exchange"`
	// Sources are the cited passages in citation order.
	Sources []Source `json:"sources"`
}

type answerReply struct {
	Answer     string   `json:"answer"`
	Confidence *float64 `json:"confidence"`
	Citations  []string `json:"citations"`
}

// QAService answers questions about one indexed document, grounded in its
// clauses and the legal corpus.
type QAService struct {
	store   ArtifactStore
	indexer *KnowledgeIndexer
	gen     ai.Generator
	cfg     QAConfig
	log     *logrus.Entry
	now     func() time.Time
}

func NewQAService(store ArtifactStore, indexer *KnowledgeIndexer, gen ai.Generator, cfg QAConfig) *QAService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	return &QAService{
		store:   store,
		indexer: indexer,
		gen:     gen,
		cfg:     cfg,
		log:     logger.For("qa"),
		now:     time.Now,
	}
}

func (s *QAService) Ask(ctx context.Context, documentID, question string) (*Answer, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	answer, err := s.ask(ctx, documentID, question)
	metrics.Questions.WithLabelValues(questionOutcome(err)).Inc()
	return answer, err
}

func (s *QAService) ask(ctx context.Context, documentID, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(question) > maxQuestionRunes {
		return nil, fmt.Errorf("%w: question longer than %d characters", ErrInvalidInput, maxQuestionRunes)
	}

	started := s.now()
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.Stage.AtLeast(model.StageIndexed) {
		return nil, fmt.Errorf("%w: document %s is %s", ErrNotReady, documentID, doc.Stage)
	}

	docHits, err := s.indexer.Search(ctx, model.DocumentScope(documentID), question, s.cfg.DocumentTopK)
	if err != nil {
		return nil, err
	}
	lawHits, err := s.indexer.Search(ctx, model.CorpusScope, question, s.cfg.CorpusTopM)
	if err != nil {
		// The corpus is supplementary; answer from the document alone.
		s.log.WithError(err).Warn("corpus retrieval failed")
		lawHits = nil
	}
	sources := labelSources(docHits, lawHits)

	history, err := s.store.ListQA(ctx, documentID, promptHistoryTurns)
	if err != nil {
		return nil, err
	}
	reverseExchanges(history)

	prompt, err := renderPrompt(promptAnswer, answerPromptData{
		DocumentType: doc.DocumentType.Label(),
		History:      history,
		Sources:      sources,
		Question:     question,
	})
	if err != nil {
		return nil, err
	}

	var reply answerReply
	if err := generateJSON(ctx, s.gen, prompt, &reply); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	text := strings.TrimSpace(reply.Answer)
	if text == "" {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, schemaErrorf("missing answer"))
	}

	cited := filterCitations(reply.Citations, sources)
	citations := make([]string, 0, len(cited))
	for _, src := range cited {
		citations = append(citations, src.Citation)
	}

	exchange := model.QAExchange{
		DocumentID:     documentID,
		Question:       question,
		Answer:         text + "\n\n" + Disclaimer,
		Confidence:     clampConfidence(reply.Confidence),
		Citations:      datatypes.NewJSONType(citations),
		ResponseTimeMS: s.now().Sub(started).Milliseconds(),
		CreatedAt:      s.now(),
	}
	if err := s.store.AppendQA(ctx, &exchange); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"document_id": documentID,
		"sources":     len(sources),
		"cited":       len(cited),
		"elapsed_ms":  exchange.ResponseTimeMS,
	}).Info("question answered")
	return &Answer{Exchange: exchange, Sources: cited}, nil
}

// History returns earlier exchanges newest first.
func (s *QAService) History(ctx context.Context, documentID string, limit int) ([]model.QAExchange, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.store.ListQA(ctx, documentID, limit)
}

// SearchDocument returns the clauses of one indexed document nearest to query.
func (s *QAService) SearchDocument(ctx context.Context, documentID, query string, k int) ([]Source, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidInput)
	}
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.Stage.AtLeast(model.StageIndexed) {
		return nil, fmt.Errorf("%w: document %s is %s", ErrNotReady, documentID, doc.Stage)
	}
	if k <= 0 {
		k = s.cfg.DocumentTopK
	}
	hits, err := s.indexer.Search(ctx, model.DocumentScope(documentID), query, k)
	if err != nil {
		return nil, err
	}
	return labelSources(hits, nil), nil
}

// SearchCorpus returns the reference passages nearest to query.
func (s *QAService) SearchCorpus(ctx context.Context, query string, k int) ([]Source, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidInput)
	}
	if k <= 0 {
		k = s.cfg.CorpusTopM
	}
	hits, err := s.indexer.Search(ctx, model.CorpusScope, query, k)
	if err != nil {
		return nil, err
	}
	return labelSources(nil, hits), nil
}

func labelSources(docHits, lawHits []retrieval.Hit) []Source {
	sources := make([]Source, 0, len(docHits)+len(lawHits))
	for i, h := range docHits {
		sources = append(sources, sourceFromHit(fmt.Sprintf("D%d", i+1), h))
	}
	for i, h := range lawHits {
		sources = append(sources, sourceFromHit(fmt.Sprintf("L%d", i+1), h))
	}
	return sources
}

func sourceFromHit(label string, h retrieval.Hit) Source {
	return Source{
		Label:    label,
		Scope:    h.Record.Scope,
		ChunkID:  h.Record.ChunkID,
		Citation: h.Record.Citation,
		Text:     h.Record.Text,
		Score:    h.Score,
	}
}

// filterCitations keeps the labels that name an offered source, in reply
// order and without repeats. Anything else the engine cites is dropped.
func filterCitations(labels []string, sources []Source) []Source {
	byLabel := make(map[string]Source, len(sources))
	for _, src := range sources {
		byLabel[src.Label] = src
	}
	var out []Source
	seen := make(map[string]bool, len(labels))
	for _, raw := range labels {
		label := strings.ToUpper(strings.Trim(strings.TrimSpace(raw), "[]"))
		src, ok := byLabel[label]
		if !ok || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, src)
	}
	return out
}

func clampConfidence(c *float64) float64 {
	if c == nil || *c < 0 {
		return 0
	}
	if *c > 1 {
		return 1
	}
	return *c
}

func reverseExchanges(list []model.QAExchange) {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
}

func questionOutcome(err error) string {
	switch {
	case err == nil:
		return "answered"
	case IsUserCorrectable(err):
		return "rejected"
	default:
		return "error"
	}
}
