package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"clausewise/internal/ai"
	"clausewise/internal/metrics"
	"clausewise/internal/model"
	"clausewise/internal/retrieval"
)

type IndexerConfig struct {
	BatchSize   int
	Concurrency int
	// Dimension, when set, is the vector length every embedding must have.
	Dimension int
}

// Chunk is one unit of retrievable text.
type Chunk struct {
	ID       string
	Text     string
	Citation string
}

// EmbeddingSource lists stored embeddings of one scope.
type EmbeddingSource interface {
	ListEmbeddings(ctx context.Context, scope string) ([]model.EmbeddingRecord, error)
}

// KnowledgeIndexer embeds clauses and reference law and answers nearest
// neighbour queries over them.
type KnowledgeIndexer struct {
	embedder ai.Embedder
	store    EmbeddingSource
	corpus   *Corpus
	cfg      IndexerConfig
}

func NewKnowledgeIndexer(embedder ai.Embedder, store EmbeddingSource, entries []CorpusEntry, cfg IndexerConfig) *KnowledgeIndexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	ix := &KnowledgeIndexer{embedder: embedder, store: store, cfg: cfg}
	ix.corpus = newCorpus(entries, ix.indexCorpus)
	return ix
}

func (ix *KnowledgeIndexer) Corpus() *Corpus {
	return ix.corpus
}

// ClauseChunks renders analyzed clauses into retrievable chunks, one per clause.
func ClauseChunks(clauses []model.Clause) []Chunk {
	chunks := make([]Chunk, 0, len(clauses))
	for _, c := range clauses {
		var b strings.Builder
		fmt.Fprintf(&b, "Clause Type: %s\n", c.ClauseType.Label())
		fmt.Fprintf(&b, "Original Text: %s\n", c.OriginalText)
		if c.PlainLanguage != "" {
			fmt.Fprintf(&b, "Plain Language: %s\n", c.PlainLanguage)
		}
		if c.RiskLevel != "" {
			fmt.Fprintf(&b, "Risk Level: %s\n", c.RiskLevel)
		}
		chunks = append(chunks, Chunk{
			ID:       c.ClauseID,
			Text:     strings.TrimSpace(b.String()),
			Citation: fmt.Sprintf("Clause %s (%s)", c.ClauseID, c.ClauseType.Label()),
		})
	}
	return chunks
}

// BuildDocumentRecords embeds the clauses of one document. The records are
// not stored; the caller commits them with the stage.
func (ix *KnowledgeIndexer) BuildDocumentRecords(ctx context.Context, documentID string, clauses []model.Clause) ([]model.EmbeddingRecord, error) {
	if len(clauses) == 0 {
		return nil, fmt.Errorf("%w: document has no clauses to index", ErrEmbedding)
	}
	return ix.Index(ctx, model.DocumentScope(documentID), ClauseChunks(clauses))
}

// Index embeds chunks in batches and returns one record per chunk in input
// order. Every vector must have the same dimension.
func (ix *KnowledgeIndexer) Index(ctx context.Context, scope string, chunks []Chunk) ([]model.EmbeddingRecord, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	dim := ix.cfg.Dimension
	records := make([]model.EmbeddingRecord, len(chunks))
	for i, c := range chunks {
		if dim == 0 {
			dim = len(vectors[i])
		}
		if len(vectors[i]) == 0 || len(vectors[i]) != dim {
			return nil, fmt.Errorf("%w: chunk %s has dimension %d, want %d", ErrEmbedding, c.ID, len(vectors[i]), dim)
		}
		records[i] = model.EmbeddingRecord{
			Scope:    scope,
			ChunkID:  c.ID,
			Text:     c.Text,
			Citation: c.Citation,
		}
		records[i].SetEmbedding(vectors[i])
	}
	return records, nil
}

func (ix *KnowledgeIndexer) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Concurrency)
	for start := 0; start < len(texts); start += ix.cfg.BatchSize {
		start := start
		end := start + ix.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			started := time.Now()
			batch, err := ix.embedder.EmbedBatch(gctx, texts[start:end])
			metrics.ObserveEngine("embedding", started, err)
			if err != nil {
				return err
			}
			if len(batch) != end-start {
				return fmt.Errorf("embedding count mismatch: got %d, want %d", len(batch), end-start)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	return vectors, nil
}

// Search returns the k records of scope nearest to query. An empty scope
// returns no hits without calling the embedding engine.
func (ix *KnowledgeIndexer) Search(ctx context.Context, scope, query string, k int) ([]retrieval.Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	var (
		records []model.EmbeddingRecord
		err     error
	)
	if scope == model.CorpusScope {
		records, err = ix.corpus.Records(ctx)
	} else {
		records, err = ix.store.ListEmbeddings(ctx, scope)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	started := time.Now()
	vec, err := ix.embedder.Embed(ctx, query)
	metrics.ObserveEngine("embedding", started, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if want := records[0].Dimension; len(vec) != want {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", ErrEmbedding, len(vec), want)
	}
	return retrieval.Rank(vec, records, k), nil
}

func (ix *KnowledgeIndexer) indexCorpus(ctx context.Context, entries []CorpusEntry) ([]model.EmbeddingRecord, error) {
	chunks := make([]Chunk, 0, len(entries))
	for _, e := range entries {
		chunks = append(chunks, e.chunk())
	}
	return ix.Index(ctx, model.CorpusScope, chunks)
}
