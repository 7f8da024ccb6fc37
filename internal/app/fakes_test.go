package app

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"

	"clausewise/internal/ai"
	"clausewise/internal/platform/sqlite"
	"clausewise/internal/repository"
)

type generatorFunc func(req ai.GenerateRequest) (string, error)

// scriptedGenerator answers prompts through fn and records every prompt.
type scriptedGenerator struct {
	mu      sync.Mutex
	fn      generatorFunc
	prompts []string
}

func newScriptedGenerator(fn generatorFunc) *scriptedGenerator {
	return &scriptedGenerator{fn: fn}
}

func (g *scriptedGenerator) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	g.prompts = append(g.prompts, req.Prompt)
	fn := g.fn
	g.mu.Unlock()
	return fn(req)
}

func (g *scriptedGenerator) set(fn generatorFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fn = fn
}

func (g *scriptedGenerator) calls(marker string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, p := range g.prompts {
		if strings.Contains(p, marker) {
			n++
		}
	}
	return n
}

const embedDim = 256

// hashEmbedder is a bag-of-words embedder: every lowercased word adds one to
// a hashed bucket.
type hashEmbedder struct {
	mu         sync.Mutex
	batchCalls int
	queryCalls int
	fail       error
	dim        int
}

func newHashEmbedder() *hashEmbedder {
	return &hashEmbedder{dim: embedDim}
}

func (e *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.queryCalls++
	fail := e.fail
	e.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	return e.vector(text), nil
}

func (e *hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batchCalls++
	fail := e.fail
	e.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *hashEmbedder) setFail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = err
}

func (e *hashEmbedder) counts() (batch, query int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batchCalls, e.queryCalls
}

func (e *hashEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.dim)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

type memBlobs struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{items: make(map[string][]byte)}
}

func (b *memBlobs) Put(_ context.Context, key string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[key] = append([]byte(nil), data...)
	return nil
}

func (b *memBlobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.items[key]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return data, nil
}

func newTestStore(t *testing.T) *repository.ArtifactStore {
	t.Helper()
	db, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewArtifactStore(db)
}
