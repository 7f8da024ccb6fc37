package ai

import "context"

// GenerateRequest is one prompt for the generation engine. JSONOutput asks
// the provider to constrain the reply to a single JSON object.
type GenerateRequest struct {
	System      string
	Prompt      string
	JSONOutput  bool
	Temperature float32
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Embedder turns text into fixed-length vectors. The same model must serve
// indexing and querying.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
