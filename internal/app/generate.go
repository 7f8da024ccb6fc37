package app

import (
	"context"
	"encoding/json"
	"time"

	"clausewise/internal/ai"
	"clausewise/internal/metrics"
)

const jsonTemperature = 0.1

// generateJSON sends one prompt and decodes the JSON object of the reply into
// out. Engine errors are returned unchanged; malformed replies wrap
// ErrSchemaValidation.
func generateJSON(ctx context.Context, gen ai.Generator, prompt string, out interface{}) error {
	started := time.Now()
	raw, err := gen.Generate(ctx, ai.GenerateRequest{
		System:      systemLegalAnalyst,
		Prompt:      prompt,
		JSONOutput:  true,
		Temperature: jsonTemperature,
	})
	metrics.ObserveEngine("generation", started, err)
	if err != nil {
		return err
	}
	return decodeJSONReply(raw, out)
}

func decodeJSONReply(raw string, out interface{}) error {
	payload := ai.ExtractJSON(raw)
	if payload == "" {
		return schemaErrorf("reply contains no JSON object")
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return schemaErrorf("decode reply: %v", err)
	}
	return nil
}
