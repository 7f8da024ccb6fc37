package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"clausewise/internal/app"
)

// AnalysisCache keeps rendered analysis views in Redis. The coordinator
// deletes an entry whenever the document's stage changes.
type AnalysisCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewAnalysisCache(client *redisv9.Client, ttl time.Duration) *AnalysisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AnalysisCache{client: client, ttl: ttl}
}

func (c *AnalysisCache) Get(ctx context.Context, documentID string) (*app.AnalysisView, bool, error) {
	raw, err := c.client.Get(ctx, analysisKey(documentID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get analysis failed: %w", err)
	}

	var view app.AnalysisView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached analysis failed: %w", err)
	}
	return &view, true, nil
}

func (c *AnalysisCache) Set(ctx context.Context, documentID string, view *app.AnalysisView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal analysis cache failed: %w", err)
	}
	if err := c.client.Set(ctx, analysisKey(documentID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set analysis failed: %w", err)
	}
	return nil
}

func (c *AnalysisCache) Delete(ctx context.Context, documentID string) error {
	if err := c.client.Del(ctx, analysisKey(documentID)).Err(); err != nil {
		return fmt.Errorf("redis delete analysis failed: %w", err)
	}
	return nil
}

func analysisKey(documentID string) string {
	return "clausewise:analysis:" + documentID
}
