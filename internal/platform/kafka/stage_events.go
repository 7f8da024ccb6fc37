package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"clausewise/internal/model"
)

// StageEventPublisher writes stage events keyed by document id, so the events
// of one document stay in order on one partition.
type StageEventPublisher struct {
	writer *kafka.Writer
}

func NewStageEventPublisher(writer *kafka.Writer) *StageEventPublisher {
	return &StageEventPublisher{writer: writer}
}

func (p *StageEventPublisher) PublishStageEvent(ctx context.Context, event model.StageEvent) error {
	msg, err := encodeStageEvent(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write stage event failed: %w", err)
	}
	return nil
}

func (p *StageEventPublisher) Close() error {
	return p.writer.Close()
}

func encodeStageEvent(event model.StageEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal stage event failed: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.DocumentID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Event)},
		},
		Time: event.At,
	}, nil
}
