package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"clausewise/internal/app"
	"clausewise/internal/logger"
	"clausewise/internal/model"
	"clausewise/internal/platform/rabbitmq"
)

// Processor is the part of the coordinator a worker drives.
type Processor interface {
	Process(ctx context.Context, documentID string) (*model.Document, error)
	Advance(ctx context.Context, documentID string, target model.Stage) (*model.Document, error)
	Retry(ctx context.Context, documentID string) (*model.Document, error)
}

// ProcessWorker consumes ProcessJob messages and runs the pipeline for them.
// Stage failures are recorded on the document, so every decodable job is
// acknowledged unless shutdown interrupted it.
type ProcessWorker struct {
	conn        *amqp.Connection
	processor   Processor
	queueName   string
	concurrency int
	log         *logrus.Entry

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewProcessWorker(conn *amqp.Connection, processor Processor, queueName string, concurrency int) *ProcessWorker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ProcessWorker{
		conn:        conn,
		processor:   processor,
		queueName:   queueName,
		concurrency: concurrency,
		log:         logger.For("process_worker"),
	}
}

func (w *ProcessWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(w.concurrency, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker prefetch failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	var consumers sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			w.consume(workerCtx, deliveries)
		}()
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		consumers.Wait()
		_ = ch.Close()
	}()

	w.log.WithFields(logrus.Fields{"queue": w.queueName, "concurrency": w.concurrency}).Info("process worker started")
	return nil
}

func (w *ProcessWorker) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			var job rabbitmq.ProcessJob
			if err := json.Unmarshal(d.Body, &job); err != nil || job.DocumentID == "" {
				w.log.WithField("body", string(d.Body)).Warn("drop undecodable job")
				_ = d.Nack(false, false)
				continue
			}
			w.settle(ctx, d, w.Handle(ctx, job))
		}
	}
}

// settle acks a handled job. A job interrupted by shutdown left the document
// untouched, so it goes back on the queue.
func (w *ProcessWorker) settle(ctx context.Context, d amqp.Delivery, err error) {
	if err != nil && ctx.Err() != nil {
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// Handle runs one job and logs its outcome.
func (w *ProcessWorker) Handle(ctx context.Context, job rabbitmq.ProcessJob) error {
	log := w.log.WithFields(logrus.Fields{"document_id": job.DocumentID, "target": job.TargetStage, "retry": job.Retry})
	doc, err := w.run(ctx, job)
	switch {
	case err != nil && ctx.Err() != nil:
		log.WithError(err).Info("job interrupted by shutdown, requeueing")
	case err == nil:
		log.WithField("stage", doc.Stage).Info("job done")
	case app.IsUserCorrectable(err):
		log.WithError(err).Warn("job rejected")
	default:
		log.WithFields(logrus.Fields{"kind": app.ErrorKind(err), "retryable": app.IsRetryable(err)}).WithError(err).Error("job failed")
	}
	return err
}

func (w *ProcessWorker) run(ctx context.Context, job rabbitmq.ProcessJob) (*model.Document, error) {
	if job.Retry {
		doc, err := w.processor.Retry(ctx, job.DocumentID)
		if err != nil || job.TargetStage == string(doc.Stage) {
			return doc, err
		}
	}
	if job.TargetStage == "" {
		return w.processor.Process(ctx, job.DocumentID)
	}
	target, err := model.ParseStage(job.TargetStage)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", app.ErrInvalidInput, err)
	}
	return w.processor.Advance(ctx, job.DocumentID, target)
}

func (w *ProcessWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
