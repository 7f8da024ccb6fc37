package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clausewise/internal/logger"
	"clausewise/internal/metrics"
	"clausewise/internal/model"
	"clausewise/internal/repository"
)

type CoordinatorConfig struct {
	MaxUploadBytes int64
	// StageTimeout bounds one stage run, engine calls included.
	StageTimeout time.Duration
}

// CoordinatorDeps are the collaborators of a Coordinator. Cache and Events
// are optional.
type CoordinatorDeps struct {
	Store      ArtifactStore
	Blobs      BlobStore
	Extractor  Extractor
	Classifier *ClauseClassifier
	Assessor   *RiskAssessor
	Indexer    *KnowledgeIndexer
	Cache      AnalysisCache
	Events     EventPublisher
}

// Coordinator moves documents through the pipeline. Runs for one document
// are serialized; different documents proceed in parallel.
type Coordinator struct {
	store      ArtifactStore
	blobs      BlobStore
	extractor  Extractor
	classifier *ClauseClassifier
	assessor   *RiskAssessor
	indexer    *KnowledgeIndexer
	cache      AnalysisCache
	events     EventPublisher

	cfg   CoordinatorConfig
	locks *keyedLock
	log   *logrus.Entry
	now   func() time.Time
}

type UploadInput struct {
	FileName string
	Data     []byte
}

func NewCoordinator(deps CoordinatorDeps, cfg CoordinatorConfig) *Coordinator {
	if deps.Cache == nil {
		deps.Cache = noopCache{}
	}
	if deps.Events == nil {
		deps.Events = noopPublisher{}
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 3 * time.Minute
	}
	return &Coordinator{
		store:      deps.Store,
		blobs:      deps.Blobs,
		extractor:  deps.Extractor,
		classifier: deps.Classifier,
		assessor:   deps.Assessor,
		indexer:    deps.Indexer,
		cache:      deps.Cache,
		events:     deps.Events,
		cfg:        cfg,
		locks:      newKeyedLock(),
		log:        logger.For("coordinator"),
		now:        time.Now,
	}
}

// Upload stores the raw file and creates the document in stage uploaded.
func (c *Coordinator) Upload(ctx context.Context, in UploadInput) (*model.Document, error) {
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if c.cfg.MaxUploadBytes > 0 && int64(len(in.Data)) > c.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, len(in.Data), c.cfg.MaxUploadBytes)
	}
	name := strings.TrimSpace(filepath.Base(in.FileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "Untitled"
	}

	mimeType := detectMimeType(in.Data, name)
	if !c.extractor.Supports(mimeType) {
		if legacyWord(mimeType, name) {
			return nil, fmt.Errorf("%w: legacy Word .doc files are not read, save it as .docx", ErrUnsupportedMedia)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mimeType)
	}

	id := uuid.NewString()
	doc := &model.Document{
		ID:       id,
		FileName: name,
		MimeType: mimeType,
		FileSize: int64(len(in.Data)),
		BlobKey:  "documents/" + id + strings.ToLower(filepath.Ext(name)),
		Stage:    model.StageUploaded,
	}
	if err := c.blobs.Put(ctx, doc.BlobKey, in.Data, mimeType); err != nil {
		return nil, fmt.Errorf("store upload failed: %w", err)
	}
	if err := c.store.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	c.publish(ctx, doc, model.EventUploaded)
	metrics.StageTransitions.WithLabelValues(string(model.StageUploaded), "ok").Inc()
	c.log.WithFields(logrus.Fields{
		"document_id": id,
		"mime_type":   mimeType,
		"size":        doc.FileSize,
	}).Info("document uploaded")
	return doc, nil
}

// detectMimeType sniffs the content; markdown is only recognizable by name.
func detectMimeType(data []byte, name string) string {
	detected := mimetype.Detect(data)
	base, _, _ := strings.Cut(detected.String(), ";")
	if detected.Is("text/plain") {
		switch strings.ToLower(filepath.Ext(name)) {
		case ".md", ".markdown":
			return "text/markdown"
		}
	}
	return base
}

// legacyWord matches the binary Word format, which has no pure-Go reader.
// Older sniffers report it as a bare OLE container, so the extension counts.
func legacyWord(mimeType, name string) bool {
	switch mimeType {
	case "application/msword", "application/x-ole-storage":
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".doc")
}

// Advance runs the stage target. The document must have just completed the
// stage before it; a failed document must go through Retry instead.
func (c *Coordinator) Advance(ctx context.Context, documentID string, target model.Stage) (*model.Document, error) {
	if !target.InPipeline() {
		return nil, fmt.Errorf("%w: %q is not a pipeline stage", ErrInvalidInput, target)
	}
	prev, ok := target.Prev()
	if !ok {
		return nil, fmt.Errorf("%w: %s is entered by upload", ErrPrecondition, target)
	}

	unlock, err := c.locks.Lock(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := c.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Stage != prev {
		if doc.Failed() {
			return nil, fmt.Errorf("%w: document %s failed at %s, retry it first", ErrPrecondition, documentID, doc.FailedStage)
		}
		return nil, fmt.Errorf("%w: document %s is %s, %s requires %s", ErrPrecondition, documentID, doc.Stage, target, prev)
	}
	return c.runStage(ctx, doc, target, doc.Stage, "")
}

// Retry reruns the stage a failed document stopped at.
func (c *Coordinator) Retry(ctx context.Context, documentID string) (*model.Document, error) {
	unlock, err := c.locks.Lock(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := c.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.Failed() {
		return nil, fmt.Errorf("%w: document %s has not failed", ErrPrecondition, documentID)
	}
	return c.runStage(ctx, doc, doc.FailedStage, model.StageFailed, doc.FailedStage)
}

// Process advances a document stage by stage until it is ready or a stage fails.
func (c *Coordinator) Process(ctx context.Context, documentID string) (*model.Document, error) {
	doc, err := c.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Failed() {
		return nil, fmt.Errorf("%w: document %s failed at %s, retry it first", ErrPrecondition, documentID, doc.FailedStage)
	}
	for {
		next, ok := doc.Stage.Next()
		if !ok {
			return doc, nil
		}
		doc, err = c.Advance(ctx, documentID, next)
		if err != nil {
			return nil, err
		}
	}
}

// Reindex rebuilds the embeddings of an indexed or ready document. The old
// index stays in place until the new one is complete.
func (c *Coordinator) Reindex(ctx context.Context, documentID string) (*model.Document, error) {
	unlock, err := c.locks.Lock(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := c.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.Stage.AtLeast(model.StageIndexed) {
		return nil, fmt.Errorf("%w: document %s is %s, reindex requires indexed", ErrPrecondition, documentID, doc.Stage)
	}

	started := time.Now()
	stageCtx, cancel := context.WithTimeout(ctx, c.cfg.StageTimeout)
	defer cancel()
	clauses, err := c.store.ListClauses(stageCtx, documentID)
	if err == nil {
		var records []model.EmbeddingRecord
		records, err = c.indexer.BuildDocumentRecords(stageCtx, documentID, clauses)
		if err == nil {
			err = c.commit(ctx, repository.StageCommit{
				DocumentID:        documentID,
				Expected:          doc.Stage,
				To:                doc.Stage,
				Embeddings:        records,
				ReplaceEmbeddings: true,
			})
		}
	}
	metrics.ObserveStage("reindex", started, err)
	if err != nil {
		return nil, err
	}

	c.publish(ctx, doc, model.EventReindexed)
	c.log.WithField("document_id", documentID).Info("document reindexed")
	return c.store.GetDocument(ctx, documentID)
}

// Reprocess discards the artifacts of from and every later stage, then runs
// the pipeline again to ready.
func (c *Coordinator) Reprocess(ctx context.Context, documentID string, from model.Stage) (*model.Document, error) {
	to, ok := from.Prev()
	if !ok {
		return nil, fmt.Errorf("%w: cannot reprocess from %q", ErrInvalidInput, from)
	}

	unlock, err := c.locks.Lock(ctx, documentID)
	if err != nil {
		return nil, err
	}
	doc, err := c.store.GetDocument(ctx, documentID)
	if err != nil {
		unlock()
		return nil, err
	}
	if !doc.LastCompletedStage().AtLeast(to) {
		unlock()
		return nil, fmt.Errorf("%w: document %s has not completed %s", ErrPrecondition, documentID, to)
	}
	err = c.store.Rewind(ctx, documentID, doc.Stage, doc.FailedStage, to)
	unlock()
	if err != nil {
		if errors.Is(err, repository.ErrStageConflict) {
			return nil, fmt.Errorf("%w: %w", ErrPrecondition, err)
		}
		return nil, err
	}
	c.invalidate(ctx, documentID)
	doc.Stage = to
	c.publish(ctx, doc, model.EventRewound)
	c.log.WithFields(logrus.Fields{"document_id": documentID, "stage": to}).Info("document rewound")

	return c.Process(ctx, documentID)
}

func (c *Coordinator) Status(ctx context.Context, documentID string) (*StatusView, error) {
	doc, err := c.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return newStatusView(doc), nil
}

func (c *Coordinator) ListDocuments(ctx context.Context, limit, offset int) ([]StatusView, error) {
	docs, err := c.store.ListDocuments(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]StatusView, 0, len(docs))
	for i := range docs {
		out = append(out, *newStatusView(&docs[i]))
	}
	return out, nil
}

// Analysis returns clauses and summary once the analyzed stage has committed.
func (c *Coordinator) Analysis(ctx context.Context, documentID string) (*AnalysisView, error) {
	doc, err := c.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.LastCompletedStage().AtLeast(model.StageAnalyzed) {
		return nil, fmt.Errorf("%w: document %s is %s", ErrNotReady, documentID, doc.Stage)
	}

	if view, ok, err := c.cache.Get(ctx, documentID); err != nil {
		c.log.WithError(err).Warn("analysis cache read failed")
	} else if ok {
		return view, nil
	}

	clauses, err := c.store.ListClauses(ctx, documentID)
	if err != nil {
		return nil, err
	}
	summary, err := c.store.GetSummary(ctx, documentID)
	if err != nil {
		return nil, err
	}
	view := &AnalysisView{
		DocumentID:   doc.ID,
		FileName:     doc.FileName,
		DocumentType: doc.DocumentType,
		Summary:      summary,
		Clauses:      clauses,
		Disclaimer:   Disclaimer,
	}
	if err := c.cache.Set(ctx, documentID, view); err != nil {
		c.log.WithError(err).Warn("analysis cache write failed")
		return view, nil
	}
	// A stage commit between the first read and Set invalidated before our
	// entry landed. Any later commit invalidates after it, so one check here
	// is enough.
	current, err := c.store.GetDocument(ctx, documentID)
	if err != nil || current.Stage != doc.Stage || !current.UpdatedAt.Equal(doc.UpdatedAt) {
		c.invalidate(ctx, documentID)
	}
	return view, nil
}

func (c *Coordinator) ExtractedText(ctx context.Context, documentID string) (*model.ExtractedText, error) {
	doc, err := c.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.LastCompletedStage().AtLeast(model.StageExtracted) {
		return nil, fmt.Errorf("%w: document %s is %s", ErrNotReady, documentID, doc.Stage)
	}
	return c.store.GetExtractedText(ctx, documentID)
}

// runStage executes target and commits its artifacts with the stage move. A
// stage error, or a commit the store refused for any reason other than a lost
// race, is recorded on the document unless the caller went away.
func (c *Coordinator) runStage(ctx context.Context, doc *model.Document, target, expected, expectedFailed model.Stage) (*model.Document, error) {
	started := time.Now()
	log := c.log.WithFields(logrus.Fields{"document_id": doc.ID, "stage": target})

	stageCtx, cancel := context.WithTimeout(ctx, c.cfg.StageTimeout)
	defer cancel()

	commit, err := c.execute(stageCtx, doc, target)
	if err == nil {
		commit.DocumentID = doc.ID
		commit.Expected = expected
		commit.ExpectedFailed = expectedFailed
		commit.To = target
		err = c.commit(ctx, *commit)
		metrics.ObserveStage(string(target), started, err)
		if err == nil {
			c.invalidate(ctx, doc.ID)
			updated, err := c.store.GetDocument(ctx, doc.ID)
			if err != nil {
				return nil, err
			}
			c.publish(ctx, updated, model.EventCompleted)
			log.WithField("elapsed_ms", time.Since(started).Milliseconds()).Info("stage completed")
			return updated, nil
		}
		// Someone else moved the document; there is nothing of ours to record.
		if errors.Is(err, ErrPrecondition) {
			return nil, err
		}
		err = fmt.Errorf("commit %s: %w", target, err)
	} else {
		metrics.ObserveStage(string(target), started, err)
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		log.WithError(err).Warn("stage abandoned by caller")
		return nil, err
	}

	failure := repository.Failure{
		DocumentID:     doc.ID,
		Expected:       expected,
		ExpectedFailed: expectedFailed,
		Stage:          target,
		Kind:           ErrorKind(err),
		Message:        err.Error(),
	}
	if recErr := c.store.RecordFailure(context.WithoutCancel(ctx), failure); recErr != nil {
		log.WithError(recErr).Error("record stage failure failed")
		return nil, errors.Join(err, recErr)
	}
	c.invalidate(ctx, doc.ID)
	failed := *doc
	failed.Stage = model.StageFailed
	failed.FailedStage = target
	failed.ErrorKind = failure.Kind
	c.publish(ctx, &failed, model.EventFailed)
	log.WithFields(logrus.Fields{"kind": failure.Kind, "error": err}).Warn("stage failed")
	return nil, err
}

// execute produces the artifacts of target without touching the store.
func (c *Coordinator) execute(ctx context.Context, doc *model.Document, target model.Stage) (*repository.StageCommit, error) {
	switch target {
	case model.StageExtracted:
		raw, err := c.blobs.Get(ctx, doc.BlobKey)
		if err != nil {
			return nil, fmt.Errorf("%w: read upload: %w", ErrExtraction, err)
		}
		started := time.Now()
		text, err := c.extractor.Extract(ctx, raw, doc.MimeType)
		metrics.ObserveEngine("extraction", started, err)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		return &repository.StageCommit{ExtractedText: text}, nil

	case model.StageClassified:
		text, err := c.store.GetExtractedText(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrClassification, err)
		}
		result, err := c.classifier.Classify(ctx, text)
		if err != nil {
			return nil, err
		}
		return &repository.StageCommit{
			DocumentType:   result.DocumentType,
			Clauses:        result.Clauses,
			ReplaceClauses: true,
		}, nil

	case model.StageAnalyzed:
		clauses, err := c.store.ListClauses(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAnalysis, err)
		}
		if len(clauses) == 0 {
			return nil, fmt.Errorf("%w: document has no clauses", ErrAnalysis)
		}
		result, err := c.assessor.Assess(ctx, doc.DocumentType, clauses)
		if err != nil {
			return nil, err
		}
		return &repository.StageCommit{
			Clauses:        result.Clauses,
			ReplaceClauses: true,
			Summary:        result.Summary,
		}, nil

	case model.StageIndexed:
		clauses, err := c.store.ListClauses(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
		}
		records, err := c.indexer.BuildDocumentRecords(ctx, doc.ID, clauses)
		if err != nil {
			return nil, err
		}
		return &repository.StageCommit{Embeddings: records, ReplaceEmbeddings: true}, nil

	case model.StageReady:
		records, err := c.store.ListEmbeddings(ctx, model.DocumentScope(doc.ID))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("%w: document index is empty", ErrEmbedding)
		}
		return &repository.StageCommit{}, nil
	}
	return nil, fmt.Errorf("%w: no runner for stage %s", ErrInvalidInput, target)
}

func (c *Coordinator) commit(ctx context.Context, sc repository.StageCommit) error {
	err := c.store.CommitStage(ctx, sc)
	if errors.Is(err, repository.ErrStageConflict) {
		return fmt.Errorf("%w: %w", ErrPrecondition, err)
	}
	return err
}

func (c *Coordinator) invalidate(ctx context.Context, documentID string) {
	if err := c.cache.Delete(ctx, documentID); err != nil {
		c.log.WithError(err).Warn("analysis cache invalidation failed")
	}
}

// publish is best effort; the store is the source of truth.
func (c *Coordinator) publish(ctx context.Context, doc *model.Document, event string) {
	err := c.events.PublishStageEvent(ctx, model.StageEvent{
		DocumentID:  doc.ID,
		Event:       event,
		Stage:       doc.Stage,
		FailedStage: doc.FailedStage,
		ErrorKind:   doc.ErrorKind,
		At:          c.now(),
	})
	if err != nil {
		c.log.WithError(err).WithField("document_id", doc.ID).Warn("publish stage event failed")
	}
}
