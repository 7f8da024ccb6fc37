package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clausewise/internal/app"
	"clausewise/internal/logger"
	"clausewise/internal/model"
	"clausewise/internal/platform/rabbitmq"
	"clausewise/internal/transport/http/response"
)

// JobQueue hands pipeline runs to background workers.
type JobQueue interface {
	Publish(ctx context.Context, job rabbitmq.ProcessJob) error
}

type DocumentHandler struct {
	coord    *app.Coordinator
	jobs     JobQueue
	maxBytes int64
}

type ReprocessRequest struct {
	From string `json:"from" binding:"required"`
}

// NewDocumentHandler builds the document routes. jobs may be nil, in which
// case asynchronous runs happen in-process.
func NewDocumentHandler(coord *app.Coordinator, jobs JobQueue, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{coord: coord, jobs: jobs, maxBytes: maxBytes}
}

// Upload accepts a multipart "file". The optional process query parameter
// selects none, sync or async processing after the upload.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if h.maxBytes > 0 && fileHeader.Size > h.maxBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, "file too large")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read file failed")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read file failed")
		return
	}

	doc, err := h.coord.Upload(c.Request.Context(), app.UploadInput{FileName: fileHeader.Filename, Data: data})
	if err != nil {
		writeError(c, err, "upload failed")
		return
	}

	switch c.DefaultQuery("process", "none") {
	case "sync":
		processed, err := h.coord.Process(c.Request.Context(), doc.ID)
		if err != nil {
			writeError(c, err, "process failed")
			return
		}
		response.OK(c, processed)
	case "async":
		h.enqueue(c, rabbitmq.ProcessJob{DocumentID: doc.ID}, doc)
	default:
		response.OK(c, doc)
	}
}

func (h *DocumentHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	docs, err := h.coord.ListDocuments(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err, "list documents failed")
		return
	}
	response.OK(c, gin.H{"documents": docs, "limit": limit, "offset": offset})
}

func (h *DocumentHandler) Status(c *gin.Context) {
	status, err := h.coord.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "get status failed")
		return
	}
	response.OK(c, status)
}

// Advance runs the single stage named in the path. With async=true the run
// is queued.
func (h *DocumentHandler) Advance(c *gin.Context) {
	stage, err := model.ParseStage(c.Param("stage"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}
	id := c.Param("id")
	if c.Query("async") == "true" {
		status, err := h.coord.Status(c.Request.Context(), id)
		if err != nil {
			writeError(c, err, "advance failed")
			return
		}
		h.enqueue(c, rabbitmq.ProcessJob{DocumentID: id, TargetStage: string(stage)}, status)
		return
	}
	doc, err := h.coord.Advance(c.Request.Context(), id, stage)
	if err != nil {
		writeError(c, err, "advance failed")
		return
	}
	response.OK(c, doc)
}

// Process runs the remaining stages. With async=true the run is queued.
func (h *DocumentHandler) Process(c *gin.Context) {
	id := c.Param("id")
	if c.Query("async") == "true" {
		status, err := h.coord.Status(c.Request.Context(), id)
		if err != nil {
			writeError(c, err, "process failed")
			return
		}
		h.enqueue(c, rabbitmq.ProcessJob{DocumentID: id}, status)
		return
	}
	doc, err := h.coord.Process(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "process failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Retry(c *gin.Context) {
	doc, err := h.coord.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "retry failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Reindex(c *gin.Context) {
	doc, err := h.coord.Reindex(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "reindex failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Reprocess(c *gin.Context) {
	var req ReprocessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	from, err := model.ParseStage(req.From)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}
	doc, err := h.coord.Reprocess(c.Request.Context(), c.Param("id"), from)
	if err != nil {
		writeError(c, err, "reprocess failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Text(c *gin.Context) {
	text, err := h.coord.ExtractedText(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "get extracted text failed")
		return
	}
	response.OK(c, gin.H{
		"document_id": text.DocumentID,
		"page_count":  text.PageCount,
		"paragraphs":  text.ParagraphList(),
		"tables":      text.TableList(),
	})
}

func (h *DocumentHandler) Analysis(c *gin.Context) {
	view, err := h.coord.Analysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "get analysis failed")
		return
	}
	response.OK(c, view)
}

func (h *DocumentHandler) enqueue(c *gin.Context, job rabbitmq.ProcessJob, payload interface{}) {
	if h.jobs != nil {
		if err := h.jobs.Publish(c.Request.Context(), job); err != nil {
			writeError(c, err, "queue job failed")
			return
		}
		response.Accepted(c, payload)
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	go func() {
		var err error
		if job.TargetStage != "" {
			_, err = h.coord.Advance(ctx, job.DocumentID, model.Stage(job.TargetStage))
		} else {
			_, err = h.coord.Process(ctx, job.DocumentID)
		}
		if err != nil {
			logger.For("http").WithError(err).WithField("document_id", job.DocumentID).Warn("background processing failed")
		}
	}()
	response.Accepted(c, payload)
}
