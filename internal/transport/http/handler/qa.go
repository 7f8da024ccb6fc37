package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clausewise/internal/app"
	"clausewise/internal/transport/http/response"
)

type QAHandler struct {
	qa *app.QAService
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

func NewQAHandler(qa *app.QAService) *QAHandler {
	return &QAHandler{qa: qa}
}

func (h *QAHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	answer, err := h.qa.Ask(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		writeError(c, err, "answer question failed")
		return
	}
	response.OK(c, answer)
}

func (h *QAHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	history, err := h.qa.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeError(c, err, "get history failed")
		return
	}
	response.OK(c, gin.H{"document_id": c.Param("id"), "history": history})
}

func (h *QAHandler) Suggested(c *gin.Context) {
	questions, err := h.qa.SuggestedQuestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "get suggested questions failed")
		return
	}
	response.OK(c, gin.H{"document_id": c.Param("id"), "suggested_questions": questions})
}

func (h *QAHandler) Search(c *gin.Context) {
	k, _ := strconv.Atoi(c.DefaultQuery("k", "0"))
	sources, err := h.qa.SearchDocument(c.Request.Context(), c.Param("id"), c.Query("q"), k)
	if err != nil {
		writeError(c, err, "search document failed")
		return
	}
	response.OK(c, gin.H{"results": sources})
}

func (h *QAHandler) SearchCorpus(c *gin.Context) {
	k, _ := strconv.Atoi(c.DefaultQuery("k", "0"))
	sources, err := h.qa.SearchCorpus(c.Request.Context(), c.Query("q"), k)
	if err != nil {
		writeError(c, err, "search corpus failed")
		return
	}
	response.OK(c, gin.H{"results": sources})
}
