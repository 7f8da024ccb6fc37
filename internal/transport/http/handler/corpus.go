package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clausewise/internal/app"
	"clausewise/internal/transport/http/response"
)

type CorpusHandler struct {
	corpus *app.Corpus
}

func NewCorpusHandler(corpus *app.Corpus) *CorpusHandler {
	return &CorpusHandler{corpus: corpus}
}

func (h *CorpusHandler) List(c *gin.Context) {
	response.OK(c, gin.H{
		"entries": h.corpus.Entries(),
		"indexed": h.corpus.Built(),
	})
}

func (h *CorpusHandler) Get(c *gin.Context) {
	entry, ok := h.corpus.Entry(c.Param("entryID"))
	if !ok {
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "corpus entry not found")
		return
	}
	response.OK(c, entry)
}
