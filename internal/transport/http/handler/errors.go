package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"clausewise/internal/app"
	"clausewise/internal/logger"
	"clausewise/internal/transport/http/response"
)

// writeError maps service errors onto HTTP responses. Unknown errors are
// logged and reported as fallback without their details.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, err.Error())
	case errors.Is(err, app.ErrUnsupportedMedia):
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedMedia, err.Error())
	case errors.Is(err, app.ErrPrecondition):
		response.Error(c, http.StatusConflict, response.CodeStagePrecondition, err.Error())
	case errors.Is(err, app.ErrNotReady):
		response.Error(c, http.StatusConflict, response.CodeDocumentNotReady, err.Error())
	case app.ErrorKind(err) == app.KindTimeout:
		response.Error(c, http.StatusGatewayTimeout, response.CodeEngineTimeout, fallback+": engine timed out")
	case errors.Is(err, app.ErrExtraction), errors.Is(err, app.ErrClassification), errors.Is(err, app.ErrAnalysis),
		errors.Is(err, app.ErrEmbedding), errors.Is(err, app.ErrGeneration):
		response.Error(c, http.StatusBadGateway, response.CodeEngineFailure, err.Error())
	default:
		logger.For("http").WithError(err).WithField("path", c.FullPath()).Error(fallback)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
