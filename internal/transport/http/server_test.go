package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clausewise/internal/app"
	"clausewise/internal/bootstrap"
	"clausewise/internal/config"
	"clausewise/internal/transport/http/response"
)

const testPassword = "correct-horse"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	hash, err := app.HashPassword(testPassword)
	require.NoError(t, err)

	cfg.App.GinMode = gin.TestMode
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = ":memory:"
	cfg.Blob.Driver = "local"
	cfg.Blob.LocalDir = t.TempDir()
	cfg.Redis.Enabled = false
	cfg.RabbitMQ.Enabled = false
	cfg.Kafka.Enabled = false
	cfg.LLM.Provider = "openai"
	cfg.LLM.BaseURL = "http://127.0.0.1:1"
	cfg.Auth.Enabled = true
	cfg.Auth.Username = "operator"
	cfg.Auth.PasswordHash = hash
	cfg.Corpus.Enabled = true
	cfg.Corpus.Path = ""

	a, err := bootstrap.NewWithConfig(context.Background(), cfg, bootstrap.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return NewRouter(a)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, router *gin.Engine, req *http.Request) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func jsonRequest(method, path, token string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func uploadRequest(t *testing.T, token, name string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func login(t *testing.T, router *gin.Engine) string {
	t.Helper()
	code, env := do(t, router, jsonRequest(http.MethodPost, "/api/v1/auth/token", "", gin.H{
		"username": "operator",
		"password": testPassword,
	}))
	require.Equal(t, http.StatusOK, code)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		App          string `json:"app"`
		Dependencies map[string]struct {
			OK bool `json:"ok"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "clausewise", body.App)
	require.Contains(t, body.Dependencies, "sqlite")
	assert.True(t, body.Dependencies["sqlite"].OK)
	assert.NotContains(t, body.Dependencies, "redis")
}

func TestAuthGuardsAPI(t *testing.T) {
	router := newTestRouter(t)

	code, env := do(t, router, jsonRequest(http.MethodGet, "/api/v1/documents", "", nil))
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, response.CodeUnauthorized, env.Code)

	code, env = do(t, router, jsonRequest(http.MethodPost, "/api/v1/auth/token", "", gin.H{
		"username": "operator",
		"password": "wrong-password",
	}))
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, response.CodeInvalidCredentials, env.Code)

	token := login(t, router)
	code, _ = do(t, router, jsonRequest(http.MethodGet, "/api/v1/documents", token, nil))
	assert.Equal(t, http.StatusOK, code)

	code, env = do(t, router, jsonRequest(http.MethodGet, "/api/v1/auth/me", token, nil))
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"username":"operator"}`, string(env.Data))
}

func TestDocumentLifecycleWithoutEngine(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router)

	lease := []byte("RESIDENTIAL LEASE\n\nThe tenant shall pay rent of $1,200 on the first day of each month.\n\n" +
		"A security deposit of $1,200 is due at signing.\n")
	code, env := do(t, router, uploadRequest(t, token, "lease.txt", lease))
	require.Equal(t, http.StatusOK, code, env.Message)
	var doc struct {
		ID    string `json:"id"`
		Stage string `json:"stage"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	require.NotEmpty(t, doc.ID)
	assert.Equal(t, "uploaded", doc.Stage)

	base := "/api/v1/documents/" + doc.ID

	code, env = do(t, router, jsonRequest(http.MethodGet, base+"/analysis", token, nil))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, response.CodeDocumentNotReady, env.Code)

	// Skipping a stage is a precondition failure.
	code, env = do(t, router, jsonRequest(http.MethodPost, base+"/stages/analyzed", token, nil))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, response.CodeStagePrecondition, env.Code)

	code, env = do(t, router, jsonRequest(http.MethodPost, base+"/stages/extracted", token, nil))
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = do(t, router, jsonRequest(http.MethodGet, base+"/extracted", token, nil))
	require.Equal(t, http.StatusOK, code)
	var text struct {
		Paragraphs []struct {
			Text string `json:"text"`
		} `json:"paragraphs"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &text))
	assert.NotEmpty(t, text.Paragraphs)

	code, env = do(t, router, jsonRequest(http.MethodPost, base+"/questions", token, gin.H{"question": "When is rent due?"}))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, response.CodeDocumentNotReady, env.Code)

	code, env = do(t, router, jsonRequest(http.MethodGet, "/api/v1/documents/missing/status", token, nil))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, response.CodeDocumentNotFound, env.Code)
}

func TestUploadRejectsUnsupportedMedia(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router)

	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	code, env := do(t, router, uploadRequest(t, token, "scan.png", png))
	assert.Equal(t, http.StatusUnsupportedMediaType, code)
	assert.Equal(t, response.CodeUnsupportedMedia, env.Code)
}

func TestCorpusRoutes(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router)

	code, env := do(t, router, jsonRequest(http.MethodGet, "/api/v1/corpus", token, nil))
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Entries []app.CorpusEntry `json:"entries"`
		Indexed bool              `json:"indexed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Entries, len(app.BuiltinCorpus()))
	assert.False(t, list.Indexed)

	code, _ = do(t, router, jsonRequest(http.MethodGet, "/api/v1/corpus/entries/tenant-security-deposits", token, nil))
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, router, jsonRequest(http.MethodGet, "/api/v1/corpus/entries/nope", token, nil))
	assert.Equal(t, http.StatusNotFound, code)
}
