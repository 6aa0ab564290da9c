package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"photo-studio-backend/internal/catalog"
	"photo-studio-backend/internal/fal"
	"photo-studio-backend/internal/generation"
	"photo-studio-backend/internal/handlers"
	"photo-studio-backend/internal/middleware"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/services"
	"photo-studio-backend/internal/store/memory"
	"photo-studio-backend/internal/templating"
)

// stubProvider finishes every job on its first status poll.
type stubProvider struct {
	mu         sync.Mutex
	webhookURL string
}

func (p *stubProvider) Submit(_ context.Context, _ string, _ map[string]any, webhookURL string) (fal.Submission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.webhookURL = webhookURL
	return fal.Submission{RequestID: "req-1"}, nil
}

func (p *stubProvider) Status(context.Context, fal.Submission) (fal.QueueStatus, error) {
	return fal.QueueStatus{Status: fal.StatusCompleted}, nil
}

func (p *stubProvider) Result(context.Context, fal.Submission) (models.ProviderOutput, error) {
	return models.ProviderOutput{Images: []models.GeneratedImage{{URL: "https://fal.media/out.png", Width: 1024, Height: 768, ContentType: "image/png"}}}, nil
}

func (p *stubProvider) token(t *testing.T) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := url.Parse(p.webhookURL)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func newTestRouter(t *testing.T, secret string) (*gin.Engine, *stubProvider) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.New()
	cat := catalog.Default()
	engine := templating.NewEngine(16)
	provider := &stubProvider{}
	tokens := middleware.NewWebhookTokens(secret)

	registry, err := generation.NewRegistry(16, nil)
	require.NoError(t, err)
	var callback generation.CallbackFunc
	if tokens.Enabled() {
		callback = func(nonce string) (string, error) {
			token, err := tokens.Issue(nonce, time.Hour)
			return "https://hooks.test/api/v1/webhooks/fal?token=" + token, err
		}
	}
	adapter := generation.NewAdapter(provider, cat, registry, callback)

	router := handlers.NewRouter(handlers.RouterConfig{
		Projects:  services.NewProjectService(st, nil),
		Albums:    services.NewAlbumService(st, nil),
		Templates: services.NewTemplateService(st, engine, cat),
		Photos: services.NewPhotoService(st, services.PhotoServiceOptions{
			Catalog:     cat,
			Generator:   adapter,
			Engine:      engine,
			MaxPageSize: 100,
		}),
		Adapter: adapter,
		Tokens:  tokens,
	})
	return router, provider
}

func do(router *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, "")

	w := do(router, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestProjects_CRUD(t *testing.T) {
	router, _ := newTestRouter(t, "")

	w := do(router, "POST", "/api/v1/projects", map[string]any{"name": "Trips", "color": "#336699"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	project := decode[models.Project](t, w)

	w = do(router, "POST", "/api/v1/albums", map[string]any{"name": "Rome", "project_id": project.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(router, "GET", "/api/v1/projects?include=albums", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[models.ProjectListResponse](t, w)
	require.Len(t, list.Projects, 1)
	assert.Equal(t, 1, list.Projects[0].AlbumCount)
	require.Len(t, list.Projects[0].Albums, 1)

	w = do(router, "PATCH", "/api/v1/projects/"+project.ID, map[string]any{"color": nil})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[models.Project](t, w).Color)

	w = do(router, "DELETE", "/api/v1/projects/"+project.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(router, "GET", "/api/v1/projects/"+project.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PROJECT_NOT_FOUND", decode[models.ErrorResponse](t, w).Code)
}

func TestErrors_CarryCodeAndField(t *testing.T) {
	router, _ := newTestRouter(t, "")

	w := do(router, "POST", "/api/v1/projects", map[string]any{"name": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[models.ErrorResponse](t, w)
	assert.Equal(t, "INVALID_NAME", body.Code)
	assert.Equal(t, "name", body.Field)

	w = do(router, "POST", "/api/v1/projects", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode[models.ErrorResponse](t, w).Code)

	w = do(router, "GET", "/api/v1/albums/nope/photos?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, "PATCH", "/api/v1/photos/nope", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode[models.ErrorResponse](t, w).Code)
}

func TestTemplates_ApplyReportsEveryParameter(t *testing.T) {
	router, _ := newTestRouter(t, "")

	w := do(router, "POST", "/api/v1/templates", map[string]any{
		"name":        "Portrait",
		"base_prompt": "portrait of {{subject}} in {{style}}",
		"model":       "fal-ai/flux/dev",
		"parameters": []map[string]any{
			{"name": "subject", "type": "text", "required": true},
			{"name": "style", "type": "select", "required": true, "options": []string{"oil", "ink"}},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tpl := decode[models.PromptTemplate](t, w)

	w = do(router, "POST", "/api/v1/templates/"+tpl.ID+"/apply", map[string]any{
		"values": map[string]any{"style": "watercolor", "mood": "calm"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[models.ErrorResponse](t, w)
	assert.Equal(t, "INVALID_PARAMETERS", body.Code)
	assert.Len(t, body.ValidationErrors, 3)

	w = do(router, "POST", "/api/v1/templates/"+tpl.ID+"/apply", map[string]any{
		"values": map[string]any{"subject": "a fox", "style": "ink"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "portrait of a fox in ink", decode[models.AppliedTemplate](t, w).FinalPrompt)

	w = do(router, "GET", "/api/v1/templates?q=PORTRAIT", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.TemplateListResponse](t, w).Templates, 1)
}

func TestModels(t *testing.T) {
	router, _ := newTestRouter(t, "")

	w := do(router, "GET", "/api/v1/models", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[models.ModelListResponse](t, w).Models)

	w = do(router, "GET", "/api/v1/models/fal-ai/flux/dev", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fal-ai/flux/dev", decode[models.ModelDetail](t, w).ID)

	w = do(router, "GET", "/api/v1/models/acme/none", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "INVALID_MODEL", decode[models.ErrorResponse](t, w).Code)
}

func TestGenerateThenSave(t *testing.T) {
	router, _ := newTestRouter(t, "")

	project := decode[models.Project](t, do(router, "POST", "/api/v1/projects", map[string]any{"name": "Trips"}))
	album := decode[models.Album](t, do(router, "POST", "/api/v1/albums", map[string]any{"name": "Rome", "project_id": project.ID}))

	w := do(router, "POST", "/api/v1/generations", map[string]any{
		"prompt":   "the forum at dusk",
		"model":    "fal-ai/flux/dev",
		"album_id": album.ID,
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, models.JobPending, decode[models.GeneratePhotoResponse](t, w).Status)

	w = do(router, "GET", "/api/v1/generations/req-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[models.GenerationStatusResponse](t, w)
	assert.Equal(t, models.JobCompleted, status.Status)
	require.Len(t, status.Images, 1)

	w = do(router, "POST", "/api/v1/photos", map[string]any{"generation_id": "req-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	photo := decode[models.Photo](t, w)
	assert.Equal(t, album.ID, photo.AlbumID)
	assert.Equal(t, "https://fal.media/out.png", photo.URL)

	w = do(router, "GET", "/api/v1/generations/req-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, "GET", "/api/v1/albums/"+album.ID+"/photos?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[models.PhotoListResponse](t, w)
	assert.Equal(t, 1, page.Pagination.Total)
	assert.Equal(t, 5, page.Pagination.Limit)
}

func TestWebhook_RequiresMatchingToken(t *testing.T) {
	router, provider := newTestRouter(t, "webhook-secret-that-is-long-enough")

	w := do(router, "POST", "/api/v1/generations", map[string]any{"prompt": "a fox", "model": "fal-ai/flux/dev"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	token := provider.token(t)
	require.NotEmpty(t, token)

	notice := map[string]any{
		"request_id": "req-1",
		"status":     "OK",
		"payload":    map[string]any{"images": []map[string]any{{"url": "https://fal.media/a.png", "width": 512, "height": 512}}},
	}

	w = do(router, "POST", "/api/v1/webhooks/fal", notice)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	foreign, err := middleware.NewWebhookTokens("webhook-secret-that-is-long-enough").Issue("other-nonce", time.Hour)
	require.NoError(t, err)
	w = do(router, "POST", "/api/v1/webhooks/fal?token="+foreign, notice)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, "POST", "/api/v1/webhooks/fal?token="+token, notice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Duplicate delivery is acknowledged.
	w = do(router, "POST", "/api/v1/webhooks/fal?token="+token, notice)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSavePhoto_ConcurrentSavesOfOneGeneration(t *testing.T) {
	router, _ := newTestRouter(t, "")

	project := decode[models.Project](t, do(router, "POST", "/api/v1/projects", map[string]any{"name": "Trips"}))
	album := decode[models.Album](t, do(router, "POST", "/api/v1/albums", map[string]any{"name": "Rome", "project_id": project.ID}))

	w := do(router, "POST", "/api/v1/generations", map[string]any{"prompt": "a fox", "model": "fal-ai/flux/dev", "album_id": album.ID})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Equal(t, http.StatusOK, do(router, "GET", "/api/v1/generations/req-1", nil).Code)

	const attempts = 8
	codes := make(chan int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- do(router, "POST", "/api/v1/photos", map[string]any{"generation_id": "req-1"}).Code
		}()
	}
	wg.Wait()
	close(codes)

	created := 0
	for code := range codes {
		if code == http.StatusCreated {
			created++
			continue
		}
		assert.Contains(t, []int{http.StatusConflict, http.StatusNotFound}, code)
	}
	assert.Equal(t, 1, created)

	w = do(router, "GET", "/api/v1/albums/"+album.ID+"/photos", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[models.PhotoListResponse](t, w).Pagination.Total)
}
