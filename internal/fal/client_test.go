package fal_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"photo-studio-backend/internal/fal"
)

func TestClient_Submit(t *testing.T) {
	var gotAuth, gotPath, gotWebhook string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotWebhook = r.URL.Query().Get("fal_webhook")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"request_id":"req-1","status_url":"http://x/status","response_url":"http://x/result","queue_position":3}`))
	}))
	defer server.Close()

	client := fal.NewClient(server.URL, "secret")
	sub, err := client.Submit(context.Background(), "fal-ai/flux/dev", map[string]any{"prompt": "a fox"}, "https://hooks.test/fal?token=abc")
	require.NoError(t, err)

	assert.Equal(t, "Key secret", gotAuth)
	assert.Equal(t, "/fal-ai/flux/dev", gotPath)
	assert.Equal(t, "https://hooks.test/fal?token=abc", gotWebhook)
	assert.Equal(t, "a fox", gotBody["prompt"])
	assert.Equal(t, "req-1", sub.RequestID)
	require.NotNil(t, sub.QueuePosition)
	assert.Equal(t, 3, *sub.QueuePosition)
}

func TestClient_Submit_FillsMissingURLs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"request_id":"req-2"}`))
	}))
	defer server.Close()

	sub, err := fal.NewClient(server.URL, "k").Submit(context.Background(), "fal-ai/flux/dev", nil, "")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/fal-ai/flux/requests/req-2/status", sub.StatusURL)
	assert.Equal(t, server.URL+"/fal-ai/flux/requests/req-2", sub.ResponseURL)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   `{"detail":"slow down"}`,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, fal.ErrQuotaExceeded) },
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   `oops`,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, fal.ErrUnavailable) },
		},
		{
			name:   "validation error",
			status: http.StatusUnprocessableEntity,
			body:   `{"detail":[{"loc":["body","prompt"],"msg":"field required"}]}`,
			check: func(t *testing.T, err error) {
				var reqErr *fal.RequestError
				require.True(t, errors.As(err, &reqErr))
				assert.Equal(t, http.StatusUnprocessableEntity, reqErr.StatusCode)
				assert.Equal(t, "prompt: field required", reqErr.Detail)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := fal.NewClient(server.URL, "k").Status(context.Background(), fal.Submission{RequestID: "r", StatusURL: server.URL + "/status"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_TransportFailureIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := fal.NewClient(url, "k").Submit(context.Background(), "fal-ai/flux/dev", nil, "")
	assert.ErrorIs(t, err, fal.ErrUnavailable)
}

func TestClient_StatusAndResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			assert.Equal(t, "1", r.URL.Query().Get("logs"))
			w.Write([]byte(`{"status":"COMPLETED","metrics":{"inference_time":1.5}}`))
		case "/result":
			w.Write([]byte(`{"images":[{"url":"https://cdn.test/a.png","width":1024,"height":768,"content_type":"image/png"}],"seed":42,"timings":{"inference":1.4}}`))
		}
	}))
	defer server.Close()

	client := fal.NewClient(server.URL, "k")
	sub := fal.Submission{RequestID: "r", StatusURL: server.URL + "/status", ResponseURL: server.URL + "/result"}

	status, err := client.Status(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, fal.StatusCompleted, status.Status)
	require.NotNil(t, status.Metrics.InferenceTime)

	out, err := client.Result(context.Background(), sub)
	require.NoError(t, err)
	require.Len(t, out.Images, 1)
	assert.Equal(t, 1024, out.Images[0].Width)
	require.NotNil(t, out.Seed)
	assert.Equal(t, int64(42), *out.Seed)
}

func TestClient_DownloadFile_EnforcesLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	client := fal.NewClient(server.URL, "k")

	data, contentType, err := client.DownloadFile(context.Background(), server.URL, 10)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Len(t, data, 10)

	_, _, err = client.DownloadFile(context.Background(), server.URL, 4)
	assert.Error(t, err)
}
