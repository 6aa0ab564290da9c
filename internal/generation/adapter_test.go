package generation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/fal"
	"photo-studio-backend/internal/models"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Submit(ctx context.Context, model string, input map[string]any, webhookURL string) (fal.Submission, error) {
	args := m.Called(ctx, model, input, webhookURL)
	return args.Get(0).(fal.Submission), args.Error(1)
}

func (m *mockProvider) Status(ctx context.Context, sub fal.Submission) (fal.QueueStatus, error) {
	args := m.Called(ctx, sub)
	return args.Get(0).(fal.QueueStatus), args.Error(1)
}

func (m *mockProvider) Result(ctx context.Context, sub fal.Submission) (models.ProviderOutput, error) {
	args := m.Called(ctx, sub)
	return args.Get(0).(models.ProviderOutput), args.Error(1)
}

type stubCatalog map[string]models.ModelDetail

func (c stubCatalog) Models() []models.GenerationModel {
	out := make([]models.GenerationModel, 0, len(c))
	for _, m := range c {
		out = append(out, m.GenerationModel)
	}
	return out
}

func (c stubCatalog) Model(id string) (models.ModelDetail, bool) {
	m, ok := c[id]
	return m, ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.GenerationEvent
}

func (p *recordingPublisher) PublishGeneration(ev models.GenerationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) PublishPhotos(models.PhotoEvent) {}

func (p *recordingPublisher) statuses() []models.JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.JobStatus, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Status)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func testCatalog() stubCatalog {
	return stubCatalog{
		"fal-ai/flux/dev": {
			GenerationModel: models.GenerationModel{
				ID: "fal-ai/flux/dev", Status: models.ModelActive, EstimatedSeconds: 10,
				Pricing: models.Pricing{PerImage: 0.025, Currency: "USD"},
			},
			Parameters: []models.ModelParameter{
				{Name: "num_images", Type: models.ModelParamInteger, Default: ptr(models.Number(1)), Min: ptr(1.0), Max: ptr(8.0)},
				{Name: "image_size", Type: models.ModelParamEnum, Options: []string{"square", "landscape_4_3"}},
				{Name: "seed", Type: models.ModelParamInteger},
			},
			Limits: models.ModelLimits{MaxPromptLength: 20, MaxImages: 4},
		},
		"fal-ai/old": {
			GenerationModel: models.GenerationModel{ID: "fal-ai/old", Status: models.ModelDeprecated},
		},
	}
}

type fixture struct {
	adapter   *Adapter
	provider  *mockProvider
	publisher *recordingPublisher
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		provider:  &mockProvider{},
		publisher: &recordingPublisher{},
		clock:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	registry, err := NewRegistry(16, f.publisher)
	require.NoError(t, err)
	f.adapter = NewAdapter(f.provider, testCatalog(), registry, nil)
	f.adapter.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) submit(t *testing.T, requestID string) Job {
	t.Helper()
	f.provider.On("Submit", mock.Anything, "fal-ai/flux/dev", mock.Anything, "").
		Return(fal.Submission{RequestID: requestID, StatusURL: "s/" + requestID, ResponseURL: "r/" + requestID}, nil).Once()
	job, err := f.adapter.Generate(context.Background(), Request{Model: "fal-ai/flux/dev", Prompt: "a red fox"})
	require.NoError(t, err)
	return job
}

func TestGenerate_ReturnsPendingAndFillsDefaults(t *testing.T) {
	f := newFixture(t)
	f.provider.On("Submit", mock.Anything, "fal-ai/flux/dev", mock.MatchedBy(func(in map[string]any) bool {
		return in["prompt"] == "a red fox" && in["num_images"] == int64(1) && in["image_size"] == "square"
	}), "").Return(fal.Submission{RequestID: "req-1"}, nil)

	job, err := f.adapter.Generate(context.Background(), Request{
		Model:      "fal-ai/flux/dev",
		Prompt:     "  a red fox ",
		Parameters: models.Values{"image_size": models.String("square")},
	})
	require.NoError(t, err)
	assert.Equal(t, "req-1", job.ID)
	assert.Equal(t, models.JobPending, job.Status)
	require.NotNil(t, job.EstimatedTimeRemaining)
	assert.Equal(t, 10, *job.EstimatedTimeRemaining)
	f.provider.AssertExpectations(t)
}

func TestGenerate_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		code apperr.Code
	}{
		{name: "unknown model", req: Request{Model: "nope", Prompt: "x"}, code: apperr.InvalidModel},
		{name: "deprecated model", req: Request{Model: "fal-ai/old", Prompt: "x"}, code: apperr.InvalidModel},
		{name: "empty prompt", req: Request{Model: "fal-ai/flux/dev", Prompt: "   "}, code: apperr.InvalidPrompt},
		{name: "long prompt", req: Request{Model: "fal-ai/flux/dev", Prompt: "a prompt that is far too long"}, code: apperr.InvalidPrompt},
		{name: "unknown parameter", req: Request{Model: "fal-ai/flux/dev", Prompt: "x", Parameters: models.Values{"colour": models.String("red")}}, code: apperr.InvalidParameters},
		{name: "bad enum", req: Request{Model: "fal-ai/flux/dev", Prompt: "x", Parameters: models.Values{"image_size": models.String("huge")}}, code: apperr.InvalidParameters},
		{name: "over model limit", req: Request{Model: "fal-ai/flux/dev", Prompt: "x", Parameters: models.Values{"num_images": models.Number(6)}}, code: apperr.InvalidParameters},
		{name: "fractional integer", req: Request{Model: "fal-ai/flux/dev", Prompt: "x", Parameters: models.Values{"seed": models.Number(1.5)}}, code: apperr.InvalidParameters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.adapter.Generate(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperr.CodeOf(err))
			f.provider.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestStatus_PendingOnFirstPoll(t *testing.T) {
	f := newFixture(t)
	job := f.submit(t, "req-1")
	f.provider.On("Status", mock.Anything, job.Submission).Return(fal.QueueStatus{Status: fal.StatusInQueue, QueuePosition: ptr(2)}, nil)

	got, err := f.adapter.Status(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, got.Status)
	require.NotNil(t, got.QueuePosition)
	assert.Equal(t, 2, *got.QueuePosition)
	assert.Empty(t, got.History)
}

func TestStatus_CompletionRecordsEveryStep(t *testing.T) {
	f := newFixture(t)
	job := f.submit(t, "req-1")
	f.provider.On("Status", mock.Anything, job.Submission).Return(fal.QueueStatus{Status: fal.StatusCompleted}, nil)
	f.provider.On("Result", mock.Anything, job.Submission).Return(models.ProviderOutput{
		Images:  []models.GeneratedImage{{URL: "https://cdn.test/1.png", Width: 1024, Height: 768}},
		Seed:    ptr(int64(7)),
		Timings: map[string]float64{"inference": 1.25},
	}, nil)

	f.clock = f.clock.Add(3 * time.Second)
	got, err := f.adapter.Status(context.Background(), "req-1")
	require.NoError(t, err)

	assert.Equal(t, models.JobCompleted, got.Status)
	require.Len(t, got.History, 2)
	assert.Equal(t, models.JobPending, got.History[0].From)
	assert.Equal(t, models.JobInProgress, got.History[0].To)
	assert.Equal(t, models.JobCompleted, got.History[1].To)

	require.Len(t, got.Images, 1)
	require.NotNil(t, got.Images[0].Seed)
	assert.Equal(t, int64(7), *got.Images[0].Seed)
	require.NotNil(t, got.Metadata)
	assert.Equal(t, int64(1250), got.Metadata.ProcessingTimeMs)
	require.NotNil(t, got.Metadata.Cost)
	assert.InDelta(t, 0.025, *got.Metadata.Cost, 1e-9)
	require.NotNil(t, got.Progress)
	assert.Equal(t, 100, *got.Progress)

	assert.Equal(t, []models.JobStatus{models.JobPending, models.JobInProgress, models.JobCompleted}, f.publisher.statuses())

	// Terminal jobs are not polled again.
	_, err = f.adapter.Status(context.Background(), "req-1")
	require.NoError(t, err)
	f.provider.AssertNumberOfCalls(t, "Status", 1)
}

func TestStatus_TransportFailureLeavesJobUntouched(t *testing.T) {
	f := newFixture(t)
	job := f.submit(t, "req-1")
	f.provider.On("Status", mock.Anything, job.Submission).
		Return(fal.QueueStatus{}, fmt.Errorf("%w: dial tcp: timeout", fal.ErrUnavailable)).Once()
	f.provider.On("Status", mock.Anything, job.Submission).
		Return(fal.QueueStatus{}, fmt.Errorf("%w: slow down", fal.ErrQuotaExceeded)).Once()

	_, err := f.adapter.Status(context.Background(), "req-1")
	assert.Equal(t, apperr.ServiceUnavailable, apperr.CodeOf(err))

	_, err = f.adapter.Status(context.Background(), "req-1")
	assert.Equal(t, apperr.QuotaExceeded, apperr.CodeOf(err))

	stored, ok := f.adapter.registry.Get("req-1")
	require.True(t, ok)
	assert.Equal(t, models.JobPending, stored.Status)
}

func TestStatus_FailureIsSurfacedOnceThenDiscarded(t *testing.T) {
	f := newFixture(t)
	job := f.submit(t, "req-1")
	f.provider.On("Status", mock.Anything, job.Submission).Return(fal.QueueStatus{Status: fal.StatusInProgress}, nil).Once()
	f.provider.On("Status", mock.Anything, job.Submission).Return(fal.QueueStatus{Status: fal.StatusCompleted}, nil).Once()
	f.provider.On("Result", mock.Anything, job.Submission).Return(models.ProviderOutput{}, &fal.RequestError{StatusCode: 422, Detail: "nsfw content detected"})

	got, err := f.adapter.Status(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobInProgress, got.Status)

	got, err = f.adapter.Status(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "nsfw content detected", got.Error.Message)

	_, err = f.adapter.Status(context.Background(), "req-1")
	assert.Equal(t, apperr.GenerationNotFound, apperr.CodeOf(err))
}

func TestHandleWebhook_DuplicateIsNoop(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "req-1")

	payload := models.WebhookPayload{
		RequestID: "req-1",
		Status:    "OK",
		Payload:   &models.ProviderOutput{Images: []models.GeneratedImage{{URL: "https://cdn.test/1.png", Width: 512, Height: 512}}},
	}
	require.NoError(t, f.adapter.HandleWebhook(context.Background(), payload, ""))

	first, ok := f.adapter.registry.Get("req-1")
	require.True(t, ok)
	assert.Equal(t, models.JobCompleted, first.Status)

	f.clock = f.clock.Add(time.Minute)
	replay := payload
	replay.Payload = &models.ProviderOutput{Images: []models.GeneratedImage{{URL: "https://cdn.test/other.png"}}}
	require.NoError(t, f.adapter.HandleWebhook(context.Background(), replay, ""))
	require.NoError(t, f.adapter.HandleWebhook(context.Background(), models.WebhookPayload{RequestID: "req-1", Status: "ERROR"}, ""))

	second, ok := f.adapter.registry.Get("req-1")
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Len(t, f.publisher.statuses(), 3)
}

func TestHandleWebhook_UnknownJobIsIgnored(t *testing.T) {
	f := newFixture(t)
	err := f.adapter.HandleWebhook(context.Background(), models.WebhookPayload{RequestID: "ghost", Status: "OK"}, "")
	assert.NoError(t, err)
}

func TestHandleWebhook_RejectsForeignToken(t *testing.T) {
	f := newFixture(t)
	f.adapter.callback = func(nonce string) (string, error) { return "https://hooks.test/fal?token=" + nonce, nil }
	f.provider.On("Submit", mock.Anything, "fal-ai/flux/dev", mock.Anything, mock.AnythingOfType("string")).
		Return(fal.Submission{RequestID: "req-1"}, nil)

	job, err := f.adapter.Generate(context.Background(), Request{Model: "fal-ai/flux/dev", Prompt: "a red fox"})
	require.NoError(t, err)
	require.NotEmpty(t, job.CallbackNonce)

	err = f.adapter.HandleWebhook(context.Background(), models.WebhookPayload{RequestID: "req-1", Status: "OK", Payload: &models.ProviderOutput{}}, "someone-else")
	assert.Equal(t, apperr.Unauthorized, apperr.CodeOf(err))

	err = f.adapter.HandleWebhook(context.Background(), models.WebhookPayload{RequestID: "req-1", Status: "OK", Payload: &models.ProviderOutput{}}, job.CallbackNonce)
	assert.NoError(t, err)
}

func TestJobsAreIndependent(t *testing.T) {
	f := newFixture(t)
	a := f.submit(t, "job-a")
	b := f.submit(t, "job-b")
	f.provider.On("Status", mock.Anything, b.Submission).Return(fal.QueueStatus{Status: fal.StatusInQueue}, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, f.adapter.HandleWebhook(context.Background(), models.WebhookPayload{
			RequestID: a.ID, Status: "ERROR", Error: &models.GenerationError{Code: "GENERATION_FAILED", Message: "boom"},
		}, ""))
	}()
	go func() {
		defer wg.Done()
		got, err := f.adapter.Status(context.Background(), b.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.JobPending, got.Status)
		assert.Nil(t, got.Error)
	}()
	wg.Wait()

	gotA, ok := f.adapter.registry.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, models.JobFailed, gotA.Status)
	gotB, ok := f.adapter.registry.Get(b.ID)
	require.True(t, ok)
	assert.Equal(t, models.JobPending, gotB.Status)
}

func TestClaim_RequiresCompletedJob(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "req-1")

	_, err := f.adapter.Claim("req-1")
	assert.Equal(t, apperr.InvalidRequest, apperr.CodeOf(err))

	require.NoError(t, f.adapter.HandleWebhook(context.Background(), models.WebhookPayload{
		RequestID: "req-1", Status: "OK", Payload: &models.ProviderOutput{Images: []models.GeneratedImage{{URL: "u"}}},
	}, ""))
	job, err := f.adapter.Claim("req-1")
	require.NoError(t, err)
	assert.Equal(t, "a red fox", job.Prompt)

	f.adapter.Discard("req-1")
	_, err = f.adapter.Claim("req-1")
	assert.Equal(t, apperr.GenerationNotFound, apperr.CodeOf(err))
}

func TestClaim_OnlyOneConcurrentSaveWins(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "req-1")

	_, err := f.adapter.Claim("req-1")
	assert.Equal(t, apperr.InvalidRequest, apperr.CodeOf(err))

	require.NoError(t, f.adapter.HandleWebhook(context.Background(), models.WebhookPayload{
		RequestID: "req-1", Status: "OK", Payload: &models.ProviderOutput{Images: []models.GeneratedImage{{URL: "u"}}},
	}, ""))

	var wg sync.WaitGroup
	var won atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.adapter.Claim("req-1"); err == nil {
				won.Add(1)
			} else {
				assert.Equal(t, apperr.InvalidRequest, apperr.CodeOf(err))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())

	f.adapter.Release("req-1")
	job, err := f.adapter.Claim("req-1")
	require.NoError(t, err)
	assert.True(t, job.Claimed)

	f.adapter.Discard("req-1")
	_, err = f.adapter.Claim("req-1")
	assert.Equal(t, apperr.GenerationNotFound, apperr.CodeOf(err))
}
