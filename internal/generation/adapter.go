// Package generation brokers asynchronous image generation jobs.
//
// A job is created by Generate and advances pending → in_progress →
// completed|failed as the provider reports progress, either through Status
// polls or webhook deliveries. Both paths are idempotent: observations that
// do not move a job forward are ignored. The adapter never retries a
// provider call; transport failures surface as SERVICE_UNAVAILABLE and
// leave the job untouched.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/apex/log"
	"github.com/google/uuid"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/fal"
	"photo-studio-backend/internal/models"
)

type Provider interface {
	Submit(ctx context.Context, model string, input map[string]any, webhookURL string) (fal.Submission, error)
	Status(ctx context.Context, sub fal.Submission) (fal.QueueStatus, error)
	Result(ctx context.Context, sub fal.Submission) (models.ProviderOutput, error)
}

type ModelCatalog interface {
	Models() []models.GenerationModel
	Model(id string) (models.ModelDetail, bool)
}

// CallbackFunc builds the webhook URL for a job from its callback nonce.
type CallbackFunc func(nonce string) (string, error)

type Request struct {
	Model          string
	Prompt         string
	Parameters     models.Values
	AlbumID        string
	TemplateID     string
	TemplateValues models.Values
}

type Adapter struct {
	provider Provider
	catalog  ModelCatalog
	registry *Registry
	callback CallbackFunc
	now      func() time.Time
}

// NewAdapter wires the adapter. callback may be nil, in which case jobs are
// only advanced by polling.
func NewAdapter(provider Provider, catalog ModelCatalog, registry *Registry, callback CallbackFunc) *Adapter {
	return &Adapter{
		provider: provider,
		catalog:  catalog,
		registry: registry,
		callback: callback,
		now:      time.Now,
	}
}

func (a *Adapter) Models() []models.GenerationModel {
	return a.catalog.Models()
}

func (a *Adapter) ModelDetail(id string) (models.ModelDetail, error) {
	m, ok := a.catalog.Model(id)
	if !ok {
		return models.ModelDetail{}, apperr.NotFound(apperr.InvalidModel, "model %q does not exist", id).WithField("model_id")
	}
	return m, nil
}

// Generate validates the request against the catalog, submits it and
// returns the pending job without waiting for the provider.
func (a *Adapter) Generate(ctx context.Context, req Request) (Job, error) {
	model, err := a.activeModel(req.Model)
	if err != nil {
		return Job{}, err
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return Job{}, apperr.Validation(apperr.InvalidPrompt, "prompt", "prompt is required")
	}
	if limit := model.Limits.MaxPromptLength; limit > 0 && utf8.RuneCountInString(prompt) > limit {
		return Job{}, apperr.Validation(apperr.InvalidPrompt, "prompt", "prompt exceeds %d characters", limit)
	}

	resolved, err := ResolveParameters(model, req.Parameters)
	if err != nil {
		return Job{}, err
	}

	input := resolved.Native()
	input["prompt"] = prompt

	var nonce, webhookURL string
	if a.callback != nil {
		nonce = uuid.NewString()
		webhookURL, err = a.callback(nonce)
		if err != nil {
			return Job{}, apperr.Wrap(err, "failed to build webhook url")
		}
	}

	sub, err := a.provider.Submit(ctx, model.ID, input, webhookURL)
	if err != nil {
		return Job{}, submitError(err)
	}

	now := a.now()
	job := &Job{
		ID:             sub.RequestID,
		Model:          model.ID,
		Prompt:         prompt,
		Parameters:     resolved,
		AlbumID:        req.AlbumID,
		TemplateID:     req.TemplateID,
		TemplateValues: req.TemplateValues.Clone(),
		Submission:     sub,
		CallbackNonce:  nonce,
		Status:         models.JobPending,
		QueuePosition:  sub.QueuePosition,
		History:        []models.JobTransition{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	a.registry.Add(job)

	log.WithFields(log.Fields{
		"job_id":  job.ID,
		"model":   job.Model,
		"webhook": webhookURL != "",
	}).Info("generation submitted")

	return a.decorate(job.clone()), nil
}

func (a *Adapter) activeModel(id string) (models.ModelDetail, error) {
	if strings.TrimSpace(id) == "" {
		return models.ModelDetail{}, apperr.Validation(apperr.InvalidModel, "model", "model is required")
	}
	m, ok := a.catalog.Model(id)
	if !ok {
		return models.ModelDetail{}, apperr.Validation(apperr.InvalidModel, "model", "model %q does not exist", id)
	}
	if m.Status != models.ModelActive {
		return models.ModelDetail{}, apperr.Validation(apperr.InvalidModel, "model", "model %q is %s", id, m.Status)
	}
	return m, nil
}

// Status returns the job's current state, polling the provider when the
// job has not finished. A failure is reported once; the job is discarded
// after that.
func (a *Adapter) Status(ctx context.Context, id string) (Job, error) {
	job, ok := a.registry.Get(id)
	if !ok {
		return Job{}, apperr.NotFound(apperr.GenerationNotFound, "generation %s does not exist", id)
	}

	if !job.Status.Terminal() {
		obs, err := a.poll(ctx, job)
		if err != nil {
			return Job{}, err
		}
		job, ok, _ = a.registry.Observe(id, obs, a.pricing(job.Model), a.now())
		if !ok {
			return Job{}, apperr.NotFound(apperr.GenerationNotFound, "generation %s does not exist", id)
		}
	}

	if job.Status == models.JobFailed {
		a.registry.Remove(id)
	}
	return a.decorate(job), nil
}

func (a *Adapter) poll(ctx context.Context, job Job) (observation, error) {
	st, err := a.provider.Status(ctx, job.Submission)
	if err != nil {
		if obs, ok := rejected(err); ok {
			return obs, nil
		}
		return observation{}, providerError(err, job.ID)
	}

	switch st.Status {
	case fal.StatusInQueue:
		return observation{status: models.JobPending, queuePosition: st.QueuePosition}, nil
	case fal.StatusInProgress:
		return observation{status: models.JobInProgress}, nil
	case fal.StatusCompleted:
		if st.Error != "" {
			return observation{status: models.JobFailed, err: &models.GenerationError{Code: failureCode(st.ErrorType), Message: st.Error}}, nil
		}
		out, err := a.provider.Result(ctx, job.Submission)
		if err != nil {
			if obs, ok := rejected(err); ok {
				return obs, nil
			}
			return observation{}, providerError(err, job.ID)
		}
		return observation{status: models.JobCompleted, output: &out, inferenceTime: st.Metrics.InferenceTime}, nil
	default:
		return observation{}, apperr.External(apperr.ServiceUnavailable,
			fmt.Errorf("unknown queue status %q", st.Status), "provider returned an unexpected status").
			WithDetail("request_id", job.ID)
	}
}

// HandleWebhook applies a push notification. Notifications for unknown or
// already finished jobs are accepted and ignored. subject is the verified
// callback token subject, empty when webhook tokens are disabled; a
// non-empty subject must match the nonce the job was submitted with.
func (a *Adapter) HandleWebhook(ctx context.Context, payload models.WebhookPayload, subject string) error {
	if payload.RequestID == "" {
		return apperr.Validation(apperr.InvalidRequest, "request_id", "request_id is required")
	}

	logctx := log.WithFields(log.Fields{"job_id": payload.RequestID, "status": payload.Status})

	job, ok := a.registry.Get(payload.RequestID)
	if !ok {
		logctx.Debug("webhook for unknown generation ignored")
		return nil
	}
	if subject != "" && subject != job.CallbackNonce {
		return apperr.New(apperr.KindUnauthorized, apperr.Unauthorized, "webhook token does not match generation %s", job.ID)
	}
	if job.Status.Terminal() {
		logctx.Debug("duplicate webhook ignored")
		return nil
	}

	obs, err := a.webhookObservation(ctx, job, payload)
	if err != nil {
		return err
	}
	_, _, changed := a.registry.Observe(job.ID, obs, a.pricing(job.Model), a.now())
	if !changed {
		logctx.Debug("webhook did not advance generation")
	}
	return nil
}

func (a *Adapter) webhookObservation(ctx context.Context, job Job, payload models.WebhookPayload) (observation, error) {
	switch strings.ToUpper(payload.Status) {
	case "OK", "COMPLETED":
		out := payload.Output()
		if out == nil {
			fetched, err := a.provider.Result(ctx, job.Submission)
			if err != nil {
				if obs, ok := rejected(err); ok {
					return obs, nil
				}
				return observation{}, providerError(err, job.ID)
			}
			out = &fetched
		}
		return observation{status: models.JobCompleted, output: out}, nil
	case "ERROR", "FAILED":
		genErr := payload.Error
		if genErr == nil {
			genErr = &models.GenerationError{Code: string(apperr.GenerationFailed), Message: "generation failed"}
		}
		return observation{status: models.JobFailed, err: genErr}, nil
	case "IN_PROGRESS":
		return observation{status: models.JobInProgress}, nil
	case "IN_QUEUE", "PENDING":
		return observation{status: models.JobPending}, nil
	default:
		return observation{}, apperr.Validation(apperr.InvalidRequest, "status", "unknown webhook status %q", payload.Status)
	}
}

// Claim reserves a completed job for a single save. A claimed job cannot be
// claimed again until it is released or discarded.
func (a *Adapter) Claim(id string) (Job, error) {
	var claimErr error
	job, ok := a.registry.Update(id, func(j *Job) {
		if claimErr = consumable(*j); claimErr != nil {
			return
		}
		if j.Claimed {
			claimErr = apperr.Conflict(apperr.InvalidRequest, "generation_id", "generation %s is already being saved", id)
			return
		}
		j.Claimed = true
	})
	if !ok {
		return Job{}, apperr.NotFound(apperr.GenerationNotFound, "generation %s does not exist", id).WithField("generation_id")
	}
	if claimErr != nil {
		return Job{}, claimErr
	}
	return job, nil
}

// Release gives up a claim after a failed save so the job can be saved again.
func (a *Adapter) Release(id string) {
	a.registry.Update(id, func(j *Job) { j.Claimed = false })
}

func consumable(job Job) error {
	switch job.Status {
	case models.JobCompleted:
		return nil
	case models.JobFailed:
		msg := "generation failed"
		if job.Error != nil {
			msg = job.Error.Message
		}
		return apperr.External(apperr.GenerationFailed, nil, "generation %s failed: %s", job.ID, msg).WithField("generation_id")
	default:
		return apperr.Conflict(apperr.InvalidRequest, "generation_id", "generation %s is still %s", job.ID, job.Status)
	}
}

// Discard forgets a job once its outcome has been consumed.
func (a *Adapter) Discard(id string) {
	a.registry.Remove(id)
}

func (a *Adapter) pricing(modelID string) models.Pricing {
	m, _ := a.catalog.Model(modelID)
	return m.Pricing
}

// decorate fills progress and remaining time from the catalog estimate.
func (a *Adapter) decorate(job Job) Job {
	m, _ := a.catalog.Model(job.Model)
	estimate := m.EstimatedSeconds

	switch job.Status {
	case models.JobPending:
		job.Progress = intPtr(0)
		if estimate > 0 {
			job.EstimatedTimeRemaining = intPtr(estimate)
		}
	case models.JobInProgress:
		if estimate > 0 {
			elapsed := int(a.now().Sub(job.StartedAt) / time.Second)
			job.Progress = intPtr(clamp(elapsed*100/estimate, 1, 95))
			job.EstimatedTimeRemaining = intPtr(clamp(estimate-elapsed, 1, estimate))
		}
	case models.JobCompleted:
		job.Progress = intPtr(100)
		job.EstimatedTimeRemaining = intPtr(0)
	}
	return job
}

// Response converts a job into its wire shape.
func (j Job) Response() models.GenerationStatusResponse {
	return models.GenerationStatusResponse{
		RequestID:              j.ID,
		Status:                 j.Status,
		Model:                  j.Model,
		AlbumID:                j.AlbumID,
		Progress:               j.Progress,
		EstimatedTimeRemaining: j.EstimatedTimeRemaining,
		QueuePosition:          j.QueuePosition,
		Images:                 j.Images,
		Error:                  j.Error,
		Metadata:               j.Metadata,
		History:                j.History,
		CreatedAt:              j.CreatedAt,
		UpdatedAt:              j.UpdatedAt,
	}
}

// rejected turns a non-retryable provider rejection into a failure
// observation.
func rejected(err error) (observation, bool) {
	var reqErr *fal.RequestError
	if !errors.As(err, &reqErr) {
		return observation{}, false
	}
	return observation{
		status: models.JobFailed,
		err:    &models.GenerationError{Code: string(apperr.GenerationFailed), Message: reqErr.Detail},
	}, true
}

func providerError(err error, jobID string) error {
	if errors.Is(err, fal.ErrQuotaExceeded) {
		return apperr.External(apperr.QuotaExceeded, err, "generation quota exceeded").WithDetail("request_id", jobID)
	}
	return apperr.External(apperr.ServiceUnavailable, err, "generation service unavailable").WithDetail("request_id", jobID)
}

func submitError(err error) error {
	var reqErr *fal.RequestError
	if errors.As(err, &reqErr) {
		return apperr.External(apperr.GenerationFailed, err, "provider rejected the request: %s", reqErr.Detail).
			WithDetail("http_status", reqErr.StatusCode)
	}
	if errors.Is(err, fal.ErrQuotaExceeded) {
		return apperr.External(apperr.QuotaExceeded, err, "generation quota exceeded")
	}
	return apperr.External(apperr.ServiceUnavailable, err, "generation service unavailable")
}

func failureCode(errorType string) string {
	if errorType == "" {
		return string(apperr.GenerationFailed)
	}
	return strings.ToUpper(errorType)
}

func intPtr(v int) *int { return &v }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
