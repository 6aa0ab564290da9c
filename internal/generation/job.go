package generation

import (
	"time"

	"photo-studio-backend/internal/fal"
	"photo-studio-backend/internal/models"
)

// Job tracks one provider request from submission until the caller has
// consumed its outcome.
type Job struct {
	ID             string
	Model          string
	Prompt         string
	Parameters     models.Values
	AlbumID        string
	TemplateID     string
	TemplateValues models.Values

	Submission fal.Submission
	// CallbackNonce is the subject of the token embedded in the webhook URL.
	CallbackNonce string

	Status                 models.JobStatus
	Progress               *int
	EstimatedTimeRemaining *int
	QueuePosition          *int
	Images                 []models.GeneratedImage
	Error                  *models.GenerationError
	Metadata               *models.GenerationMetadata
	History                []models.JobTransition
	// Claimed is set while a save of the job's result is in flight.
	Claimed bool

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// observation is a provider-reported state to fold into a job.
type observation struct {
	status        models.JobStatus
	queuePosition *int
	output        *models.ProviderOutput
	err           *models.GenerationError
	inferenceTime *float64
}

var statusRank = map[models.JobStatus]int{
	models.JobPending:    0,
	models.JobInProgress: 1,
	models.JobCompleted:  2,
	models.JobFailed:     2,
}

// advance moves the job forward to status and returns the transitions it
// recorded. Backward moves, repeats and moves out of a terminal state are
// ignored. A jump from pending straight to a terminal state passes through
// in_progress.
func (j *Job) advance(to models.JobStatus, at time.Time) []models.JobTransition {
	if j.Status.Terminal() || statusRank[to] <= statusRank[j.Status] {
		return nil
	}

	var recorded []models.JobTransition
	step := func(next models.JobStatus) {
		t := models.JobTransition{From: j.Status, To: next, At: at}
		j.History = append(j.History, t)
		recorded = append(recorded, t)
		j.Status = next
	}

	if j.Status == models.JobPending {
		step(models.JobInProgress)
		j.StartedAt = at
	}
	if to.Terminal() {
		step(to)
		j.CompletedAt = at
	}
	j.UpdatedAt = at
	return recorded
}

// apply folds an observation into the job. It reports the transitions made;
// none means the observation was stale or a duplicate.
func (j *Job) apply(obs observation, pricing models.Pricing, at time.Time) []models.JobTransition {
	if j.Status.Terminal() {
		return nil
	}
	if obs.status == models.JobPending {
		j.QueuePosition = obs.queuePosition
		j.UpdatedAt = at
		return nil
	}

	transitions := j.advance(obs.status, at)
	switch obs.status {
	case models.JobInProgress:
		j.QueuePosition = nil
	case models.JobCompleted:
		j.QueuePosition = nil
		j.Error = nil
		if obs.output != nil {
			j.Images = append([]models.GeneratedImage(nil), obs.output.Images...)
			j.Metadata = buildMetadata(j, *obs.output, obs.inferenceTime, pricing)
		}
	case models.JobFailed:
		j.QueuePosition = nil
		j.Error = obs.err
		if j.Error == nil {
			j.Error = &models.GenerationError{Code: "GENERATION_FAILED", Message: "generation failed"}
		}
	}
	return transitions
}

func buildMetadata(j *Job, out models.ProviderOutput, inferenceTime *float64, pricing models.Pricing) *models.GenerationMetadata {
	md := &models.GenerationMetadata{ModelVersion: out.Version}
	if md.ModelVersion == "" {
		md.ModelVersion = j.Model
	}

	switch {
	case out.Timings["inference"] > 0:
		md.ProcessingTimeMs = int64(out.Timings["inference"] * 1000)
	case inferenceTime != nil:
		md.ProcessingTimeMs = int64(*inferenceTime * 1000)
	case !j.CompletedAt.IsZero():
		md.ProcessingTimeMs = j.CompletedAt.Sub(j.CreatedAt).Milliseconds()
	}

	if pricing.PerImage > 0 {
		cost := pricing.PerImage * float64(len(out.Images))
		md.Cost = &cost
		md.Currency = pricing.Currency
	}

	if out.Seed != nil {
		for i := range j.Images {
			if j.Images[i].Seed == nil {
				seed := *out.Seed
				j.Images[i].Seed = &seed
			}
		}
	}
	return md
}

func (j *Job) clone() Job {
	cp := *j
	cp.Parameters = j.Parameters.Clone()
	cp.TemplateValues = j.TemplateValues.Clone()
	cp.Images = append([]models.GeneratedImage(nil), j.Images...)
	cp.History = append([]models.JobTransition(nil), j.History...)
	if j.Error != nil {
		e := *j.Error
		cp.Error = &e
	}
	if j.Metadata != nil {
		md := *j.Metadata
		cp.Metadata = &md
	}
	return cp
}

func (j *Job) event(at time.Time) models.GenerationEvent {
	return models.GenerationEvent{
		JobID:    j.ID,
		Model:    j.Model,
		AlbumID:  j.AlbumID,
		Status:   j.Status,
		Progress: j.Progress,
		Images:   append([]models.GeneratedImage(nil), j.Images...),
		Error:    j.Error,
		At:       at,
	}
}
