package models

import "time"

type ModelStatus string

const (
	ModelActive      ModelStatus = "active"
	ModelDeprecated  ModelStatus = "deprecated"
	ModelMaintenance ModelStatus = "maintenance"
)

type Pricing struct {
	PerImage float64 `json:"per_image"`
	Currency string  `json:"currency"`
}

type ModelLimits struct {
	MaxWidth        int `json:"max_width"`
	MaxHeight       int `json:"max_height"`
	MaxPromptLength int `json:"max_prompt_length"`
	MaxImages       int `json:"max_images"`
}

type ModelParameterType string

const (
	ModelParamString  ModelParameterType = "string"
	ModelParamInteger ModelParameterType = "integer"
	ModelParamFloat   ModelParameterType = "float"
	ModelParamBoolean ModelParameterType = "boolean"
	ModelParamEnum    ModelParameterType = "enum"
)

type ModelParameter struct {
	Name        string             `json:"name"`
	Type        ModelParameterType `json:"type"`
	Required    bool               `json:"required"`
	Default     *Value             `json:"default,omitempty"`
	Min         *float64           `json:"min,omitempty"`
	Max         *float64           `json:"max,omitempty"`
	Options     []string           `json:"options,omitempty"`
	Description string             `json:"description"`
}

type ModelExample struct {
	Prompt     string `json:"prompt"`
	Parameters Values `json:"parameters"`
	ImageURL   string `json:"image_url"`
}

// GenerationModel is the summary shape returned by the model listing.
type GenerationModel struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Category         string      `json:"category"`
	Pricing          Pricing     `json:"pricing"`
	Capabilities     []string    `json:"capabilities"`
	Status           ModelStatus `json:"status"`
	EstimatedSeconds int         `json:"estimated_seconds,omitempty"`
}

type ModelDetail struct {
	GenerationModel
	Parameters []ModelParameter `json:"parameters"`
	Examples   []ModelExample   `json:"examples"`
	Limits     ModelLimits      `json:"limits"`
}

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

type GeneratedImage struct {
	URL         string `json:"url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	FileSize    int64  `json:"file_size,omitempty"`
	ContentType string `json:"content_type"`
	Seed        *int64 `json:"seed,omitempty"`
}

type GenerationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type JobTransition struct {
	From JobStatus `json:"from"`
	To   JobStatus `json:"to"`
	At   time.Time `json:"at"`
}

// GenerationEvent is published on every job transition.
type GenerationEvent struct {
	JobID    string           `json:"job_id"`
	Model    string           `json:"model"`
	AlbumID  string           `json:"album_id,omitempty"`
	Status   JobStatus        `json:"status"`
	Progress *int             `json:"progress,omitempty"`
	Images   []GeneratedImage `json:"images,omitempty"`
	Error    *GenerationError `json:"error,omitempty"`
	At       time.Time        `json:"at"`
}

// PhotoEvent is published when photos are saved, moved or deleted.
type PhotoEvent struct {
	Action   string   `json:"action"`
	AlbumID  string   `json:"album_id,omitempty"`
	PhotoIDs []string `json:"photo_ids"`
}

const (
	PhotoSaved   = "saved"
	PhotoMoved   = "moved"
	PhotoDeleted = "deleted"
)
