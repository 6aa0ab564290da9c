package models

import "time"

type ErrorResponse struct {
	Code             string           `json:"code"`
	Message          string           `json:"message"`
	Field            string           `json:"field,omitempty"`
	ValidationErrors []ParamErrorBody `json:"validation_errors,omitempty"`
	Details          map[string]any   `json:"details,omitempty"`
}

type ParamErrorBody struct {
	Parameter string `json:"parameter"`
	Message   string `json:"message"`
}

type AlbumPreview struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	PhotoCount    int     `json:"photo_count"`
	CoverPhotoURL *string `json:"cover_photo_url,omitempty"`
	DisplayOrder  int     `json:"display_order"`
}

type ProjectWithAlbumCount struct {
	Project
	AlbumCount int            `json:"album_count"`
	Albums     []AlbumPreview `json:"albums,omitempty"`
}

type ProjectListResponse struct {
	Projects []ProjectWithAlbumCount `json:"projects"`
}

type ProjectSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type AlbumWithPhotoCount struct {
	Album
	PhotoCount    int     `json:"photo_count"`
	CoverPhotoURL *string `json:"cover_photo_url,omitempty"`
}

type AlbumListResponse struct {
	Albums []AlbumWithPhotoCount `json:"albums"`
}

type AlbumDetail struct {
	AlbumWithPhotoCount
	Photos  []PhotoPreview `json:"photos"`
	Project ProjectSummary `json:"project"`
}

type PhotoPreview struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Prompt       string    `json:"prompt"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

type PhotoListResponse struct {
	Photos     []PhotoPreview `json:"photos"`
	Pagination Pagination     `json:"pagination"`
}

type AlbumSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"project_id"`
}

type PhotoDetail struct {
	Photo
	Album   AlbumSummary   `json:"album"`
	Project ProjectSummary `json:"project"`
}

type TemplateWithStats struct {
	PromptTemplate
	UsageCount int        `json:"usage_count"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
}

type TemplateListResponse struct {
	Templates []TemplateWithStats `json:"templates"`
}

type RecentGeneration struct {
	ID            string    `json:"id"`
	PhotoURL      string    `json:"photo_url"`
	AppliedValues Values    `json:"applied_values"`
	CreatedAt     time.Time `json:"created_at"`
}

type TemplateDetail struct {
	TemplateWithStats
	RecentGenerations []RecentGeneration `json:"recent_generations"`
}

type GeneratePhotoResponse struct {
	ID            string    `json:"id"`
	Status        JobStatus `json:"status"`
	URL           string    `json:"url,omitempty"`
	Error         string    `json:"error,omitempty"`
	EstimatedTime int       `json:"estimated_time,omitempty"`
}

type GenerationStatusResponse struct {
	RequestID              string              `json:"request_id"`
	Status                 JobStatus           `json:"status"`
	Model                  string              `json:"model"`
	AlbumID                string              `json:"album_id,omitempty"`
	Progress               *int                `json:"progress,omitempty"`
	EstimatedTimeRemaining *int                `json:"estimated_time_remaining,omitempty"`
	QueuePosition          *int                `json:"queue_position,omitempty"`
	Images                 []GeneratedImage    `json:"images,omitempty"`
	Error                  *GenerationError    `json:"error,omitempty"`
	Metadata               *GenerationMetadata `json:"metadata,omitempty"`
	History                []JobTransition     `json:"history"`
	CreatedAt              time.Time           `json:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

type ModelListResponse struct {
	Models []GenerationModel `json:"models"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
