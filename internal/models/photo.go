package models

import "time"

type Photo struct {
	ID                 string              `json:"id"`
	AlbumID            string              `json:"album_id"`
	URL                string              `json:"url"`
	StoragePath        string              `json:"-"`
	Prompt             string              `json:"prompt"`
	Model              string              `json:"model"`
	Parameters         Values              `json:"parameters"`
	Width              int                 `json:"width"`
	Height             int                 `json:"height"`
	DisplayOrder       int                 `json:"display_order"`
	GenerationMetadata *GenerationMetadata `json:"generation_metadata,omitempty"`
	TemplateID         *string             `json:"template_id,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type GenerationMetadata struct {
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	ModelVersion     string   `json:"model_version,omitempty"`
	Cost             *float64 `json:"cost,omitempty"`
	Currency         string   `json:"currency,omitempty"`
}

// Preview returns the list representation of a photo.
func (p Photo) Preview() PhotoPreview {
	return PhotoPreview{
		ID:           p.ID,
		URL:          p.URL,
		Prompt:       p.Prompt,
		Width:        p.Width,
		Height:       p.Height,
		DisplayOrder: p.DisplayOrder,
		CreatedAt:    p.CreatedAt,
	}
}

func (p Photo) Clone() Photo {
	p.Parameters = p.Parameters.Clone()
	if p.GenerationMetadata != nil {
		md := *p.GenerationMetadata
		p.GenerationMetadata = &md
	}
	return p
}
