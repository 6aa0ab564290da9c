package models

import (
	"encoding/json"
	"errors"
)

type OrderAssignment struct {
	ID           string `json:"id"`
	DisplayOrder int    `json:"display_order"`
}

type CreateProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

// ProjectPatch only touches the fields present in the request body. A present
// null clears description or color.
type ProjectPatch struct {
	Name        Optional[string]  `json:"name"`
	Description Optional[*string] `json:"description"`
	Color       Optional[*string] `json:"color"`
}

type ReorderProjectsRequest struct {
	ProjectOrders []OrderAssignment `json:"project_orders"`
}

type CreateAlbumRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	ProjectID   string  `json:"project_id"`
}

type AlbumPatch struct {
	Name        Optional[string]  `json:"name"`
	Description Optional[*string] `json:"description"`
}

type ReorderAlbumsRequest struct {
	AlbumOrders []OrderAssignment `json:"album_orders"`
}

type SetCoverPhotoRequest struct {
	PhotoID string `json:"photo_id"`
}

type PhotoSortField string

const (
	SortCreated PhotoSortField = "created"
	SortName    PhotoSortField = "name"
	SortOrder   PhotoSortField = "order"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type PhotoListOptions struct {
	Page          int            `form:"page"`
	Limit         int            `form:"limit"`
	SortBy        PhotoSortField `form:"sort_by"`
	SortDirection SortDirection  `form:"sort_direction"`
}

// PhotoQuery is the normalized form of PhotoListOptions handed to stores.
type PhotoQuery struct {
	Offset        int
	Limit         int
	SortBy        PhotoSortField
	SortDirection SortDirection
}

type GeneratePhotoRequest struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model"`
	Parameters     Values `json:"parameters,omitempty"`
	AlbumID        string `json:"album_id,omitempty"`
	TemplateID     string `json:"template_id,omitempty"`
	TemplateValues Values `json:"template_values,omitempty"`
}

type SavePhotoRequest struct {
	URL            string   `json:"url"`
	Prompt         string   `json:"prompt"`
	Model          string   `json:"model"`
	Parameters     Values   `json:"parameters"`
	AlbumID        string   `json:"album_id"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	GenerationTime *int64   `json:"generation_time_ms,omitempty"`
	Cost           *float64 `json:"cost,omitempty"`
	GenerationID   string   `json:"generation_id,omitempty"`
	TemplateID     string   `json:"template_id,omitempty"`
	TemplateValues Values   `json:"template_values,omitempty"`
}

// UpdatePhotoRequest is the wire shape of a photo update; Mutation turns it
// into the one change it describes.
type UpdatePhotoRequest struct {
	AlbumID      *string `json:"album_id,omitempty"`
	DisplayOrder *int    `json:"display_order,omitempty"`
}

var ErrEmptyMutation = errors.New("album_id or display_order is required")

func (r UpdatePhotoRequest) Mutation() (PhotoMutation, error) {
	switch {
	case r.AlbumID != nil:
		return MovePhoto{AlbumID: *r.AlbumID, DisplayOrder: r.DisplayOrder}, nil
	case r.DisplayOrder != nil:
		return RepositionPhoto{DisplayOrder: *r.DisplayOrder}, nil
	default:
		return nil, ErrEmptyMutation
	}
}

// PhotoMutation is implemented by MovePhoto and RepositionPhoto.
type PhotoMutation interface {
	photoMutation()
}

// MovePhoto moves a photo to AlbumID, appending it unless DisplayOrder is set.
// Moving to the photo's current album with a DisplayOrder repositions it.
type MovePhoto struct {
	AlbumID      string
	DisplayOrder *int
}

type RepositionPhoto struct {
	DisplayOrder int
}

func (MovePhoto) photoMutation()       {}
func (RepositionPhoto) photoMutation() {}

type ReorderPhotosRequest struct {
	PhotoOrders []OrderAssignment `json:"photo_orders"`
}

type MovePhotosRequest struct {
	PhotoIDs      []string `json:"photo_ids"`
	TargetAlbumID string   `json:"target_album_id"`
}

type DeletePhotosRequest struct {
	PhotoIDs []string `json:"photo_ids"`
}

type CreateTemplateRequest struct {
	Name        string            `json:"name"`
	Description *string           `json:"description,omitempty"`
	BasePrompt  string            `json:"base_prompt"`
	Parameters  []PromptParameter `json:"parameters"`
	Model       string            `json:"model"`
	Tags        []string          `json:"tags"`
}

type TemplatePatch struct {
	Name        Optional[string]            `json:"name"`
	Description Optional[*string]           `json:"description"`
	BasePrompt  Optional[string]            `json:"base_prompt"`
	Parameters  Optional[[]PromptParameter] `json:"parameters"`
	Model       Optional[string]            `json:"model"`
	Tags        Optional[[]string]          `json:"tags"`
}

type ApplyTemplateRequest struct {
	Values Values `json:"values"`
}

// WebhookPayload accepts both the provider's native callback body
// (status OK/ERROR, payload, error as string) and the normalized shape
// (completed/failed, result, error as object).
type WebhookPayload struct {
	RequestID string           `json:"request_id"`
	Status    string           `json:"status"`
	Payload   *ProviderOutput  `json:"payload,omitempty"`
	Result    *ProviderOutput  `json:"result,omitempty"`
	Error     *GenerationError `json:"error,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
}

func (p *WebhookPayload) UnmarshalJSON(data []byte) error {
	type alias WebhookPayload
	var raw struct {
		alias
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = WebhookPayload(raw.alias)
	p.Error = nil
	if len(raw.Error) == 0 || string(raw.Error) == "null" {
		return nil
	}
	var text string
	if err := json.Unmarshal(raw.Error, &text); err == nil {
		p.Error = &GenerationError{Code: "GENERATION_FAILED", Message: text}
		return nil
	}
	var structured GenerationError
	if err := json.Unmarshal(raw.Error, &structured); err != nil {
		return err
	}
	p.Error = &structured
	return nil
}

// Output returns whichever result body the payload carried.
func (p WebhookPayload) Output() *ProviderOutput {
	if p.Result != nil {
		return p.Result
	}
	return p.Payload
}

// ProviderOutput is the result body of a finished generation.
type ProviderOutput struct {
	Images  []GeneratedImage   `json:"images"`
	Seed    *int64             `json:"seed,omitempty"`
	Timings map[string]float64 `json:"timings,omitempty"`
	Version string             `json:"version,omitempty"`
}
