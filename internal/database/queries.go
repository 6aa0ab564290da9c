package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"photo-studio-backend/internal/models"
)

const (
	projectColumns  = `id, name, description, color, display_order, created_at, updated_at`
	albumColumns    = `id, project_id, name, description, cover_photo_id, display_order, created_at, updated_at`
	photoColumns    = `id, album_id, url, storage_path, prompt, model, parameters, width, height, display_order, processing_time_ms, model_version, cost, cost_currency, template_id, created_at, updated_at`
	templateColumns = `id, name, description, base_prompt, parameters, model, tags, created_at, updated_at`
	usageColumns    = `id, template_id, photo_id, photo_url, applied_values, created_at`
)

const (
	insertPhotoSQL = `INSERT INTO photos (` + photoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	updatePhotoSQL = `
		UPDATE photos SET album_id = $2, url = $3, storage_path = $4, prompt = $5, model = $6,
			parameters = $7, width = $8, height = $9, display_order = $10,
			processing_time_ms = $11, model_version = $12, cost = $13, cost_currency = $14,
			template_id = $15, updated_at = $16
		WHERE id = $1`
	insertTemplateSQL = `INSERT INTO prompt_templates (` + templateColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	updateTemplateSQL = `
		UPDATE prompt_templates SET name = $2, description = $3, base_prompt = $4, parameters = $5,
			model = $6, tags = $7, updated_at = $8
		WHERE id = $1`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func scanProject(row rowScanner) (models.Project, error) {
	var p models.Project
	var description, color sql.NullString
	err := row.Scan(&p.ID, &p.Name, &description, &color, &p.DisplayOrder, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Project{}, err
	}
	p.Description = stringPtr(description)
	p.Color = stringPtr(color)
	return p, nil
}

func scanAlbum(row rowScanner) (models.Album, error) {
	var a models.Album
	var description, cover sql.NullString
	err := row.Scan(&a.ID, &a.ProjectID, &a.Name, &description, &cover, &a.DisplayOrder, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return models.Album{}, err
	}
	a.Description = stringPtr(description)
	a.CoverPhotoID = stringPtr(cover)
	return a, nil
}

func scanPhoto(row rowScanner) (models.Photo, error) {
	var p models.Photo
	var (
		storagePath, modelVersion, currency, templateID sql.NullString
		parameters                                      []byte
		processingTime                                  sql.NullInt64
		cost                                            sql.NullFloat64
	)
	err := row.Scan(
		&p.ID, &p.AlbumID, &p.URL, &storagePath, &p.Prompt, &p.Model, &parameters,
		&p.Width, &p.Height, &p.DisplayOrder, &processingTime, &modelVersion,
		&cost, &currency, &templateID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return models.Photo{}, err
	}
	p.StoragePath = storagePath.String
	p.TemplateID = stringPtr(templateID)
	if err := json.Unmarshal(parameters, &p.Parameters); err != nil {
		return models.Photo{}, fmt.Errorf("failed to decode photo parameters: %w", err)
	}
	if processingTime.Valid || modelVersion.Valid || cost.Valid {
		md := &models.GenerationMetadata{
			ProcessingTimeMs: processingTime.Int64,
			ModelVersion:     modelVersion.String,
			Currency:         currency.String,
		}
		if cost.Valid {
			c := cost.Float64
			md.Cost = &c
		}
		p.GenerationMetadata = md
	}
	return p, nil
}

// photoArgs returns the insert/update arguments in photoColumns order.
func photoArgs(p models.Photo) ([]any, error) {
	parameters, err := jsonValues(p.Parameters)
	if err != nil {
		return nil, err
	}
	var (
		processingTime sql.NullInt64
		modelVersion   sql.NullString
		cost           sql.NullFloat64
		currency       sql.NullString
	)
	if md := p.GenerationMetadata; md != nil {
		processingTime = sql.NullInt64{Int64: md.ProcessingTimeMs, Valid: true}
		modelVersion = sql.NullString{String: md.ModelVersion, Valid: md.ModelVersion != ""}
		if md.Cost != nil {
			cost = sql.NullFloat64{Float64: *md.Cost, Valid: true}
		}
		currency = sql.NullString{String: md.Currency, Valid: md.Currency != ""}
	}
	storagePath := sql.NullString{String: p.StoragePath, Valid: p.StoragePath != ""}
	return []any{
		p.ID, p.AlbumID, p.URL, storagePath, p.Prompt, p.Model, parameters,
		p.Width, p.Height, p.DisplayOrder, processingTime, modelVersion,
		cost, currency, nullString(p.TemplateID), p.CreatedAt, p.UpdatedAt,
	}, nil
}

// photoUpdateArgs drops created_at, which is never rewritten.
func photoUpdateArgs(p models.Photo) ([]any, error) {
	args, err := photoArgs(p)
	if err != nil {
		return nil, err
	}
	return append(args[:15:15], args[16]), nil
}

func scanTemplate(row rowScanner) (models.PromptTemplate, error) {
	var t models.PromptTemplate
	var description sql.NullString
	var parameters []byte
	err := row.Scan(&t.ID, &t.Name, &description, &t.BasePrompt, &parameters, &t.Model,
		pq.Array(&t.Tags), &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.PromptTemplate{}, err
	}
	t.Description = stringPtr(description)
	if err := json.Unmarshal(parameters, &t.Parameters); err != nil {
		return models.PromptTemplate{}, fmt.Errorf("failed to decode template parameters: %w", err)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t, nil
}

func templateArgs(t models.PromptTemplate) ([]any, error) {
	params := t.Parameters
	if params == nil {
		params = []models.PromptParameter{}
	}
	parameters, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode template parameters: %w", err)
	}
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		t.ID, t.Name, nullString(t.Description), t.BasePrompt, parameters, t.Model,
		pq.Array(tags), t.CreatedAt, t.UpdatedAt,
	}, nil
}

// templateUpdateArgs drops created_at, which is never rewritten.
func templateUpdateArgs(t models.PromptTemplate) ([]any, error) {
	args, err := templateArgs(t)
	if err != nil {
		return nil, err
	}
	return append(args[:7:7], args[8]), nil
}

func scanUsage(row rowScanner) (models.TemplateUsage, error) {
	var u models.TemplateUsage
	var photoID sql.NullString
	var values []byte
	if err := row.Scan(&u.ID, &u.TemplateID, &photoID, &u.PhotoURL, &values, &u.CreatedAt); err != nil {
		return models.TemplateUsage{}, err
	}
	u.PhotoID = stringPtr(photoID)
	if err := json.Unmarshal(values, &u.AppliedValues); err != nil {
		return models.TemplateUsage{}, fmt.Errorf("failed to decode applied values: %w", err)
	}
	return u, nil
}

func nonNilValues(vs models.Values) models.Values {
	if vs == nil {
		return models.Values{}
	}
	return vs
}

func jsonValues(vs models.Values) ([]byte, error) {
	b, err := json.Marshal(nonNilValues(vs))
	if err != nil {
		return nil, fmt.Errorf("failed to encode values: %w", err)
	}
	return b, nil
}
