package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apex/log"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/generation"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/store"
	"photo-studio-backend/internal/templating"
)

const recentGenerationsLimit = 10

type TemplateService struct {
	store   store.Store
	engine  *templating.Engine
	catalog generation.ModelCatalog
}

func NewTemplateService(st store.Store, engine *templating.Engine, catalog generation.ModelCatalog) *TemplateService {
	return &TemplateService{
		store:   st,
		engine:  engine,
		catalog: catalog,
	}
}

func withStats(ctx context.Context, tx store.Tx, t models.PromptTemplate) (models.TemplateWithStats, error) {
	stats, err := tx.TemplateStats(ctx, t.ID)
	if err != nil {
		return models.TemplateWithStats{}, err
	}
	return models.TemplateWithStats{PromptTemplate: t, UsageCount: stats.UsageCount, LastUsed: stats.LastUsed}, nil
}

// ListTemplates returns every template ordered by name.
func (s *TemplateService) ListTemplates(ctx context.Context) ([]models.TemplateWithStats, error) {
	return s.SearchTemplates(ctx, "")
}

// SearchTemplates matches query case-insensitively against the name,
// description, base prompt and tags. An empty query matches everything.
func (s *TemplateService) SearchTemplates(ctx context.Context, query string) ([]models.TemplateWithStats, error) {
	query = strings.ToLower(strings.TrimSpace(query))

	var out []models.TemplateWithStats
	err := s.store.View(ctx, func(tx store.Tx) error {
		templates, err := tx.ListTemplates(ctx)
		if err != nil {
			return err
		}
		out = make([]models.TemplateWithStats, 0, len(templates))
		for _, t := range templates {
			if query != "" && !matches(t, query) {
				continue
			}
			item, err := withStats(ctx, tx, t)
			if err != nil {
				return err
			}
			out = append(out, item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return out, nil
}

func matches(t models.PromptTemplate, query string) bool {
	fields := append([]string{t.Name, t.BasePrompt}, t.Tags...)
	if t.Description != nil {
		fields = append(fields, *t.Description)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

func (s *TemplateService) GetTemplate(ctx context.Context, id string) (models.TemplateDetail, error) {
	var out models.TemplateDetail
	err := s.store.View(ctx, func(tx store.Tx) error {
		t, err := tx.GetTemplate(ctx, id)
		if err != nil {
			return missing(err, apperr.TemplateNotFound, "template %s not found", id)
		}
		if out.TemplateWithStats, err = withStats(ctx, tx, t); err != nil {
			return err
		}
		usages, err := tx.RecentTemplateUsages(ctx, id, recentGenerationsLimit)
		if err != nil {
			return err
		}
		out.RecentGenerations = make([]models.RecentGeneration, 0, len(usages))
		for _, u := range usages {
			ref := u.ID
			if u.PhotoID != nil {
				ref = *u.PhotoID
			}
			out.RecentGenerations = append(out.RecentGenerations, models.RecentGeneration{
				ID:            ref,
				PhotoURL:      u.PhotoURL,
				AppliedValues: u.AppliedValues,
				CreatedAt:     u.CreatedAt,
			})
		}
		return nil
	})
	return out, err
}

// check validates a complete template definition and normalizes its name,
// model and tags in place.
func (s *TemplateService) check(t *models.PromptTemplate) error {
	name, err := checkName(t.Name, "name")
	if err != nil {
		return err
	}
	t.Name = name

	if err := s.engine.CheckPrompt(t.BasePrompt); err != nil {
		return err
	}
	if perr := apperr.Parameters(s.engine.ValidateDefinition(t.Parameters)); perr != nil {
		return perr
	}

	t.Model = strings.TrimSpace(t.Model)
	if t.Model == "" {
		return apperr.Validation(apperr.InvalidModel, "model", "model is required")
	}
	if s.catalog != nil {
		if _, ok := s.catalog.Model(t.Model); !ok {
			return apperr.Validation(apperr.InvalidModel, "model", "model %q does not exist", t.Model)
		}
	}

	t.Tags = normalizeTags(t.Tags)
	if t.Parameters == nil {
		t.Parameters = []models.PromptParameter{}
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	return out
}

func duplicateName(name string) error {
	return apperr.Conflict(apperr.DuplicateName, "name", "a template named %q already exists", name)
}

// nameFree fails with DUPLICATE_NAME when another template already uses name.
func nameFree(ctx context.Context, tx store.Tx, name, selfID string) error {
	existing, err := tx.GetTemplateByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return duplicateName(name)
	}
	return nil
}

func (s *TemplateService) CreateTemplate(ctx context.Context, req models.CreateTemplateRequest) (models.PromptTemplate, error) {
	at := now()
	t := models.PromptTemplate{
		ID:          newID(),
		Name:        req.Name,
		Description: req.Description,
		BasePrompt:  req.BasePrompt,
		Parameters:  req.Parameters,
		Model:       req.Model,
		Tags:        req.Tags,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if err := s.check(&t); err != nil {
		return models.PromptTemplate{}, err
	}

	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.LockScope(ctx, store.TemplatesScope()); err != nil {
			return err
		}
		if err := nameFree(ctx, tx, t.Name, ""); err != nil {
			return err
		}
		return tx.InsertTemplate(ctx, t)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return models.PromptTemplate{}, duplicateName(t.Name)
	}
	if err != nil {
		return models.PromptTemplate{}, err
	}

	log.WithFields(log.Fields{"template_id": t.ID, "name": t.Name}).Info("created template")
	return t, nil
}

func (s *TemplateService) UpdateTemplate(ctx context.Context, id string, patch models.TemplatePatch) (models.PromptTemplate, error) {
	var t models.PromptTemplate
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.LockScope(ctx, store.TemplatesScope()); err != nil {
			return err
		}
		var err error
		t, err = tx.GetTemplate(ctx, id)
		if err != nil {
			return missing(err, apperr.TemplateNotFound, "template %s not found", id)
		}

		if patch.Name.Set {
			t.Name = patch.Name.Value
		}
		if patch.Description.Set {
			t.Description = patch.Description.Value
		}
		if patch.BasePrompt.Set {
			t.BasePrompt = patch.BasePrompt.Value
		}
		if patch.Parameters.Set {
			t.Parameters = patch.Parameters.Value
		}
		if patch.Model.Set {
			t.Model = patch.Model.Value
		}
		if patch.Tags.Set {
			t.Tags = patch.Tags.Value
		}
		if err := s.check(&t); err != nil {
			return err
		}
		if err := nameFree(ctx, tx, t.Name, t.ID); err != nil {
			return err
		}
		t.UpdatedAt = now()
		return tx.UpdateTemplate(ctx, t)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return models.PromptTemplate{}, duplicateName(t.Name)
	}
	return t, err
}

// DeleteTemplate removes the template and its usage history. Photos created
// from it keep their content but lose the link.
func (s *TemplateService) DeleteTemplate(ctx context.Context, id string) error {
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		return missing(tx.DeleteTemplate(ctx, id), apperr.TemplateNotFound, "template %s not found", id)
	})
	if err != nil {
		return err
	}
	log.WithField("template_id", id).Info("deleted template")
	return nil
}

// ApplyTemplate resolves values against the template without recording any
// usage; usage is recorded when the result is saved as a photo.
func (s *TemplateService) ApplyTemplate(ctx context.Context, id string, values models.Values) (models.AppliedTemplate, error) {
	var t models.PromptTemplate
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		t, err = tx.GetTemplate(ctx, id)
		return missing(err, apperr.TemplateNotFound, "template %s not found", id)
	})
	if err != nil {
		return models.AppliedTemplate{}, err
	}
	return s.engine.Apply(t, values)
}
