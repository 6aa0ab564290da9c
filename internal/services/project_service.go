package services

import (
	"context"
	"fmt"
	"regexp"

	"github.com/apex/log"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/ordering"
	"photo-studio-backend/internal/store"
)

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type ProjectService struct {
	store  store.Store
	mirror ImageMirror
}

// NewProjectService wires the service. mirror may be nil when photos are not
// copied into storage.
func NewProjectService(st store.Store, mirror ImageMirror) *ProjectService {
	return &ProjectService{
		store:  st,
		mirror: mirror,
	}
}

func (s *ProjectService) ListProjects(ctx context.Context, includeAlbums bool) ([]models.ProjectWithAlbumCount, error) {
	var out []models.ProjectWithAlbumCount
	err := s.store.View(ctx, func(tx store.Tx) error {
		projects, err := tx.ListProjects(ctx)
		if err != nil {
			return err
		}
		out = make([]models.ProjectWithAlbumCount, 0, len(projects))
		for _, p := range projects {
			item, err := projectWithAlbums(ctx, tx, p, includeAlbums)
			if err != nil {
				return err
			}
			out = append(out, item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return out, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id string) (models.ProjectWithAlbumCount, error) {
	var out models.ProjectWithAlbumCount
	err := s.store.View(ctx, func(tx store.Tx) error {
		p, err := tx.GetProject(ctx, id)
		if err != nil {
			return missing(err, apperr.ProjectNotFound, "project %s not found", id)
		}
		out, err = projectWithAlbums(ctx, tx, p, true)
		return err
	})
	return out, err
}

func projectWithAlbums(ctx context.Context, tx store.Tx, p models.Project, includeAlbums bool) (models.ProjectWithAlbumCount, error) {
	out := models.ProjectWithAlbumCount{Project: p}
	if !includeAlbums {
		n, err := tx.CountAlbums(ctx, p.ID)
		out.AlbumCount = n
		return out, err
	}

	albums, err := tx.ListAlbums(ctx, p.ID)
	if err != nil {
		return out, err
	}
	out.AlbumCount = len(albums)
	out.Albums = make([]models.AlbumPreview, 0, len(albums))
	for _, a := range albums {
		count, err := tx.CountPhotos(ctx, a.ID)
		if err != nil {
			return out, err
		}
		cover, err := coverURL(ctx, tx, a)
		if err != nil {
			return out, err
		}
		out.Albums = append(out.Albums, models.AlbumPreview{
			ID:            a.ID,
			Name:          a.Name,
			PhotoCount:    count,
			CoverPhotoURL: cover,
			DisplayOrder:  a.DisplayOrder,
		})
	}
	return out, nil
}

func checkColor(color *string) error {
	if color != nil && !colorPattern.MatchString(*color) {
		return apperr.Validation(apperr.InvalidColor, "color", "color must be #rgb or #rrggbb, got %q", *color)
	}
	return nil
}

// CreateProject appends the project after every existing one.
func (s *ProjectService) CreateProject(ctx context.Context, req models.CreateProjectRequest) (models.Project, error) {
	name, err := checkName(req.Name, "name")
	if err != nil {
		return models.Project{}, err
	}
	if err := checkColor(req.Color); err != nil {
		return models.Project{}, err
	}

	at := now()
	project := models.Project{
		ID:          newID(),
		Name:        name,
		Description: req.Description,
		Color:       req.Color,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.LockScope(ctx, store.ProjectsScope()); err != nil {
			return err
		}
		siblings, err := tx.ListProjects(ctx)
		if err != nil {
			return err
		}
		project.DisplayOrder = ordering.Next(projectItems(siblings))
		return tx.InsertProject(ctx, project)
	})
	if err != nil {
		return models.Project{}, fmt.Errorf("failed to create project: %w", err)
	}

	log.WithFields(log.Fields{"project_id": project.ID, "display_order": project.DisplayOrder}).Info("created project")
	return project, nil
}

func (s *ProjectService) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	var name string
	if patch.Name.Set {
		var err error
		if name, err = checkName(patch.Name.Value, "name"); err != nil {
			return models.Project{}, err
		}
	}
	if patch.Color.Set {
		if err := checkColor(patch.Color.Value); err != nil {
			return models.Project{}, err
		}
	}

	var project models.Project
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		project, err = tx.GetProject(ctx, id)
		if err != nil {
			return missing(err, apperr.ProjectNotFound, "project %s not found", id)
		}
		if patch.Name.Set {
			project.Name = name
		}
		if patch.Description.Set {
			project.Description = patch.Description.Value
		}
		if patch.Color.Set {
			project.Color = patch.Color.Value
		}
		project.UpdatedAt = now()
		return tx.UpdateProject(ctx, project)
	})
	return project, err
}

// DeleteProject removes the project with its albums and photos and closes the
// gap it leaves in the project ordering.
func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	var paths []string
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.LockScope(ctx, store.ProjectsScope()); err != nil {
			return err
		}
		project, err := tx.GetProject(ctx, id)
		if err != nil {
			return missing(err, apperr.ProjectNotFound, "project %s not found", id)
		}
		albums, err := tx.ListAlbums(ctx, id)
		if err != nil {
			return err
		}
		if paths, err = storagePaths(ctx, tx, albums); err != nil {
			return err
		}
		if err := tx.DeleteProject(ctx, id); err != nil {
			return err
		}
		remaining, err := tx.ListProjects(ctx)
		if err != nil {
			return err
		}
		return tx.SetProjectOrders(ctx, ordering.CloseGap(projectItems(remaining), project.DisplayOrder))
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"project_id": id, "photos": len(paths)}).Info("deleted project")
	if s.mirror != nil {
		s.mirror.RemovePhotos(ctx, paths)
	}
	return nil
}

func (s *ProjectService) ReorderProjects(ctx context.Context, orders []models.OrderAssignment) ([]models.Project, error) {
	var projects []models.Project
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.LockScope(ctx, store.ProjectsScope()); err != nil {
			return err
		}
		siblings, err := tx.ListProjects(ctx)
		if err != nil {
			return err
		}
		changes, err := ordering.Validate(itemIDs(projectItems(siblings)), toAssignments(orders))
		if err != nil {
			return err
		}
		if err := tx.SetProjectOrders(ctx, changes); err != nil {
			return err
		}
		projects, err = tx.ListProjects(ctx)
		return err
	})
	return projects, err
}
