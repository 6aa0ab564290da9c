package services

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/ordering"
	"photo-studio-backend/internal/store"
)

type AlbumService struct {
	store  store.Store
	mirror ImageMirror
}

func NewAlbumService(st store.Store, mirror ImageMirror) *AlbumService {
	return &AlbumService{
		store:  st,
		mirror: mirror,
	}
}

func albumWithCount(ctx context.Context, tx store.Tx, a models.Album) (models.AlbumWithPhotoCount, error) {
	out := models.AlbumWithPhotoCount{Album: a}
	count, err := tx.CountPhotos(ctx, a.ID)
	if err != nil {
		return out, err
	}
	out.PhotoCount = count
	out.CoverPhotoURL, err = coverURL(ctx, tx, a)
	return out, err
}

func (s *AlbumService) GetAlbumsByProject(ctx context.Context, projectID string) ([]models.AlbumWithPhotoCount, error) {
	var out []models.AlbumWithPhotoCount
	err := s.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetProject(ctx, projectID); err != nil {
			return missing(err, apperr.ProjectNotFound, "project %s not found", projectID)
		}
		albums, err := tx.ListAlbums(ctx, projectID)
		if err != nil {
			return err
		}
		out = make([]models.AlbumWithPhotoCount, 0, len(albums))
		for _, a := range albums {
			item, err := albumWithCount(ctx, tx, a)
			if err != nil {
				return err
			}
			out = append(out, item)
		}
		return nil
	})
	return out, err
}

func (s *AlbumService) GetAlbum(ctx context.Context, id string) (models.AlbumDetail, error) {
	var out models.AlbumDetail
	err := s.store.View(ctx, func(tx store.Tx) error {
		album, err := tx.GetAlbum(ctx, id)
		if err != nil {
			return missing(err, apperr.AlbumNotFound, "album %s not found", id)
		}
		project, err := tx.GetProject(ctx, album.ProjectID)
		if err != nil {
			return err
		}
		photos, err := tx.ListPhotos(ctx, id)
		if err != nil {
			return err
		}
		cover, err := coverURL(ctx, tx, album)
		if err != nil {
			return err
		}

		out = models.AlbumDetail{
			AlbumWithPhotoCount: models.AlbumWithPhotoCount{Album: album, PhotoCount: len(photos), CoverPhotoURL: cover},
			Photos:              make([]models.PhotoPreview, 0, len(photos)),
			Project:             models.ProjectSummary{ID: project.ID, Name: project.Name},
		}
		for _, p := range photos {
			out.Photos = append(out.Photos, p.Preview())
		}
		return nil
	})
	return out, err
}

// CreateAlbum appends the album to its project's ordering.
func (s *AlbumService) CreateAlbum(ctx context.Context, req models.CreateAlbumRequest) (models.Album, error) {
	name, err := checkName(req.Name, "name")
	if err != nil {
		return models.Album{}, err
	}
	if req.ProjectID == "" {
		return models.Album{}, apperr.Validation(apperr.InvalidRequest, "project_id", "project_id is required")
	}

	at := now()
	album := models.Album{
		ID:          newID(),
		ProjectID:   req.ProjectID,
		Name:        name,
		Description: req.Description,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.LockScope(ctx, store.AlbumsScope(req.ProjectID)); err != nil {
			return err
		}
		if _, err := tx.GetProject(ctx, req.ProjectID); err != nil {
			return missing(err, apperr.ProjectNotFound, "project %s not found", req.ProjectID)
		}
		siblings, err := tx.ListAlbums(ctx, req.ProjectID)
		if err != nil {
			return err
		}
		album.DisplayOrder = ordering.Next(albumItems(siblings))
		return tx.InsertAlbum(ctx, album)
	})
	if err != nil {
		return models.Album{}, fmt.Errorf("failed to create album: %w", err)
	}

	log.WithFields(log.Fields{"album_id": album.ID, "project_id": album.ProjectID}).Info("created album")
	return album, nil
}

func (s *AlbumService) UpdateAlbum(ctx context.Context, id string, patch models.AlbumPatch) (models.Album, error) {
	var name string
	if patch.Name.Set {
		var err error
		if name, err = checkName(patch.Name.Value, "name"); err != nil {
			return models.Album{}, err
		}
	}

	var album models.Album
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		album, err = tx.GetAlbum(ctx, id)
		if err != nil {
			return missing(err, apperr.AlbumNotFound, "album %s not found", id)
		}
		if patch.Name.Set {
			album.Name = name
		}
		if patch.Description.Set {
			album.Description = patch.Description.Value
		}
		album.UpdatedAt = now()
		return tx.UpdateAlbum(ctx, album)
	})
	return album, err
}

// DeleteAlbum removes the album with its photos and closes the gap in the
// project's album ordering.
func (s *AlbumService) DeleteAlbum(ctx context.Context, id string) error {
	var paths []string
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		album, err := tx.GetAlbum(ctx, id)
		if err != nil {
			return missing(err, apperr.AlbumNotFound, "album %s not found", id)
		}
		if err := lockScopes(ctx, tx, store.AlbumsScope(album.ProjectID), store.PhotosScope(id)); err != nil {
			return err
		}
		if paths, err = storagePaths(ctx, tx, []models.Album{album}); err != nil {
			return err
		}
		if err := tx.DeleteAlbum(ctx, id); err != nil {
			return err
		}
		remaining, err := tx.ListAlbums(ctx, album.ProjectID)
		if err != nil {
			return err
		}
		return tx.SetAlbumOrders(ctx, ordering.CloseGap(albumItems(remaining), album.DisplayOrder))
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"album_id": id, "photos": len(paths)}).Info("deleted album")
	if s.mirror != nil {
		s.mirror.RemovePhotos(ctx, paths)
	}
	return nil
}

func (s *AlbumService) ReorderAlbums(ctx context.Context, projectID string, orders []models.OrderAssignment) ([]models.Album, error) {
	var albums []models.Album
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.LockScope(ctx, store.AlbumsScope(projectID)); err != nil {
			return err
		}
		if _, err := tx.GetProject(ctx, projectID); err != nil {
			return missing(err, apperr.ProjectNotFound, "project %s not found", projectID)
		}
		siblings, err := tx.ListAlbums(ctx, projectID)
		if err != nil {
			return err
		}
		changes, err := ordering.Validate(itemIDs(albumItems(siblings)), toAssignments(orders))
		if err != nil {
			return err
		}
		if err := tx.SetAlbumOrders(ctx, changes); err != nil {
			return err
		}
		albums, err = tx.ListAlbums(ctx, projectID)
		return err
	})
	return albums, err
}

// SetCoverPhoto points the album at one of its own photos. An empty photoID
// clears the cover.
func (s *AlbumService) SetCoverPhoto(ctx context.Context, albumID, photoID string) (models.AlbumWithPhotoCount, error) {
	var out models.AlbumWithPhotoCount
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		album, err := tx.GetAlbum(ctx, albumID)
		if err != nil {
			return missing(err, apperr.AlbumNotFound, "album %s not found", albumID)
		}

		if photoID == "" {
			album.CoverPhotoID = nil
		} else {
			photo, err := tx.GetPhoto(ctx, photoID)
			if err != nil {
				return missing(err, apperr.PhotoNotFound, "photo %s not found", photoID)
			}
			if photo.AlbumID != albumID {
				return apperr.Integrity(apperr.InvalidReference, "photo_id",
					"photo %s belongs to album %s", photoID, photo.AlbumID)
			}
			album.CoverPhotoID = &photo.ID
		}
		album.UpdatedAt = now()
		if err := tx.UpdateAlbum(ctx, album); err != nil {
			return err
		}
		out, err = albumWithCount(ctx, tx, album)
		return err
	})
	return out, err
}
