// Package services implements the project, album, photo and template
// operations on top of a store.Store. Every mutation that touches display
// orders runs in a single transaction holding the affected scope locks.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/ordering"
	"photo-studio-backend/internal/store"
)

func now() time.Time {
	return time.Now().UTC()
}

func newID() string {
	return uuid.NewString()
}

// missing turns store.ErrNotFound into a coded not-found error and passes
// every other error through.
func missing(err error, code apperr.Code, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(code, format, args...)
	}
	return err
}

func checkName(name, field string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apperr.Validation(apperr.InvalidName, field, "name is required")
	}
	return trimmed, nil
}

func toAssignments(in []models.OrderAssignment) []ordering.Assignment {
	out := make([]ordering.Assignment, len(in))
	for i, a := range in {
		out[i] = ordering.Assignment{ID: a.ID, DisplayOrder: a.DisplayOrder}
	}
	return out
}

func projectItems(ps []models.Project) []ordering.Item {
	items := make([]ordering.Item, len(ps))
	for i, p := range ps {
		items[i] = ordering.Item{ID: p.ID, Order: p.DisplayOrder}
	}
	return items
}

func albumItems(as []models.Album) []ordering.Item {
	items := make([]ordering.Item, len(as))
	for i, a := range as {
		items[i] = ordering.Item{ID: a.ID, Order: a.DisplayOrder}
	}
	return items
}

func photoItems(ps []models.Photo) []ordering.Item {
	items := make([]ordering.Item, len(ps))
	for i, p := range ps {
		items[i] = ordering.Item{ID: p.ID, Order: p.DisplayOrder}
	}
	return items
}

func itemIDs(items []ordering.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// lockScopes acquires every scope in a stable order.
func lockScopes(ctx context.Context, tx store.Tx, scopes ...store.Scope) error {
	for _, s := range store.SortScopes(scopes) {
		if err := tx.LockScope(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// coverURL resolves an album's cover photo to its URL.
func coverURL(ctx context.Context, tx store.Tx, a models.Album) (*string, error) {
	if a.CoverPhotoID == nil {
		return nil, nil
	}
	p, err := tx.GetPhoto(ctx, *a.CoverPhotoID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p.URL, nil
}

// storagePaths collects the mirrored objects of every photo in albums.
func storagePaths(ctx context.Context, tx store.Tx, albums []models.Album) ([]string, error) {
	var paths []string
	for _, a := range albums {
		photos, err := tx.ListPhotos(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range photos {
			if p.StoragePath != "" {
				paths = append(paths, p.StoragePath)
			}
		}
	}
	return paths, nil
}
