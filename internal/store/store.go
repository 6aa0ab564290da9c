// Package store defines the persistence boundary shared by the postgres and
// in-memory implementations.
package store

import (
	"context"
	"errors"
	"sort"

	"photo-studio-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrDuplicate = errors.New("store: duplicate record")
)

// Scope names a sibling set whose ordering must be serialized.
type Scope string

func ProjectsScope() Scope              { return "projects" }
func AlbumsScope(projectID string) Scope { return Scope("albums:" + projectID) }
func PhotosScope(albumID string) Scope   { return Scope("photos:" + albumID) }
func TemplatesScope() Scope             { return "templates" }

// SortScopes orders scopes so that callers locking several of them always
// acquire locks in the same sequence.
func SortScopes(scopes []Scope) []Scope {
	out := append([]Scope{}, scopes...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	uniq := out[:0]
	for i, s := range out {
		if i == 0 || s != out[i-1] {
			uniq = append(uniq, s)
		}
	}
	return uniq
}

type Store interface {
	// RunInTx runs fn in a read-write transaction. Nothing fn writes is
	// visible to other readers unless fn returns nil.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

type Tx interface {
	LockScope(ctx context.Context, scope Scope) error

	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id string) (models.Project, error)
	InsertProject(ctx context.Context, p models.Project) error
	UpdateProject(ctx context.Context, p models.Project) error
	// DeleteProject removes the project with its albums and photos.
	DeleteProject(ctx context.Context, id string) error
	SetProjectOrders(ctx context.Context, orders map[string]int) error

	ListAlbums(ctx context.Context, projectID string) ([]models.Album, error)
	CountAlbums(ctx context.Context, projectID string) (int, error)
	GetAlbum(ctx context.Context, id string) (models.Album, error)
	InsertAlbum(ctx context.Context, a models.Album) error
	UpdateAlbum(ctx context.Context, a models.Album) error
	// DeleteAlbum removes the album with its photos.
	DeleteAlbum(ctx context.Context, id string) error
	SetAlbumOrders(ctx context.Context, orders map[string]int) error

	// ListPhotos returns every photo of an album ordered by display order.
	ListPhotos(ctx context.Context, albumID string) ([]models.Photo, error)
	QueryPhotos(ctx context.Context, albumID string, q models.PhotoQuery) ([]models.Photo, int, error)
	CountPhotos(ctx context.Context, albumID string) (int, error)
	GetPhoto(ctx context.Context, id string) (models.Photo, error)
	InsertPhoto(ctx context.Context, p models.Photo) error
	UpdatePhoto(ctx context.Context, p models.Photo) error
	DeletePhoto(ctx context.Context, id string) error
	SetPhotoOrders(ctx context.Context, orders map[string]int) error

	ListTemplates(ctx context.Context) ([]models.PromptTemplate, error)
	GetTemplate(ctx context.Context, id string) (models.PromptTemplate, error)
	GetTemplateByName(ctx context.Context, name string) (models.PromptTemplate, error)
	InsertTemplate(ctx context.Context, t models.PromptTemplate) error
	UpdateTemplate(ctx context.Context, t models.PromptTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
	InsertTemplateUsage(ctx context.Context, u models.TemplateUsage) error
	TemplateStats(ctx context.Context, templateID string) (models.TemplateStats, error)
	RecentTemplateUsages(ctx context.Context, templateID string, limit int) ([]models.TemplateUsage, error)
}
