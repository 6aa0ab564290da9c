package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/catalog"
	"photo-studio-backend/internal/generation"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/services"
	"photo-studio-backend/internal/store"
	"photo-studio-backend/internal/store/memory"
	"photo-studio-backend/internal/templating"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, req generation.Request) (generation.Job, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(generation.Job), args.Error(1)
}

func (m *mockGenerator) Claim(id string) (generation.Job, error) {
	args := m.Called(id)
	return args.Get(0).(generation.Job), args.Error(1)
}

func (m *mockGenerator) Release(id string) {
	m.Called(id)
}

func (m *mockGenerator) Discard(id string) {
	m.Called(id)
}

type recordingMirror struct {
	removed []string
}

func (r *recordingMirror) MirrorPhoto(_ context.Context, albumID, photoID, _ string) (string, string, error) {
	path := fmt.Sprintf("albums/%s/%s.png", albumID, photoID)
	return path, "https://cdn.test/" + path, nil
}

func (r *recordingMirror) RemovePhotos(_ context.Context, paths []string) {
	r.removed = append(r.removed, paths...)
}

type recordingPublisher struct {
	photos []models.PhotoEvent
}

func (p *recordingPublisher) PublishGeneration(models.GenerationEvent) {}

func (p *recordingPublisher) PublishPhotos(ev models.PhotoEvent) {
	p.photos = append(p.photos, ev)
}

type fixture struct {
	store     *memory.Store
	projects  *services.ProjectService
	albums    *services.AlbumService
	photos    *services.PhotoService
	templates *services.TemplateService
	generator *mockGenerator
	mirror    *recordingMirror
	events    *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	cat := catalog.Default()
	engine := templating.NewEngine(16)
	f := &fixture{
		store:     st,
		generator: &mockGenerator{},
		mirror:    &recordingMirror{},
		events:    &recordingPublisher{},
	}
	f.projects = services.NewProjectService(st, f.mirror)
	f.albums = services.NewAlbumService(st, f.mirror)
	f.templates = services.NewTemplateService(st, engine, cat)
	f.photos = services.NewPhotoService(st, services.PhotoServiceOptions{
		Catalog:     cat,
		Generator:   f.generator,
		Engine:      engine,
		Mirror:      f.mirror,
		Publisher:   f.events,
		MaxPageSize: 50,
	})
	return f
}

func (f *fixture) project(t *testing.T, name string) models.Project {
	t.Helper()
	p, err := f.projects.CreateProject(context.Background(), models.CreateProjectRequest{Name: name})
	require.NoError(t, err)
	return p
}

func (f *fixture) album(t *testing.T, projectID, name string) models.Album {
	t.Helper()
	a, err := f.albums.CreateAlbum(context.Background(), models.CreateAlbumRequest{Name: name, ProjectID: projectID})
	require.NoError(t, err)
	return a
}

func (f *fixture) photo(t *testing.T, albumID, prompt string) models.Photo {
	t.Helper()
	p, err := f.photos.SavePhoto(context.Background(), models.SavePhotoRequest{
		URL:     "https://fal.media/files/" + prompt + ".png",
		Prompt:  prompt,
		Model:   "fal-ai/flux/dev",
		AlbumID: albumID,
		Width:   1024,
		Height:  768,
	})
	require.NoError(t, err)
	return p
}

// orders returns photo id to display order for an album.
func (f *fixture) orders(t *testing.T, albumID string) map[string]int {
	t.Helper()
	out := map[string]int{}
	require.NoError(t, f.store.View(context.Background(), func(tx store.Tx) error {
		photos, err := tx.ListPhotos(context.Background(), albumID)
		for _, p := range photos {
			out[p.ID] = p.DisplayOrder
		}
		return err
	}))
	return out
}

func assertCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apperr.CodeOf(err), err.Error())
}
