package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/models"
)

func TestCreateAlbum_RequiresProject(t *testing.T) {
	f := newFixture(t)
	_, err := f.albums.CreateAlbum(context.Background(), models.CreateAlbumRequest{Name: "Rome", ProjectID: "nope"})
	assertCode(t, err, apperr.ProjectNotFound)
}

func TestGetAlbum_Detail(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "Trips")
	a := f.album(t, p.ID, "Rome")
	f.photo(t, a.ID, "one")
	f.photo(t, a.ID, "two")

	detail, err := f.albums.GetAlbum(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trips", detail.Project.Name)
	assert.Equal(t, 2, detail.PhotoCount)
	require.Len(t, detail.Photos, 2)
	assert.Equal(t, "one", detail.Photos[0].Prompt)
	assert.Nil(t, detail.CoverPhotoURL)

	_, err = f.albums.GetAlbum(context.Background(), "nope")
	assertCode(t, err, apperr.AlbumNotFound)
}

func TestSetCoverPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, "Trips")
	rome := f.album(t, p.ID, "Rome")
	paris := f.album(t, p.ID, "Paris")
	own := f.photo(t, rome.ID, "forum")
	foreign := f.photo(t, paris.ID, "louvre")

	_, err := f.albums.SetCoverPhoto(ctx, rome.ID, foreign.ID)
	assertCode(t, err, apperr.InvalidReference)

	_, err = f.albums.SetCoverPhoto(ctx, rome.ID, "missing")
	assertCode(t, err, apperr.PhotoNotFound)

	album, err := f.albums.SetCoverPhoto(ctx, rome.ID, own.ID)
	require.NoError(t, err)
	require.NotNil(t, album.CoverPhotoURL)
	assert.Equal(t, own.URL, *album.CoverPhotoURL)

	require.NoError(t, f.photos.DeletePhoto(ctx, own.ID))
	albums, err := f.albums.GetAlbumsByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, albums[0].CoverPhotoID)
	assert.Nil(t, albums[0].CoverPhotoURL)

	cleared, err := f.albums.SetCoverPhoto(ctx, paris.ID, "")
	require.NoError(t, err)
	assert.Nil(t, cleared.CoverPhotoID)
}

func TestDeleteAlbum_ClosesGapInProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, "Trips")
	a := f.album(t, p.ID, "a")
	b := f.album(t, p.ID, "b")
	c := f.album(t, p.ID, "c")
	f.photo(t, b.ID, "x")

	require.NoError(t, f.albums.DeleteAlbum(ctx, b.ID))

	albums, err := f.albums.GetAlbumsByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, albums, 2)
	assert.Equal(t, a.ID, albums[0].ID)
	assert.Equal(t, c.ID, albums[1].ID)
	assert.Equal(t, 1, albums[1].DisplayOrder)
	assert.Len(t, f.mirror.removed, 1)
}

func TestReorderAlbums_RejectsPartialSet(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "Trips")
	a := f.album(t, p.ID, "a")
	f.album(t, p.ID, "b")

	_, err := f.albums.ReorderAlbums(context.Background(), p.ID, []models.OrderAssignment{{ID: a.ID, DisplayOrder: 0}})
	assertCode(t, err, apperr.DuplicateOrder)
}
