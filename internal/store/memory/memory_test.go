package memory_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/store"
	"photo-studio-backend/internal/store/memory"
)

func seed(t *testing.T, s *memory.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertProject(ctx, models.Project{ID: "p1", Name: "Trips"}); err != nil {
			return err
		}
		if err := tx.InsertAlbum(ctx, models.Album{ID: "a1", ProjectID: "p1", Name: "Rome"}); err != nil {
			return err
		}
		for i, id := range []string{"x", "y"} {
			if err := tx.InsertPhoto(ctx, models.Photo{ID: id, AlbumID: "a1", DisplayOrder: i}); err != nil {
				return err
			}
		}
		cover := "x"
		return tx.UpdateAlbum(ctx, models.Album{ID: "a1", ProjectID: "p1", Name: "Rome", CoverPhotoID: &cover})
	}))
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	s := memory.New()
	seed(t, s)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.SetPhotoOrders(ctx, map[string]int{"x": 1, "y": 0}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		photos, err := tx.ListPhotos(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "x", photos[0].ID)
		assert.Equal(t, 0, photos[0].DisplayOrder)
		return nil
	}))
}

func TestDeletePhoto_ClearsCover(t *testing.T) {
	s := memory.New()
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.RunInTx(ctx, func(tx store.Tx) error {
		return tx.DeletePhoto(ctx, "x")
	}))
	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		a, err := tx.GetAlbum(ctx, "a1")
		require.NoError(t, err)
		assert.Nil(t, a.CoverPhotoID)
		return nil
	}))
}

func TestDeleteProject_Cascades(t *testing.T) {
	s := memory.New()
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.RunInTx(ctx, func(tx store.Tx) error {
		return tx.DeleteProject(ctx, "p1")
	}))
	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		_, err := tx.GetAlbum(ctx, "a1")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = tx.GetPhoto(ctx, "y")
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	}))
}

func TestQueryPhotos_SortAndPage(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.RunInTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.InsertProject(ctx, models.Project{ID: "p"}))
		require.NoError(t, tx.InsertAlbum(ctx, models.Album{ID: "a", ProjectID: "p"}))
		for i, prompt := range []string{"cherry", "apple", "banana"} {
			require.NoError(t, tx.InsertPhoto(ctx, models.Photo{
				ID: prompt, AlbumID: "a", Prompt: prompt, DisplayOrder: i,
				CreatedAt: base.Add(time.Duration(2-i) * time.Hour),
			}))
		}
		return nil
	}))

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		page, total, err := tx.QueryPhotos(ctx, "a", models.PhotoQuery{Limit: 2, SortBy: models.SortName, SortDirection: models.SortAsc})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, page, 2)
		assert.Equal(t, "apple", page[0].ID)
		assert.Equal(t, "banana", page[1].ID)

		page, _, err = tx.QueryPhotos(ctx, "a", models.PhotoQuery{Offset: 2, Limit: 2, SortBy: models.SortCreated, SortDirection: models.SortDesc})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "banana", page[0].ID)

		page, _, err = tx.QueryPhotos(ctx, "a", models.PhotoQuery{Offset: -16, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, page, 2)

		page, _, err = tx.QueryPhotos(ctx, "a", models.PhotoQuery{Offset: 1, Limit: math.MaxInt})
		require.NoError(t, err)
		assert.Len(t, page, 2)

		page, _, err = tx.QueryPhotos(ctx, "a", models.PhotoQuery{Offset: math.MaxInt, Limit: 2})
		require.NoError(t, err)
		assert.Empty(t, page)
		return nil
	}))
}

func TestTemplateNamesAreCaseInsensitiveUnique(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	err := s.RunInTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.InsertTemplate(ctx, models.PromptTemplate{ID: "t1", Name: "Portrait"}))
		return tx.InsertTemplate(ctx, models.PromptTemplate{ID: "t2", Name: "portrait"})
	})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}
