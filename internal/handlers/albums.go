package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/services"
)

type AlbumsHandler struct {
	albums *services.AlbumService
	photos *services.PhotoService
}

func NewAlbumsHandler(albums *services.AlbumService, photos *services.PhotoService) *AlbumsHandler {
	return &AlbumsHandler{
		albums: albums,
		photos: photos,
	}
}

// CreateAlbum godoc
// @Summary     Create album
// @Tags        albums
// @Accept      json
// @Produce     json
// @Param       body body models.CreateAlbumRequest true "Album"
// @Success     201 {object} models.Album
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /albums [post]
func (h *AlbumsHandler) CreateAlbum(c *gin.Context) {
	var req models.CreateAlbumRequest
	if !bindJSON(c, &req) {
		return
	}
	album, err := h.albums.CreateAlbum(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, album)
}

// GetAlbum godoc
// @Summary     Get album
// @Description Album with its photos in display order and its project summary.
// @Tags        albums
// @Produce     json
// @Param       album_id path string true "Album ID"
// @Success     200 {object} models.AlbumDetail
// @Failure     404 {object} models.ErrorResponse
// @Router      /albums/{album_id} [get]
func (h *AlbumsHandler) GetAlbum(c *gin.Context) {
	album, err := h.albums.GetAlbum(c.Request.Context(), c.Param("album_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

// UpdateAlbum godoc
// @Summary     Update album
// @Tags        albums
// @Accept      json
// @Produce     json
// @Param       album_id path string true "Album ID"
// @Param       body body models.AlbumPatch true "Patch"
// @Success     200 {object} models.Album
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /albums/{album_id} [patch]
func (h *AlbumsHandler) UpdateAlbum(c *gin.Context) {
	var patch models.AlbumPatch
	if !bindJSON(c, &patch) {
		return
	}
	album, err := h.albums.UpdateAlbum(c.Request.Context(), c.Param("album_id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

// DeleteAlbum godoc
// @Summary     Delete album
// @Description Deletes the album and all of its photos.
// @Tags        albums
// @Produce     json
// @Param       album_id path string true "Album ID"
// @Success     200 {object} models.MessageResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /albums/{album_id} [delete]
func (h *AlbumsHandler) DeleteAlbum(c *gin.Context) {
	if err := h.albums.DeleteAlbum(c.Request.Context(), c.Param("album_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "album deleted"})
}

// SetCoverPhoto godoc
// @Summary     Set album cover
// @Description An empty photo_id clears the cover.
// @Tags        albums
// @Accept      json
// @Produce     json
// @Param       album_id path string true "Album ID"
// @Param       body body models.SetCoverPhotoRequest true "Cover"
// @Success     200 {object} models.AlbumWithPhotoCount
// @Failure     404 {object} models.ErrorResponse
// @Failure     422 {object} models.ErrorResponse
// @Router      /albums/{album_id}/cover [put]
func (h *AlbumsHandler) SetCoverPhoto(c *gin.Context) {
	var req models.SetCoverPhotoRequest
	if !bindJSON(c, &req) {
		return
	}
	album, err := h.albums.SetCoverPhoto(c.Request.Context(), c.Param("album_id"), req.PhotoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

// ListPhotos godoc
// @Summary     List photos of an album
// @Tags        photos
// @Produce     json
// @Param       album_id path string true "Album ID"
// @Param       page query int false "Page (from 1)"
// @Param       limit query int false "Page size"
// @Param       sort_by query string false "created | name | order"
// @Param       sort_direction query string false "asc | desc"
// @Success     200 {object} models.PhotoListResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /albums/{album_id}/photos [get]
func (h *AlbumsHandler) ListPhotos(c *gin.Context) {
	var opts models.PhotoListOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		respondError(c, apperr.Validation(apperr.InvalidRequest, "", "invalid query: %v", err))
		return
	}
	photos, err := h.photos.GetPhotosByAlbum(c.Request.Context(), c.Param("album_id"), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, photos)
}

// ReorderPhotos godoc
// @Summary     Reorder photos of an album
// @Tags        photos
// @Accept      json
// @Produce     json
// @Param       album_id path string true "Album ID"
// @Param       body body models.ReorderPhotosRequest true "Orders"
// @Success     200 {array} models.PhotoPreview
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /albums/{album_id}/photos/order [put]
func (h *AlbumsHandler) ReorderPhotos(c *gin.Context) {
	var req models.ReorderPhotosRequest
	if !bindJSON(c, &req) {
		return
	}
	photos, err := h.photos.ReorderPhotos(c.Request.Context(), c.Param("album_id"), req.PhotoOrders)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, photos)
}
