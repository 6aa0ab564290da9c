package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/services"
)

type PhotosHandler struct {
	photos *services.PhotoService
}

func NewPhotosHandler(photos *services.PhotoService) *PhotosHandler {
	return &PhotosHandler{photos: photos}
}

// SavePhoto godoc
// @Summary     Save photo
// @Description Persists a photo at the end of its album. With generation_id the finished job supplies omitted fields.
// @Tags        photos
// @Accept      json
// @Produce     json
// @Param       body body models.SavePhotoRequest true "Photo"
// @Success     201 {object} models.Photo
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /photos [post]
func (h *PhotosHandler) SavePhoto(c *gin.Context) {
	var req models.SavePhotoRequest
	if !bindJSON(c, &req) {
		return
	}
	photo, err := h.photos.SavePhoto(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, photo)
}

// GetPhoto godoc
// @Summary     Get photo
// @Tags        photos
// @Produce     json
// @Param       photo_id path string true "Photo ID"
// @Success     200 {object} models.PhotoDetail
// @Failure     404 {object} models.ErrorResponse
// @Router      /photos/{photo_id} [get]
func (h *PhotosHandler) GetPhoto(c *gin.Context) {
	photo, err := h.photos.GetPhoto(c.Request.Context(), c.Param("photo_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, photo)
}

// UpdatePhoto godoc
// @Summary     Move or reposition photo
// @Description album_id moves the photo (appending unless display_order is set); display_order alone repositions it.
// @Tags        photos
// @Accept      json
// @Produce     json
// @Param       photo_id path string true "Photo ID"
// @Param       body body models.UpdatePhotoRequest true "Update"
// @Success     200 {object} models.Photo
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /photos/{photo_id} [patch]
func (h *PhotosHandler) UpdatePhoto(c *gin.Context) {
	var req models.UpdatePhotoRequest
	if !bindJSON(c, &req) {
		return
	}
	mutation, err := req.Mutation()
	if err != nil {
		badRequest(c, err)
		return
	}
	photo, err := h.photos.UpdatePhoto(c.Request.Context(), c.Param("photo_id"), mutation)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, photo)
}

// DeletePhoto godoc
// @Summary     Delete photo
// @Tags        photos
// @Produce     json
// @Param       photo_id path string true "Photo ID"
// @Success     200 {object} models.MessageResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /photos/{photo_id} [delete]
func (h *PhotosHandler) DeletePhoto(c *gin.Context) {
	if err := h.photos.DeletePhoto(c.Request.Context(), c.Param("photo_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "photo deleted"})
}

// MovePhotos godoc
// @Summary     Move photos
// @Description Appends the photos to the target album in request order.
// @Tags        photos
// @Accept      json
// @Produce     json
// @Param       body body models.MovePhotosRequest true "Move"
// @Success     200 {array} models.Photo
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /photos/move [post]
func (h *PhotosHandler) MovePhotos(c *gin.Context) {
	var req models.MovePhotosRequest
	if !bindJSON(c, &req) {
		return
	}
	photos, err := h.photos.MovePhotos(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, photos)
}

// DeletePhotos godoc
// @Summary     Delete photos
// @Description Deletes every listed photo or, when any id is unknown, none of them.
// @Tags        photos
// @Accept      json
// @Produce     json
// @Param       body body models.DeletePhotosRequest true "Photo IDs"
// @Success     200 {object} map[string]int "deleted"
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /photos/bulk-delete [post]
func (h *PhotosHandler) DeletePhotos(c *gin.Context) {
	var req models.DeletePhotosRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := h.photos.DeletePhotos(c.Request.Context(), req.PhotoIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
