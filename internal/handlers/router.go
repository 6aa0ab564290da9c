package handlers

import (
	"github.com/gin-gonic/gin"
	"photo-studio-backend/internal/generation"
	"photo-studio-backend/internal/middleware"
	"photo-studio-backend/internal/services"
)

type RouterConfig struct {
	Projects  *services.ProjectService
	Albums    *services.AlbumService
	Photos    *services.PhotoService
	Templates *services.TemplateService
	Adapter   *generation.Adapter
	Tokens    *middleware.WebhookTokens
	Pinger    Pinger
}

// NewRouter registers every route on a fresh engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())

	health := NewHealthHandler(cfg.Pinger)
	projects := NewProjectsHandler(cfg.Projects, cfg.Albums)
	albums := NewAlbumsHandler(cfg.Albums, cfg.Photos)
	photos := NewPhotosHandler(cfg.Photos)
	generations := NewGenerationsHandler(cfg.Photos, cfg.Adapter)
	templates := NewTemplatesHandler(cfg.Templates)
	webhook := NewWebhookHandler(cfg.Adapter)

	router.GET("/health", health.Health)

	api := router.Group("/api/v1")

	// Projects
	api.GET("/projects", projects.ListProjects)
	api.POST("/projects", projects.CreateProject)
	api.PUT("/projects/order", projects.ReorderProjects)
	api.GET("/projects/:project_id", projects.GetProject)
	api.PATCH("/projects/:project_id", projects.UpdateProject)
	api.DELETE("/projects/:project_id", projects.DeleteProject)
	api.GET("/projects/:project_id/albums", projects.ListAlbums)
	api.PUT("/projects/:project_id/albums/order", projects.ReorderAlbums)

	// Albums
	api.POST("/albums", albums.CreateAlbum)
	api.GET("/albums/:album_id", albums.GetAlbum)
	api.PATCH("/albums/:album_id", albums.UpdateAlbum)
	api.DELETE("/albums/:album_id", albums.DeleteAlbum)
	api.PUT("/albums/:album_id/cover", albums.SetCoverPhoto)
	api.GET("/albums/:album_id/photos", albums.ListPhotos)
	api.PUT("/albums/:album_id/photos/order", albums.ReorderPhotos)

	// Photos
	api.POST("/photos", photos.SavePhoto)
	api.POST("/photos/move", photos.MovePhotos)
	api.POST("/photos/bulk-delete", photos.DeletePhotos)
	api.GET("/photos/:photo_id", photos.GetPhoto)
	api.PATCH("/photos/:photo_id", photos.UpdatePhoto)
	api.DELETE("/photos/:photo_id", photos.DeletePhoto)

	// Generation
	api.POST("/generations", generations.GeneratePhoto)
	api.GET("/generations/:job_id", generations.GetStatus)
	api.GET("/models", generations.ListModels)
	api.GET("/models/*model_id", generations.GetModel)

	// Templates
	api.GET("/templates", templates.ListTemplates)
	api.POST("/templates", templates.CreateTemplate)
	api.GET("/templates/:template_id", templates.GetTemplate)
	api.PATCH("/templates/:template_id", templates.UpdateTemplate)
	api.DELETE("/templates/:template_id", templates.DeleteTemplate)
	api.POST("/templates/:template_id/apply", templates.ApplyTemplate)

	// Webhook (no API auth, uses the signed callback token)
	api.POST("/webhooks/fal", middleware.WebhookAuth(cfg.Tokens), webhook.HandleWebhook)

	return router
}
