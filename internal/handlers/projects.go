package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/services"
)

type ProjectsHandler struct {
	projects *services.ProjectService
	albums   *services.AlbumService
}

func NewProjectsHandler(projects *services.ProjectService, albums *services.AlbumService) *ProjectsHandler {
	return &ProjectsHandler{
		projects: projects,
		albums:   albums,
	}
}

// ListProjects godoc
// @Summary     List projects
// @Description Lists projects in display order with album counts. include=albums embeds album previews.
// @Tags        projects
// @Produce     json
// @Param       include query string false "albums"
// @Success     200 {object} models.ProjectListResponse
// @Router      /projects [get]
func (h *ProjectsHandler) ListProjects(c *gin.Context) {
	projects, err := h.projects.ListProjects(c.Request.Context(), c.Query("include") == "albums")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ProjectListResponse{Projects: projects})
}

// CreateProject godoc
// @Summary     Create project
// @Tags        projects
// @Accept      json
// @Produce     json
// @Param       body body models.CreateProjectRequest true "Project"
// @Success     201 {object} models.Project
// @Failure     400 {object} models.ErrorResponse
// @Router      /projects [post]
func (h *ProjectsHandler) CreateProject(c *gin.Context) {
	var req models.CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	project, err := h.projects.CreateProject(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// GetProject godoc
// @Summary     Get project
// @Tags        projects
// @Produce     json
// @Param       project_id path string true "Project ID"
// @Success     200 {object} models.ProjectWithAlbumCount
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id} [get]
func (h *ProjectsHandler) GetProject(c *gin.Context) {
	project, err := h.projects.GetProject(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// UpdateProject godoc
// @Summary     Update project
// @Description Only fields present in the body change; null clears description or color.
// @Tags        projects
// @Accept      json
// @Produce     json
// @Param       project_id path string true "Project ID"
// @Param       body body models.ProjectPatch true "Patch"
// @Success     200 {object} models.Project
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id} [patch]
func (h *ProjectsHandler) UpdateProject(c *gin.Context) {
	var patch models.ProjectPatch
	if !bindJSON(c, &patch) {
		return
	}
	project, err := h.projects.UpdateProject(c.Request.Context(), c.Param("project_id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// DeleteProject godoc
// @Summary     Delete project
// @Description Deletes the project with all of its albums and photos.
// @Tags        projects
// @Produce     json
// @Param       project_id path string true "Project ID"
// @Success     200 {object} models.MessageResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id} [delete]
func (h *ProjectsHandler) DeleteProject(c *gin.Context) {
	if err := h.projects.DeleteProject(c.Request.Context(), c.Param("project_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "project deleted"})
}

// ReorderProjects godoc
// @Summary     Reorder projects
// @Description Assigns every project a new display order; the assignments must be a permutation of 0..N-1.
// @Tags        projects
// @Accept      json
// @Produce     json
// @Param       body body models.ReorderProjectsRequest true "Orders"
// @Success     200 {array} models.Project
// @Failure     400 {object} models.ErrorResponse
// @Router      /projects/order [put]
func (h *ProjectsHandler) ReorderProjects(c *gin.Context) {
	var req models.ReorderProjectsRequest
	if !bindJSON(c, &req) {
		return
	}
	projects, err := h.projects.ReorderProjects(c.Request.Context(), req.ProjectOrders)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// ListAlbums godoc
// @Summary     List albums of a project
// @Tags        albums
// @Produce     json
// @Param       project_id path string true "Project ID"
// @Success     200 {object} models.AlbumListResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id}/albums [get]
func (h *ProjectsHandler) ListAlbums(c *gin.Context) {
	albums, err := h.albums.GetAlbumsByProject(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.AlbumListResponse{Albums: albums})
}

// ReorderAlbums godoc
// @Summary     Reorder albums of a project
// @Tags        albums
// @Accept      json
// @Produce     json
// @Param       project_id path string true "Project ID"
// @Param       body body models.ReorderAlbumsRequest true "Orders"
// @Success     200 {array} models.Album
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id}/albums/order [put]
func (h *ProjectsHandler) ReorderAlbums(c *gin.Context) {
	var req models.ReorderAlbumsRequest
	if !bindJSON(c, &req) {
		return
	}
	albums, err := h.albums.ReorderAlbums(c.Request.Context(), c.Param("project_id"), req.AlbumOrders)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, albums)
}
