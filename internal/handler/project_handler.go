package handler

import (
	"context"
	"net/http"

	"pms/internal/model"
	"pms/internal/policy"
	"pms/internal/repository"
	"pms/internal/service"
	"pms/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProjectService is the project use-case layer the handler drives.
type ProjectService interface {
	Create(ctx context.Context, actor policy.Actor, in service.ProjectInput) (*model.Project, error)
	List(ctx context.Context, actor policy.Actor, filter repository.ProjectFilter, page repository.Page) ([]model.Project, int64, error)
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Project, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, in service.ProjectInput) (*model.Project, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
	BulkDelete(ctx context.Context, actor policy.Actor, ids []uuid.UUID) (int64, error)
	Latest(ctx context.Context, actor policy.Actor) ([]model.Project, error)
	UserProjects(ctx context.Context, actor policy.Actor, status string) ([]model.Project, error)
	Tasks(ctx context.Context, actor policy.Actor, projectID uuid.UUID, filter repository.TaskFilter) ([]model.Task, error)
}

var _ ProjectService = (*service.ProjectService)(nil)

type ProjectHandler struct {
	projects ProjectService
}

func NewProjectHandler(projects ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// ProjectRequest is the body of project create and partial update
type ProjectRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	StartDate   *string      `json:"start_date" example:"2025-03-01"`
	EndDate     OptionalDate `json:"end_date" swaggertype:"string" example:"2025-06-30"`
	Status      *string      `json:"status" enums:"planned,active,completed"`
}

// BulkDeleteRequest lists the projects to delete
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkDeleteResponse reports how many projects were removed
type BulkDeleteResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

func (r ProjectRequest) input() (service.ProjectInput, error) {
	errs := validation.Errors{}
	in := service.ProjectInput{
		Title:       r.Title,
		Description: r.Description,
		StartDate:   parseDateField(errs, "start_date", r.StartDate),
	}
	if r.EndDate.Set {
		in.EndDate = parseDateField(errs, "end_date", r.EndDate.Value)
		in.ClearEndDate = in.EndDate == nil
	}
	if r.Status != nil {
		status := model.ProjectStatus(*r.Status)
		if !status.Valid() {
			errs.Add("status", invalidChoice(*r.Status))
		}
		in.Status = &status
	}
	return in, errs.Err()
}

// Create godoc
// @Summary      Create a project
// @Description  Creates a project owned by the current user. Managers and admins only.
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        project  body      ProjectRequest  true  "Project"
// @Success      201      {object}  ProjectResponse
// @Failure      400      {object}  map[string][]string
// @Failure      403      {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /projects/ [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req ProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondError(c, err)
		return
	}

	project, err := h.projects.Create(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProjectResponse(project))
}

// List godoc
// @Summary      List projects
// @Description  Lists the projects visible to the current user, newest first.
// @Tags         Projects
// @Produce      json
// @Param        user_id    query     string  false  "Created by or shared with this user"
// @Param        status     query     string  false  "planned, active or completed"
// @Param        page       query     int     false  "Page number"
// @Param        page_size  query     int     false  "Page size (max 100)"
// @Success      200        {object}  PageResponse[ProjectResponse]
// @Security     BearerAuth
// @Router       /projects/ [get]
func (h *ProjectHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	filter := repository.ProjectFilter{Status: c.Query("status")}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, validation.Errors{"user_id": {"Must be a valid UUID."}})
			return
		}
		filter.UserID = &userID
	}

	page := parsePage(c)
	projects, total, err := h.projects.List(c.Request.Context(), actor, filter, page.window())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(page, total, toProjectResponses(projects)))
}

// Latest godoc
// @Summary      Latest projects
// @Description  Returns the two most recently created visible projects.
// @Tags         Projects
// @Produce      json
// @Success      200  {array}  ProjectResponse
// @Security     BearerAuth
// @Router       /projects/latest [get]
func (h *ProjectHandler) Latest(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	projects, err := h.projects.Latest(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponses(projects))
}

// UserProjects godoc
// @Summary      Projects of the current user
// @Description  Superadmins get every project, managers the ones they created, others the ones they belong to or work on.
// @Tags         Projects
// @Produce      json
// @Param        status  query  string  false  "planned, active or completed"
// @Success      200     {array}  ProjectResponse
// @Security     BearerAuth
// @Router       /projects/user-projects [get]
func (h *ProjectHandler) UserProjects(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	projects, err := h.projects.UserProjects(c.Request.Context(), actor, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponses(projects))
}

// BulkDelete godoc
// @Summary      Delete several projects
// @Description  Deletes all listed projects or none of them.
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        ids  body      BulkDeleteRequest  true  "Project ids"
// @Success      200  {object}  BulkDeleteResponse
// @Failure      400  {object}  map[string][]string
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /projects/bulk-delete [post]
func (h *ProjectHandler) BulkDelete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req BulkDeleteRequest
	if !bindJSON(c, &req) {
		return
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, validation.Errors{"ids": {"Must be a list of valid UUIDs."}})
			return
		}
		ids = append(ids, id)
	}

	deleted, err := h.projects.BulkDelete(c.Request.Context(), actor, ids)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, BulkDeleteResponse{Message: "Projects deleted successfully", Deleted: deleted})
}

// Get godoc
// @Summary      Get a project
// @Tags         Projects
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  ProjectResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	project, err := h.projects.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(project))
}

// Update godoc
// @Summary      Update a project
// @Description  Partial update; omitted fields keep their value.
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id       path      string          true  "Project ID"
// @Param        project  body      ProjectRequest  true  "Fields to change"
// @Success      200      {object}  ProjectResponse
// @Failure      400      {object}  map[string][]string
// @Failure      403      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /projects/{id} [patch]
func (h *ProjectHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req ProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondError(c, err)
		return
	}

	project, err := h.projects.Update(c.Request.Context(), actor, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(project))
}

// Delete godoc
// @Summary      Delete a project
// @Description  Deletes the project together with its tasks and memberships.
// @Tags         Projects
// @Param        id   path  string  true  "Project ID"
// @Success      204
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.projects.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Tasks godoc
// @Summary      Tasks of a project
// @Tags         Projects
// @Produce      json
// @Param        id        path   string  true   "Project ID"
// @Param        status    query  string  false  "to-do, in-progress or done"
// @Param        priority  query  string  false  "low, medium or high"
// @Success      200       {array}  TaskResponse
// @Failure      403       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /projects/{id}/tasks [get]
func (h *ProjectHandler) Tasks(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	filter := repository.TaskFilter{Status: c.Query("status"), Priority: c.Query("priority")}
	tasks, err := h.projects.Tasks(c.Request.Context(), actor, id, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponses(tasks))
}
