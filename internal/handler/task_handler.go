package handler

import (
	"context"
	"fmt"
	"net/http"

	"pms/internal/model"
	"pms/internal/policy"
	"pms/internal/repository"
	"pms/internal/service"
	"pms/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TaskService is the task use-case layer the handler drives.
type TaskService interface {
	Create(ctx context.Context, actor policy.Actor, in service.TaskInput) (*model.Task, error)
	List(ctx context.Context, actor policy.Actor, filter repository.TaskFilter, page repository.Page) ([]model.Task, int64, error)
	MyTasks(ctx context.Context, actor policy.Actor, page repository.Page) ([]model.Task, int64, error)
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Task, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, in service.TaskInput) (*model.Task, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
}

var _ TaskService = (*service.TaskService)(nil)

type TaskHandler struct {
	tasks TaskService
}

func NewTaskHandler(tasks TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// TaskRequest представляет запрос на создание или частичное обновление задачи
type TaskRequest struct {
	Title        *string      `json:"title"`
	Description  *string      `json:"description"`
	ProjectID    *string      `json:"project_id"`
	AssignedToID OptionalUUID `json:"assigned_to_id" swaggertype:"string"`
	Status       *string      `json:"status" enums:"to-do,in-progress,done"`
	Priority     *string      `json:"priority" enums:"low,medium,high"`
	StartDate    *string      `json:"start_date" example:"2025-03-10"`
	DueDate      *string      `json:"due_date" example:"2025-03-20"`
}

func (r TaskRequest) input() (service.TaskInput, error) {
	errs := validation.Errors{}
	in := service.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		StartDate:   parseDateField(errs, "start_date", r.StartDate),
		DueDate:     parseDateField(errs, "due_date", r.DueDate),
	}

	if r.ProjectID != nil {
		id, err := uuid.Parse(*r.ProjectID)
		if err != nil {
			errs.Add("project_id", fmt.Sprintf("“%s” is not a valid UUID.", *r.ProjectID))
		} else {
			in.ProjectID = &id
		}
	}
	if r.AssignedToID.Set {
		if r.AssignedToID.Invalid != "" {
			errs.Add("assigned_to_id", fmt.Sprintf("“%s” is not a valid UUID.", r.AssignedToID.Invalid))
		}
		in.AssignedToSet = true
		in.AssignedToID = r.AssignedToID.ID
	}
	if r.Status != nil {
		status := model.TaskStatus(*r.Status)
		if !status.Valid() {
			errs.Add("status", invalidChoice(*r.Status))
		}
		in.Status = &status
	}
	if r.Priority != nil {
		priority := model.TaskPriority(*r.Priority)
		if !priority.Valid() {
			errs.Add("priority", invalidChoice(*r.Priority))
		}
		in.Priority = &priority
	}
	return in, errs.Err()
}

// Create godoc
// @Summary      Create a task
// @Description  Creates a task; the assignee becomes a member of the project.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        task  body      TaskRequest  true  "Task"
// @Success      201   {object}  TaskResponse
// @Failure      400   {object}  map[string][]string
// @Failure      403   {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /tasks/ [post]
func (h *TaskHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req TaskRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondError(c, err)
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTaskResponse(task))
}

// List godoc
// @Summary      List tasks
// @Description  Lists the tasks visible to the current user, newest first.
// @Tags         Tasks
// @Produce      json
// @Param        status         query     string  false  "to-do, in-progress or done"
// @Param        priority       query     string  false  "low, medium or high"
// @Param        assigned_user  query     string  false  "Assignee username"
// @Param        page           query     int     false  "Page number"
// @Param        page_size      query     int     false  "Page size (max 100)"
// @Success      200            {object}  PageResponse[TaskResponse]
// @Security     BearerAuth
// @Router       /tasks/ [get]
func (h *TaskHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	filter := repository.TaskFilter{
		Status:           c.Query("status"),
		Priority:         c.Query("priority"),
		AssignedUsername: c.Query("assigned_user"),
	}
	page := parsePage(c)
	tasks, total, err := h.tasks.List(c.Request.Context(), actor, filter, page.window())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(page, total, toTaskResponses(tasks)))
}

// MyTasks godoc
// @Summary      Tasks of the current user
// @Description  Superadmins get every task, managers the ones they created, others the ones assigned to them.
// @Tags         Tasks
// @Produce      json
// @Param        page       query     int  false  "Page number"
// @Param        page_size  query     int  false  "Page size (max 100)"
// @Success      200        {object}  PageResponse[TaskResponse]
// @Security     BearerAuth
// @Router       /mytasks/ [get]
func (h *TaskHandler) MyTasks(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	page := parsePage(c)
	tasks, total, err := h.tasks.MyTasks(c.Request.Context(), actor, page.window())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(page, total, toTaskResponses(tasks)))
}

// Get godoc
// @Summary      Get a task
// @Tags         Tasks
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  TaskResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

// Update godoc
// @Summary      Update a task
// @Description  Partial update. Send "assigned_to_id": null to unassign.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id    path      string       true  "Task ID"
// @Param        task  body      TaskRequest  true  "Fields to change"
// @Success      200   {object}  TaskResponse
// @Failure      400   {object}  map[string][]string
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /tasks/{id} [patch]
func (h *TaskHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req TaskRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondError(c, err)
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), actor, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

// Delete godoc
// @Summary      Delete a task
// @Tags         Tasks
// @Param        id   path  string  true  "Task ID"
// @Success      204
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
