package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"pms/internal/model"
	"pms/internal/validation"

	"github.com/google/uuid"
)

// OptionalUUID различает отсутствующее поле, явный null и значение
type OptionalUUID struct {
	Set     bool
	ID      *uuid.UUID
	Invalid string
}

func (o *OptionalUUID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		o.Invalid = string(data)
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		o.Invalid = s
		return nil
	}
	o.ID = &id
	return nil
}

func (o OptionalUUID) MarshalJSON() ([]byte, error) {
	if o.ID == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.ID.String())
}

// parseDateField разбирает дату YYYY-MM-DD, записывая ошибку в errs
func parseDateField(errs validation.Errors, field string, value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	d, err := validation.ParseDate(*value)
	if err != nil {
		errs.Add(field, "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
		return nil
	}
	return &d
}

func invalidChoice(value string) string {
	return fmt.Sprintf("\"%s\" is not a valid choice.", value)
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(validation.DateLayout)
	return &s
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

func toUserResponse(u *model.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		Username:    u.Username,
		Role:        u.Role,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
	}
}

// MemberResponse is one project membership row
type MemberResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// TaskStatusResponse is the compact task view embedded in a project
type TaskStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ProjectResponse struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	StartDate   string               `json:"start_date"`
	EndDate     *string              `json:"end_date"`
	Status      string               `json:"status"`
	CreatedBy   *UserResponse        `json:"created_by"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Members     []MemberResponse     `json:"members"`
	Tasks       []TaskStatusResponse `json:"tasks"`
}

func toProjectResponse(p *model.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:          p.ID.String(),
		Title:       p.Title,
		Description: p.Description,
		StartDate:   p.StartDate.Format(validation.DateLayout),
		EndDate:     formatDate(p.EndDate),
		Status:      string(p.Status),
		CreatedBy:   toUserResponse(p.CreatedBy),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Members:     make([]MemberResponse, 0, len(p.Members)),
		Tasks:       make([]TaskStatusResponse, 0, len(p.Tasks)),
	}
	for _, m := range p.Members {
		member := MemberResponse{UserID: m.UserID.String(), Role: m.Role}
		if m.User != nil {
			member.Username = m.User.Username
		}
		resp.Members = append(resp.Members, member)
	}
	for _, t := range p.Tasks {
		resp.Tasks = append(resp.Tasks, TaskStatusResponse{ID: t.ID.String(), Status: string(t.Status)})
	}
	return resp
}

func toProjectResponses(projects []model.Project) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, toProjectResponse(&projects[i]))
	}
	return out
}

// ProjectSummary is the project embedded in a task
type ProjectSummary struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Status    string  `json:"status"`
}

type TaskResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Project     *ProjectSummary `json:"project"`
	AssignedTo  *UserResponse   `json:"assigned_to"`
	CreatedBy   *UserResponse   `json:"created_by"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	StartDate   *string         `json:"start_date"`
	DueDate     *string         `json:"due_date"`
	CompletedAt *time.Time      `json:"completed_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toTaskResponse(t *model.Task) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		AssignedTo:  toUserResponse(t.AssignedTo),
		CreatedBy:   toUserResponse(t.CreatedBy),
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		StartDate:   formatDate(t.StartDate),
		DueDate:     formatDate(t.DueDate),
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Project != nil {
		resp.Project = &ProjectSummary{
			ID:        t.Project.ID.String(),
			Title:     t.Project.Title,
			StartDate: t.Project.StartDate.Format(validation.DateLayout),
			EndDate:   formatDate(t.Project.EndDate),
			Status:    string(t.Project.Status),
		}
	}
	return resp
}

func toTaskResponses(tasks []model.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, toTaskResponse(&tasks[i]))
	}
	return out
}

// OptionalDate различает отсутствующую дату и явный null
type OptionalDate struct {
	Set   bool
	Value *string
}

func (o *OptionalDate) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
