// Package validation checks task and project writes before they are persisted.
package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"pms/internal/model"

	"github.com/google/uuid"
)

// DateLayout is the wire and message format of calendar dates.
const DateLayout = "2006-01-02"

// Errors maps a field name to the messages recorded against it.
type Errors map[string][]string

// Add records msg against field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Has reports whether field has at least one message.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Err returns e as an error, or nil when nothing was recorded.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// AssignmentLookup answers the cross-task questions behind the assignment rules.
type AssignmentLookup interface {
	AssignedInProject(ctx context.Context, userID, projectID uuid.UUID, excludeID *uuid.UUID) (bool, error)
	HighPriorityDueOn(ctx context.Context, userID uuid.UUID, day time.Time, excludeID *uuid.UUID) (bool, error)
}

// TaskCandidate describes a task write. Date and assignee fields are the values supplied
// by the write; nil means "not supplied".
type TaskCandidate struct {
	// TaskID is set when an existing task is updated.
	TaskID *uuid.UUID
	// Project is the task's project after the write.
	Project *model.Project

	StartDate  *time.Time
	DueDate    *time.Time
	AssignedTo *uuid.UUID

	// StoredDueDate is the due date already persisted, used by the same-day
	// high-priority rule when the write does not change it.
	StoredDueDate *time.Time
	// StoredStartDate is the start date already persisted.
	StoredStartDate *time.Time
	// ProjectChanged marks an update that moves the task to Project. The stored
	// dates must then also fit the new project's range.
	ProjectChanged bool
}

type Validator struct {
	lookup AssignmentLookup
}

func New(lookup AssignmentLookup) *Validator {
	return &Validator{lookup: lookup}
}

// ValidateTask runs the task rules against c. Rule failures come back as Errors;
// any other error is a lookup failure.
func (v *Validator) ValidateTask(ctx context.Context, c TaskCandidate, today time.Time) error {
	errs := Errors{}
	today = Day(today)

	checkTaskDates(errs, c, today)

	if c.AssignedTo != nil {
		if err := v.checkAssignment(ctx, errs, c); err != nil {
			return err
		}
	}

	return errs.Err()
}

func checkTaskDates(errs Errors, c TaskCandidate, today time.Time) {
	if c.StartDate != nil && Day(*c.StartDate).Before(today) {
		errs.Add("start_date", "Start date cannot be in the past.")
	}
	if c.StartDate != nil && c.DueDate != nil && !Day(*c.DueDate).After(Day(*c.StartDate)) {
		errs.Add("due_date", "Due date must be after the start date.")
	}
	if len(errs) > 0 || c.Project == nil {
		return
	}

	start, due := c.StartDate, c.DueDate
	if c.ProjectChanged {
		if start == nil {
			start = c.StoredStartDate
		}
		if due == nil {
			due = c.StoredDueDate
		}
	}
	if start != nil && !withinProject(*start, c.Project) {
		errs.Add("start_date", fmt.Sprintf("Start date must be between %s.", projectRange(c.Project)))
	}
	if due != nil && !withinProject(*due, c.Project) {
		errs.Add("due_date", fmt.Sprintf("Due date must be between %s.", projectRange(c.Project)))
	}
}

func (v *Validator) checkAssignment(ctx context.Context, errs Errors, c TaskCandidate) error {
	userID := *c.AssignedTo

	if c.Project != nil {
		taken, err := v.lookup.AssignedInProject(ctx, userID, c.Project.ID, c.TaskID)
		if err != nil {
			return fmt.Errorf("check project assignment: %w", err)
		}
		if taken {
			errs.Add("assigned_to", "User is already assigned to a task in this project.")
		}
	}

	due := c.DueDate
	if due == nil {
		due = c.StoredDueDate
	}
	if due == nil {
		return nil
	}
	clash, err := v.lookup.HighPriorityDueOn(ctx, userID, Day(*due), c.TaskID)
	if err != nil {
		return fmt.Errorf("check high-priority deadline: %w", err)
	}
	if clash {
		errs.Add("assigned_to", "User cannot be assigned another high-priority task with the same deadline.")
	}
	return nil
}

// ValidateProjectDates checks that a project does not end before it starts.
func ValidateProjectDates(start time.Time, end *time.Time) error {
	errs := Errors{}
	if end != nil && Day(*end).Before(Day(start)) {
		errs.Add("end_date", "End date cannot be before the start date.")
	}
	return errs.Err()
}

func withinProject(d time.Time, p *model.Project) bool {
	d = Day(d)
	if d.Before(Day(p.StartDate)) {
		return false
	}
	return p.EndDate == nil || !d.After(Day(*p.EndDate))
}

func projectRange(p *model.Project) string {
	end := "open end"
	if p.EndDate != nil {
		end = p.EndDate.Format(DateLayout)
	}
	return p.StartDate.Format(DateLayout) + " and " + end
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC day.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
