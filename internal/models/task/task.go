package task

import (
	"time"
)

type Task struct {
	ID             int64      `json:"id" db:"id"`
	UserID         int64      `json:"user_id" db:"user_id"`
	Title          string     `json:"title" db:"title"`
	Description    *string    `json:"description,omitempty" db:"description"`
	Priority       Priority   `json:"priority" db:"priority"`
	Deadline       *time.Time `json:"deadline,omitempty" db:"deadline"`
	Status         Status     `json:"status" db:"status"`
	RecurrenceRule *string    `json:"recurrence_rule,omitempty" db:"recurrence_rule"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	Version        int        `json:"version" db:"version"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

type Status string
type Priority string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 2000
	DateLayout           = "2006-01-02"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (t *Task) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Clone возвращает глубокую копию, указатели не разделяются
func (t *Task) Clone() *Task {
	c := *t
	c.Description = clonePtr(t.Description)
	c.Deadline = clonePtr(t.Deadline)
	c.RecurrenceRule = clonePtr(t.RecurrenceRule)
	c.CompletedAt = clonePtr(t.CompletedAt)
	c.DeletedAt = clonePtr(t.DeletedAt)
	return &c
}

// Snapshot - состояние задачи для журнала событий
func (t *Task) Snapshot() map[string]any {
	var deadline any
	if t.Deadline != nil {
		deadline = t.Deadline.Format(DateLayout)
	}
	return map[string]any{
		"title":    t.Title,
		"priority": string(t.Priority),
		"status":   string(t.Status),
		"deadline": deadline,
	}
}

// CreatedSnapshot - new_state события created
func (t *Task) CreatedSnapshot() map[string]any {
	return map[string]any{
		"id":       t.ID,
		"title":    t.Title,
		"priority": string(t.Priority),
		"status":   string(t.Status),
	}
}

// TruncateDate отбрасывает время суток, deadline хранится как DATE
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
