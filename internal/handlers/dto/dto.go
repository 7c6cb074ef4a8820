package dto

import (
	"fmt"
	"time"

	"todoTracker/internal/models/category"
	"todoTracker/internal/models/task"
	"todoTracker/internal/models/user"
)

type CreateTaskRequest struct {
	Title          string        `json:"title"`
	Description    *string       `json:"description"`
	Priority       task.Priority `json:"priority"`
	Deadline       *string       `json:"deadline"`
	Status         task.Status   `json:"status"`
	RecurrenceRule *string       `json:"recurrence_rule"`
}

func (r CreateTaskRequest) ToNewTask() (task.NewTask, error) {
	deadline, err := ParseDate(r.Deadline)
	if err != nil {
		return task.NewTask{}, err
	}
	return task.NewTask{
		Title:          r.Title,
		Description:    r.Description,
		Priority:       r.Priority,
		Deadline:       deadline,
		Status:         r.Status,
		RecurrenceRule: r.RecurrenceRule,
	}, nil
}

// UpdateTaskRequest: отсутствующее поле не меняется, null очищает nullable поле.
// Version - ожидаемая версия задачи.
type UpdateTaskRequest struct {
	Title          task.Optional[string]        `json:"title"`
	Description    task.Optional[*string]       `json:"description"`
	Priority       task.Optional[task.Priority] `json:"priority"`
	Deadline       task.Optional[*string]       `json:"deadline"`
	Status         task.Optional[task.Status]   `json:"status"`
	RecurrenceRule task.Optional[*string]       `json:"recurrence_rule"`
	Version        *int                         `json:"version"`
}

func (r UpdateTaskRequest) ToChanges() (task.Changes, error) {
	changes := task.Changes{
		Title:          r.Title,
		Description:    r.Description,
		Priority:       r.Priority,
		Status:         r.Status,
		RecurrenceRule: r.RecurrenceRule,
	}
	if r.Deadline.Set {
		deadline, err := ParseDate(r.Deadline.Value)
		if err != nil {
			return task.Changes{}, err
		}
		changes.Deadline = task.Some(deadline)
	}
	return changes, nil
}

// ParseDate разбирает дату формата YYYY-MM-DD, nil остаётся nil
func ParseDate(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	d, err := time.Parse(task.DateLayout, *value)
	if err != nil {
		return nil, fmt.Errorf("ожидается дата в формате YYYY-MM-DD: %q", *value)
	}
	return &d, nil
}

type TaskResponse struct {
	ID             int64         `json:"id"`
	Title          string        `json:"title"`
	Description    *string       `json:"description"`
	Priority       task.Priority `json:"priority"`
	Deadline       *string       `json:"deadline"`
	Status         task.Status   `json:"status"`
	RecurrenceRule *string       `json:"recurrence_rule"`
	CompletedAt    *time.Time    `json:"completed_at"`
	DeletedAt      *time.Time    `json:"deleted_at,omitempty"`
	IsDeleted      bool          `json:"is_deleted"`
	Version        int           `json:"version"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func FromTask(t *task.Task) TaskResponse {
	var deadline *string
	if t.Deadline != nil {
		d := t.Deadline.Format(task.DateLayout)
		deadline = &d
	}
	return TaskResponse{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Priority:       t.Priority,
		Deadline:       deadline,
		Status:         t.Status,
		RecurrenceRule: t.RecurrenceRule,
		CompletedAt:    t.CompletedAt,
		DeletedAt:      t.DeletedAt,
		IsDeleted:      t.IsDeleted(),
		Version:        t.Version,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

type TaskListResponse struct {
	Tasks  []TaskResponse `json:"tasks"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type EventListResponse struct {
	Events []*task.Event `json:"events"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type BatchRequest struct {
	TaskIDs []int64 `json:"task_ids"`
}

type BatchUpdateRequest struct {
	TaskIDs  []int64        `json:"task_ids"`
	Status   *task.Status   `json:"status"`
	Priority *task.Priority `json:"priority"`
}

type TaskCategoryRequest struct {
	CategoryID int64 `json:"category_id"`
}

type SyncCategoriesRequest struct {
	CategoryIDs []int64 `json:"category_ids"`
}

type CategoryRequest struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

type CategoryResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

func FromCategory(c *category.Category) CategoryResponse {
	return CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Color:     c.Color,
		CreatedAt: c.CreatedAt,
	}
}

func FromCategoryList(categories []*category.Category) []CategoryResponse {
	result := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		result[i] = FromCategory(c)
	}
	return result
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func FromUser(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         UserResponse `json:"user"`
}
