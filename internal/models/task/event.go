package task

import "time"

type EventType string

const (
	EventCreated         EventType = "created"
	EventUpdated         EventType = "updated"
	EventCompleted       EventType = "completed"
	EventDeleted         EventType = "deleted"
	EventRestored        EventType = "restored"
	EventPriorityChanged EventType = "priority_changed"
	EventDeadlineChanged EventType = "deadline_changed"
	EventStatusChanged   EventType = "status_changed"
	EventCategoryAdded   EventType = "category_added"
	EventCategoryRemoved EventType = "category_removed"
)

// Event - неизменяемая запись журнала аудита
type Event struct {
	ID        int64          `json:"id" db:"id"`
	TaskID    int64          `json:"task_id" db:"task_id"`
	UserID    int64          `json:"user_id" db:"user_id"`
	Type      EventType      `json:"event_type" db:"event_type"`
	OldState  map[string]any `json:"old_state,omitempty" db:"old_state"`
	NewState  map[string]any `json:"new_state,omitempty" db:"new_state"`
	Payload   map[string]any `json:"payload,omitempty" db:"payload"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// NewEvent - данные для добавления в журнал
type NewEvent struct {
	TaskID   int64
	UserID   int64
	Type     EventType
	OldState map[string]any
	NewState map[string]any
	Payload  map[string]any
}
