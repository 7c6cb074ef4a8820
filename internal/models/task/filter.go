package task

import "time"

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000

	DefaultEventsLimit = 50
	MaxEventsLimit     = 1000

	MaxBatchSize = 100
)

// Filter - условия выборки задач одного пользователя
type Filter struct {
	Status         *Status
	Priority       *Priority
	CategoryID     *int64
	CategoryIDs    []int64
	DeadlineFrom   *time.Time
	DeadlineTo     *time.Time
	Search         string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// Normalize приводит limit/offset к допустимому диапазону
func (f *Filter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

type Page struct {
	Tasks []*Task `json:"tasks"`
	Total int     `json:"total"`
}

type EventPage struct {
	Events []*Event `json:"events"`
	Total  int      `json:"total"`
}

type BatchAction string

const (
	BatchComplete BatchAction = "complete"
	BatchDelete   BatchAction = "delete"
	BatchRestore  BatchAction = "restore"
	BatchUpdate   BatchAction = "update"
)

// BatchOp - единое преобразование для набора задач.
// Status и Priority используются только действием update.
type BatchOp struct {
	Action   BatchAction
	Status   *Status
	Priority *Priority
}

func (op BatchOp) Fields() []string {
	var fields []string
	if op.Status != nil {
		fields = append(fields, "status")
	}
	if op.Priority != nil {
		fields = append(fields, "priority")
	}
	return fields
}

// EventType - тип события для каждой изменённой задачи
func (op BatchOp) EventType() EventType {
	switch op.Action {
	case BatchComplete:
		return EventCompleted
	case BatchDelete:
		return EventDeleted
	case BatchRestore:
		return EventRestored
	default:
		return EventUpdated
	}
}

// Payload - полезная нагрузка события update
func (op BatchOp) Payload() map[string]any {
	if op.Action != BatchUpdate {
		return nil
	}
	payload := map[string]any{"batch": true}
	if op.Status != nil {
		payload["status"] = string(*op.Status)
	}
	if op.Priority != nil {
		payload["priority"] = string(*op.Priority)
	}
	return payload
}

type BatchResult struct {
	Updated        int      `json:"updated"`
	TotalRequested int      `json:"total_requested"`
	FieldsUpdated  []string `json:"fields_updated,omitempty"`
	IDs            []int64  `json:"-"`
}
