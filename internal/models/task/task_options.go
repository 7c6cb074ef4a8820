package task

import (
	"bytes"
	"encoding/json"
	"time"
)

// Optional различает "поле не передано" и "поле передано" (в том числе null).
type Optional[T any] struct {
	Value T
	Set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// Changes - перечень изменяемых полей задачи. Поля без Set не трогаются.
// Для nullable полей Set с nil значением очищает колонку.
type Changes struct {
	Title          Optional[string]
	Description    Optional[*string]
	Priority       Optional[Priority]
	Deadline       Optional[*time.Time]
	Status         Optional[Status]
	RecurrenceRule Optional[*string]

	// проставляется сервисом при переходе в completed
	CompletedAt Optional[*time.Time]
}

func (c Changes) Empty() bool {
	return !c.Title.Set && !c.Description.Set && !c.Priority.Set &&
		!c.Deadline.Set && !c.Status.Set && !c.RecurrenceRule.Set && !c.CompletedAt.Set
}

// Apply переносит заданные поля в задачу, версию и updated_at не трогает
func (c Changes) Apply(t *Task) {
	if c.Title.Set {
		t.Title = c.Title.Value
	}
	if c.Description.Set {
		t.Description = clonePtr(c.Description.Value)
	}
	if c.Priority.Set {
		t.Priority = c.Priority.Value
	}
	if c.Deadline.Set {
		t.Deadline = clonePtr(c.Deadline.Value)
	}
	if c.Status.Set {
		t.Status = c.Status.Value
	}
	if c.RecurrenceRule.Set {
		t.RecurrenceRule = clonePtr(c.RecurrenceRule.Value)
	}
	if c.CompletedAt.Set {
		t.CompletedAt = clonePtr(c.CompletedAt.Value)
	}
}

// Fields - имена переданных полей в порядке колонок
func (c Changes) Fields() []string {
	var fields []string
	if c.Title.Set {
		fields = append(fields, "title")
	}
	if c.Description.Set {
		fields = append(fields, "description")
	}
	if c.Priority.Set {
		fields = append(fields, "priority")
	}
	if c.Deadline.Set {
		fields = append(fields, "deadline")
	}
	if c.Status.Set {
		fields = append(fields, "status")
	}
	if c.RecurrenceRule.Set {
		fields = append(fields, "recurrence_rule")
	}
	return fields
}

// NewTask - параметры создания задачи
type NewTask struct {
	Title          string
	Description    *string
	Priority       Priority
	Deadline       *time.Time
	Status         Status
	RecurrenceRule *string
}
