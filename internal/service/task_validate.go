package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"todoTracker/internal/models/task"
)

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", NewValidationError("title", "не может быть пустым")
	}
	if utf8.RuneCountInString(title) > task.MaxTitleLength {
		return "", NewValidationError("title", fmt.Sprintf("не длиннее %d символов", task.MaxTitleLength))
	}
	return title, nil
}

func validateDescription(description *string) error {
	if description != nil && utf8.RuneCountInString(*description) > task.MaxDescriptionLength {
		return NewValidationError("description", fmt.Sprintf("не длиннее %d символов", task.MaxDescriptionLength))
	}
	return nil
}

func validatePriority(p task.Priority) error {
	if !p.Valid() {
		return NewValidationError("priority", "допустимо low, medium или high")
	}
	return nil
}

func validateStatus(s task.Status) error {
	if !s.Valid() {
		return NewValidationError("status", "допустимо pending, in_progress или completed")
	}
	return nil
}

func truncateDeadline(deadline *time.Time) *time.Time {
	if deadline == nil {
		return nil
	}
	d := task.TruncateDate(*deadline)
	return &d
}

func validateNewTask(nt task.NewTask) (task.NewTask, error) {
	title, err := validateTitle(nt.Title)
	if err != nil {
		return nt, err
	}
	nt.Title = title

	if err := validateDescription(nt.Description); err != nil {
		return nt, err
	}
	if nt.Priority == "" {
		nt.Priority = task.PriorityMedium
	}
	if err := validatePriority(nt.Priority); err != nil {
		return nt, err
	}
	if nt.Status == "" {
		nt.Status = task.StatusPending
	}
	if err := validateStatus(nt.Status); err != nil {
		return nt, err
	}
	nt.Deadline = truncateDeadline(nt.Deadline)
	return nt, nil
}

func validateChanges(ch task.Changes) (task.Changes, error) {
	if ch.Title.Set {
		title, err := validateTitle(ch.Title.Value)
		if err != nil {
			return ch, err
		}
		ch.Title.Value = title
	}
	if ch.Description.Set {
		if err := validateDescription(ch.Description.Value); err != nil {
			return ch, err
		}
	}
	if ch.Priority.Set {
		if err := validatePriority(ch.Priority.Value); err != nil {
			return ch, err
		}
	}
	if ch.Status.Set {
		if err := validateStatus(ch.Status.Value); err != nil {
			return ch, err
		}
	}
	if ch.Deadline.Set {
		ch.Deadline.Value = truncateDeadline(ch.Deadline.Value)
	}
	// completed_at выставляет только сервис
	ch.CompletedAt = task.Optional[*time.Time]{}
	return ch, nil
}

func validateID(field string, id int64) error {
	if id <= 0 {
		return NewValidationError(field, "должен быть положительным")
	}
	return nil
}
