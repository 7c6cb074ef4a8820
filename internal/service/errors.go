package service

import (
	"errors"
	"fmt"

	repo "todoTracker/internal/repository"
)

const (
	CodeNotFound        = "NOT_FOUND"
	CodeValidation      = "VALIDATION_ERROR"
	CodeVersionConflict = "VERSION_CONFLICT"
	CodeCategoryExists  = "CATEGORY_EXISTS"
	CodeUserExists      = "USER_EXISTS"
	CodeUnauthorized    = "UNAUTHORIZED"
)

type Resource string

const (
	ResourceTask     Resource = "task"
	ResourceCategory Resource = "category"
	ResourceLink     Resource = "task_category"
	ResourceUser     Resource = "user"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource Resource, id int64) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %d не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
		Err: repo.ErrNotFound,
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

func NewVersionConflict(id int64, expected int) *BusinessError {
	return &BusinessError{
		Code:    CodeVersionConflict,
		Message: fmt.Sprintf("task %d изменена другим запросом, ожидалась версия %d", id, expected),
		Details: map[string]any{
			"id":               id,
			"expected_version": expected,
		},
		Err: repo.ErrVersionConflict,
	}
}

func NewUnauthorized(reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeUnauthorized,
		Message: reason,
		Details: map[string]any{},
	}
}

// IsCode проверяет код бизнес-ошибки в цепочке err
func IsCode(err error, code string) bool {
	var busErr *BusinessError
	return errors.As(err, &busErr) && busErr.Code == code
}
