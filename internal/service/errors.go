package service

import (
	"errors"
	"fmt"
)

const (
	CodeNotFound         = "NOT_FOUND"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeValidation       = "VALIDATION_ERROR"
	CodeVersionConflict  = "VERSION_CONFLICT"
	CodeNoEligibleItems  = "NO_ELIGIBLE_ITEMS"
)

type Resource string

const (
	ResourceTask     Resource = "задача"
	ResourceActor    Resource = "пользователь"
	ResourceReminder Resource = "напоминание"
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

func NewNotFound(resource Resource, id string) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
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

func NewPermissionDenied(action string) *BusinessError {
	return &BusinessError{
		Code:    CodePermissionDenied,
		Message: fmt.Sprintf("Недостаточно прав для операции '%s'", action),
		Details: map[string]any{
			"action": action,
		},
	}
}

func NewVersionConflict(id string, err error) *BusinessError {
	return &BusinessError{
		Code:    CodeVersionConflict,
		Message: fmt.Sprintf("Запись %s была изменена другим пользователем", id),
		Details: map[string]any{
			"id": id,
		},
		Err: err,
	}
}

// IsCode проверяет код бизнес-ошибки в цепочке обёрток.
func IsCode(err error, code string) bool {
	var busErr *BusinessError
	if errors.As(err, &busErr) {
		return busErr.Code == code
	}
	return false
}
