package service

import "fmt"

// здесь происходит проверка ошибок бизнес-логики

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
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

func NewNotFound(resource string, id string) *BusinessError {
	return &BusinessError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %s не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

func NewForbidden(action string) *BusinessError {
	return &BusinessError{
		Code:    "FORBIDDEN",
		Message: fmt.Sprintf("Недостаточно прав для действия '%s'", action),
		Details: map[string]any{
			"action": action,
		},
	}
}

func NewStorageError(operation string, err error) *BusinessError {
	return &BusinessError{
		Code:    "STORAGE_ERROR",
		Message: fmt.Sprintf("Ошибка хранилища при операции '%s'", operation),
		Details: map[string]any{
			"operation": operation,
		},
		Err: err,
	}
}
