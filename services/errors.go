package services

import (
	"errors"
	"fmt"
)

// Типизированные ошибки движка привязок. Одиночные операции возвращают
// первую ошибку сразу, групповые собирают их в BulkResult.

// ConflictError нарушение инварианта: актив уже привязан к клиенту
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflictError создает ConflictError
func NewConflictError(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError запрошенный актив/клиент/привязка не найдены
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// NewNotFoundError создает NotFoundError
func NewNotFoundError(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ValidationError некорректные входные данные
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError создает ValidationError
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NoOpError групповая операция, которой нечего делать.
// В отличие от одиночного возврата на склад, пустой набор в групповой
// операции считается отчетной ситуацией: интерфейс предлагал действие
// на основании флага CanEndGroup.
type NoOpError struct {
	Message string
}

func (e *NoOpError) Error() string {
	return e.Message
}

// NewNoOpError создает NoOpError
func NewNoOpError(format string, args ...interface{}) *NoOpError {
	return &NoOpError{Message: fmt.Sprintf(format, args...)}
}

// CancelledError операция прервана вызывающей стороной
type CancelledError struct {
	Message string
	Cause   error
}

func (e *CancelledError) Error() string {
	return e.Message
}

func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// NewCancelledError создает CancelledError
func NewCancelledError(cause error) *CancelledError {
	return &CancelledError{Message: "операция прервана", Cause: cause}
}

// StoreError ошибка хранилища, исходная причина обернута
type StoreError struct {
	Message string
	Cause   error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError оборачивает ошибку хранилища
func NewStoreError(cause error, format string, args ...interface{}) *StoreError {
	return &StoreError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsConflict проверяет, является ли ошибка ConflictError
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// IsNotFound проверяет, является ли ошибка NotFoundError
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsValidation проверяет, является ли ошибка ValidationError
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsNoOp проверяет, является ли ошибка NoOpError
func IsNoOp(err error) bool {
	var e *NoOpError
	return errors.As(err, &e)
}

// IsCancelled проверяет, является ли ошибка CancelledError
func IsCancelled(err error) bool {
	var e *CancelledError
	return errors.As(err, &e)
}

// IsStoreError проверяет, является ли ошибка StoreError
func IsStoreError(err error) bool {
	var e *StoreError
	return errors.As(err, &e)
}
