package domain

import "fmt"

type ErrorCode string

const (
	ErrCodeValidation    ErrorCode = "validation_error"
	ErrCodeNotFound      ErrorCode = "not_found"
	ErrCodeStateConflict ErrorCode = "state_conflict"
)

// Error 是核心操作对外返回的领域错误，code + message 会原样返回给调用方。
// 基础设施错误（数据库不可用等）不会被包装成 Error，而是按普通 error 向上抛。
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewStateConflictError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeStateConflict, Message: fmt.Sprintf(format, args...)}
}
