package apperrors

import "errors"

// Общие ошибки уровня приложения. Хендлеры разворачивают их
// через errors.Is и отдают соответствующий HTTP-статус.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrAlreadyReplied    = errors.New("feedback already replied")
)
