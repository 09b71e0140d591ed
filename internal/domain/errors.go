package domain

import "errors"

// Сентинельные ошибки подсистемы. Сравнивать через errors.Is.
// Частичные сбои best-effort шагов (например, удаление одного блоба)
// не выражаются ошибками — они только логируются.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)
