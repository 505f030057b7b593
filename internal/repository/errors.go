package repository

import "errors"

var (
	ErrNotFound        = errors.New("запись не найдена")
	ErrVersionConflict = errors.New("конфликт версий")
	ErrDuplicate       = errors.New("запись уже существует")
)
