package domain

import "errors"

var (
	ErrNotFound      = errors.New("project not found")
	ErrDuplicateName = errors.New("project already exists")
	ErrInvalidID     = errors.New("invalid id")
	ErrUserNotFound  = errors.New("user not found")
	ErrNoAuthor      = errors.New("comment author required")
)
