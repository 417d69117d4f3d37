package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Kind classifies a service failure; the HTTP layer maps each kind to one status code.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is a typed business error carrying a stable numeric code for API clients.
type Error struct {
	Kind    Kind
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches errors by business code so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(kind Kind, code int, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Validation builds an ad hoc validation error.
func Validation(code int, msg string) *Error { return newError(KindValidation, code, msg) }

var (
	ErrTitleRequired    = newError(KindValidation, 40020, "title cannot be empty")
	ErrContentRequired  = newError(KindValidation, 40021, "content cannot be empty")
	ErrEmptySlug        = newError(KindValidation, 40022, "name must contain at least one letter or digit")
	ErrParentMismatch   = newError(KindValidation, 40030, "parent comment does not belong to the specified post")
	ErrThreadTooDeep    = newError(KindValidation, 40031, "reply nesting limit reached")
	ErrParentRequired   = newError(KindValidation, 40032, "parent_id is required for replies")
	ErrInvalidTagName   = newError(KindValidation, 40040, "tag name can only contain letters, numbers, spaces, hyphens, and underscores")
	ErrNameRequired     = newError(KindValidation, 40041, "name cannot be empty")
	ErrPasswordTooShort = newError(KindValidation, 40042, "password must be at least 6 characters")
	ErrUsernameRequired = newError(KindValidation, 40043, "username cannot be empty")

	ErrInvalidCredentials = newError(KindUnauthorized, 40106, "invalid credentials")
	ErrWrongPassword      = newError(KindUnauthorized, 40107, "current password is incorrect")

	ErrNotPostAuthor    = newError(KindForbidden, 40301, "you can only modify your own posts")
	ErrNotCommentAuthor = newError(KindForbidden, 40302, "you can only modify your own comments")

	ErrPostNotFound     = newError(KindNotFound, 40401, "post not found")
	ErrCategoryNotFound = newError(KindNotFound, 40402, "category not found")
	ErrTagNotFound      = newError(KindNotFound, 40403, "tag not found")
	ErrCommentNotFound  = newError(KindNotFound, 40404, "comment not found")
	ErrParentNotFound   = newError(KindNotFound, 40405, "parent comment not found")
	ErrUserNotFound     = newError(KindNotFound, 40406, "user not found")

	ErrUserExists     = newError(KindConflict, 40901, "user already exists")
	ErrCategoryExists = newError(KindConflict, 40902, "category already exists")
	ErrTagExists      = newError(KindConflict, 40903, "tag already exists")
	ErrSlugTaken      = newError(KindConflict, 40904, "a post with this slug already exists")
	ErrEmailTaken     = newError(KindConflict, 40905, "email already exists")
	ErrUsernameTaken  = newError(KindConflict, 40906, "username already exists")
	ErrCommentDeleted = newError(KindConflict, 40907, "a deleted comment cannot be edited")
)

// KindOf returns the kind of a service error, or 0 for infrastructure errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// isDuplicate reports a unique-constraint violation. TranslateError covers the
// supported drivers; the message check catches drivers opened without it.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
