package service

import "errors"

// Account and blog errors. Handlers translate these into HTTP responses.
var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrInactiveUser    = errors.New("inactive user")
	ErrUserNotFound    = errors.New("user not found")
	ErrAPIKeyNotFound  = errors.New("api key not found")
	ErrPostNotFound    = errors.New("post not found")
	ErrTagNotFound     = errors.New("tag not found")
	ErrTagExists       = errors.New("tag already exists")
	ErrAlreadyTagged   = errors.New("post already has this tag")
	ErrStorageDisabled = errors.New("object storage is not configured")
)

// File transfer errors.
var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("file not found")
	ErrReaderNil  = errors.New("reader is nil")
)
