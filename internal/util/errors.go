package util

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrScormNotFound      = errors.New("scorm activity not found")
	ErrInvalidID          = errors.New("invalid scorm id")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("report access requires a teacher or admin role")
)
