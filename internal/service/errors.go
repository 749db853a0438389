package service

import "errors"

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrUsernameTooLong    = errors.New("username is too long")
	ErrUsernameTaken      = errors.New("username has already taken")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrEmptySeries        = errors.New("price series is empty")
	ErrSeriesTooLong      = errors.New("price series exceeds the row limit")
)
