package domain

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid registration input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrNameExists         = errors.New("name already taken")
	ErrUserInactive       = errors.New("account disabled")
	ErrWeakPassword       = errors.New("password too short")
)
