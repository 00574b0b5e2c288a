package service

import "errors"

var (
	// ErrForbidden is returned when the policy denies an action on a visible object.
	ErrForbidden = errors.New("you do not have permission to perform this action")
	// ErrNotFound is returned for objects missing from, or hidden by, the actor's scope.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
