package service

import "errors"

// Service-level error kinds; handlers map them 1:1 to HTTP status codes.
var (
	ErrValidation = errors.New("validation")  // 400
	ErrNotFound   = errors.New("not found")   // 404
	ErrForbidden  = errors.New("forbidden")   // 403
	ErrConflict   = errors.New("conflict")    // 409
	ErrExpired    = errors.New("expired")     // 400
)
