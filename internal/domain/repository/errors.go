package repository

import "errors"

// Repository-level sentinel errors, grounded on the teacher's flat
// sentinel-error table (shipping/internal/domain/repository/errors.go).
var (
	ErrNotFound     = errors.New("parcel not found")
	ErrConflict     = errors.New("state guard failed: parcel not in expected state")
	ErrInvalidInput = errors.New("invalid input data")
)
