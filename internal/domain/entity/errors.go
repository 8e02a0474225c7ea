package entity

import "errors"

var (
	// ErrNotFound is returned when a referenced order, claim, or user does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation violates the active-claim exclusivity invariant
	ErrConflict = errors.New("conflict")

	// ErrForbidden is returned when the acting user lacks stage permission or claim ownership
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyCompleted is returned when an operation targets a claim already completed
	ErrAlreadyCompleted = errors.New("claim already completed")

	// ErrInvalidStage is returned when a stage name is not part of the pipeline
	ErrInvalidStage = errors.New("invalid stage")

	// ErrValidation is returned when request input fails a domain check
	ErrValidation = errors.New("validation failed")
)
