package repository

import "errors"

var (
	// ErrNotFound is returned when a document the operation requires is absent
	ErrNotFound = errors.New("document not found")

	// ErrNoFreeUses is returned by ConsumeFreeUse when the counter is exhausted
	ErrNoFreeUses = errors.New("no free uses remaining")
)
