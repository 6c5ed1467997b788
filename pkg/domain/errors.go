package domain

import "errors"

var (
	// ErrGraphNotFound is returned when a graph identifier is unknown.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrRunNotFound is returned when a run identifier is unknown.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidGraph is returned when a graph definition is rejected at creation.
	ErrInvalidGraph = errors.New("invalid graph")
)
