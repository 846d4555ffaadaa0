package targetio

import "errors"

var (
	// ErrDefinitionNotFound is returned when a target ref cannot be opened.
	ErrDefinitionNotFound = errors.New("target definition not found")

	// ErrInvalidDefinition is returned for documents that fail the schema or
	// cannot be converted into regions.
	ErrInvalidDefinition = errors.New("invalid target definition")
)
