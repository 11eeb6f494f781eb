package database

import "errors"

var (
	// ErrKeyExists is returned when an attempt is made to create
	// a new link with an identifier that already exists.
	ErrKeyExists = errors.New("key exists")
	// ErrLinkNotFound is returned when an attempt is made to retrieve
	// a link using an identifier or destination that doesn't exist.
	ErrLinkNotFound = errors.New("link not found")
)
