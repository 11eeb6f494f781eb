package models

import "time"

// Link represents a shortened link and its associated metadata.
type Link struct {
	// ID is the short identifier, lowercase over the alphabet [a-z2-7].
	ID string
	// Destination is the absolute URL the identifier redirects to.
	Destination string
	// VisitCount tracks the number of times the link has been resolved.
	VisitCount int64
	// CreatedAt is the timestamp indicating when the link was created.
	CreatedAt time.Time
	// LastVisitAt is the timestamp of the most recent resolution, nil if never visited.
	LastVisitAt *time.Time
}
