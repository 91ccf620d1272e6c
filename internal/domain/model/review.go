package model

import "time"

// Review is a set of comments a user leaves on a review request. Unpublished
// reviews are visible only to their owner.
type Review struct {
	ID              int64
	ReviewRequestID int64
	UserID          int64
	Public          bool
	ShipIt          bool
	BodyTop         string
	ExternalID      string // Source-system ID for imported reviews; empty otherwise.
	Timestamp       time.Time
}
