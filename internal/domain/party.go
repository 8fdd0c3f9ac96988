package domain

import "time"

// Party is a ballot option. Soft-deleted via IsActive so tally history
// survives for audit.
type Party struct {
	Id          PartyId
	Name        string
	PartyName   string
	PartySymbol string
	Votes       int
	IsActive    bool
	CreatedAt   time.Time
}
