package domain

import "time"

type Election struct {
	Id        ElectionId
	Title     string
	StartDate time.Time
	EndDate   time.Time
	Parties   PartyIds
	IsActive  bool
	CreatedAt time.Time
}

// IsOpen reports whether votes may be cast at the given instant.
func (e *Election) IsOpen(now time.Time) bool {
	return e.IsActive && !now.Before(e.StartDate) && !now.After(e.EndDate)
}

func (e *Election) IsUpcoming(now time.Time) bool {
	return now.Before(e.StartDate)
}

func (e *Election) IsClosed(now time.Time) bool {
	return now.After(e.EndDate)
}

func (e *Election) HasParty(party PartyId) bool {
	for _, p := range e.Parties {
		if p == party {
			return true
		}
	}
	return false
}
