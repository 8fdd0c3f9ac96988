package domain

import "time"

// Ballot is an immutable cast record. At most one exists per
// (voter, election) pair; the storage layer enforces this with a unique
// constraint, never application-level read-then-write.
type Ballot struct {
	Id                 int64
	Voter              VoterId
	Election           ElectionId
	Party              PartyId
	VerificationMethod VerificationMethod
	CastAt             time.Time
}
