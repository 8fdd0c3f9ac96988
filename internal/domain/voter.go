package domain

import (
	"slices"
	"time"
)

type Voter struct {
	Id           VoterId
	Name         string
	Email        Email
	PhoneNumber  string
	PassHash     string
	DateOfBirth  time.Time
	FaceEncoding FaceEncoding
	Role         Role
	IsVerified   bool

	// One-time code state, cleared after confirmation.
	OtpHash    string
	OtpExpires time.Time

	// VotedElections is a read cache of the ballot ledger, appended in the
	// same transaction as the ballot insert. The ballots unique constraint,
	// not this slice, is what enforces one vote per election.
	VotedElections ElectionIds
	VotedFor       *PartyId
	VotedParty     string

	CreatedAt time.Time
}

func (v *Voter) HasVotedIn(election ElectionId) bool {
	return slices.Contains(v.VotedElections, election)
}

type Credentials struct {
	Email    Email
	Password Password
}

// Registration carries everything needed to create an unverified voter.
type Registration struct {
	Name        string
	Email       Email
	PhoneNumber string
	Password    Password
	DateOfBirth time.Time
	FaceImage   string // base64
}
