package domain

import "github.com/lib/pq"

type (
	Email    = string
	Password = string

	VoterId    = int64
	PartyId    = int64
	ElectionId = int64

	// FaceEncoding is the fixed-length biometric descriptor returned by
	// the external matcher. Stored in postgres as float8[].
	FaceEncoding = pq.Float64Array

	ElectionIds = pq.Int64Array
	PartyIds    = pq.Int64Array
)

type Role string

const (
	RoleVoter Role = "voter"
	RoleAdmin Role = "admin"
)

// VerificationMethod tags how a cast was authorized.
type VerificationMethod string

const (
	VerificationFace        VerificationMethod = "face"
	VerificationOTP         VerificationMethod = "otp"
	VerificationFingerprint VerificationMethod = "fingerprint"
)

func (m VerificationMethod) Valid() bool {
	switch m {
	case VerificationFace, VerificationOTP, VerificationFingerprint:
		return true
	}
	return false
}
