package service

import (
	"github.com/evoting-dev/evoting/internal/domain"
	"github.com/evoting-dev/evoting/internal/logger"
)

type PartyService interface {
	AddParty(name, partyName, partySymbol string) (domain.Party, error)
	ActiveParties() ([]domain.Party, error)
	DeactivateParty(id domain.PartyId) error
	DeactivateAllParties() error
	Voters() ([]domain.Voter, error)
}

type PartyStorage interface {
	SaveParty(party domain.Party) (domain.PartyId, error)
	ActiveParties() ([]domain.Party, error)
	DeactivateParty(id domain.PartyId) error
	DeactivateAllParties() error
	Voters() ([]domain.Voter, error)
}

// Party covers the admin-side candidate lifecycle.
type Party struct {
	storage PartyStorage
}

func NewParty(storage PartyStorage) *Party {
	return &Party{storage: storage}
}

func (p *Party) AddParty(name, partyName, partySymbol string) (domain.Party, error) {
	party := domain.Party{
		Name:        name,
		PartyName:   partyName,
		PartySymbol: partySymbol,
		IsActive:    true,
	}
	id, err := p.storage.SaveParty(party)
	if err != nil {
		return domain.Party{}, err
	}
	party.Id = id
	return party, nil
}

func (p *Party) ActiveParties() ([]domain.Party, error) {
	return p.storage.ActiveParties()
}

// DeactivateParty soft-deletes: the record and its tally stay for audit.
func (p *Party) DeactivateParty(id domain.PartyId) error {
	if err := p.storage.DeactivateParty(id); err != nil {
		return err
	}
	logger.Log.Info("party deactivated", "party_id", id)
	return nil
}

func (p *Party) DeactivateAllParties() error {
	return p.storage.DeactivateAllParties()
}

// Voters returns the roster for the admin dashboard. The storage layer
// omits credential and OTP material.
func (p *Party) Voters() ([]domain.Voter, error) {
	return p.storage.Voters()
}
