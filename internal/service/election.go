package service

import (
	"net/http"
	"time"

	"github.com/evoting-dev/evoting/internal/domain"
	"github.com/evoting-dev/evoting/internal/errors"
)

type ElectionService interface {
	CreateElection(title string, start, end time.Time, partyIds []domain.PartyId) (domain.Election, error)
	LiveElections() ([]domain.Election, error)
	PreviousElections() ([]domain.Election, error)
	OpenElections() ([]domain.Election, error)
	PartiesOf(electionId domain.ElectionId) ([]domain.Party, error)
	IsPartyInElection(electionId domain.ElectionId, partyId domain.PartyId) (bool, error)
}

type ElectionStorage interface {
	SaveElection(election domain.Election) (domain.ElectionId, error)
	Election(id domain.ElectionId) (domain.Election, error)
	LiveElections(now time.Time) ([]domain.Election, error)
	PreviousElections(now time.Time) ([]domain.Election, error)
	OpenElections(now time.Time) ([]domain.Election, error)
	PartiesByIds(ids []domain.PartyId) ([]domain.Party, error)
}

type Election struct {
	storage ElectionStorage
}

func NewElection(storage ElectionStorage) *Election {
	return &Election{storage: storage}
}

// CreateElection validates the voting window and the party set. Validity
// of the party set is a count comparison: resolving the requested ids to
// active parties must return exactly as many rows as were asked for, so a
// single stale or inactive id rejects the whole election.
func (e *Election) CreateElection(title string, start, end time.Time, partyIds []domain.PartyId) (domain.Election, error) {
	if title == "" || len(partyIds) == 0 {
		return domain.Election{}, &errors.ErrorWithStatusCode{
			Message:    "All required fields must be provided and valid",
			StatusCode: http.StatusBadRequest,
		}
	}
	if start.After(end) {
		return domain.Election{}, &errors.ErrorWithStatusCode{
			Message:    "End date must be after start date",
			StatusCode: http.StatusBadRequest,
		}
	}

	found, err := e.storage.PartiesByIds(partyIds)
	if err != nil {
		return domain.Election{}, err
	}
	if len(found) != len(partyIds) {
		return domain.Election{}, &errors.ErrorWithStatusCode{
			Message:    "One or more parties are invalid or inactive",
			StatusCode: http.StatusBadRequest,
		}
	}

	election := domain.Election{
		Title:     title,
		StartDate: start,
		EndDate:   end,
		Parties:   partyIds,
		IsActive:  true,
	}
	id, err := e.storage.SaveElection(election)
	if err != nil {
		return domain.Election{}, err
	}
	election.Id = id
	return election, nil
}

// LiveElections lists elections that have not ended yet (open or upcoming).
func (e *Election) LiveElections() ([]domain.Election, error) {
	return e.storage.LiveElections(time.Now())
}

func (e *Election) PreviousElections() ([]domain.Election, error) {
	return e.storage.PreviousElections(time.Now())
}

// OpenElections lists elections whose voting window is open right now.
func (e *Election) OpenElections() ([]domain.Election, error) {
	return e.storage.OpenElections(time.Now())
}

// PartiesOf returns the active parties participating in an election.
func (e *Election) PartiesOf(electionId domain.ElectionId) ([]domain.Party, error) {
	election, err := e.storage.Election(electionId)
	if err != nil {
		return nil, err
	}
	return e.storage.PartiesByIds(election.Parties)
}

func (e *Election) IsPartyInElection(electionId domain.ElectionId, partyId domain.PartyId) (bool, error) {
	election, err := e.storage.Election(electionId)
	if err != nil {
		return false, err
	}
	return election.HasParty(partyId), nil
}
