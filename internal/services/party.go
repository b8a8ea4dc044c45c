package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boakyeni/nanas-wedding-backend/internal/platform/logger"
	"github.com/boakyeni/nanas-wedding-backend/internal/repos"
	"github.com/boakyeni/nanas-wedding-backend/internal/types"
)

var ErrPartyNotFound = fmt.Errorf("party not found")

type CreatePartyInput struct {
	Name       string `json:"name"`
	InviteCode string `json:"inviteCode,omitempty"`
}

// PartyWithSeats is a party, its members, and the current reserved-seat
// count. The count is computed on read, never stored.
type PartyWithSeats struct {
	*types.Party
	Seats int `json:"seats"`
}

type PartyService interface {
	CreateParty(ctx context.Context, input CreatePartyInput) (*types.Party, error)
	GetParty(ctx context.Context, id uuid.UUID) (*PartyWithSeats, error)
	ListParties(ctx context.Context) ([]*types.Party, error)
	DeleteParty(ctx context.Context, id uuid.UUID) error
}

type partyService struct {
	db        *gorm.DB
	log       *logger.Logger
	partyRepo repos.PartyRepo
	guestRepo repos.GuestRepo
}

func NewPartyService(db *gorm.DB, log *logger.Logger, partyRepo repos.PartyRepo, guestRepo repos.GuestRepo) PartyService {
	return &partyService{
		db:        db,
		log:       log.With("service", "PartyService"),
		partyRepo: partyRepo,
		guestRepo: guestRepo,
	}
}

func (ps *partyService) CreateParty(ctx context.Context, input CreatePartyInput) (*types.Party, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	party := &types.Party{
		Name:       strings.TrimSpace(input.Name),
		InviteCode: strings.TrimSpace(input.InviteCode),
	}
	created, err := ps.partyRepo.Create(ctx, nil, []*types.Party{party})
	if err != nil {
		return nil, fmt.Errorf("error creating party: %w", err)
	}
	ps.log.Info("Party created", "party_id", created[0].ID.String())
	return created[0], nil
}

func (ps *partyService) GetParty(ctx context.Context, id uuid.UUID) (*PartyWithSeats, error) {
	party, err := ps.partyRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching party: %w", err)
	}
	if party == nil {
		return nil, ErrPartyNotFound
	}
	members, err := ps.guestRepo.ListByPartyID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching party members: %w", err)
	}
	party.Guests = members
	return &PartyWithSeats{Party: party, Seats: CountSeats(members)}, nil
}

func (ps *partyService) ListParties(ctx context.Context) ([]*types.Party, error) {
	return ps.partyRepo.List(ctx, nil)
}

func (ps *partyService) DeleteParty(ctx context.Context, id uuid.UUID) error {
	party, err := ps.partyRepo.GetByID(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("error fetching party: %w", err)
	}
	if party == nil {
		return ErrPartyNotFound
	}
	return ps.partyRepo.Delete(ctx, nil, id)
}
