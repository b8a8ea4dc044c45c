package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boakyeni/nanas-wedding-backend/internal/platform/logger"
	"github.com/boakyeni/nanas-wedding-backend/internal/platform/phone"
	"github.com/boakyeni/nanas-wedding-backend/internal/repos"
	"github.com/boakyeni/nanas-wedding-backend/internal/types"
)

// CreateGuestInput covers both admin guest creation and the public RSVP
// form; the RSVP handler maps its fields onto this.
type CreateGuestInput struct {
	PartyID             *uuid.UUID `json:"partyId,omitempty"`
	FirstName           string     `json:"firstName"`
	LastName            string     `json:"lastName,omitempty"`
	Email               *string    `json:"email,omitempty"`
	Phone               *string    `json:"phone,omitempty"`
	Attending           *bool      `json:"attending,omitempty"`
	PlusOne             bool       `json:"plusOne,omitempty"`
	PlusOneName         string     `json:"plusOneName,omitempty"`
	DietaryRestrictions string     `json:"dietaryRestrictions,omitempty"`
	Message             string     `json:"message,omitempty"`
}

type UpdateGuestInput struct {
	PartyID             *uuid.UUID `json:"partyId,omitempty"`
	FirstName           *string    `json:"firstName,omitempty"`
	LastName            *string    `json:"lastName,omitempty"`
	Email               *string    `json:"email,omitempty"`
	Phone               *string    `json:"phone,omitempty"`
	Attending           *bool      `json:"attending,omitempty"`
	PlusOne             *bool      `json:"plusOne,omitempty"`
	PlusOneName         *string    `json:"plusOneName,omitempty"`
	DietaryRestrictions *string    `json:"dietaryRestrictions,omitempty"`
	Message             *string    `json:"message,omitempty"`
}

type GuestService interface {
	CreateGuest(ctx context.Context, input CreateGuestInput) (*types.Guest, error)
	GetGuest(ctx context.Context, id uuid.UUID) (*types.Guest, error)
	ListGuests(ctx context.Context) ([]*types.Guest, error)
	UpdateGuest(ctx context.Context, id uuid.UUID, input UpdateGuestInput) (*types.Guest, error)
	DeleteGuest(ctx context.Context, id uuid.UUID) error
	ExportGuestsCSV(ctx context.Context) ([]byte, error)
}

type guestService struct {
	db        *gorm.DB
	log       *logger.Logger
	guestRepo repos.GuestRepo
	partyRepo repos.PartyRepo
	phones    *phone.Normalizer
}

func NewGuestService(db *gorm.DB, log *logger.Logger, guestRepo repos.GuestRepo, partyRepo repos.PartyRepo, phones *phone.Normalizer) GuestService {
	return &guestService{
		db:        db,
		log:       log.With("service", "GuestService"),
		guestRepo: guestRepo,
		partyRepo: partyRepo,
		phones:    phones,
	}
}

func (gs *guestService) CreateGuest(ctx context.Context, input CreateGuestInput) (*types.Guest, error) {
	if strings.TrimSpace(input.FirstName) == "" {
		return nil, fmt.Errorf("firstName is required")
	}
	if input.PartyID != nil {
		party, err := gs.partyRepo.GetByID(ctx, nil, *input.PartyID)
		if err != nil {
			return nil, fmt.Errorf("error fetching party: %w", err)
		}
		if party == nil {
			return nil, fmt.Errorf("party %s does not exist", input.PartyID)
		}
	}

	guest := &types.Guest{
		PartyID:             input.PartyID,
		FirstName:           strings.TrimSpace(input.FirstName),
		LastName:            strings.TrimSpace(input.LastName),
		Attending:           input.Attending,
		PlusOne:             input.PlusOne,
		PlusOneName:         strings.TrimSpace(input.PlusOneName),
		DietaryRestrictions: input.DietaryRestrictions,
		Message:             input.Message,
	}
	if input.Email != nil {
		if v := strings.TrimSpace(*input.Email); v != "" {
			guest.Email = &v
		}
	}
	if input.Phone != nil {
		if v := strings.TrimSpace(*input.Phone); v != "" {
			e164, err := gs.phones.ToE164(v)
			if err != nil {
				return nil, err
			}
			guest.Phone = &e164
		}
	}

	created, err := gs.guestRepo.Create(ctx, nil, []*types.Guest{guest})
	if err != nil {
		return nil, fmt.Errorf("error creating guest: %w", err)
	}
	gs.log.Info("Guest created", "guest_id", created[0].ID.String())
	return created[0], nil
}

func (gs *guestService) GetGuest(ctx context.Context, id uuid.UUID) (*types.Guest, error) {
	guest, err := gs.guestRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching guest: %w", err)
	}
	if guest == nil {
		return nil, ErrGuestNotFound
	}
	return guest, nil
}

func (gs *guestService) ListGuests(ctx context.Context) ([]*types.Guest, error) {
	return gs.guestRepo.List(ctx, nil)
}

func (gs *guestService) UpdateGuest(ctx context.Context, id uuid.UUID, input UpdateGuestInput) (*types.Guest, error) {
	updates := map[string]interface{}{}
	if input.PartyID != nil {
		if *input.PartyID == uuid.Nil {
			updates["party_id"] = nil
		} else {
			party, err := gs.partyRepo.GetByID(ctx, nil, *input.PartyID)
			if err != nil {
				return nil, fmt.Errorf("error fetching party: %w", err)
			}
			if party == nil {
				return nil, fmt.Errorf("party %s does not exist", input.PartyID)
			}
			updates["party_id"] = *input.PartyID
		}
	}
	if input.FirstName != nil {
		if strings.TrimSpace(*input.FirstName) == "" {
			return nil, fmt.Errorf("firstName cannot be empty")
		}
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		if v := strings.TrimSpace(*input.Email); v != "" {
			updates["email"] = v
		} else {
			updates["email"] = nil
		}
	}
	if input.Phone != nil {
		if v := strings.TrimSpace(*input.Phone); v != "" {
			e164, err := gs.phones.ToE164(v)
			if err != nil {
				return nil, err
			}
			updates["phone"] = e164
		} else {
			updates["phone"] = nil
		}
	}
	if input.Attending != nil {
		updates["attending"] = *input.Attending
	}
	if input.PlusOne != nil {
		updates["plus_one"] = *input.PlusOne
	}
	if input.PlusOneName != nil {
		updates["plus_one_name"] = strings.TrimSpace(*input.PlusOneName)
	}
	if input.DietaryRestrictions != nil {
		updates["dietary_restrictions"] = *input.DietaryRestrictions
	}
	if input.Message != nil {
		updates["message"] = *input.Message
	}
	if len(updates) == 0 {
		return gs.GetGuest(ctx, id)
	}

	var updated *types.Guest
	err := gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guest, err := gs.guestRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return classifyStoreError(err)
		}
		if guest == nil {
			return ErrGuestNotFound
		}
		if err := gs.guestRepo.UpdateFields(ctx, tx, id, updates); err != nil {
			return classifyStoreError(err)
		}
		updated, err = gs.guestRepo.GetByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (gs *guestService) DeleteGuest(ctx context.Context, id uuid.UUID) error {
	guest, err := gs.guestRepo.GetByID(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("error fetching guest: %w", err)
	}
	if guest == nil {
		return ErrGuestNotFound
	}
	return gs.guestRepo.Delete(ctx, nil, id)
}

var csvHeader = []string{
	"id", "party_id", "first_name", "last_name", "email", "phone",
	"attending", "plus_one", "plus_one_name", "dietary_restrictions",
	"message", "email_confirmation_sent", "messaging_confirmation_sent",
	"created_at",
}

func (gs *guestService) ExportGuestsCSV(ctx context.Context) ([]byte, error) {
	guests, err := gs.guestRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error listing guests: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, g := range guests {
		partyID := ""
		if g.PartyID != nil {
			partyID = g.PartyID.String()
		}
		attending := ""
		if g.Attending != nil {
			attending = strconv.FormatBool(*g.Attending)
		}
		row := []string{
			g.ID.String(),
			partyID,
			g.FirstName,
			g.LastName,
			derefString(g.Email),
			derefString(g.Phone),
			attending,
			strconv.FormatBool(g.PlusOne),
			g.PlusOneName,
			g.DietaryRestrictions,
			g.Message,
			strconv.FormatBool(g.EmailConfirmationSent),
			strconv.FormatBool(g.MessagingConfirmationSent),
			g.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
