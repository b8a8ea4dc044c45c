package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boakyeni/nanas-wedding-backend/internal/platform/envutil"
	"github.com/boakyeni/nanas-wedding-backend/internal/platform/logger"
	"github.com/boakyeni/nanas-wedding-backend/internal/platform/phone"
	"github.com/boakyeni/nanas-wedding-backend/internal/repos"
	"github.com/boakyeni/nanas-wedding-backend/internal/types"
)

// DispatchRequest is the caller's input for one confirmation dispatch.
// Contact overrides are applied to the guest record before anything is
// computed or sent. Nil intent flags default to true.
type DispatchRequest struct {
	Email                 *string `json:"email,omitempty"`
	Phone                 *string `json:"phone,omitempty"`
	SendEmailIfNeeded     *bool   `json:"sendEmailIfNeeded,omitempty"`
	SendMessagingIfNeeded *bool   `json:"sendMessagingIfNeeded,omitempty"`

	VenueName    string `json:"venueName,omitempty"`
	VenueAddress string `json:"venueAddress,omitempty"`
	MapsURL      string `json:"mapsUrl,omitempty"`
	WebsiteURL   string `json:"websiteUrl,omitempty"`
	GuideURL     string `json:"guideUrl,omitempty"`
	RSVPLink     string `json:"rsvpLink,omitempty"`
}

type DispatchSent struct {
	Email     bool `json:"email"`
	Messaging bool `json:"messaging"`
}

// DispatchResult reports the authoritative post-call state. Sent flags are
// true only for channels delivered during this call; a channel whose
// confirmation flag was already set before the call reports false there.
type DispatchResult struct {
	Seats                     int          `json:"seats"`
	Attending                 *bool        `json:"attending"`
	EmailConfirmationSent     bool         `json:"emailConfirmationSent"`
	MessagingConfirmationSent bool         `json:"messagingConfirmationSent"`
	Sent                      DispatchSent `json:"sent"`
}

type DispatchConfig struct {
	// LockTimeout bounds the wait for party row locks; without a ceiling a
	// stuck sibling transaction would stall this dispatch indefinitely.
	LockTimeout time.Duration
	// SendTimeout bounds each external channel call. The party's row locks
	// are held across sends, so one slow provider must not hold them open
	// without bound.
	SendTimeout time.Duration
}

func DispatchConfigFromEnv() DispatchConfig {
	return DispatchConfig{
		LockTimeout: envutil.Duration("DISPATCH_LOCK_TIMEOUT", 5*time.Second),
		SendTimeout: envutil.Duration("DISPATCH_SEND_TIMEOUT", 30*time.Second),
	}
}

type DispatchService interface {
	DispatchConfirmations(ctx context.Context, guestID uuid.UUID, req DispatchRequest) (*DispatchResult, error)
}

type dispatchService struct {
	db              *gorm.DB
	log             *logger.Logger
	guestRepo       repos.GuestRepo
	emailSender     EmailSender
	messagingSender MessagingSender
	phones          *phone.Normalizer
	cfg             DispatchConfig
}

func NewDispatchService(
	db *gorm.DB,
	log *logger.Logger,
	guestRepo repos.GuestRepo,
	emailSender EmailSender,
	messagingSender MessagingSender,
	phones *phone.Normalizer,
	cfg DispatchConfig,
) DispatchService {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	return &dispatchService{
		db:              db,
		log:             log.With("service", "DispatchService"),
		guestRepo:       guestRepo,
		emailSender:     emailSender,
		messagingSender: messagingSender,
		phones:          phones,
		cfg:             cfg,
	}
}

// DispatchConfirmations recomputes the party's reserved seats under row
// locks, decides which channels still owe a confirmation, sends them in
// email-then-messaging order, and durably records each success before moving
// on. A retried or concurrent call can never double-send: the per-channel
// flags are read and written under the same locks the seat computation uses.
func (ds *dispatchService) DispatchConfirmations(ctx context.Context, guestID uuid.UUID, req DispatchRequest) (*DispatchResult, error) {
	if guestID == uuid.Nil {
		return nil, ErrGuestNotFound
	}

	// Contact overrides are validated before any transaction is opened;
	// overridden phone numbers are stored already normalized.
	newEmail, newPhone, err := ds.normalizeOverrides(req)
	if err != nil {
		return nil, err
	}

	tx, err := ds.begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	guest, members, err := ds.lockGuestAndParty(ctx, tx, guestID)
	if err != nil {
		return nil, err
	}

	if err := ds.applyContactOverrides(ctx, tx, guest, newEmail, newPhone); err != nil {
		return nil, err
	}

	seats := CountSeats(members)

	attending := guest.Attending != nil && *guest.Attending
	decision := DecideChannels(GateInput{
		Attending:            attending,
		EmailPresent:         guest.Email != nil && strings.TrimSpace(*guest.Email) != "",
		PhonePresent:         guest.Phone != nil && strings.TrimSpace(*guest.Phone) != "",
		EmailAlreadySent:     guest.EmailConfirmationSent,
		MessagingAlreadySent: guest.MessagingConfirmationSent,
		WantsEmail:           req.SendEmailIfNeeded == nil || *req.SendEmailIfNeeded,
		WantsMessaging:       req.SendMessagingIfNeeded == nil || *req.SendMessagingIfNeeded,
	})

	sentNow := DispatchSent{}

	// Email is attempted first; the order is fixed so results are
	// deterministic, not because the channels depend on each other.
	if decision.SendEmail {
		if err := validateEmailPayload(req); err != nil {
			return nil, err
		}
		if err := ds.sendEmail(ctx, guest, seats, req); err != nil {
			return nil, &DeliveryError{Channel: ChannelEmail, Err: err}
		}
		if err := ds.guestRepo.UpdateFields(ctx, tx, guest.ID, map[string]interface{}{
			"email_confirmation_sent": true,
		}); err != nil {
			return nil, classifyStoreError(err)
		}
		// Durable sub-commit: a crash or a messaging failure after this
		// point must never cause the email to be resent.
		if err := tx.Commit().Error; err != nil {
			return nil, classifyStoreError(err)
		}
		committed = true
		sentNow.Email = true
		guest.EmailConfirmationSent = true

		if decision.SendMessaging {
			// The commit released the row locks, so reacquire them and
			// re-decide the remaining channel from current state: a
			// concurrent call may have set the flag, and a sibling edit may
			// have changed the seat count, in the gap between transactions.
			// Failures from here on leave the email sub-commit intact.
			tx, err = ds.begin(ctx)
			if err != nil {
				return nil, classifyStoreError(err)
			}
			committed = false
			guest, members, err = ds.lockGuestAndParty(ctx, tx, guestID)
			if err != nil {
				return nil, err
			}
			seats = CountSeats(members)
			attending = guest.Attending != nil && *guest.Attending
			redo := DecideChannels(GateInput{
				Attending:            attending,
				PhonePresent:         guest.Phone != nil && strings.TrimSpace(*guest.Phone) != "",
				MessagingAlreadySent: guest.MessagingConfirmationSent,
				WantsMessaging:       true,
			})
			decision.SendMessaging = redo.SendMessaging
		}
	}

	if decision.SendMessaging {
		if err := validateMessagingPayload(req, attending); err != nil {
			return nil, err
		}
		e164, err := ds.phones.ToE164(derefString(guest.Phone))
		if err != nil {
			return nil, err
		}
		if _, err := ds.sendMessaging(ctx, guest, attending, seats, e164, req); err != nil {
			return nil, &DeliveryError{Channel: ChannelMessaging, Err: err}
		}
		if err := ds.guestRepo.UpdateFields(ctx, tx, guest.ID, map[string]interface{}{
			"messaging_confirmation_sent": true,
		}); err != nil {
			return nil, classifyStoreError(err)
		}
		if err := tx.Commit().Error; err != nil {
			return nil, classifyStoreError(err)
		}
		committed = true
		sentNow.Messaging = true
	}

	// Nothing-to-send path still commits so contact overrides persist.
	if !committed {
		if err := tx.Commit().Error; err != nil {
			return nil, classifyStoreError(err)
		}
		committed = true
	}

	// Re-read the flags outside the locks to report authoritative final
	// state, covering flags set by sub-commits earlier in this call.
	result := &DispatchResult{Seats: seats, Sent: sentNow}
	fresh, err := ds.guestRepo.GetByID(ctx, nil, guestID)
	if err != nil || fresh == nil {
		result.Attending = guest.Attending
		result.EmailConfirmationSent = guest.EmailConfirmationSent
		result.MessagingConfirmationSent = guest.MessagingConfirmationSent || sentNow.Messaging
		return result, nil
	}
	result.Attending = fresh.Attending
	result.EmailConfirmationSent = fresh.EmailConfirmationSent
	result.MessagingConfirmationSent = fresh.MessagingConfirmationSent
	return result, nil
}

// begin opens a manual-commit transaction with the configured lock-wait
// ceiling applied for its duration.
func (ds *dispatchService) begin(ctx context.Context) (*gorm.DB, error) {
	tx := ds.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	if ds.db.Dialector.Name() == "postgres" {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ds.cfg.LockTimeout.Milliseconds())
		if err := tx.Exec(stmt).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	return tx, nil
}

func (ds *dispatchService) normalizeOverrides(req DispatchRequest) (newEmail, newPhone *string, err error) {
	if req.Email != nil {
		if v := strings.TrimSpace(*req.Email); v != "" {
			newEmail = &v
		}
	}
	if req.Phone != nil {
		if v := strings.TrimSpace(*req.Phone); v != "" {
			e164, perr := ds.phones.ToE164(v)
			if perr != nil {
				return nil, nil, perr
			}
			newPhone = &e164
		}
	}
	return newEmail, newPhone, nil
}

func (ds *dispatchService) applyContactOverrides(ctx context.Context, tx *gorm.DB, guest *types.Guest, newEmail, newPhone *string) error {
	updates := map[string]interface{}{}
	if newEmail != nil && derefString(guest.Email) != *newEmail {
		updates["email"] = *newEmail
	}
	if newPhone != nil && derefString(guest.Phone) != *newPhone {
		updates["phone"] = *newPhone
	}
	if len(updates) == 0 {
		return nil
	}
	rows, err := ds.guestRepo.UpdateContact(ctx, tx, guest.ID, updates)
	if err != nil {
		return classifyStoreError(err)
	}
	if rows == 0 {
		return ErrContactUpdateFailed
	}
	if newEmail != nil {
		guest.Email = newEmail
	}
	if newPhone != nil {
		guest.Phone = newPhone
	}
	return nil
}

// lockGuestAndParty locks the guest and every current member of its party so
// a concurrent dispatch or edit on a sibling cannot change the seat count or
// the sent flags mid-computation. An unassigned guest is a party of one.
//
// Assigned guests are locked only through the party query, which orders rows
// by id: two dispatches targeting different members of one party then acquire
// the same locks in the same order and cannot deadlock. Locking the target
// row first would break that order. The unlocked read that finds the party is
// re-verified against the locked rows; membership that moved between the two
// reads restarts the acquisition.
func (ds *dispatchService) lockGuestAndParty(ctx context.Context, tx *gorm.DB, guestID uuid.UUID) (*types.Guest, []*types.Guest, error) {
	for attempt := 0; attempt < 3; attempt++ {
		peek, err := ds.guestRepo.GetByID(ctx, tx, guestID)
		if err != nil {
			return nil, nil, classifyStoreError(err)
		}
		if peek == nil {
			return nil, nil, ErrGuestNotFound
		}

		if peek.PartyID == nil {
			guest, err := ds.guestRepo.GetByIDForUpdate(ctx, tx, guestID)
			if err != nil {
				return nil, nil, classifyStoreError(err)
			}
			if guest == nil {
				return nil, nil, ErrGuestNotFound
			}
			if guest.PartyID != nil {
				// assigned to a party between the read and the lock
				continue
			}
			return guest, []*types.Guest{guest}, nil
		}

		members, err := ds.guestRepo.GetByPartyIDForUpdate(ctx, tx, *peek.PartyID)
		if err != nil {
			return nil, nil, classifyStoreError(err)
		}
		for _, m := range members {
			if m != nil && m.ID == guestID {
				return m, members, nil
			}
		}
		// moved to another party between the read and the lock
	}
	return nil, nil, ErrLockTimeout
}

func validateEmailPayload(req DispatchRequest) error {
	var missing []string
	if strings.TrimSpace(req.VenueName) == "" {
		missing = append(missing, "venueName")
	}
	if strings.TrimSpace(req.VenueAddress) == "" {
		missing = append(missing, "venueAddress")
	}
	if strings.TrimSpace(req.MapsURL) == "" {
		missing = append(missing, "mapsUrl")
	}
	if strings.TrimSpace(req.WebsiteURL) == "" {
		missing = append(missing, "websiteUrl")
	}
	if strings.TrimSpace(req.GuideURL) == "" {
		missing = append(missing, "guideUrl")
	}
	if len(missing) > 0 {
		return &MissingPayloadError{Channel: ChannelEmail, Fields: missing}
	}
	return nil
}

func validateMessagingPayload(req DispatchRequest, attending bool) error {
	if attending && strings.TrimSpace(req.RSVPLink) == "" {
		return &MissingPayloadError{Channel: ChannelMessaging, Fields: []string{"rsvpLink"}}
	}
	return nil
}

func (ds *dispatchService) sendEmail(ctx context.Context, guest *types.Guest, seats int, req DispatchRequest) error {
	sendCtx, cancel := context.WithTimeout(ctx, ds.cfg.SendTimeout)
	defer cancel()
	return ds.emailSender.SendConfirmation(sendCtx, EmailConfirmation{
		ToAddress:    derefString(guest.Email),
		GuestName:    guest.DisplayName(),
		Seats:        seats,
		VenueName:    req.VenueName,
		VenueAddress: req.VenueAddress,
		MapsURL:      req.MapsURL,
		WebsiteURL:   req.WebsiteURL,
		GuideURL:     req.GuideURL,
	})
}

func (ds *dispatchService) sendMessaging(ctx context.Context, guest *types.Guest, attending bool, seats int, phoneE164 string, req DispatchRequest) (string, error) {
	sendCtx, cancel := context.WithTimeout(ctx, ds.cfg.SendTimeout)
	defer cancel()
	return ds.messagingSender.SendConfirmation(sendCtx, MessagingConfirmation{
		GuestName: guest.DisplayName(),
		PhoneE164: phoneE164,
		Attending: attending,
		Seats:     seats,
		RSVPLink:  req.RSVPLink,
	})
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
