package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/boakyeni/nanas-wedding-backend/internal/platform/logger"
	"github.com/boakyeni/nanas-wedding-backend/internal/platform/phone"
	"github.com/boakyeni/nanas-wedding-backend/internal/types"
)

// fakeGuestRepo keeps guests in memory and hands out copies the way a real
// read would. Locking methods behave like plain reads; the tests that need
// lock-window races use the forUpdateHook instead.
type fakeGuestRepo struct {
	mu     sync.Mutex
	guests map[uuid.UUID]*types.Guest

	failContactUpdate bool
	// forUpdateHook runs before each GetByIDForUpdate read; call count starts
	// at 1. Lets a test mutate state "between transactions".
	forUpdateHook  func(call int, guests map[uuid.UUID]*types.Guest)
	forUpdateCalls int
	// partyHook mirrors forUpdateHook for the party locking query.
	partyHook  func(call int, guests map[uuid.UUID]*types.Guest)
	partyCalls int
	// lockLog records which locking query each acquisition used:
	// "row" for GetByIDForUpdate, "party" for GetByPartyIDForUpdate.
	lockLog []string
}

func newFakeGuestRepo(guests ...*types.Guest) *fakeGuestRepo {
	r := &fakeGuestRepo{guests: map[uuid.UUID]*types.Guest{}}
	for _, g := range guests {
		r.guests[g.ID] = g
	}
	return r
}

func copyGuest(g *types.Guest) *types.Guest {
	if g == nil {
		return nil
	}
	c := *g
	return &c
}

func (r *fakeGuestRepo) Create(ctx context.Context, tx *gorm.DB, guests []*types.Guest) ([]*types.Guest, error) {
	return guests, nil
}

func (r *fakeGuestRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyGuest(r.guests[id]), nil
}

func (r *fakeGuestRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forUpdateCalls++
	r.lockLog = append(r.lockLog, "row")
	if r.forUpdateHook != nil {
		r.forUpdateHook(r.forUpdateCalls, r.guests)
	}
	return copyGuest(r.guests[id]), nil
}

func (r *fakeGuestRepo) GetByPartyIDForUpdate(ctx context.Context, tx *gorm.DB, partyID uuid.UUID) ([]*types.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partyCalls++
	r.lockLog = append(r.lockLog, "party")
	if r.partyHook != nil {
		r.partyHook(r.partyCalls, r.guests)
	}
	var members []*types.Guest
	for _, g := range r.guests {
		if g.PartyID != nil && *g.PartyID == partyID {
			members = append(members, copyGuest(g))
		}
	}
	return members, nil
}

func (r *fakeGuestRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Guest
	for _, g := range r.guests {
		out = append(out, copyGuest(g))
	}
	return out, nil
}

func (r *fakeGuestRepo) ListByPartyID(ctx context.Context, tx *gorm.DB, partyID uuid.UUID) ([]*types.Guest, error) {
	return nil, nil
}

func (r *fakeGuestRepo) UpdateContact(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failContactUpdate {
		return 0, nil
	}
	g, ok := r.guests[id]
	if !ok {
		return 0, nil
	}
	applyGuestUpdates(g, updates)
	return 1, nil
}

func (r *fakeGuestRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guests[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applyGuestUpdates(g, updates)
	return nil
}

func (r *fakeGuestRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}

func applyGuestUpdates(g *types.Guest, updates map[string]interface{}) {
	for k, v := range updates {
		switch k {
		case "email":
			if v == nil {
				g.Email = nil
			} else {
				s := v.(string)
				g.Email = &s
			}
		case "phone":
			if v == nil {
				g.Phone = nil
			} else {
				s := v.(string)
				g.Phone = &s
			}
		case "first_name":
			g.FirstName = v.(string)
		case "last_name":
			g.LastName = v.(string)
		case "attending":
			b := v.(bool)
			g.Attending = &b
		case "plus_one":
			g.PlusOne = v.(bool)
		case "plus_one_name":
			g.PlusOneName = v.(string)
		case "dietary_restrictions":
			g.DietaryRestrictions = v.(string)
		case "message":
			g.Message = v.(string)
		case "party_id":
			if v == nil {
				g.PartyID = nil
			} else {
				id := v.(uuid.UUID)
				g.PartyID = &id
			}
		case "email_confirmation_sent":
			g.EmailConfirmationSent = v.(bool)
		case "messaging_confirmation_sent":
			g.MessagingConfirmationSent = v.(bool)
		}
	}
}

type fakeEmailSender struct {
	calls []EmailConfirmation
	err   error
}

func (s *fakeEmailSender) SendConfirmation(ctx context.Context, conf EmailConfirmation) error {
	s.calls = append(s.calls, conf)
	return s.err
}

type fakeMessagingSender struct {
	calls []MessagingConfirmation
	err   error
}

func (s *fakeMessagingSender) SendConfirmation(ctx context.Context, conf MessagingConfirmation) (string, error) {
	s.calls = append(s.calls, conf)
	if s.err != nil {
		return "", s.err
	}
	return "SM" + uuid.NewString(), nil
}

type dispatchFixture struct {
	svc     DispatchService
	repo    *fakeGuestRepo
	email   *fakeEmailSender
	message *fakeMessagingSender
}

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// newDispatchFixture wires the service against an in-memory sqlite database;
// the database only backs the transaction lifecycle, guest state lives in the
// fake repo.
func newDispatchFixture(t *testing.T, guests ...*types.Guest) *dispatchFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo := newFakeGuestRepo(guests...)
	email := &fakeEmailSender{}
	message := &fakeMessagingSender{}
	svc := NewDispatchService(db, testLogger(), repo, email, message,
		phone.NewNormalizer("US", "GH"), DispatchConfig{})
	return &dispatchFixture{svc: svc, repo: repo, email: email, message: message}
}

func strPtr(s string) *string { return &s }

func attendingGuest() *types.Guest {
	return &types.Guest{
		ID:        uuid.New(),
		FirstName: "Ama",
		LastName:  "Mensah",
		Email:     strPtr("ama@example.com"),
		Phone:     strPtr("+233244123456"),
		Attending: boolPtr(true),
		PlusOne:   true,
	}
}

func fullRequest() DispatchRequest {
	return DispatchRequest{
		VenueName:    "Labadi Beach Hotel",
		VenueAddress: "1 La Bypass, Accra",
		MapsURL:      "https://maps.example.com/venue",
		WebsiteURL:   "https://wedding.example.com",
		GuideURL:     "https://wedding.example.com/guide",
		RSVPLink:     "https://wedding.example.com/rsvp/abc",
	}
}

func TestDispatchSendsBothChannels(t *testing.T) {
	guest := attendingGuest()
	partyID := uuid.New()
	guest.PartyID = &partyID
	spouse := &types.Guest{
		ID:        uuid.New(),
		PartyID:   &partyID,
		FirstName: "Kofi",
		Attending: boolPtr(true),
	}
	declined := &types.Guest{
		ID:        uuid.New(),
		PartyID:   &partyID,
		FirstName: "Abena",
		Attending: boolPtr(false),
		PlusOne:   true,
	}
	f := newDispatchFixture(t, guest, spouse, declined)

	res, err := f.svc.DispatchConfirmations(context.Background(), guest.ID, fullRequest())
	if err != nil {
		t.Fatalf("DispatchConfirmations: %v", err)
	}

	// Ama + plus-one + Kofi; Abena declined.
	if res.Seats != 3 {
		t.Fatalf("seats=%d, want 3", res.Seats)
	}
	if !res.Sent.Email || !res.Sent.Messaging {
		t.Fatalf("sent=%+v, want both true", res.Sent)
	}
	if !res.EmailConfirmationSent || !res.MessagingConfirmationSent {
		t.Fatalf("flags=%v/%v, want both true", res.EmailConfirmationSent, res.MessagingConfirmationSent)
	}
	if len(f.email.calls) != 1 || len(f.message.calls) != 1 {
		t.Fatalf("sender calls=%d/%d, want 1/1", len(f.email.calls), len(f.message.calls))
	}

	ec := f.email.calls[0]
	if ec.ToAddress != "ama@example.com" || ec.Seats != 3 || ec.VenueName != "Labadi Beach Hotel" {
		t.Fatalf("email confirmation payload %+v", ec)
	}
	mc := f.message.calls[0]
	if mc.PhoneE164 != "+233244123456" || !mc.Attending || mc.Seats != 3 || mc.RSVPLink == "" {
		t.Fatalf("messaging confirmation payload %+v", mc)
	}

	stored := f.repo.guests[guest.ID]
	if !stored.EmailConfirmationSent || !stored.MessagingConfirmationSent {
		t.Fatalf("stored flags=%v/%v, want both true",
			stored.EmailConfirmationSent, stored.MessagingConfirmationSent)
	}
}

func TestDispatchSecondCallSendsNothing(t *testing.T) {
	guest := attendingGuest()
	f := newDispatchFixture(t, guest)
	ctx := context.Background()

	if _, err := f.svc.DispatchConfirmations(ctx, guest.ID, fullRequest()); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	res, err := f.svc.DispatchConfirmations(ctx, guest.ID, fullRequest())
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}

	if res.Sent.Email || res.Sent.Messaging {
		t.Fatalf("second call sent=%+v, want neither", res.Sent)
	}
	if !res.EmailConfirmationSent || !res.MessagingConfirmationSent {
		t.Fatalf("second call flags=%v/%v, want both true",
			res.EmailConfirmationSent, res.MessagingConfirmationSent)
	}
	if len(f.email.calls) != 1 || len(f.message.calls) != 1 {
		t.Fatalf("sender calls after retry=%d/%d, want 1/1", len(f.email.calls), len(f.message.calls))
	}
}

func TestDispatchEmailFailureSetsNoFlags(t *testing.T) {
	guest := attendingGuest()
	f := newDispatchFixture(t, guest)
	f.email.err = errors.New("provider 502")

	_, err := f.svc.DispatchConfirmations(context.Background(), guest.ID, fullRequest())
	var de *DeliveryError
	if !errors.As(err, &de) || de.Channel != ChannelEmail {
		t.Fatalf("err=%v, want email DeliveryError", err)
	}
	if len(f.message.calls) != 0 {
		t.Fatalf("messaging attempted after email failure")
	}
	stored := f.repo.guests[guest.ID]
	if stored.EmailConfirmationSent || stored.MessagingConfirmationSent {
		t.Fatalf("flags set after failed send: %v/%v",
			stored.EmailConfirmationSent, stored.MessagingConfirmationSent)
	}
}

func TestDispatchMessagingFailureKeepsEmailCommit(t *testing.T) {
	guest := attendingGuest()
	f := newDispatchFixture(t, guest)
	f.message.err = errors.New("provider down")
	ctx := context.Background()

	_, err := f.svc.DispatchConfirmations(ctx, guest.ID, fullRequest())
	var de *DeliveryError
	if !errors.As(err, &de) || de.Channel != ChannelMessaging {
		t.Fatalf("err=%v, want messaging DeliveryError", err)
	}

	// The email sub-commit must survive the later failure.
	stored := f.repo.guests[guest.ID]
	if !stored.EmailConfirmationSent {
		t.Fatalf("email flag lost after messaging failure")
	}
	if stored.MessagingConfirmationSent {
		t.Fatalf("messaging flag set despite failed send")
	}

	// A retry completes only the missing channel.
	f.message.err = nil
	res, err := f.svc.DispatchConfirmations(ctx, guest.ID, fullRequest())
	if err != nil {
		t.Fatalf("retry dispatch: %v", err)
	}
	if res.Sent.Email || !res.Sent.Messaging {
		t.Fatalf("retry sent=%+v, want messaging only", res.Sent)
	}
	if len(f.email.calls) != 1 {
		t.Fatalf("email resent on retry: %d calls", len(f.email.calls))
	}
}

func TestDispatchConcurrentMessagingFlagIsRespected(t *testing.T) {
	guest := attendingGuest()
	f := newDispatchFixture(t, guest)

	// A concurrent dispatch sets the messaging flag in the window between the
	// email sub-commit and the second transaction's re-lock.
	f.repo.forUpdateHook = func(call int, guests map[uuid.UUID]*types.Guest) {
		if call == 2 {
			guests[guest.ID].MessagingConfirmationSent = true
		}
	}

	res, err := f.svc.DispatchConfirmations(context.Background(), guest.ID, fullRequest())
	if err != nil {
		t.Fatalf("DispatchConfirmations: %v", err)
	}
	if !res.Sent.Email || res.Sent.Messaging {
		t.Fatalf("sent=%+v, want email only", res.Sent)
	}
	if len(f.message.calls) != 0 {
		t.Fatalf("messaging sent despite concurrent flag")
	}
	if !res.MessagingConfirmationSent {
		t.Fatalf("result should report the concurrently-set messaging flag")
	}
}

func TestDispatchGuestNotFound(t *testing.T) {
	f := newDispatchFixture(t)

	_, err := f.svc.DispatchConfirmations(context.Background(), uuid.New(), fullRequest())
	if !errors.Is(err, ErrGuestNotFound) {
		t.Fatalf("err=%v, want ErrGuestNotFound", err)
	}

	_, err = f.svc.DispatchConfirmations(context.Background(), uuid.Nil, fullRequest())
	if !errors.Is(err, ErrGuestNotFound) {
		t.Fatalf("nil id err=%v, want ErrGuestNotFound", err)
	}
}

func TestDispatchContactUpdateRace(t *testing.T) {
	guest := attendingGuest()
	f := newDispatchFixture(t, guest)
	f.repo.failContactUpdate = true

	req := fullRequest()
	req.Email = strPtr("new@example.com")
	_, err := f.svc.DispatchConfirmations(context.Background(), guest.ID, req)
	if !errors.Is(err, ErrContactUpdateFailed) {
		t.Fatalf("err=%v, want ErrContactUpdateFailed", err)
	}
	if len(f.email.calls) != 0 || len(f.message.calls) != 0 {
		t.Fatalf("sends attempted after failed contact update")
	}
}

func TestDispatchContactOverrideTargetsNewAddress(t *testing.T) {
	guest := attendingGuest()
	f := newDispatchFixture(t, guest)

	req := fullRequest()
	req.Email = strPtr("corrected@example.com")
	req.Phone = strPtr("0244999888")

	res, err := f.svc.DispatchConfirmations(context.Background(), guest.ID, req)
	if err != nil {
		t.Fatalf("DispatchConfirmations: %v", err)
	}
	if !res.Sent.Email || !res.Sent.Messaging {
		t.Fatalf("sent=%+v, want both", res.Sent)
	}
	if got := f.email.calls[0].ToAddress; got != "corrected@example.com" {
		t.Fatalf("email went to %q, want the override", got)
	}
	if got := f.message.calls[0].PhoneE164; got != "+233244999888" {
		t.Fatalf("message went to %q, want the normalized override", got)
	}
	stored := f.repo.guests[guest.ID]
	if stored.Phone == nil || *stored.Phone != "+233244999888" {
		t.Fatalf("stored phone=%v, want normalized override persisted", stored.Phone)
	}
}

func TestDispatchInvalidPhoneOverride(t *testing.T) {
	guest := attendingGuest()
	f := newDispatchFixture(t, guest)

	req := fullRequest()
	req.Phone = strPtr("not-a-number")
	_, err := f.svc.DispatchConfirmations(context.Background(), guest.ID, req)
	if !errors.Is(err, phone.ErrInvalidPhoneNumber) {
		t.Fatalf("err=%v, want ErrInvalidPhoneNumber", err)
	}
	if len(f.email.calls) != 0 || len(f.message.calls) != 0 {
		t.Fatalf("sends attempted with invalid phone override")
	}
	if stored := f.repo.guests[guest.ID]; stored.EmailConfirmationSent {
		t.Fatalf("flag set despite rejected request")
	}
}

func TestDispatchMissingEmailPayload(t *testing.T) {
	guest := attendingGuest()
	f := newDispatchFixture(t, guest)

	req := fullRequest()
	req.VenueAddress = ""
	req.GuideURL = ""
	_, err := f.svc.DispatchConfirmations(context.Background(), guest.ID, req)
	var mpe *MissingPayloadError
	if !errors.As(err, &mpe) || mpe.Channel != ChannelEmail {
		t.Fatalf("err=%v, want email MissingPayloadError", err)
	}
	if len(mpe.Fields) != 2 {
		t.Fatalf("fields=%v, want the two blank ones", mpe.Fields)
	}
	if len(f.email.calls) != 0 {
		t.Fatalf("email attempted with incomplete payload")
	}
}

func TestDispatchMissingRSVPLinkForAttending(t *testing.T) {
	guest := attendingGuest()
	guest.EmailConfirmationSent = true // only messaging is still owed
	f := newDispatchFixture(t, guest)

	req := fullRequest()
	req.RSVPLink = ""
	_, err := f.svc.DispatchConfirmations(context.Background(), guest.ID, req)
	var mpe *MissingPayloadError
	if !errors.As(err, &mpe) || mpe.Channel != ChannelMessaging {
		t.Fatalf("err=%v, want messaging MissingPayloadError", err)
	}
}

func TestDispatchDeclinedGuestSendsNothing(t *testing.T) {
	guest := attendingGuest()
	guest.Attending = boolPtr(false)
	f := newDispatchFixture(t, guest)

	res, err := f.svc.DispatchConfirmations(context.Background(), guest.ID, fullRequest())
	if err != nil {
		t.Fatalf("DispatchConfirmations: %v", err)
	}
	if res.Sent.Email || res.Sent.Messaging {
		t.Fatalf("sent=%+v for declined guest", res.Sent)
	}
	if res.Seats != 0 {
		t.Fatalf("seats=%d for declined party of one, want 0", res.Seats)
	}
	if res.Attending == nil || *res.Attending {
		t.Fatalf("attending=%v, want false", res.Attending)
	}
}

func TestDispatchOverridesPersistWhenNothingToSend(t *testing.T) {
	guest := attendingGuest()
	guest.Attending = nil // unanswered, gate stays closed
	f := newDispatchFixture(t, guest)

	req := fullRequest()
	req.Email = strPtr("kept@example.com")
	res, err := f.svc.DispatchConfirmations(context.Background(), guest.ID, req)
	if err != nil {
		t.Fatalf("DispatchConfirmations: %v", err)
	}
	if res.Sent.Email || res.Sent.Messaging {
		t.Fatalf("sent=%+v, want neither", res.Sent)
	}
	stored := f.repo.guests[guest.ID]
	if stored.Email == nil || *stored.Email != "kept@example.com" {
		t.Fatalf("contact override not persisted: %v", stored.Email)
	}
}

func TestDispatchPartyMemberLocksOnlyViaPartyQuery(t *testing.T) {
	guest := attendingGuest()
	partyID := uuid.New()
	guest.PartyID = &partyID
	sibling := &types.Guest{
		ID:        uuid.New(),
		PartyID:   &partyID,
		FirstName: "Kofi",
		Attending: boolPtr(true),
	}
	f := newDispatchFixture(t, guest, sibling)

	if _, err := f.svc.DispatchConfirmations(context.Background(), guest.ID, fullRequest()); err != nil {
		t.Fatalf("DispatchConfirmations: %v", err)
	}

	// Every lock for an assigned guest must come from the id-ordered party
	// query; a target-row lock first would break the global lock order and
	// let sibling dispatches deadlock. One acquisition per transaction.
	want := []string{"party", "party"}
	if len(f.repo.lockLog) != len(want) {
		t.Fatalf("lock log=%v, want %v", f.repo.lockLog, want)
	}
	for i, l := range f.repo.lockLog {
		if l != want[i] {
			t.Fatalf("lock log=%v, want %v", f.repo.lockLog, want)
		}
	}
}

func TestDispatchMessagingSeatCountRecomputed(t *testing.T) {
	guest := attendingGuest()
	partyID := uuid.New()
	guest.PartyID = &partyID
	sibling := &types.Guest{
		ID:        uuid.New(),
		PartyID:   &partyID,
		FirstName: "Kofi",
		Attending: boolPtr(true),
	}
	f := newDispatchFixture(t, guest, sibling)

	// The sibling declines in the gap between the email sub-commit and the
	// messaging transaction's re-lock.
	f.repo.partyHook = func(call int, guests map[uuid.UUID]*types.Guest) {
		if call == 2 {
			guests[sibling.ID].Attending = boolPtr(false)
		}
	}

	res, err := f.svc.DispatchConfirmations(context.Background(), guest.ID, fullRequest())
	if err != nil {
		t.Fatalf("DispatchConfirmations: %v", err)
	}

	// Ama + plus-one + Kofi when the email went out.
	if got := f.email.calls[0].Seats; got != 3 {
		t.Fatalf("email seats=%d, want 3", got)
	}
	// Kofi had declined by the time the message went out.
	if got := f.message.calls[0].Seats; got != 2 {
		t.Fatalf("message seats=%d, want 2", got)
	}
	if res.Seats != 2 {
		t.Fatalf("result seats=%d, want the re-aggregated 2", res.Seats)
	}
}

func TestDispatchHonorsChannelOptOut(t *testing.T) {
	guest := attendingGuest()
	f := newDispatchFixture(t, guest)

	req := fullRequest()
	req.SendEmailIfNeeded = boolPtr(false)
	res, err := f.svc.DispatchConfirmations(context.Background(), guest.ID, req)
	if err != nil {
		t.Fatalf("DispatchConfirmations: %v", err)
	}
	if res.Sent.Email || !res.Sent.Messaging {
		t.Fatalf("sent=%+v, want messaging only", res.Sent)
	}
	if res.EmailConfirmationSent {
		t.Fatalf("email flag set despite opt-out")
	}
	if len(f.email.calls) != 0 {
		t.Fatalf("email sent despite opt-out")
	}
}
