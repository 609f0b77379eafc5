package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"nursera-booking-server/config"
	"nursera-booking-server/internal/delivery/dto"
	"nursera-booking-server/internal/domain/entity"
	"nursera-booking-server/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeConn substitutes the database seam: reads get a nil handle (the fake
// repositories ignore it) and "transactions" are plain function calls.
type fakeConn struct{}

func (fakeConn) Session(ctx context.Context) *gorm.DB { return nil }

func (fakeConn) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// memStore holds the shared in-memory tables behind the repository fakes
type memStore struct {
	mu       sync.Mutex
	patients map[string]entity.Patient
	medics   map[uuid.UUID]entity.Medic
	bookings map[uuid.UUID]entity.Booking
}

func newMemStore() *memStore {
	return &memStore{
		patients: make(map[string]entity.Patient),
		medics:   make(map[uuid.UUID]entity.Medic),
		bookings: make(map[uuid.UUID]entity.Booking),
	}
}

type fakeBookingRepo struct {
	store     *memStore
	createErr error
}

func (r *fakeBookingRepo) Create(db *gorm.DB, booking *entity.Booking) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	r.store.bookings[booking.ID] = *booking
	return nil
}

func (r *fakeBookingRepo) Save(db *gorm.DB, booking *entity.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.bookings[booking.ID] = *booking
	return nil
}

func (r *fakeBookingRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	booking, ok := r.store.bookings[id]
	if !ok {
		return nil, nil
	}
	return &booking, nil
}

func (r *fakeBookingRepo) FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Booking, error) {
	return r.FindByID(db, id)
}

func (r *fakeBookingRepo) FindAll(db *gorm.DB) ([]entity.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var bookings []entity.Booking
	for _, b := range r.store.bookings {
		bookings = append(bookings, b)
	}
	sortNewestFirst(bookings)
	return bookings, nil
}

func (r *fakeBookingRepo) FindActiveByPatientEmail(db *gorm.DB, email string) ([]entity.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	patient, ok := r.store.patients[email]
	if !ok {
		return nil, nil
	}
	var bookings []entity.Booking
	for _, b := range r.store.bookings {
		if b.PatientID == patient.ID && b.IsActive() {
			bookings = append(bookings, b)
		}
	}
	sortNewestFirst(bookings)
	return bookings, nil
}

func (r *fakeBookingRepo) FindActiveByMedicEmail(db *gorm.DB, email string) ([]entity.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var bookings []entity.Booking
	for _, b := range r.store.bookings {
		medic, ok := r.store.medics[b.MedicID]
		if ok && medic.Email == email && b.IsActive() {
			bookings = append(bookings, b)
		}
	}
	sortNewestFirst(bookings)
	return bookings, nil
}

func (r *fakeBookingRepo) CountActiveByMedicID(db *gorm.DB, medicID uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for _, b := range r.store.bookings {
		if b.MedicID == medicID && !b.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (r *fakeBookingRepo) FindExpiredIDs(db *gorm.DB, now time.Time, limit int) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var ids []uuid.UUID
	for _, b := range r.store.bookings {
		if b.Expired(now) && len(ids) < limit {
			ids = append(ids, b.ID)
		}
	}
	return ids, nil
}

func sortNewestFirst(bookings []entity.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
}

type fakeMedicRepo struct {
	store *memStore
}

func (r *fakeMedicRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Medic, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	medic, ok := r.store.medics[id]
	if !ok {
		return nil, nil
	}
	return &medic, nil
}

func (r *fakeMedicRepo) FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Medic, error) {
	return r.FindByID(db, id)
}

func (r *fakeMedicRepo) FindByIDAndEmail(db *gorm.DB, id uuid.UUID, email string) (*entity.Medic, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	medic, ok := r.store.medics[id]
	if !ok || medic.Email != email {
		return nil, nil
	}
	return &medic, nil
}

func (r *fakeMedicRepo) FindAll(db *gorm.DB) ([]entity.Medic, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var medics []entity.Medic
	for _, m := range r.store.medics {
		medics = append(medics, m)
	}
	return medics, nil
}

func (r *fakeMedicRepo) UpdateAvailability(db *gorm.DB, id uuid.UUID, available bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	medic, ok := r.store.medics[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	medic.Available = available
	r.store.medics[id] = medic
	return nil
}

type fakePatientRepo struct {
	store *memStore
}

func (r *fakePatientRepo) FindByEmail(db *gorm.DB, email string) (*entity.Patient, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	patient, ok := r.store.patients[email]
	if !ok {
		return nil, nil
	}
	return &patient, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) PublishBookingUpdate(ctx context.Context, bookingID uuid.UUID, eventType, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *recordingNotifier) published() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type recordingSMS struct {
	mu   sync.Mutex
	to   []string
	body []string
}

func (s *recordingSMS) Send(ctx context.Context, phoneNumber, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = append(s.to, phoneNumber)
	s.body = append(s.body, message)
	return nil
}

func (s *recordingSMS) sent() ([]string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.to...), append([]string(nil), s.body...)
}

type usecaseFixture struct {
	store       *memStore
	bookingRepo *fakeBookingRepo
	ledger      *service.AvailabilityLedger
	notifier    *recordingNotifier
	sms         *recordingSMS
	booking     *bookingUsecase
	medic       *medicUsecase
}

func newUsecaseFixture(t *testing.T) *usecaseFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logrus.New()
	store := newMemStore()
	bookingRepo := &fakeBookingRepo{store: store}
	medicRepo := &fakeMedicRepo{store: store}
	patientRepo := &fakePatientRepo{store: store}
	ledger := service.NewAvailabilityLedger(nil, client, log)
	notifier := &recordingNotifier{}
	sms := &recordingSMS{}

	return &usecaseFixture{
		store:       store,
		bookingRepo: bookingRepo,
		ledger:      ledger,
		notifier:    notifier,
		sms:         sms,
		booking: &bookingUsecase{
			conn:        fakeConn{},
			log:         log,
			cfg:         config.BookingConfig{},
			bookingRepo: bookingRepo,
			medicRepo:   medicRepo,
			patientRepo: patientRepo,
			ledger:      ledger,
			notifier:    notifier,
			smsSender:   sms,
		},
		medic: &medicUsecase{
			conn:        fakeConn{},
			log:         log,
			medicRepo:   medicRepo,
			bookingRepo: bookingRepo,
			ledger:      ledger,
		},
	}
}

func (f *usecaseFixture) seedPatient(t *testing.T, email string) entity.Patient {
	t.Helper()
	patient := entity.Patient{ID: uuid.New(), Email: email}
	f.store.mu.Lock()
	f.store.patients[email] = patient
	f.store.mu.Unlock()
	return patient
}

// seedMedic writes the medic into the store and mirrors the flag into redis
func (f *usecaseFixture) seedMedic(t *testing.T, available bool) entity.Medic {
	t.Helper()
	id := uuid.New()
	medic := entity.Medic{
		ID:          id,
		Name:        "Test Medic",
		Email:       id.String() + "@medic.example.com",
		PhoneNumber: "+15557654321",
		Available:   available,
	}
	f.store.mu.Lock()
	f.store.medics[medic.ID] = medic
	f.store.mu.Unlock()
	require.NoError(t, f.ledger.Set(context.Background(), medic.ID, available))
	return medic
}

func (f *usecaseFixture) medicFlag(t *testing.T, id uuid.UUID) bool {
	t.Helper()
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	medic, ok := f.store.medics[id]
	require.True(t, ok)
	return medic.Available
}

func (f *usecaseFixture) storedBooking(t *testing.T, id uuid.UUID) entity.Booking {
	t.Helper()
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	booking, ok := f.store.bookings[id]
	require.True(t, ok)
	return booking
}

func (f *usecaseFixture) ledgerAvailable(t *testing.T, id uuid.UUID) bool {
	t.Helper()
	available, err := f.ledger.IsAvailable(context.Background(), id)
	require.NoError(t, err)
	return available
}

func initiateRequest(patient entity.Patient, medic entity.Medic) *dto.InitiateBookingRequest {
	lat, lng := -1.28, 36.82
	return &dto.InitiateBookingRequest{PatientEmail: patient.Email, MedicID: medic.ID, Latitude: &lat, Longitude: &lng}
}

func TestInitiateBookingReservesMedic(t *testing.T) {
	f := newUsecaseFixture(t)
	ctx := context.Background()
	patient := f.seedPatient(t, "jane@example.com")
	medic := f.seedMedic(t, true)

	resp, err := f.booking.InitiateBooking(ctx, initiateRequest(patient, medic))
	require.NoError(t, err)
	assert.Equal(t, string(entity.BookingStatusInitiated), resp.Status)
	assert.Equal(t, medic.ID, resp.MedicID)

	// The reservation lands everywhere: DB flag, ledger slot, booking row
	assert.False(t, f.medicFlag(t, medic.ID))
	assert.False(t, f.ledgerAvailable(t, medic.ID))
	assert.Equal(t, entity.BookingStatusInitiated, f.storedBooking(t, resp.ID).Status)

	// The medic is now unbookable
	_, err = f.booking.InitiateBooking(ctx, initiateRequest(patient, medic))
	assert.ErrorIs(t, err, ErrMedicUnavailable)
}

func TestInitiateBookingUnknownParties(t *testing.T) {
	f := newUsecaseFixture(t)
	ctx := context.Background()
	medic := f.seedMedic(t, true)

	_, err := f.booking.InitiateBooking(ctx, initiateRequest(entity.Patient{Email: "nobody@example.com"}, medic))
	assert.ErrorIs(t, err, ErrPatientNotFound)

	patient := f.seedPatient(t, "jane@example.com")
	_, err = f.booking.InitiateBooking(ctx, initiateRequest(patient, entity.Medic{ID: uuid.New()}))
	assert.ErrorIs(t, err, ErrMedicNotFound)
}

func TestInitiateBookingCompensatesOnInsertFailure(t *testing.T) {
	f := newUsecaseFixture(t)
	ctx := context.Background()
	patient := f.seedPatient(t, "jane@example.com")
	medic := f.seedMedic(t, true)
	f.bookingRepo.createErr = errors.New("insert failed")

	_, err := f.booking.InitiateBooking(ctx, initiateRequest(patient, medic))
	require.Error(t, err)

	// No booking landed, the DB flag was never flipped, and the slot claimed
	// in redis was handed back
	assert.Empty(t, f.store.bookings)
	assert.True(t, f.medicFlag(t, medic.ID))
	assert.True(t, f.ledgerAvailable(t, medic.ID))

	// The medic is immediately bookable again
	f.bookingRepo.createErr = nil
	_, err = f.booking.InitiateBooking(ctx, initiateRequest(patient, medic))
	assert.NoError(t, err)
}

func TestInitiateBookingMirrorsStaleLedger(t *testing.T) {
	f := newUsecaseFixture(t)
	ctx := context.Background()
	patient := f.seedPatient(t, "jane@example.com")
	medic := f.seedMedic(t, false)

	// Drift: redis says bookable while the row says taken
	require.NoError(t, f.ledger.Set(ctx, medic.ID, true))

	_, err := f.booking.InitiateBooking(ctx, initiateRequest(patient, medic))
	assert.ErrorIs(t, err, ErrMedicUnavailable)

	// The row is authoritative, so the ledger now agrees with it instead of
	// advertising the medic again
	assert.False(t, f.ledgerAvailable(t, medic.ID))
}

func TestBookingLifecycleFlow(t *testing.T) {
	f := newUsecaseFixture(t)
	ctx := context.Background()
	patient := f.seedPatient(t, "jane@example.com")
	medic := f.seedMedic(t, true)

	created, err := f.booking.InitiateBooking(ctx, initiateRequest(patient, medic))
	require.NoError(t, err)

	lat, lng := -1.30, 36.80
	shared, err := f.booking.ShareLocation(ctx, created.ID, &dto.ShareLocationRequest{
		Latitude:    &lat,
		Longitude:   &lng,
		ExtraFields: map[string]interface{}{"notes": "gate code 4"},
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.BookingStatusLocationShared), shared.Status)
	require.NotNil(t, shared.OTP)
	require.Len(t, *shared.OTP, 4)
	assert.Contains(t, f.notifier.published(), "Location shared by patient")

	// The medic stays reserved through the handshake
	assert.False(t, f.medicFlag(t, medic.ID))

	// OTP delivery is async and goes to the medic's phone
	require.Eventually(t, func() bool {
		to, _ := f.sms.sent()
		return len(to) == 1
	}, 2*time.Second, 10*time.Millisecond)
	to, bodies := f.sms.sent()
	assert.Equal(t, medic.PhoneNumber, to[0])
	assert.Contains(t, bodies[0], *shared.OTP)

	// The wrong code changes nothing
	err = f.booking.ConfirmBooking(ctx, created.ID, "0000")
	assert.ErrorIs(t, err, ErrInvalidOTP)
	assert.Equal(t, entity.BookingStatusLocationShared, f.storedBooking(t, created.ID).Status)
	assert.False(t, f.medicFlag(t, medic.ID))

	// The right one confirms and frees the medic
	require.NoError(t, f.booking.ConfirmBooking(ctx, created.ID, *shared.OTP))
	assert.Equal(t, entity.BookingStatusConfirmed, f.storedBooking(t, created.ID).Status)
	assert.True(t, f.medicFlag(t, medic.ID))
	assert.True(t, f.ledgerAvailable(t, medic.ID))
	assert.Contains(t, f.notifier.published(), "Booking confirmed and completed.")

	// Confirming twice is rejected: the state already moved on
	assert.ErrorIs(t, f.booking.ConfirmBooking(ctx, created.ID, *shared.OTP), ErrInvalidBookingState)

	require.NoError(t, f.booking.CompleteBooking(ctx, created.ID))
	assert.Equal(t, entity.BookingStatusCompleted, f.storedBooking(t, created.ID).Status)

	// Completing an already completed booking is a no-op
	assert.NoError(t, f.booking.CompleteBooking(ctx, created.ID))
}

func TestShareLocationIssuesOTPOnce(t *testing.T) {
	f := newUsecaseFixture(t)
	ctx := context.Background()
	patient := f.seedPatient(t, "jane@example.com")
	medic := f.seedMedic(t, true)

	created, err := f.booking.InitiateBooking(ctx, initiateRequest(patient, medic))
	require.NoError(t, err)

	lat, lng := -1.30, 36.80
	shared, err := f.booking.ShareLocation(ctx, created.ID, &dto.ShareLocationRequest{Latitude: &lat, Longitude: &lng})
	require.NoError(t, err)
	require.NotNil(t, shared.OTP)
	issued := *shared.OTP

	// A second share is rejected and the stored code survives
	_, err = f.booking.ShareLocation(ctx, created.ID, &dto.ShareLocationRequest{Latitude: &lat, Longitude: &lng})
	assert.ErrorIs(t, err, ErrInvalidBookingState)

	stored := f.storedBooking(t, created.ID)
	require.NotNil(t, stored.OTP)
	assert.Equal(t, issued, *stored.OTP)
}

func TestCancelBookingRestoresAvailability(t *testing.T) {
	f := newUsecaseFixture(t)
	ctx := context.Background()
	patient := f.seedPatient(t, "jane@example.com")
	medic := f.seedMedic(t, true)

	created, err := f.booking.InitiateBooking(ctx, initiateRequest(patient, medic))
	require.NoError(t, err)

	require.NoError(t, f.booking.CancelBooking(ctx, created.ID))
	assert.Equal(t, entity.BookingStatusCancelled, f.storedBooking(t, created.ID).Status)
	assert.True(t, f.medicFlag(t, medic.ID))
	assert.True(t, f.ledgerAvailable(t, medic.ID))

	// Cancelling a terminal booking is a no-op
	assert.NoError(t, f.booking.CancelBooking(ctx, created.ID))
	assert.Equal(t, entity.BookingStatusCancelled, f.storedBooking(t, created.ID).Status)

	// Unknown bookings are reported as such
	assert.ErrorIs(t, f.booking.CancelBooking(ctx, uuid.New()), ErrBookingNotFound)
}

func TestResolveRecentActiveSupersedesOlder(t *testing.T) {
	f := newUsecaseFixture(t)
	ctx := context.Background()
	patient := f.seedPatient(t, "jane@example.com")
	oldMedic := f.seedMedic(t, true)
	newMedic := f.seedMedic(t, true)

	older, err := f.booking.InitiateBooking(ctx, initiateRequest(patient, oldMedic))
	require.NoError(t, err)

	// Force distinct creation times so ordering is deterministic
	stale := f.storedBooking(t, older.ID)
	stale.CreatedAt = stale.CreatedAt.Add(-time.Hour)
	require.NoError(t, f.bookingRepo.Save(nil, &stale))

	newest, err := f.booking.InitiateBooking(ctx, initiateRequest(patient, newMedic))
	require.NoError(t, err)

	resolved, err := f.booking.ResolveRecentActive(ctx, patient.Email, PartyPatient)
	require.NoError(t, err)
	assert.Equal(t, newest.ID, resolved.ID)

	// The older booking went through the normal cancel path, freeing its medic
	assert.Equal(t, entity.BookingStatusCancelled, f.storedBooking(t, older.ID).Status)
	assert.True(t, f.medicFlag(t, oldMedic.ID))
	assert.True(t, f.ledgerAvailable(t, oldMedic.ID))

	// The surviving booking and its medic are untouched
	assert.Equal(t, entity.BookingStatusInitiated, f.storedBooking(t, newest.ID).Status)
	assert.False(t, f.medicFlag(t, newMedic.ID))

	// With nothing left active for another patient, resolution reports it
	_, err = f.booking.ResolveRecentActive(ctx, "nobody@example.com", PartyPatient)
	assert.ErrorIs(t, err, ErrNoActiveBookings)
}

func TestResolveRecentActiveByMedic(t *testing.T) {
	f := newUsecaseFixture(t)
	ctx := context.Background()
	patient := f.seedPatient(t, "jane@example.com")
	medic := f.seedMedic(t, true)

	created, err := f.booking.InitiateBooking(ctx, initiateRequest(patient, medic))
	require.NoError(t, err)

	resolved, err := f.booking.ResolveRecentActive(ctx, medic.Email, PartyMedic)
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)
}
