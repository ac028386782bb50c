package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-service/api"
	"booking-service/internal/calendar"
	"booking-service/internal/civildate"
	"booking-service/internal/config"
	"booking-service/internal/magiclink"
	"booking-service/internal/models"
	"booking-service/internal/storage/kv"
	"booking-service/pkg/response"
)

// fakeStore serves the operations exercised here from memory. Transactional
// methods are stubbed out; booking create/reschedule paths that reach them are
// covered by integration tests against a real database.
type fakeStore struct {
	provider      *models.Provider
	template      *models.AvailabilityTemplate
	locations     []*models.ProviderLocation
	schedules     []*models.AdvancedAvailabilitySchedule
	bookings      map[string]*models.Booking
	statusUpdates []models.BookingStatus
	deleted       []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		provider: &models.Provider{
			ID:                     "prov-1",
			Name:                   "Dr. Rivera",
			Email:                  "rivera@example.com",
			AllowedDurations:       []int{30, 60},
			AdvanceBookingDays:     30,
			DefaultDurationMinutes: 30,
		},
		bookings: make(map[string]*models.Booking),
	}
}

func (f *fakeStore) addBooking(b *models.Booking) *models.Booking {
	f.bookings[b.ID] = b
	return b
}

func (f *fakeStore) BeginTx(context.Context) (*sql.Tx, error) { return nil, nil }

func (f *fakeStore) GetProvider(_ context.Context, id string) (*models.Provider, error) {
	if f.provider != nil && f.provider.ID == id {
		return f.provider, nil
	}
	return nil, response.ErrNotFound
}

func (f *fakeStore) CreateAvailabilityTemplate(context.Context, *sql.Tx, *models.AvailabilityTemplate) (string, error) {
	return "", nil
}

func (f *fakeStore) GetAvailabilityTemplate(_ context.Context, id string) (*models.AvailabilityTemplate, error) {
	if f.template != nil && f.template.ID == id {
		return f.template, nil
	}
	return nil, response.ErrNotFound
}

func (f *fakeStore) GetDefaultTemplate(_ context.Context, providerID string) (*models.AvailabilityTemplate, error) {
	if f.template != nil && f.template.ProviderID == providerID {
		return f.template, nil
	}
	return nil, response.ErrNotFound
}

func (f *fakeStore) UpdateAvailabilityTemplate(context.Context, *models.AvailabilityTemplate) error {
	return nil
}
func (f *fakeStore) DeleteAvailabilityTemplate(context.Context, string) error    { return nil }
func (f *fakeStore) ClearDefaultTemplates(context.Context, *sql.Tx, string) error { return nil }

func (f *fakeStore) CreateProviderLocation(context.Context, *sql.Tx, *models.ProviderLocation) (string, error) {
	return "", nil
}
func (f *fakeStore) GetProviderLocation(context.Context, string) (*models.ProviderLocation, error) {
	return nil, response.ErrNotFound
}

func (f *fakeStore) ListProviderLocations(context.Context, string) ([]*models.ProviderLocation, error) {
	return f.locations, nil
}

func (f *fakeStore) UpdateProviderLocation(context.Context, *models.ProviderLocation) error { return nil }
func (f *fakeStore) DeleteProviderLocation(context.Context, string) error                   { return nil }
func (f *fakeStore) ClearDefaultLocations(context.Context, *sql.Tx, string) error           { return nil }

func (f *fakeStore) CreateAdvancedSchedule(context.Context, *models.AdvancedAvailabilitySchedule) (string, error) {
	return "", nil
}
func (f *fakeStore) GetAdvancedSchedule(context.Context, string) (*models.AdvancedAvailabilitySchedule, error) {
	return nil, response.ErrNotFound
}

func (f *fakeStore) ListAdvancedSchedules(context.Context, string) ([]*models.AdvancedAvailabilitySchedule, error) {
	return f.schedules, nil
}

func (f *fakeStore) UpdateAdvancedSchedule(context.Context, *models.AdvancedAvailabilitySchedule) error {
	return nil
}
func (f *fakeStore) DeleteAdvancedSchedule(context.Context, string) error { return nil }

func (f *fakeStore) CreateBooking(context.Context, *sql.Tx, *models.Booking) (string, error) {
	return "", nil
}

func (f *fakeStore) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	if b, ok := f.bookings[id]; ok {
		return b, nil
	}
	return nil, response.ErrNotFound
}

func (f *fakeStore) ListBookingsInRange(_ context.Context, providerID string, from, to time.Time) ([]*models.Booking, error) {
	var result []*models.Booking
	for _, b := range f.bookings {
		if b.ProviderID != providerID || b.Status == models.BookingCancelled {
			continue
		}
		if b.ScheduledAt.Before(to) && b.End().After(from) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (f *fakeStore) CountOverlappingBookings(context.Context, *sql.Tx, string, time.Time, time.Time, string) (int, error) {
	return 0, nil
}

func (f *fakeStore) UpdateBookingStatus(_ context.Context, bookingID string, status models.BookingStatus) error {
	b, ok := f.bookings[bookingID]
	if !ok {
		return response.ErrNotFound
	}
	b.Status = status
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

func (f *fakeStore) UpdateBookingSchedule(context.Context, *sql.Tx, string, time.Time, models.BookingStatus) error {
	return nil
}

func (f *fakeStore) DeleteBooking(_ context.Context, bookingID string) error {
	if _, ok := f.bookings[bookingID]; !ok {
		return response.ErrNotFound
	}
	delete(f.bookings, bookingID)
	f.deleted = append(f.deleted, bookingID)
	return nil
}

func (f *fakeStore) CreateCalendarConnection(context.Context, *sql.Tx, *models.CalendarConnection) (string, error) {
	return "", nil
}
func (f *fakeStore) GetCalendarConnection(context.Context, string) (*models.CalendarConnection, error) {
	return nil, response.ErrNotFound
}
func (f *fakeStore) ListCalendarConnections(context.Context, string) ([]*models.CalendarConnection, error) {
	return nil, nil
}
func (f *fakeStore) GetDefaultCalendarConnection(context.Context, string) (*models.CalendarConnection, error) {
	return nil, response.ErrNotFound
}
func (f *fakeStore) UpdateCalendarConnectionTokens(context.Context, *models.CalendarConnection) error {
	return nil
}
func (f *fakeStore) ClearDefaultCalendarConnections(context.Context, *sql.Tx, string) error {
	return nil
}
func (f *fakeStore) SetDefaultCalendarConnection(context.Context, *sql.Tx, string) error { return nil }
func (f *fakeStore) DeleteCalendarConnection(context.Context, string) error              { return nil }

type fakeLocker struct {
	denied bool
	keys   []string
}

func (f *fakeLocker) Lock(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return !f.denied, nil
}
func (f *fakeLocker) Unlock(context.Context, string) error { return nil }

type recordingNotifier struct {
	confirmed   []string
	cancelled   []string
	rescheduled []string
	recipients  []string
}

func (n *recordingNotifier) BookingConfirmed(_ context.Context, b *models.Booking, recipient string) {
	n.confirmed = append(n.confirmed, b.ID)
	n.recipients = append(n.recipients, recipient)
}

func (n *recordingNotifier) BookingCancelled(_ context.Context, b *models.Booking, recipient string) {
	n.cancelled = append(n.cancelled, b.ID)
	n.recipients = append(n.recipients, recipient)
}

func (n *recordingNotifier) BookingRescheduled(_ context.Context, b *models.Booking, recipient string) {
	n.rescheduled = append(n.rescheduled, b.ID)
	n.recipients = append(n.recipients, recipient)
}

func newTestService(store *fakeStore, notifier *recordingNotifier) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	counters := kv.NewMemory()
	magic := magiclink.New("test-secret", time.Hour, counters)

	return NewService(
		log,
		store,
		&fakeLocker{},
		calendar.NewRegistry(config.Calendar{}),
		notifier,
		magic,
		counters,
		time.UTC,
		"test-secret",
		3,
	)
}

func pendingBooking(id string) *models.Booking {
	return &models.Booking{
		ID:              id,
		ProviderID:      "prov-1",
		CustomerName:    "Jordan Lee",
		CustomerEmail:   "jordan@example.com",
		ScheduledAt:     time.Now().Add(48 * time.Hour).Truncate(time.Minute),
		DurationMinutes: 30,
		ServiceType:     "Consultation",
		Status:          models.BookingPending,
	}
}

func TestConfirmBooking(t *testing.T) {
	t.Run("pending becomes confirmed and notifies", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(pendingBooking("bk-1"))
		notifier := &recordingNotifier{}
		svc := newTestService(store, notifier)

		got, err := svc.ConfirmBooking(context.Background(), "bk-1")
		require.NoError(t, err)

		assert.Equal(t, string(models.BookingConfirmed), got.Status)
		assert.Equal(t, []string{"bk-1"}, notifier.confirmed)
		// the provider confirmed, so the customer hears about it
		assert.Equal(t, []string{"jordan@example.com"}, notifier.recipients)
	})

	t.Run("already confirmed is a no-op", func(t *testing.T) {
		store := newFakeStore()
		b := pendingBooking("bk-1")
		b.Status = models.BookingConfirmed
		store.addBooking(b)
		notifier := &recordingNotifier{}
		svc := newTestService(store, notifier)

		got, err := svc.ConfirmBooking(context.Background(), "bk-1")
		require.NoError(t, err)

		assert.Equal(t, string(models.BookingConfirmed), got.Status)
		assert.Empty(t, store.statusUpdates)
		assert.Empty(t, notifier.confirmed)
	})

	t.Run("cancelled cannot be confirmed", func(t *testing.T) {
		store := newFakeStore()
		b := pendingBooking("bk-1")
		b.Status = models.BookingCancelled
		store.addBooking(b)
		svc := newTestService(store, &recordingNotifier{})

		_, err := svc.ConfirmBooking(context.Background(), "bk-1")
		assert.ErrorIs(t, err, response.ErrConflict)
	})

	t.Run("unknown booking", func(t *testing.T) {
		svc := newTestService(newFakeStore(), &recordingNotifier{})

		_, err := svc.ConfirmBooking(context.Background(), "missing")
		assert.ErrorIs(t, err, response.ErrNotFound)
	})
}

func TestCancelBooking(t *testing.T) {
	t.Run("pending becomes cancelled", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(pendingBooking("bk-1"))
		notifier := &recordingNotifier{}
		svc := newTestService(store, notifier)

		got, err := svc.CancelBooking(context.Background(), "bk-1")
		require.NoError(t, err)

		assert.Equal(t, string(models.BookingCancelled), got.Status)
		assert.Equal(t, []string{"bk-1"}, notifier.cancelled)
		assert.Equal(t, []string{"jordan@example.com"}, notifier.recipients)
	})

	t.Run("cancelling twice succeeds without side effects", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(pendingBooking("bk-1"))
		notifier := &recordingNotifier{}
		svc := newTestService(store, notifier)

		_, err := svc.CancelBooking(context.Background(), "bk-1")
		require.NoError(t, err)

		got, err := svc.CancelBooking(context.Background(), "bk-1")
		require.NoError(t, err)

		assert.Equal(t, string(models.BookingCancelled), got.Status)
		assert.Len(t, store.statusUpdates, 1)
		assert.Len(t, notifier.cancelled, 1)
	})

	t.Run("completed cannot be cancelled", func(t *testing.T) {
		store := newFakeStore()
		b := pendingBooking("bk-1")
		b.Status = models.BookingCompleted
		store.addBooking(b)
		svc := newTestService(store, &recordingNotifier{})

		_, err := svc.CancelBooking(context.Background(), "bk-1")
		assert.ErrorIs(t, err, response.ErrConflict)
	})
}

func TestRescheduleBooking_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("cancelled booking cannot move", func(t *testing.T) {
		store := newFakeStore()
		b := pendingBooking("bk-1")
		b.Status = models.BookingCancelled
		store.addBooking(b)
		svc := newTestService(store, &recordingNotifier{})

		_, err := svc.RescheduleBooking(ctx, api.BookingRescheduleRequest{
			BookingID:      "bk-1",
			NewScheduledAt: gridStart().Format(time.RFC3339),
		})
		assert.ErrorIs(t, err, response.ErrConflict)
	})

	t.Run("new time must be in the future", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(pendingBooking("bk-1"))
		svc := newTestService(store, &recordingNotifier{})

		_, err := svc.RescheduleBooking(ctx, api.BookingRescheduleRequest{
			BookingID:      "bk-1",
			NewScheduledAt: time.Now().Add(-time.Hour).Format(time.RFC3339),
		})
		assert.ErrorIs(t, err, response.ErrBadRequest)
	})

	t.Run("own slot does not block the move", func(t *testing.T) {
		// Moving a booking within the same day must not collide with its own
		// current slot. The denied lock being reached proves the grid check
		// passed.
		store := newFakeStore()
		store.template = allDayTemplate()
		b := pendingBooking("bk-1")
		b.ScheduledAt = gridStart()
		store.addBooking(b)
		svc := newTestService(store, &recordingNotifier{})
		locker := &fakeLocker{denied: true}
		svc.locker = locker

		_, err := svc.RescheduleBooking(ctx, api.BookingRescheduleRequest{
			BookingID:      "bk-1",
			NewScheduledAt: gridStart().Format(time.RFC3339),
		})
		assert.ErrorIs(t, err, response.ErrSlotNotAvailable)
		assert.Len(t, locker.keys, 1)
	})
}

func TestCompleteBooking(t *testing.T) {
	t.Run("confirmed becomes completed", func(t *testing.T) {
		store := newFakeStore()
		b := pendingBooking("bk-1")
		b.Status = models.BookingConfirmed
		store.addBooking(b)
		svc := newTestService(store, &recordingNotifier{})

		got, err := svc.CompleteBooking(context.Background(), "bk-1")
		require.NoError(t, err)
		assert.Equal(t, string(models.BookingCompleted), got.Status)
	})

	t.Run("pending cannot skip to completed", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(pendingBooking("bk-1"))
		svc := newTestService(store, &recordingNotifier{})

		_, err := svc.CompleteBooking(context.Background(), "bk-1")
		assert.ErrorIs(t, err, response.ErrConflict)
	})

	t.Run("completing twice is a no-op", func(t *testing.T) {
		store := newFakeStore()
		b := pendingBooking("bk-1")
		b.Status = models.BookingCompleted
		store.addBooking(b)
		svc := newTestService(store, &recordingNotifier{})

		got, err := svc.CompleteBooking(context.Background(), "bk-1")
		require.NoError(t, err)
		assert.Equal(t, string(models.BookingCompleted), got.Status)
		assert.Empty(t, store.statusUpdates)
	})
}

func TestDeleteBooking(t *testing.T) {
	t.Run("live booking cannot be deleted", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(pendingBooking("bk-1"))
		svc := newTestService(store, &recordingNotifier{})

		err := svc.DeleteBooking(context.Background(), "bk-1")
		assert.ErrorIs(t, err, response.ErrConflict)
		assert.Empty(t, store.deleted)
	})

	t.Run("cancelled booking can be deleted", func(t *testing.T) {
		store := newFakeStore()
		b := pendingBooking("bk-1")
		b.Status = models.BookingCancelled
		store.addBooking(b)
		svc := newTestService(store, &recordingNotifier{})

		err := svc.DeleteBooking(context.Background(), "bk-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"bk-1"}, store.deleted)
	})
}

func TestCreateBooking_Validation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})
	ctx := context.Background()

	future := time.Now().Add(48 * time.Hour).Format(time.RFC3339)

	base := api.BookingRequest{
		ProviderID:      "prov-1",
		CustomerName:    "Jordan Lee",
		CustomerEmail:   "jordan@example.com",
		ScheduledAt:     future,
		DurationMinutes: 30,
	}

	t.Run("missing customer name", func(t *testing.T) {
		req := base
		req.CustomerName = ""
		_, err := svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, response.ErrBadRequest)
	})

	t.Run("malformed timestamp", func(t *testing.T) {
		req := base
		req.ScheduledAt = "tomorrow at noon"
		_, err := svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, response.ErrBadRequest)
	})

	t.Run("duration not offered", func(t *testing.T) {
		req := base
		req.DurationMinutes = 45
		_, err := svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, response.ErrBadRequest)
	})

	t.Run("past time", func(t *testing.T) {
		req := base
		req.ScheduledAt = time.Now().Add(-time.Hour).Format(time.RFC3339)
		_, err := svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, response.ErrBadRequest)
	})

	t.Run("beyond the booking window", func(t *testing.T) {
		req := base
		req.ScheduledAt = time.Now().AddDate(0, 0, 45).Format(time.RFC3339)
		_, err := svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, response.ErrBadRequest)
	})

	t.Run("unknown provider", func(t *testing.T) {
		req := base
		req.ProviderID = "prov-missing"
		_, err := svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, response.ErrNotFound)
	})
}

func allDayTemplate() *models.AvailabilityTemplate {
	weekly := make(models.WeeklyWindows)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		weekly[wd] = []models.TimeWindow{{Start: "00:00", End: "23:00"}}
	}
	return &models.AvailabilityTemplate{
		ID:                     "tmpl-1",
		ProviderID:             "prov-1",
		Timezone:               "UTC",
		Weekly:                 weekly,
		DefaultDurationMinutes: 30,
		IsDefault:              true,
		IsActive:               true,
	}
}

// gridStart is tomorrow at 10:00 UTC, which sits on the 30-minute grid of an
// all-day window.
func gridStart() time.Time {
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 10, 0, 0, 0, time.UTC)
}

func TestCreateBooking_SlotChecks(t *testing.T) {
	ctx := context.Background()

	req := api.BookingRequest{
		ProviderID:      "prov-1",
		CustomerName:    "Jordan Lee",
		CustomerEmail:   "jordan@example.com",
		ScheduledAt:     gridStart().Format(time.RFC3339),
		DurationMinutes: 30,
	}

	t.Run("no availability configured", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store, &recordingNotifier{})

		_, err := svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, response.ErrSlotNotAvailable)
	})

	t.Run("off-grid start is rejected", func(t *testing.T) {
		store := newFakeStore()
		store.template = allDayTemplate()
		svc := newTestService(store, &recordingNotifier{})

		offGrid := req
		offGrid.ScheduledAt = gridStart().Add(10 * time.Minute).Format(time.RFC3339)

		_, err := svc.CreateBooking(ctx, offGrid)
		assert.ErrorIs(t, err, response.ErrSlotNotAvailable)
	})

	t.Run("existing booking blocks the slot", func(t *testing.T) {
		store := newFakeStore()
		store.template = allDayTemplate()
		store.addBooking(&models.Booking{
			ID:              "bk-existing",
			ProviderID:      "prov-1",
			ScheduledAt:     gridStart(),
			DurationMinutes: 30,
			Status:          models.BookingConfirmed,
		})
		svc := newTestService(store, &recordingNotifier{})

		_, err := svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, response.ErrSlotNotAvailable)
	})

	t.Run("cancelled booking does not block", func(t *testing.T) {
		store := newFakeStore()
		store.template = allDayTemplate()
		store.addBooking(&models.Booking{
			ID:              "bk-cancelled",
			ProviderID:      "prov-1",
			ScheduledAt:     gridStart(),
			DurationMinutes: 30,
			Status:          models.BookingCancelled,
		})
		svc := newTestService(store, &recordingNotifier{})
		locker := &fakeLocker{denied: true}
		svc.locker = locker

		// the slot check passes, so the request reaches the lock
		_, err := svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, response.ErrSlotNotAvailable)
		assert.Len(t, locker.keys, 1)
	})

	t.Run("second writer loses as a slot conflict", func(t *testing.T) {
		store := newFakeStore()
		store.template = allDayTemplate()
		svc := newTestService(store, &recordingNotifier{})
		locker := &fakeLocker{denied: true}
		svc.locker = locker

		_, err := svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, response.ErrSlotNotAvailable)
		assert.Len(t, locker.keys, 1)
	})

	t.Run("overlapping starts contend on one lock", func(t *testing.T) {
		// A 60-minute booking at 10:00 and a 30-minute one at 10:30 overlap
		// without sharing a start instant; both must queue on the same key.
		store := newFakeStore()
		store.template = allDayTemplate()
		svc := newTestService(store, &recordingNotifier{})
		locker := &fakeLocker{denied: true}
		svc.locker = locker

		long := req
		long.DurationMinutes = 60
		_, err := svc.CreateBooking(ctx, long)
		assert.ErrorIs(t, err, response.ErrSlotNotAvailable)

		late := req
		late.ScheduledAt = gridStart().Add(30 * time.Minute).Format(time.RFC3339)
		_, err = svc.CreateBooking(ctx, late)
		assert.ErrorIs(t, err, response.ErrSlotNotAvailable)

		require.Len(t, locker.keys, 2)
		assert.Equal(t, locker.keys[0], locker.keys[1])
	})
}

func TestListSlots(t *testing.T) {
	t.Run("disallowed duration is rejected", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store, &recordingNotifier{})

		date := civildate.Today(time.UTC)

		_, err := svc.ListSlots(context.Background(), "prov-1", date, 45)
		assert.ErrorIs(t, err, response.ErrBadRequest)
	})

	t.Run("no default template yields no slots", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store, &recordingNotifier{})

		date := civildate.Today(time.UTC)

		got, err := svc.ListSlots(context.Background(), "prov-1", date, 30)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("date outside the booking window yields no slots", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store, &recordingNotifier{})

		date := civildate.Today(time.UTC).AddDays(60)

		got, err := svc.ListSlots(context.Background(), "prov-1", date, 30)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestIssueMagicLinks(t *testing.T) {
	t.Run("yields three tokens", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(pendingBooking("bk-1"))
		svc := newTestService(store, &recordingNotifier{})

		got, err := svc.IssueMagicLinks(context.Background(), api.MagicLinkIssueRequest{
			BookingID:     "bk-1",
			CustomerEmail: "jordan@example.com",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, got.ConfirmToken)
		assert.NotEmpty(t, got.CancelToken)
		assert.NotEmpty(t, got.RescheduleToken)
	})

	t.Run("email casing is ignored", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(pendingBooking("bk-1"))
		svc := newTestService(store, &recordingNotifier{})

		_, err := svc.IssueMagicLinks(context.Background(), api.MagicLinkIssueRequest{
			BookingID:     "bk-1",
			CustomerEmail: "Jordan@Example.com",
		})
		assert.NoError(t, err)
	})

	t.Run("email mismatch reads as not found", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(pendingBooking("bk-1"))
		svc := newTestService(store, &recordingNotifier{})

		_, err := svc.IssueMagicLinks(context.Background(), api.MagicLinkIssueRequest{
			BookingID:     "bk-1",
			CustomerEmail: "imposter@example.com",
		})
		assert.ErrorIs(t, err, response.ErrNotFound)
	})

	t.Run("rate limit kicks in", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(pendingBooking("bk-1"))
		svc := newTestService(store, &recordingNotifier{})
		ctx := context.Background()

		req := api.MagicLinkIssueRequest{BookingID: "bk-1", CustomerEmail: "jordan@example.com"}

		for i := 0; i < 3; i++ {
			_, err := svc.IssueMagicLinks(ctx, req)
			require.NoError(t, err)
		}

		_, err := svc.IssueMagicLinks(ctx, req)
		assert.ErrorIs(t, err, response.ErrLocked)
	})
}

func TestHandleMagicAction(t *testing.T) {
	t.Run("confirm token confirms the booking", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(pendingBooking("bk-1"))
		notifier := &recordingNotifier{}
		svc := newTestService(store, notifier)
		ctx := context.Background()

		links, err := svc.IssueMagicLinks(ctx, api.MagicLinkIssueRequest{
			BookingID:     "bk-1",
			CustomerEmail: "jordan@example.com",
		})
		require.NoError(t, err)

		got, err := svc.HandleMagicAction(ctx, links.ConfirmToken, "")
		require.NoError(t, err)

		assert.Equal(t, string(models.BookingConfirmed), got.Status)
		assert.Equal(t, []string{"bk-1"}, notifier.confirmed)
		// the customer clicked the link, so the provider is notified
		assert.Equal(t, []string{"rivera@example.com"}, notifier.recipients)
	})

	t.Run("cancel token notifies the provider", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(pendingBooking("bk-1"))
		notifier := &recordingNotifier{}
		svc := newTestService(store, notifier)
		ctx := context.Background()

		links, err := svc.IssueMagicLinks(ctx, api.MagicLinkIssueRequest{
			BookingID:     "bk-1",
			CustomerEmail: "jordan@example.com",
		})
		require.NoError(t, err)

		_, err = svc.HandleMagicAction(ctx, links.CancelToken, "")
		require.NoError(t, err)

		assert.Equal(t, []string{"bk-1"}, notifier.cancelled)
		assert.Equal(t, []string{"rivera@example.com"}, notifier.recipients)
	})

	t.Run("token works exactly once", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(pendingBooking("bk-1"))
		svc := newTestService(store, &recordingNotifier{})
		ctx := context.Background()

		links, err := svc.IssueMagicLinks(ctx, api.MagicLinkIssueRequest{
			BookingID:     "bk-1",
			CustomerEmail: "jordan@example.com",
		})
		require.NoError(t, err)

		_, err = svc.HandleMagicAction(ctx, links.CancelToken, "")
		require.NoError(t, err)

		_, err = svc.HandleMagicAction(ctx, links.CancelToken, "")
		assert.ErrorIs(t, err, magiclink.ErrTokenUsed)
	})

	t.Run("reschedule token needs a new time", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(pendingBooking("bk-1"))
		svc := newTestService(store, &recordingNotifier{})
		ctx := context.Background()

		links, err := svc.IssueMagicLinks(ctx, api.MagicLinkIssueRequest{
			BookingID:     "bk-1",
			CustomerEmail: "jordan@example.com",
		})
		require.NoError(t, err)

		_, err = svc.HandleMagicAction(ctx, links.RescheduleToken, "")
		assert.ErrorIs(t, err, response.ErrBadRequest)
	})

	t.Run("garbage token", func(t *testing.T) {
		svc := newTestService(newFakeStore(), &recordingNotifier{})

		_, err := svc.HandleMagicAction(context.Background(), "nonsense", "")
		assert.ErrorIs(t, err, magiclink.ErrInvalidToken)
	})
}
