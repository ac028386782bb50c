package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"booking-service/api"
	"booking-service/internal/calendar"
	"booking-service/internal/civildate"
	"booking-service/internal/lock"
	"booking-service/internal/models"
	"booking-service/pkg/response"
	"booking-service/pkg/sl"
)

const bookingLockTTL = 10 * time.Second

// actor identifies which side initiated a lifecycle action. Notifications
// always go to the other party.
type actor string

const (
	actorProvider actor = "provider"
	actorCustomer actor = "customer"
)

// counterparty picks the notification recipient: whoever did not act.
func (s *Service) counterparty(ctx context.Context, booking *models.Booking, by actor) string {
	if by == actorProvider {
		return booking.CustomerEmail
	}

	provider, err := s.store.GetProvider(ctx, booking.ProviderID)
	if err != nil {
		s.log.Warn("Failed to resolve provider email for notification",
			slog.String("booking_id", booking.ID),
			sl.Err(err),
		)
		return ""
	}

	return provider.Email
}

func (s *Service) CreateBooking(ctx context.Context, req api.BookingRequest) (*api.BookingResponse, error) {
	const op = "service.CreateBooking"

	provider, err := s.store.GetProvider(ctx, req.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if req.CustomerName == "" || req.CustomerEmail == "" {
		return nil, fmt.Errorf("%s: customer name and email are required: %w", op, response.ErrBadRequest)
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid scheduled_at: %w", op, response.ErrBadRequest)
	}

	durationMinutes := req.DurationMinutes
	if durationMinutes == 0 {
		durationMinutes = provider.DefaultDurationMinutes
	}
	if !durationAllowed(provider, durationMinutes) {
		return nil, fmt.Errorf("%s: duration %d is not offered: %w", op, durationMinutes, response.ErrBadRequest)
	}

	now := time.Now()
	if !scheduledAt.After(now) {
		return nil, fmt.Errorf("%s: scheduled_at must be in the future: %w", op, response.ErrBadRequest)
	}
	if scheduledAt.After(now.AddDate(0, 0, provider.AdvanceBookingDays)) {
		return nil, fmt.Errorf("%s: scheduled_at is beyond the booking window: %w", op, response.ErrBadRequest)
	}

	ok, err := s.slotBookable(ctx, provider, scheduledAt, durationMinutes, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
	}

	booking := &models.Booking{
		ProviderID:      provider.ID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		ScheduledAt:     scheduledAt,
		DurationMinutes: durationMinutes,
		ServiceType:     req.ServiceType,
		Notes:           req.Notes,
		Status:          models.BookingPending,
	}

	// all booking writes for the provider contend on one key: two creates at
	// overlapping but different start times must not slip past each other
	// before either commits
	lockKey := lock.BookingKey(provider.ID)
	locked, err := s.locker.Lock(ctx, lockKey, bookingLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
	}
	defer func() {
		if err := s.locker.Unlock(ctx, lockKey); err != nil {
			s.log.Error("Failed to release booking lock", sl.Err(err))
		}
	}()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	overlapping, err := s.store.CountOverlappingBookings(ctx, tx, provider.ID, scheduledAt, booking.End(), "")
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if overlapping > 0 {
		_ = tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
	}

	id, err := s.store.CreateBooking(ctx, tx, booking)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now

	s.log.Info("Booking created",
		slog.String("booking_id", id),
		slog.String("provider_id", provider.ID),
		slog.Time("scheduled_at", scheduledAt),
	)

	return bookingToAPI(booking), nil
}

func (s *Service) GetBookingInfo(ctx context.Context, id string) (*api.BookingResponse, error) {
	const op = "service.GetBookingInfo"

	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookingToAPI(booking), nil
}

// ConfirmBooking moves a pending booking to CONFIRMED on the provider's
// behalf. Confirming an already confirmed booking is a no-op; a cancelled or
// completed one cannot move.
func (s *Service) ConfirmBooking(ctx context.Context, id string) (*api.BookingResponse, error) {
	return s.confirmBookingAs(ctx, id, actorProvider)
}

func (s *Service) confirmBookingAs(ctx context.Context, id string, by actor) (*api.BookingResponse, error) {
	const op = "service.ConfirmBooking"

	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch booking.Status {
	case models.BookingConfirmed:
		return bookingToAPI(booking), nil
	case models.BookingCancelled, models.BookingCompleted:
		return nil, fmt.Errorf("%s: booking is %s: %w", op, booking.Status, response.ErrConflict)
	}

	if err := s.store.UpdateBookingStatus(ctx, id, models.BookingConfirmed); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	booking.Status = models.BookingConfirmed
	booking.UpdatedAt = time.Now()

	s.notifier.BookingConfirmed(ctx, booking, s.counterparty(ctx, booking, by))
	s.pushToCalendar(booking)

	return bookingToAPI(booking), nil
}

// CancelBooking cancels on the provider's behalf. It is idempotent:
// cancelling a cancelled booking succeeds without side effects. A completed
// booking cannot be cancelled.
func (s *Service) CancelBooking(ctx context.Context, id string) (*api.BookingResponse, error) {
	return s.cancelBookingAs(ctx, id, actorProvider)
}

func (s *Service) cancelBookingAs(ctx context.Context, id string, by actor) (*api.BookingResponse, error) {
	const op = "service.CancelBooking"

	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch booking.Status {
	case models.BookingCancelled:
		return bookingToAPI(booking), nil
	case models.BookingCompleted:
		return nil, fmt.Errorf("%s: booking is already completed: %w", op, response.ErrConflict)
	}

	if err := s.store.UpdateBookingStatus(ctx, id, models.BookingCancelled); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	booking.Status = models.BookingCancelled
	booking.UpdatedAt = time.Now()

	s.notifier.BookingCancelled(ctx, booking, s.counterparty(ctx, booking, by))

	return bookingToAPI(booking), nil
}

// RescheduleBooking moves a live booking to a new future time on the
// provider's behalf. The booking returns to PENDING so the other party
// re-confirms the new slot.
func (s *Service) RescheduleBooking(ctx context.Context, req api.BookingRescheduleRequest) (*api.BookingResponse, error) {
	return s.rescheduleBookingAs(ctx, req, actorProvider)
}

func (s *Service) rescheduleBookingAs(ctx context.Context, req api.BookingRescheduleRequest, by actor) (*api.BookingResponse, error) {
	const op = "service.RescheduleBooking"

	booking, err := s.store.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch booking.Status {
	case models.BookingCancelled, models.BookingCompleted:
		return nil, fmt.Errorf("%s: booking is %s: %w", op, booking.Status, response.ErrConflict)
	}

	newAt, err := time.Parse(time.RFC3339, req.NewScheduledAt)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid new_scheduled_at: %w", op, response.ErrBadRequest)
	}
	if !newAt.After(time.Now()) {
		return nil, fmt.Errorf("%s: new scheduled time must be in the future: %w", op, response.ErrBadRequest)
	}

	provider, err := s.store.GetProvider(ctx, booking.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := s.slotBookable(ctx, provider, newAt, booking.DurationMinutes, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
	}

	lockKey := lock.BookingKey(provider.ID)
	locked, err := s.locker.Lock(ctx, lockKey, bookingLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
	}
	defer func() {
		if err := s.locker.Unlock(ctx, lockKey); err != nil {
			s.log.Error("Failed to release booking lock", sl.Err(err))
		}
	}()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	newEnd := newAt.Add(time.Duration(booking.DurationMinutes) * time.Minute)
	overlapping, err := s.store.CountOverlappingBookings(ctx, tx, provider.ID, newAt, newEnd, booking.ID)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if overlapping > 0 {
		_ = tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
	}

	if err := s.store.UpdateBookingSchedule(ctx, tx, booking.ID, newAt, models.BookingPending); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	booking.ScheduledAt = newAt
	booking.Status = models.BookingPending
	booking.UpdatedAt = time.Now()

	s.notifier.BookingRescheduled(ctx, booking, s.counterparty(ctx, booking, by))

	return bookingToAPI(booking), nil
}

// CompleteBooking marks a confirmed booking as done after the fact.
func (s *Service) CompleteBooking(ctx context.Context, id string) (*api.BookingResponse, error) {
	const op = "service.CompleteBooking"

	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch booking.Status {
	case models.BookingCompleted:
		return bookingToAPI(booking), nil
	case models.BookingConfirmed:
	default:
		return nil, fmt.Errorf("%s: booking is %s: %w", op, booking.Status, response.ErrConflict)
	}

	if err := s.store.UpdateBookingStatus(ctx, id, models.BookingCompleted); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	booking.Status = models.BookingCompleted
	booking.UpdatedAt = time.Now()

	return bookingToAPI(booking), nil
}

// DeleteBooking removes a record permanently. Live bookings must be cancelled
// first so the slot is released through the normal path.
func (s *Service) DeleteBooking(ctx context.Context, id string) error {
	const op = "service.DeleteBooking"

	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch booking.Status {
	case models.BookingCancelled, models.BookingCompleted:
	default:
		return fmt.Errorf("%s: only cancelled or completed bookings can be deleted: %w", op, response.ErrConflict)
	}

	if err := s.store.DeleteBooking(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// slotBookable recomputes the availability grid for the booking's day and
// checks the exact requested slot is on it. excludeBookingID drops the
// booking's own current slot from the busy set during reschedules.
func (s *Service) slotBookable(ctx context.Context, provider *models.Provider, start time.Time, durationMinutes int, excludeBookingID string) (bool, error) {
	date := civildate.FromTime(start.In(s.defaultTZ))

	day, err := s.resolveDay(ctx, provider, date)
	if err != nil {
		return false, err
	}

	// the template timezone may place the instant on a different civil day
	if localDate := civildate.FromTime(start.In(day.loc)); localDate != date {
		date = localDate
		day, err = s.resolveDay(ctx, provider, date)
		if err != nil {
			return false, err
		}
	}

	if len(day.windows) == 0 {
		return false, nil
	}

	windows, err := slotsWindows(day)
	if err != nil {
		return false, err
	}

	busy, err := s.busyForExcluding(ctx, day, excludeBookingID)
	if err != nil {
		return false, err
	}

	return slotOnGrid(windows, busy, start, durationMinutes), nil
}

func bookingToAPI(b *models.Booking) *api.BookingResponse {
	return &api.BookingResponse{
		ID:              b.ID,
		ProviderID:      b.ProviderID,
		CustomerName:    b.CustomerName,
		CustomerEmail:   b.CustomerEmail,
		ScheduledAt:     b.ScheduledAt.Format(time.RFC3339),
		DurationMinutes: b.DurationMinutes,
		ServiceType:     b.ServiceType,
		Notes:           b.Notes,
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.Format(time.RFC3339),
	}
}

// pushToCalendar creates the event on the provider's default calendar in the
// background. Failures are logged; the booking state never depends on the
// external platform.
func (s *Service) pushToCalendar(booking *models.Booking) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		conn, err := s.store.GetDefaultCalendarConnection(ctx, booking.ProviderID)
		if err != nil {
			return
		}
		if !conn.IsActive {
			return
		}

		changed, err := s.calendars.EnsureFresh(ctx, conn)
		if err != nil {
			s.log.Warn("Calendar token refresh failed, event not created",
				slog.String("booking_id", booking.ID),
				sl.Err(err),
			)
			return
		}
		if changed {
			if err := s.store.UpdateCalendarConnectionTokens(ctx, conn); err != nil {
				s.log.Error("Failed to persist refreshed tokens", sl.Err(err))
			}
		}

		client, err := s.calendars.Client(conn.Platform)
		if err != nil {
			return
		}

		event := calendar.Event{
			Title:       fmt.Sprintf("%s with %s", booking.ServiceType, booking.CustomerName),
			Description: booking.Notes,
			Start:       booking.ScheduledAt,
			End:         booking.End(),
		}

		if err := client.CreateEvent(ctx, conn, event); err != nil {
			s.log.Warn("Failed to create calendar event",
				slog.String("booking_id", booking.ID),
				slog.String("platform", string(conn.Platform)),
				sl.Err(err),
			)
			return
		}

		s.log.Info("Calendar event created",
			slog.String("booking_id", booking.ID),
			slog.String("platform", string(conn.Platform)),
		)
	}()
}
