package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"booking-service/api"
	"booking-service/internal/civildate"
	"booking-service/internal/models"
	"booking-service/internal/schedule"
	"booking-service/internal/slots"
	"booking-service/pkg/response"
	"booking-service/pkg/sl"
)

// dayContext is everything needed to turn one provider-day into slots.
type dayContext struct {
	provider *models.Provider
	date     civildate.Date
	windows  []models.TimeWindow
	applied  []string
	location *models.ProviderLocation
	loc      *time.Location
}

// resolveDay applies the availability hierarchy for one date: the matching
// advanced schedules win over the default template's weekly windows, and the
// highest-priority match among them is authoritative even when it leaves the
// day empty.
func (s *Service) resolveDay(ctx context.Context, provider *models.Provider, date civildate.Date) (*dayContext, error) {
	const op = "service.resolveDay"

	day := &dayContext{provider: provider, date: date}

	template, err := s.store.GetDefaultTemplate(ctx, provider.ID)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			// no availability configured at all
			day.loc = s.defaultTZ
			return day, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	locations, err := s.store.ListProviderLocations(ctx, provider.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	day.location = slots.ResolveLocation(locations, date)

	tz := template.Timezone
	if tz == "" && day.location != nil {
		tz = day.location.Timezone
	}
	day.loc = s.loadLocation(tz)

	if !template.IsActive {
		return day, nil
	}

	scheds, err := s.store.ListAdvancedSchedules(ctx, template.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resolution, err := schedule.ResolveDay(scheds, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(resolution.AppliedSchedules) > 0 {
		day.windows = resolution.Windows
		day.applied = resolution.AppliedSchedules
	} else {
		day.windows = template.Weekly[date.Weekday()]
	}

	return day, nil
}

// busyFor collects everything blocking the provider on the day: non-cancelled
// bookings plus busy intervals from each synced calendar connection. Calendar
// failures are logged and skipped so an unreachable platform degrades to
// internal bookings only.
func (s *Service) busyFor(ctx context.Context, day *dayContext) ([]slots.Interval, error) {
	return s.busyForExcluding(ctx, day, "")
}

// busyForExcluding is busyFor minus one booking, used when that booking is
// being moved and its current slot must not block the new one.
func (s *Service) busyForExcluding(ctx context.Context, day *dayContext, excludeBookingID string) ([]slots.Interval, error) {
	const op = "service.busyForExcluding"

	dayStart := day.date.In(day.loc)
	dayEnd := dayStart.Add(24 * time.Hour)

	bookings, err := s.store.ListBookingsInRange(ctx, day.provider.ID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var busy []slots.Interval
	for _, b := range bookings {
		if b.Status == models.BookingCancelled {
			continue
		}
		if excludeBookingID != "" && b.ID == excludeBookingID {
			continue
		}
		busy = append(busy, slots.Interval{Start: b.ScheduledAt, End: b.End()})
	}

	for _, iv := range s.syncedBusy(ctx, day.provider.ID, dayStart, dayEnd) {
		busy = append(busy, slots.Interval{Start: iv.Start, End: iv.End})
	}

	return busy, nil
}

// slotsWindows converts the resolved day's wall-clock windows to instants.
func slotsWindows(day *dayContext) ([]slots.Interval, error) {
	return slots.WindowIntervals(day.date, day.windows, day.loc)
}

// slotOnGrid reports whether the exact requested interval is one of the
// bookable slots the grid would offer.
func slotOnGrid(windows, busy []slots.Interval, start time.Time, durationMinutes int) bool {
	free := slots.Subtract(windows, busy)
	for _, slot := range slots.GridSlots(windows, free, durationMinutes) {
		if slot.Start.Equal(start) {
			return true
		}
	}
	return false
}

// syncedBusy fetches busy intervals from every active, sync-enabled calendar
// connection. Tokens are refreshed first and persisted when they change.
func (s *Service) syncedBusy(ctx context.Context, providerID string, from, to time.Time) []models.BusyInterval {
	conns, err := s.store.ListCalendarConnections(ctx, providerID)
	if err != nil {
		s.log.Error("Failed to list calendar connections", sl.Err(err))
		return nil
	}

	var busy []models.BusyInterval
	for _, conn := range conns {
		if !conn.IsActive || !conn.SyncEnabled {
			continue
		}

		changed, err := s.calendars.EnsureFresh(ctx, conn)
		if err != nil {
			s.log.Warn("Calendar token refresh failed, skipping connection",
				slog.String("connection_id", conn.ID),
				slog.String("platform", string(conn.Platform)),
				sl.Err(err),
			)
			continue
		}
		if changed {
			if err := s.store.UpdateCalendarConnectionTokens(ctx, conn); err != nil {
				s.log.Error("Failed to persist refreshed tokens", sl.Err(err))
			}
		}

		client, err := s.calendars.Client(conn.Platform)
		if err != nil {
			s.log.Warn("Unknown platform on stored connection",
				slog.String("platform", string(conn.Platform)),
			)
			continue
		}

		intervals, err := client.BusyIntervals(ctx, conn, from, to)
		if err != nil {
			s.log.Warn("Calendar busy lookup failed, skipping connection",
				slog.String("connection_id", conn.ID),
				slog.String("platform", string(conn.Platform)),
				sl.Err(err),
			)
			continue
		}

		busy = append(busy, intervals...)
	}

	return busy
}

// PreviewSlots summarizes each of the next daysAhead days: whether the day has
// any bookable slot, which durations fit, and which location applies.
func (s *Service) PreviewSlots(ctx context.Context, providerID string, daysAhead int) ([]*api.DayAvailabilityResponse, error) {
	const op = "service.PreviewSlots"

	provider, err := s.store.GetProvider(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if daysAhead <= 0 || daysAhead > provider.AdvanceBookingDays {
		daysAhead = provider.AdvanceBookingDays
	}

	today := civildate.Today(s.defaultTZ)

	result := make([]*api.DayAvailabilityResponse, 0, daysAhead)
	for i := 0; i < daysAhead; i++ {
		date := today.AddDays(i)

		day, err := s.resolveDay(ctx, provider, date)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		resp := &api.DayAvailabilityResponse{
			Date:                     date.String(),
			Durations:                []int{},
			Windows:                  []api.TimeWindow{},
			AdvancedSchedulesApplied: len(day.applied),
		}
		if day.location != nil {
			resp.Location = locationToAPI(day.location)
		}

		if len(day.windows) == 0 {
			result = append(result, resp)
			continue
		}

		windows, err := slots.WindowIntervals(date, day.windows, day.loc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		busy, err := s.busyFor(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		free := slots.Subtract(windows, busy)

		resp.Durations = slots.FittingDurations(windows, free, provider.AllowedDurations)
		resp.Available = len(resp.Durations) > 0
		for _, w := range day.windows {
			resp.Windows = append(resp.Windows, api.TimeWindow{Start: w.Start, End: w.End})
		}

		result = append(result, resp)
	}

	return result, nil
}

// ListSlots returns the concrete bookable slots of one duration on one date.
func (s *Service) ListSlots(ctx context.Context, providerID string, date civildate.Date, durationMinutes int) ([]*api.SlotResponse, error) {
	const op = "service.ListSlots"

	provider, err := s.store.GetProvider(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if durationMinutes == 0 {
		durationMinutes = provider.DefaultDurationMinutes
	}
	if !durationAllowed(provider, durationMinutes) {
		return nil, fmt.Errorf("%s: duration %d is not offered: %w", op, durationMinutes, response.ErrBadRequest)
	}

	today := civildate.Today(s.defaultTZ)
	if date.Before(today) || date.After(today.AddDays(provider.AdvanceBookingDays)) {
		return []*api.SlotResponse{}, nil
	}

	day, err := s.resolveDay(ctx, provider, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(day.windows) == 0 {
		return []*api.SlotResponse{}, nil
	}

	windows, err := slots.WindowIntervals(date, day.windows, day.loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	busy, err := s.busyFor(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	free := slots.Subtract(windows, busy)

	now := time.Now()

	result := make([]*api.SlotResponse, 0)
	for _, slot := range slots.GridSlots(windows, free, durationMinutes) {
		if !slot.Start.After(now) {
			continue
		}
		result = append(result, &api.SlotResponse{
			StartTime:       slot.Start.Format(time.RFC3339),
			EndTime:         slot.End.Format(time.RFC3339),
			DurationMinutes: slot.DurationMinutes,
		})
	}

	return result, nil
}

func durationAllowed(provider *models.Provider, durationMinutes int) bool {
	if len(provider.AllowedDurations) == 0 {
		return durationMinutes == provider.DefaultDurationMinutes
	}
	for _, d := range provider.AllowedDurations {
		if d == durationMinutes {
			return true
		}
	}
	return false
}
