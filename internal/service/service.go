package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"booking-service/api"
	"booking-service/internal/calendar"
	"booking-service/internal/civildate"
	"booking-service/internal/lock"
	"booking-service/internal/magiclink"
	"booking-service/internal/models"
	"booking-service/internal/notify"
	"booking-service/internal/storage/kv"
)

type Service struct {
	log       *slog.Logger
	store     Store
	locker    lock.Locker
	calendars *calendar.Registry
	notifier  notify.Notifier
	magic     *magiclink.Manager
	counters  kv.Store
	defaultTZ *time.Location

	// stateSecret signs OAuth state tokens; shared with the magic link
	// secret in config.
	stateSecret        []byte
	magicIssuesPerHour int64
}

func NewService(
	log *slog.Logger,
	store Store,
	locker lock.Locker,
	calendars *calendar.Registry,
	notifier notify.Notifier,
	magic *magiclink.Manager,
	counters kv.Store,
	defaultTZ *time.Location,
	stateSecret string,
	magicIssuesPerHour int64,
) *Service {
	if defaultTZ == nil {
		defaultTZ = time.UTC
	}

	return &Service{
		log:                log,
		store:              store,
		locker:             locker,
		calendars:          calendars,
		notifier:           notifier,
		magic:              magic,
		counters:           counters,
		defaultTZ:          defaultTZ,
		stateSecret:        []byte(stateSecret),
		magicIssuesPerHour: magicIssuesPerHour,
	}
}

type Store interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)

	// Providers
	GetProvider(ctx context.Context, id string) (*models.Provider, error)

	// Availability Templates
	CreateAvailabilityTemplate(ctx context.Context, tx *sql.Tx, template *models.AvailabilityTemplate) (string, error)
	GetAvailabilityTemplate(ctx context.Context, id string) (*models.AvailabilityTemplate, error)
	GetDefaultTemplate(ctx context.Context, providerID string) (*models.AvailabilityTemplate, error)
	UpdateAvailabilityTemplate(ctx context.Context, template *models.AvailabilityTemplate) error
	DeleteAvailabilityTemplate(ctx context.Context, id string) error
	ClearDefaultTemplates(ctx context.Context, tx *sql.Tx, providerID string) error

	// Provider Locations
	CreateProviderLocation(ctx context.Context, tx *sql.Tx, location *models.ProviderLocation) (string, error)
	GetProviderLocation(ctx context.Context, id string) (*models.ProviderLocation, error)
	ListProviderLocations(ctx context.Context, providerID string) ([]*models.ProviderLocation, error)
	UpdateProviderLocation(ctx context.Context, location *models.ProviderLocation) error
	DeleteProviderLocation(ctx context.Context, id string) error
	ClearDefaultLocations(ctx context.Context, tx *sql.Tx, providerID string) error

	// Advanced Schedules
	CreateAdvancedSchedule(ctx context.Context, schedule *models.AdvancedAvailabilitySchedule) (string, error)
	GetAdvancedSchedule(ctx context.Context, id string) (*models.AdvancedAvailabilitySchedule, error)
	ListAdvancedSchedules(ctx context.Context, templateID string) ([]*models.AdvancedAvailabilitySchedule, error)
	UpdateAdvancedSchedule(ctx context.Context, schedule *models.AdvancedAvailabilitySchedule) error
	DeleteAdvancedSchedule(ctx context.Context, id string) error

	// Bookings
	CreateBooking(ctx context.Context, tx *sql.Tx, booking *models.Booking) (string, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookingsInRange(ctx context.Context, providerID string, from, to time.Time) ([]*models.Booking, error)
	CountOverlappingBookings(ctx context.Context, tx *sql.Tx, providerID string, start, end time.Time, excludeBookingID string) (int, error)
	UpdateBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus) error
	UpdateBookingSchedule(ctx context.Context, tx *sql.Tx, bookingID string, newAt time.Time, status models.BookingStatus) error
	DeleteBooking(ctx context.Context, bookingID string) error

	// Calendar Connections
	CreateCalendarConnection(ctx context.Context, tx *sql.Tx, conn *models.CalendarConnection) (string, error)
	GetCalendarConnection(ctx context.Context, id string) (*models.CalendarConnection, error)
	ListCalendarConnections(ctx context.Context, providerID string) ([]*models.CalendarConnection, error)
	GetDefaultCalendarConnection(ctx context.Context, providerID string) (*models.CalendarConnection, error)
	UpdateCalendarConnectionTokens(ctx context.Context, conn *models.CalendarConnection) error
	ClearDefaultCalendarConnections(ctx context.Context, tx *sql.Tx, providerID string) error
	SetDefaultCalendarConnection(ctx context.Context, tx *sql.Tx, id string) error
	DeleteCalendarConnection(ctx context.Context, id string) error
}

// GetProviderInfo exposes provider settings for diagnostics.
func (s *Service) GetProviderInfo(ctx context.Context, id string) (*api.ProviderResponse, error) {
	const op = "service.GetProviderInfo"

	provider, err := s.store.GetProvider(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &api.ProviderResponse{
		ID:                     provider.ID,
		Name:                   provider.Name,
		Email:                  provider.Email,
		AllowedDurations:       provider.AllowedDurations,
		AdvanceBookingDays:     provider.AdvanceBookingDays,
		DefaultDurationMinutes: provider.DefaultDurationMinutes,
	}, nil
}

// parseWeekdayFlexible accepts the weekday spellings that show up in stored
// data and API payloads: "mon", "monday", "Mon", "1", "0" (0 = Sunday).
func parseWeekdayFlexible(s string) (time.Weekday, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 0 && n <= 6 {
			return time.Weekday(n), true
		}
		if n == 7 {
			return time.Sunday, true
		}
		return 0, false
	}

	switch s {
	case "sun", "sunday":
		return time.Sunday, true
	case "mon", "monday":
		return time.Monday, true
	case "tue", "tues", "tuesday":
		return time.Tuesday, true
	case "wed", "wednesday":
		return time.Wednesday, true
	case "thu", "thur", "thursday":
		return time.Thursday, true
	case "fri", "friday":
		return time.Friday, true
	case "sat", "saturday":
		return time.Saturday, true
	default:
		return 0, false
	}
}

func weekdayKey(wd time.Weekday) string {
	return strings.ToLower(wd.String())
}

// weeklyFromAPI converts and validates the weekly windows payload.
func weeklyFromAPI(in map[string][]api.TimeWindow) (models.WeeklyWindows, error) {
	weekly := make(models.WeeklyWindows, len(in))

	for day, windows := range in {
		wd, ok := parseWeekdayFlexible(day)
		if !ok {
			return nil, fmt.Errorf("invalid day of week %q", day)
		}

		converted := make([]models.TimeWindow, 0, len(windows))
		for _, w := range windows {
			sh, sm, err := civildate.ParseClock(w.Start)
			if err != nil {
				return nil, err
			}
			eh, em, err := civildate.ParseClock(w.End)
			if err != nil {
				return nil, err
			}
			if eh*60+em <= sh*60+sm {
				return nil, fmt.Errorf("window end %q is not after start %q", w.End, w.Start)
			}
			converted = append(converted, models.TimeWindow{Start: w.Start, End: w.End})
		}

		weekly[wd] = converted
	}

	return weekly, nil
}

func weeklyToAPI(in models.WeeklyWindows) map[string][]api.TimeWindow {
	out := make(map[string][]api.TimeWindow, len(in))
	for wd, windows := range in {
		converted := make([]api.TimeWindow, 0, len(windows))
		for _, w := range windows {
			converted = append(converted, api.TimeWindow{Start: w.Start, End: w.End})
		}
		out[weekdayKey(wd)] = converted
	}
	return out
}

// loadLocation resolves an IANA timezone, falling back to the configured
// default when the name is empty or unknown rather than failing.
func (s *Service) loadLocation(name string) *time.Location {
	if name == "" {
		return s.defaultTZ
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		s.log.Warn("Unknown timezone, using default",
			slog.String("timezone", name),
			slog.String("default", s.defaultTZ.String()),
		)
		return s.defaultTZ
	}
	return loc
}
