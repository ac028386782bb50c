package models

import (
	"time"

	"booking-service/internal/civildate"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

type CalendarPlatform string

const (
	PlatformGoogle  CalendarPlatform = "google"
	PlatformOutlook CalendarPlatform = "outlook"
	PlatformTeams   CalendarPlatform = "teams"
	PlatformApple   CalendarPlatform = "apple"
)

type RecurrenceType string

const (
	RecurDaily   RecurrenceType = "DAILY"
	RecurWeekly  RecurrenceType = "WEEKLY"
	RecurMonthly RecurrenceType = "MONTHLY"
	RecurYearly  RecurrenceType = "YEARLY"
)

type RecurrenceEndType string

const (
	RecurEndOnDate    RecurrenceEndType = "ON_DATE"
	RecurEndAfterCount RecurrenceEndType = "AFTER_COUNT"
	RecurEndNever     RecurrenceEndType = "NEVER"
)

// Default location sentinel range. A default location is valid indefinitely.
var (
	DefaultLocationStart = civildate.Date{Year: 1900, Month: time.January, Day: 1}
	DefaultLocationEnd   = civildate.Date{Year: 2099, Month: time.December, Day: 31}
)

type Provider struct {
	ID                     string `db:"provider_id"`
	Name                   string `db:"name"`
	Email                  string `db:"email"`
	AllowedDurations       []int  `db:"allowed_durations"`
	AdvanceBookingDays     int    `db:"advance_booking_days"`
	DefaultDurationMinutes int    `db:"default_duration_minutes"`
}

// TimeWindow is a wall-clock interval ("15:04" strings) within a single day.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeeklyWindows maps day-of-week to the windows open on that day.
// A day with no entry (or an empty list) has no availability.
type WeeklyWindows map[time.Weekday][]TimeWindow

type AvailabilityTemplate struct {
	ID                     string        `db:"template_id"`
	ProviderID             string        `db:"provider_id"`
	Timezone               string        `db:"timezone"`
	Weekly                 WeeklyWindows `db:"weekly_windows"`
	DefaultDurationMinutes int           `db:"default_duration_minutes"`
	IsDefault              bool          `db:"is_default"`
	IsActive               bool          `db:"is_active"`
}

type ProviderLocation struct {
	ID         string         `db:"location_id"`
	ProviderID string         `db:"provider_id"`
	City       string         `db:"city"`
	State      string         `db:"state"`
	Country    string         `db:"country"`
	Timezone   string         `db:"timezone"`
	StartDate  civildate.Date `db:"start_date"`
	EndDate    civildate.Date `db:"end_date"`
	IsDefault  bool           `db:"is_default"`
}

type RecurrenceRule struct {
	Type        RecurrenceType    `json:"type"`
	Interval    int               `json:"interval"`
	DaysOfWeek  []time.Weekday    `json:"days_of_week,omitempty"`
	WeekOfMonth int               `json:"week_of_month,omitempty"`
	MonthOfYear time.Month        `json:"month_of_year,omitempty"`
	EndType     RecurrenceEndType `json:"end_type"`
	EndDate     *civildate.Date   `json:"end_date,omitempty"`
	Count       int               `json:"count,omitempty"`
}

type AdvancedAvailabilitySchedule struct {
	ID         string          `db:"schedule_id"`
	TemplateID string          `db:"template_id"`
	StartDate  civildate.Date  `db:"start_date"`
	EndDate    *civildate.Date `db:"end_date"`
	Recurrence *RecurrenceRule `db:"recurrence"`
	Priority   int             `db:"priority"`
	IsActive   bool            `db:"is_active"`
	Weekly     WeeklyWindows   `db:"weekly_windows"`
}

type Booking struct {
	ID              string        `db:"booking_id"`
	ProviderID      string        `db:"provider_id"`
	CustomerName    string        `db:"customer_name"`
	CustomerEmail   string        `db:"customer_email"`
	ScheduledAt     time.Time     `db:"scheduled_at"`
	DurationMinutes int           `db:"duration_minutes"`
	ServiceType     string        `db:"service_type"`
	Notes           string        `db:"notes"`
	Status          BookingStatus `db:"status"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

func (b *Booking) End() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

type CalendarConnection struct {
	ID                 string           `db:"connection_id"`
	ProviderID         string           `db:"provider_id"`
	Platform           CalendarPlatform `db:"platform"`
	AccountEmail       string           `db:"account_email"`
	AccessToken        string           `db:"access_token"`
	RefreshToken       string           `db:"refresh_token"`
	TokenExpiresAt     time.Time        `db:"token_expires_at"`
	// CalendarRef is the platform-specific calendar identifier: a Google
	// calendar id, a Graph calendar id, or an iCloud CalDAV collection URL.
	CalendarRef        string           `db:"calendar_ref"`
	IsActive           bool             `db:"is_active"`
	DefaultForBookings bool             `db:"default_for_bookings"`
	SyncEnabled        bool             `db:"sync_enabled"`
}

// BusyInterval is an externally committed block of time.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}
