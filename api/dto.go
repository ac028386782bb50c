package api

type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type ProviderResponse struct {
	ID                     string `json:"provider_id"`
	Name                   string `json:"name"`
	Email                  string `json:"email"`
	AllowedDurations       []int  `json:"allowed_durations"`
	AdvanceBookingDays     int    `json:"advance_booking_days"`
	DefaultDurationMinutes int    `json:"default_duration_minutes"`
}

type AvailabilityTemplateRequest struct {
	ProviderID             string                  `json:"provider_id"`
	Timezone               string                  `json:"timezone"`
	Weekly                 map[string][]TimeWindow `json:"weekly_windows"`
	DefaultDurationMinutes int                     `json:"default_duration_minutes"`
	IsDefault              bool                    `json:"is_default"`
	IsActive               bool                    `json:"is_active"`
}

type AvailabilityTemplateResponse struct {
	ID                     string                  `json:"template_id"`
	ProviderID             string                  `json:"provider_id"`
	Timezone               string                  `json:"timezone"`
	Weekly                 map[string][]TimeWindow `json:"weekly_windows"`
	DefaultDurationMinutes int                     `json:"default_duration_minutes"`
	IsDefault              bool                    `json:"is_default"`
	IsActive               bool                    `json:"is_active"`
}

type LocationRequest struct {
	ProviderID string `json:"provider_id"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	Timezone   string `json:"timezone"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	IsDefault  bool   `json:"is_default"`
}

type LocationResponse struct {
	ID         string `json:"location_id"`
	ProviderID string `json:"provider_id"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	Timezone   string `json:"timezone"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	IsDefault  bool   `json:"is_default"`
}

type RecurrenceConfig struct {
	Type        string   `json:"type"`
	Interval    int      `json:"interval,omitempty"`
	DaysOfWeek  []string `json:"days_of_week,omitempty"`
	WeekOfMonth int      `json:"week_of_month,omitempty"`
	MonthOfYear int      `json:"month_of_year,omitempty"`
	EndType     string   `json:"end_type,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Count       int      `json:"count,omitempty"`
}

type AdvancedScheduleRequest struct {
	TemplateID string                  `json:"template_id"`
	StartDate  string                  `json:"start_date"`
	EndDate    string                  `json:"end_date,omitempty"`
	Recurrence *RecurrenceConfig       `json:"recurrence,omitempty"`
	Priority   int                     `json:"priority"`
	IsActive   bool                    `json:"is_active"`
	Weekly     map[string][]TimeWindow `json:"weekly_windows"`
}

type AdvancedScheduleResponse struct {
	ID         string                  `json:"schedule_id"`
	TemplateID string                  `json:"template_id"`
	StartDate  string                  `json:"start_date"`
	EndDate    string                  `json:"end_date,omitempty"`
	Recurrence *RecurrenceConfig       `json:"recurrence,omitempty"`
	Priority   int                     `json:"priority"`
	IsActive   bool                    `json:"is_active"`
	Weekly     map[string][]TimeWindow `json:"weekly_windows"`
}

type DayAvailabilityResponse struct {
	Date                     string            `json:"date"`
	Available                bool              `json:"available"`
	Durations                []int             `json:"durations"`
	Windows                  []TimeWindow      `json:"time_windows"`
	Location                 *LocationResponse `json:"location,omitempty"`
	AdvancedSchedulesApplied int               `json:"advanced_schedules_applied"`
}

type SlotResponse struct {
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	DurationMinutes int    `json:"duration_minutes"`
}

type BookingRequest struct {
	ProviderID      string `json:"provider_id"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	ScheduledAt     string `json:"scheduled_at"`
	DurationMinutes int    `json:"duration_minutes"`
	ServiceType     string `json:"service_type"`
	Notes           string `json:"notes,omitempty"`
}

type BookingResponse struct {
	ID              string `json:"booking_id"`
	ProviderID      string `json:"provider_id"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	ScheduledAt     string `json:"scheduled_at"`
	DurationMinutes int    `json:"duration_minutes"`
	ServiceType     string `json:"service_type"`
	Notes           string `json:"notes,omitempty"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type BookingRescheduleRequest struct {
	BookingID      string `json:"booking_id"`
	NewScheduledAt string `json:"new_scheduled_at"`
}

type MagicLinkIssueRequest struct {
	BookingID     string `json:"booking_id"`
	CustomerEmail string `json:"customer_email"`
}

type MagicLinkIssueResponse struct {
	ConfirmToken    string `json:"confirm_token"`
	CancelToken     string `json:"cancel_token"`
	RescheduleToken string `json:"reschedule_token"`
}

type AppleConnectRequest struct {
	ProviderID  string `json:"provider_id"`
	AppleID     string `json:"apple_id"`
	AppPassword string `json:"app_password"`
	CalendarURL string `json:"calendar_url"`
}

type CalendarConnectionResponse struct {
	ID                 string `json:"connection_id"`
	ProviderID         string `json:"provider_id"`
	Platform           string `json:"platform"`
	AccountEmail       string `json:"account_email"`
	IsActive           bool   `json:"is_active"`
	DefaultForBookings bool   `json:"default_for_bookings"`
	SyncEnabled        bool   `json:"sync_enabled"`
}

type AvailableCalendarResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
