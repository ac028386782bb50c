package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"booking-service/internal/civildate"
	"booking-service/internal/models"
	"booking-service/pkg/response"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

func (s *Storage) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// mapConstraintErr translates the pq constraint codes the schema can raise.
func mapConstraintErr(op string, err error) error {
	sqlErr, ok := err.(*pq.Error)
	if ok && sqlErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, response.ErrConflict)
	}
	if ok && sqlErr.Code == "23503" {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return fmt.Errorf("%s: %w", op, err)
}

// weeklyColumn round-trips WeeklyWindows through a jsonb column keyed by
// lowercase weekday names.
func weeklyColumn(weekly models.WeeklyWindows) ([]byte, error) {
	named := make(map[string][]models.TimeWindow, len(weekly))
	for wd, windows := range weekly {
		named[wd.String()] = windows
	}
	return json.Marshal(named)
}

func weeklyFromColumn(raw []byte) (models.WeeklyWindows, error) {
	if len(raw) == 0 {
		return models.WeeklyWindows{}, nil
	}

	var named map[string][]models.TimeWindow
	if err := json.Unmarshal(raw, &named); err != nil {
		return nil, err
	}

	weekly := make(models.WeeklyWindows, len(named))
	for name, windows := range named {
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			if wd.String() == name {
				weekly[wd] = windows
				break
			}
		}
	}

	return weekly, nil
}

// #### providers ####

func (s *Storage) GetProvider(ctx context.Context, id string) (*models.Provider, error) {
	const op = "storage.postgres.GetProvider"

	var provider models.Provider
	var durations pq.Int64Array

	err := s.db.QueryRowContext(ctx,
		`SELECT provider_id, name, email, allowed_durations, advance_booking_days, default_duration_minutes
		FROM providers WHERE provider_id=$1`, id).
		Scan(
			&provider.ID,
			&provider.Name,
			&provider.Email,
			&durations,
			&provider.AdvanceBookingDays,
			&provider.DefaultDurationMinutes,
		)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, d := range durations {
		provider.AllowedDurations = append(provider.AllowedDurations, int(d))
	}

	return &provider, nil
}

// #### availability templates ####

func (s *Storage) CreateAvailabilityTemplate(ctx context.Context, tx *sql.Tx, template *models.AvailabilityTemplate) (string, error) {
	const op = "storage.postgres.CreateAvailabilityTemplate"

	weekly, err := weeklyColumn(template.Weekly)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO availability_templates
		(template_id, provider_id, timezone, weekly_windows, default_duration_minutes, is_default, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id,
		template.ProviderID,
		template.Timezone,
		weekly,
		template.DefaultDurationMinutes,
		template.IsDefault,
		template.IsActive,
	)
	if err != nil {
		return "", mapConstraintErr(op, err)
	}

	return id, nil
}

func (s *Storage) GetAvailabilityTemplate(ctx context.Context, id string) (*models.AvailabilityTemplate, error) {
	const op = "storage.postgres.GetAvailabilityTemplate"

	return s.scanTemplate(ctx, op,
		`SELECT template_id, provider_id, timezone, weekly_windows, default_duration_minutes, is_default, is_active
		FROM availability_templates WHERE template_id=$1`, id)
}

func (s *Storage) GetDefaultTemplate(ctx context.Context, providerID string) (*models.AvailabilityTemplate, error) {
	const op = "storage.postgres.GetDefaultTemplate"

	return s.scanTemplate(ctx, op,
		`SELECT template_id, provider_id, timezone, weekly_windows, default_duration_minutes, is_default, is_active
		FROM availability_templates WHERE provider_id=$1 AND is_default=TRUE`, providerID)
}

func (s *Storage) scanTemplate(ctx context.Context, op, query string, arg any) (*models.AvailabilityTemplate, error) {
	var template models.AvailabilityTemplate
	var weekly []byte

	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(
			&template.ID,
			&template.ProviderID,
			&template.Timezone,
			&weekly,
			&template.DefaultDurationMinutes,
			&template.IsDefault,
			&template.IsActive,
		)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	template.Weekly, err = weeklyFromColumn(weekly)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &template, nil
}

func (s *Storage) UpdateAvailabilityTemplate(ctx context.Context, template *models.AvailabilityTemplate) error {
	const op = "storage.postgres.UpdateAvailabilityTemplate"

	weekly, err := weeklyColumn(template.Weekly)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE availability_templates
		SET timezone=$1, weekly_windows=$2, default_duration_minutes=$3, is_default=$4, is_active=$5
		WHERE template_id=$6`,
		template.Timezone,
		weekly,
		template.DefaultDurationMinutes,
		template.IsDefault,
		template.IsActive,
		template.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return rowsOrNotFound(op, res)
}

func (s *Storage) DeleteAvailabilityTemplate(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteAvailabilityTemplate"

	res, err := s.db.ExecContext(ctx, `DELETE FROM availability_templates WHERE template_id=$1`, id)
	if err != nil {
		return mapConstraintErr(op, err)
	}

	return rowsOrNotFound(op, res)
}

func (s *Storage) ClearDefaultTemplates(ctx context.Context, tx *sql.Tx, providerID string) error {
	const op = "storage.postgres.ClearDefaultTemplates"

	_, err := tx.ExecContext(ctx,
		`UPDATE availability_templates SET is_default=FALSE WHERE provider_id=$1`, providerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// #### provider locations ####

func (s *Storage) CreateProviderLocation(ctx context.Context, tx *sql.Tx, location *models.ProviderLocation) (string, error) {
	const op = "storage.postgres.CreateProviderLocation"

	id := uuid.NewString()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO provider_locations
		(location_id, provider_id, city, state, country, timezone, start_date, end_date, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id,
		location.ProviderID,
		location.City,
		location.State,
		location.Country,
		location.Timezone,
		location.StartDate.String(),
		location.EndDate.String(),
		location.IsDefault,
	)
	if err != nil {
		return "", mapConstraintErr(op, err)
	}

	return id, nil
}

func (s *Storage) GetProviderLocation(ctx context.Context, id string) (*models.ProviderLocation, error) {
	const op = "storage.postgres.GetProviderLocation"

	var location models.ProviderLocation
	var startDate, endDate string

	err := s.db.QueryRowContext(ctx,
		`SELECT location_id, provider_id, city, state, country, timezone, start_date::text, end_date::text, is_default
		FROM provider_locations WHERE location_id=$1`, id).
		Scan(
			&location.ID,
			&location.ProviderID,
			&location.City,
			&location.State,
			&location.Country,
			&location.Timezone,
			&startDate,
			&endDate,
			&location.IsDefault,
		)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if location.StartDate, err = civildate.Parse(startDate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if location.EndDate, err = civildate.Parse(endDate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &location, nil
}

func (s *Storage) ListProviderLocations(ctx context.Context, providerID string) ([]*models.ProviderLocation, error) {
	const op = "storage.postgres.ListProviderLocations"

	rows, err := s.db.QueryContext(ctx,
		`SELECT location_id, provider_id, city, state, country, timezone, start_date::text, end_date::text, is_default
		FROM provider_locations WHERE provider_id=$1 ORDER BY start_date`, providerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var locations []*models.ProviderLocation
	for rows.Next() {
		var location models.ProviderLocation
		var startDate, endDate string

		err := rows.Scan(
			&location.ID,
			&location.ProviderID,
			&location.City,
			&location.State,
			&location.Country,
			&location.Timezone,
			&startDate,
			&endDate,
			&location.IsDefault,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if location.StartDate, err = civildate.Parse(startDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if location.EndDate, err = civildate.Parse(endDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		locations = append(locations, &location)
	}

	return locations, nil
}

func (s *Storage) UpdateProviderLocation(ctx context.Context, location *models.ProviderLocation) error {
	const op = "storage.postgres.UpdateProviderLocation"

	res, err := s.db.ExecContext(ctx,
		`UPDATE provider_locations
		SET city=$1, state=$2, country=$3, timezone=$4, start_date=$5, end_date=$6, is_default=$7
		WHERE location_id=$8`,
		location.City,
		location.State,
		location.Country,
		location.Timezone,
		location.StartDate.String(),
		location.EndDate.String(),
		location.IsDefault,
		location.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return rowsOrNotFound(op, res)
}

func (s *Storage) DeleteProviderLocation(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteProviderLocation"

	res, err := s.db.ExecContext(ctx, `DELETE FROM provider_locations WHERE location_id=$1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return rowsOrNotFound(op, res)
}

func (s *Storage) ClearDefaultLocations(ctx context.Context, tx *sql.Tx, providerID string) error {
	const op = "storage.postgres.ClearDefaultLocations"

	_, err := tx.ExecContext(ctx,
		`UPDATE provider_locations SET is_default=FALSE WHERE provider_id=$1`, providerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// #### advanced schedules ####

func (s *Storage) CreateAdvancedSchedule(ctx context.Context, schedule *models.AdvancedAvailabilitySchedule) (string, error) {
	const op = "storage.postgres.CreateAdvancedSchedule"

	weekly, recurrence, endDate, err := scheduleColumns(schedule)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO advanced_schedules
		(schedule_id, template_id, start_date, end_date, recurrence, priority, is_active, weekly_windows)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id,
		schedule.TemplateID,
		schedule.StartDate.String(),
		endDate,
		recurrence,
		schedule.Priority,
		schedule.IsActive,
		weekly,
	)
	if err != nil {
		return "", mapConstraintErr(op, err)
	}

	return id, nil
}

func scheduleColumns(schedule *models.AdvancedAvailabilitySchedule) (weekly, recurrence []byte, endDate sql.NullString, err error) {
	weekly, err = weeklyColumn(schedule.Weekly)
	if err != nil {
		return nil, nil, endDate, err
	}

	if schedule.Recurrence != nil {
		recurrence, err = json.Marshal(schedule.Recurrence)
		if err != nil {
			return nil, nil, endDate, err
		}
	}

	if schedule.EndDate != nil {
		endDate = sql.NullString{String: schedule.EndDate.String(), Valid: true}
	}

	return weekly, recurrence, endDate, nil
}

func (s *Storage) GetAdvancedSchedule(ctx context.Context, id string) (*models.AdvancedAvailabilitySchedule, error) {
	const op = "storage.postgres.GetAdvancedSchedule"

	rows, err := s.db.QueryContext(ctx,
		`SELECT schedule_id, template_id, start_date::text, end_date::text, recurrence, priority, is_active, weekly_windows
		FROM advanced_schedules WHERE schedule_id=$1`, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	schedules, err := scanSchedules(op, rows)
	if err != nil {
		return nil, err
	}
	if len(schedules) == 0 {
		return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return schedules[0], nil
}

func (s *Storage) ListAdvancedSchedules(ctx context.Context, templateID string) ([]*models.AdvancedAvailabilitySchedule, error) {
	const op = "storage.postgres.ListAdvancedSchedules"

	rows, err := s.db.QueryContext(ctx,
		`SELECT schedule_id, template_id, start_date::text, end_date::text, recurrence, priority, is_active, weekly_windows
		FROM advanced_schedules WHERE template_id=$1 ORDER BY priority DESC, schedule_id`, templateID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	return scanSchedules(op, rows)
}

func scanSchedules(op string, rows *sql.Rows) ([]*models.AdvancedAvailabilitySchedule, error) {
	var schedules []*models.AdvancedAvailabilitySchedule

	for rows.Next() {
		var schedule models.AdvancedAvailabilitySchedule
		var startDate string
		var endDate sql.NullString
		var recurrence, weekly []byte

		err := rows.Scan(
			&schedule.ID,
			&schedule.TemplateID,
			&startDate,
			&endDate,
			&recurrence,
			&schedule.Priority,
			&schedule.IsActive,
			&weekly,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if schedule.StartDate, err = civildate.Parse(startDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if endDate.Valid {
			parsed, err := civildate.Parse(endDate.String)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			schedule.EndDate = &parsed
		}
		if len(recurrence) > 0 {
			var rule models.RecurrenceRule
			if err := json.Unmarshal(recurrence, &rule); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			schedule.Recurrence = &rule
		}
		if schedule.Weekly, err = weeklyFromColumn(weekly); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		schedules = append(schedules, &schedule)
	}

	return schedules, nil
}

func (s *Storage) UpdateAdvancedSchedule(ctx context.Context, schedule *models.AdvancedAvailabilitySchedule) error {
	const op = "storage.postgres.UpdateAdvancedSchedule"

	weekly, recurrence, endDate, err := scheduleColumns(schedule)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE advanced_schedules
		SET start_date=$1, end_date=$2, recurrence=$3, priority=$4, is_active=$5, weekly_windows=$6
		WHERE schedule_id=$7`,
		schedule.StartDate.String(),
		endDate,
		recurrence,
		schedule.Priority,
		schedule.IsActive,
		weekly,
		schedule.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return rowsOrNotFound(op, res)
}

func (s *Storage) DeleteAdvancedSchedule(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteAdvancedSchedule"

	res, err := s.db.ExecContext(ctx, `DELETE FROM advanced_schedules WHERE schedule_id=$1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return rowsOrNotFound(op, res)
}

// #### bookings ####

func (s *Storage) CreateBooking(ctx context.Context, tx *sql.Tx, booking *models.Booking) (string, error) {
	const op = "storage.postgres.CreateBooking"

	id := uuid.NewString()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO bookings
		(booking_id, provider_id, customer_name, customer_email, scheduled_at, duration_minutes, service_type, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`,
		id,
		booking.ProviderID,
		booking.CustomerName,
		booking.CustomerEmail,
		booking.ScheduledAt,
		booking.DurationMinutes,
		booking.ServiceType,
		booking.Notes,
		string(booking.Status),
	)
	if err != nil {
		return "", mapConstraintErr(op, err)
	}

	return id, nil
}

func (s *Storage) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	const op = "storage.postgres.GetBooking"

	var booking models.Booking
	var status string

	err := s.db.QueryRowContext(ctx,
		`SELECT booking_id, provider_id, customer_name, customer_email, scheduled_at, duration_minutes, service_type, notes, status, created_at, updated_at
		FROM bookings WHERE booking_id=$1`, id).
		Scan(
			&booking.ID,
			&booking.ProviderID,
			&booking.CustomerName,
			&booking.CustomerEmail,
			&booking.ScheduledAt,
			&booking.DurationMinutes,
			&booking.ServiceType,
			&booking.Notes,
			&status,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	booking.Status = models.BookingStatus(status)

	return &booking, nil
}

func (s *Storage) ListBookingsInRange(ctx context.Context, providerID string, from, to time.Time) ([]*models.Booking, error) {
	const op = "storage.postgres.ListBookingsInRange"

	rows, err := s.db.QueryContext(ctx,
		`SELECT booking_id, provider_id, customer_name, customer_email, scheduled_at, duration_minutes, service_type, notes, status, created_at, updated_at
		FROM bookings
		WHERE provider_id=$1
		AND status != 'CANCELLED'
		AND scheduled_at < $3
		AND scheduled_at + make_interval(mins => duration_minutes) > $2
		ORDER BY scheduled_at`, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		var booking models.Booking
		var status string

		err := rows.Scan(
			&booking.ID,
			&booking.ProviderID,
			&booking.CustomerName,
			&booking.CustomerEmail,
			&booking.ScheduledAt,
			&booking.DurationMinutes,
			&booking.ServiceType,
			&booking.Notes,
			&status,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		booking.Status = models.BookingStatus(status)

		bookings = append(bookings, &booking)
	}

	return bookings, nil
}

func (s *Storage) CountOverlappingBookings(ctx context.Context, tx *sql.Tx, providerID string, start, end time.Time, excludeBookingID string) (int, error) {
	const op = "storage.postgres.CountOverlappingBookings"

	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings
		WHERE provider_id=$1
		AND status != 'CANCELLED'
		AND booking_id != $2
		AND scheduled_at < $4
		AND scheduled_at + make_interval(mins => duration_minutes) > $3`,
		providerID, excludeBookingID, start, end).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func (s *Storage) UpdateBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus) error {
	const op = "storage.postgres.UpdateBookingStatus"

	res, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET status=$1, updated_at=now() WHERE booking_id=$2`,
		string(status), bookingID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return rowsOrNotFound(op, res)
}

func (s *Storage) UpdateBookingSchedule(ctx context.Context, tx *sql.Tx, bookingID string, newAt time.Time, status models.BookingStatus) error {
	const op = "storage.postgres.UpdateBookingSchedule"

	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET scheduled_at=$1, status=$2, updated_at=now() WHERE booking_id=$3`,
		newAt, string(status), bookingID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return rowsOrNotFound(op, res)
}

func (s *Storage) DeleteBooking(ctx context.Context, bookingID string) error {
	const op = "storage.postgres.DeleteBooking"

	res, err := s.db.ExecContext(ctx, `DELETE FROM bookings WHERE booking_id=$1`, bookingID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return rowsOrNotFound(op, res)
}

// #### calendar connections ####

func (s *Storage) CreateCalendarConnection(ctx context.Context, tx *sql.Tx, conn *models.CalendarConnection) (string, error) {
	const op = "storage.postgres.CreateCalendarConnection"

	id := uuid.NewString()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO calendar_connections
		(connection_id, provider_id, platform, account_email, access_token, refresh_token, token_expires_at, calendar_ref, is_active, default_for_bookings, sync_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id,
		conn.ProviderID,
		string(conn.Platform),
		conn.AccountEmail,
		conn.AccessToken,
		conn.RefreshToken,
		conn.TokenExpiresAt,
		conn.CalendarRef,
		conn.IsActive,
		conn.DefaultForBookings,
		conn.SyncEnabled,
	)
	if err != nil {
		return "", mapConstraintErr(op, err)
	}

	return id, nil
}

const connectionColumns = `connection_id, provider_id, platform, account_email, access_token, refresh_token, token_expires_at, calendar_ref, is_active, default_for_bookings, sync_enabled`

func (s *Storage) GetCalendarConnection(ctx context.Context, id string) (*models.CalendarConnection, error) {
	const op = "storage.postgres.GetCalendarConnection"

	row := s.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM calendar_connections WHERE connection_id=$1`, id)

	conn, err := scanConnection(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return conn, nil
}

func (s *Storage) GetDefaultCalendarConnection(ctx context.Context, providerID string) (*models.CalendarConnection, error) {
	const op = "storage.postgres.GetDefaultCalendarConnection"

	row := s.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM calendar_connections
		WHERE provider_id=$1 AND default_for_bookings=TRUE`, providerID)

	conn, err := scanConnection(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return conn, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*models.CalendarConnection, error) {
	var conn models.CalendarConnection
	var platform string
	var expires sql.NullTime

	err := row.Scan(
		&conn.ID,
		&conn.ProviderID,
		&platform,
		&conn.AccountEmail,
		&conn.AccessToken,
		&conn.RefreshToken,
		&expires,
		&conn.CalendarRef,
		&conn.IsActive,
		&conn.DefaultForBookings,
		&conn.SyncEnabled,
	)
	if err != nil {
		return nil, err
	}

	conn.Platform = models.CalendarPlatform(platform)
	if expires.Valid {
		conn.TokenExpiresAt = expires.Time
	}

	return &conn, nil
}

func (s *Storage) ListCalendarConnections(ctx context.Context, providerID string) ([]*models.CalendarConnection, error) {
	const op = "storage.postgres.ListCalendarConnections"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM calendar_connections
		WHERE provider_id=$1 ORDER BY connection_id`, providerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var conns []*models.CalendarConnection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		conns = append(conns, conn)
	}

	return conns, nil
}

func (s *Storage) UpdateCalendarConnectionTokens(ctx context.Context, conn *models.CalendarConnection) error {
	const op = "storage.postgres.UpdateCalendarConnectionTokens"

	res, err := s.db.ExecContext(ctx,
		`UPDATE calendar_connections
		SET access_token=$1, refresh_token=$2, token_expires_at=$3
		WHERE connection_id=$4`,
		conn.AccessToken,
		conn.RefreshToken,
		conn.TokenExpiresAt,
		conn.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return rowsOrNotFound(op, res)
}

func (s *Storage) ClearDefaultCalendarConnections(ctx context.Context, tx *sql.Tx, providerID string) error {
	const op = "storage.postgres.ClearDefaultCalendarConnections"

	_, err := tx.ExecContext(ctx,
		`UPDATE calendar_connections SET default_for_bookings=FALSE WHERE provider_id=$1`, providerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) SetDefaultCalendarConnection(ctx context.Context, tx *sql.Tx, id string) error {
	const op = "storage.postgres.SetDefaultCalendarConnection"

	res, err := tx.ExecContext(ctx,
		`UPDATE calendar_connections SET default_for_bookings=TRUE WHERE connection_id=$1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return rowsOrNotFound(op, res)
}

func (s *Storage) DeleteCalendarConnection(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteCalendarConnection"

	res, err := s.db.ExecContext(ctx, `DELETE FROM calendar_connections WHERE connection_id=$1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return rowsOrNotFound(op, res)
}

func rowsOrNotFound(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}
