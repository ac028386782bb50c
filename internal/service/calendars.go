package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"booking-service/api"
	"booking-service/internal/calendar"
	"booking-service/internal/models"
	"booking-service/pkg/response"
)

// oauthStateTTL bounds how long a consent screen can sit open.
const oauthStateTTL = 15 * time.Minute

// stateClaims ride through the platform's OAuth redirect so the callback
// knows which provider and platform started the flow without server-side
// session state.
type stateClaims struct {
	ProviderID string `json:"provider_id"`
	Platform   string `json:"platform"`
	jwt.RegisteredClaims
}

// BeginCalendarAuth returns the consent URL for an OAuth-backed platform.
// Apple connections use an app-specific password and skip this flow.
func (s *Service) BeginCalendarAuth(ctx context.Context, providerID, platformTag string) (string, error) {
	const op = "service.BeginCalendarAuth"

	if _, err := s.store.GetProvider(ctx, providerID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	platform, err := calendar.ParsePlatform(platformTag)
	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", op, err, response.ErrBadRequest)
	}
	if platform == models.PlatformApple {
		return "", fmt.Errorf("%s: apple calendars connect with an app password: %w", op, response.ErrBadRequest)
	}

	now := time.Now()
	claims := stateClaims{
		ProviderID: providerID,
		Platform:   string(platform),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(oauthStateTTL)),
		},
	}

	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.stateSecret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	authURL, err := s.calendars.AuthorizeURL(platform, state)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return authURL, nil
}

// CompleteCalendarAuth handles the OAuth redirect: validates the state,
// exchanges the code and stores the connection. The first connection for a
// provider becomes the default for booking events.
func (s *Service) CompleteCalendarAuth(ctx context.Context, state, code string) (*api.CalendarConnectionResponse, error) {
	const op = "service.CompleteCalendarAuth"

	var claims stateClaims
	parsed, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.stateSecret, nil
	})
	if err != nil || !parsed.Valid || claims.ProviderID == "" {
		return nil, fmt.Errorf("%s: invalid oauth state: %w", op, response.ErrUnauthorized)
	}

	platform, err := calendar.ParsePlatform(claims.Platform)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, response.ErrUnauthorized)
	}

	token, err := s.calendars.ExchangeCode(ctx, platform, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn := &models.CalendarConnection{
		ProviderID:     claims.ProviderID,
		Platform:       platform,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: token.ExpiresAt,
		IsActive:       true,
		SyncEnabled:    true,
	}

	client, err := s.calendars.Client(platform)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	email, err := client.AccountEmail(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	conn.AccountEmail = email

	return s.saveConnection(ctx, conn)
}

// ConnectAppleCalendar stores an iCloud CalDAV connection authenticated with
// an app-specific password.
func (s *Service) ConnectAppleCalendar(ctx context.Context, req api.AppleConnectRequest) (*api.CalendarConnectionResponse, error) {
	const op = "service.ConnectAppleCalendar"

	if _, err := s.store.GetProvider(ctx, req.ProviderID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if req.AppleID == "" || req.AppPassword == "" || req.CalendarURL == "" {
		return nil, fmt.Errorf("%s: apple_id, app_password and calendar_url are required: %w", op, response.ErrBadRequest)
	}

	conn := &models.CalendarConnection{
		ProviderID:   req.ProviderID,
		Platform:     models.PlatformApple,
		AccountEmail: req.AppleID,
		AccessToken:  req.AppPassword,
		CalendarRef:  req.CalendarURL,
		IsActive:     true,
		SyncEnabled:  true,
	}

	// validate the credentials before storing them
	client, err := s.calendars.Client(models.PlatformApple)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := time.Now()
	if _, err := client.BusyIntervals(ctx, conn, now, now.Add(time.Hour)); err != nil {
		return nil, fmt.Errorf("%s: calendar feed check failed: %w", op, response.ErrUnauthorized)
	}

	return s.saveConnection(ctx, conn)
}

func (s *Service) saveConnection(ctx context.Context, conn *models.CalendarConnection) (*api.CalendarConnectionResponse, error) {
	const op = "service.saveConnection"

	existing, err := s.store.ListCalendarConnections(ctx, conn.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	conn.DefaultForBookings = len(existing) == 0

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

	id, err := s.store.CreateCalendarConnection(ctx, tx, conn)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn.ID = id

	return connectionToAPI(conn), nil
}

func (s *Service) ListConnections(ctx context.Context, providerID string) ([]*api.CalendarConnectionResponse, error) {
	const op = "service.ListConnections"

	conns, err := s.store.ListCalendarConnections(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*api.CalendarConnectionResponse, 0, len(conns))
	for _, conn := range conns {
		result = append(result, connectionToAPI(conn))
	}

	return result, nil
}

// ListAvailableCalendars asks the platform which of the account's calendars
// can take events, dropping read-only system calendars.
func (s *Service) ListAvailableCalendars(ctx context.Context, connectionID string) ([]*api.AvailableCalendarResponse, error) {
	const op = "service.ListAvailableCalendars"

	conn, err := s.store.GetCalendarConnection(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	changed, err := s.calendars.EnsureFresh(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if changed {
		if err := s.store.UpdateCalendarConnectionTokens(ctx, conn); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	client, err := s.calendars.Client(conn.Platform)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	calendars, err := client.ListCalendars(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	writable := calendar.FilterWritable(calendars)
	result := make([]*api.AvailableCalendarResponse, 0, len(writable))
	for _, c := range writable {
		result = append(result, &api.AvailableCalendarResponse{ID: c.ID, Name: c.Name})
	}

	return result, nil
}

// SetDefaultConnection marks one connection as the target for booking events.
func (s *Service) SetDefaultConnection(ctx context.Context, connectionID string) error {
	const op = "service.SetDefaultConnection"

	conn, err := s.store.GetCalendarConnection(ctx, connectionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := s.store.ClearDefaultCalendarConnections(ctx, tx, conn.ProviderID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.SetDefaultCalendarConnection(ctx, tx, connectionID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) DisconnectCalendar(ctx context.Context, connectionID string) error {
	const op = "service.DisconnectCalendar"

	if err := s.store.DeleteCalendarConnection(ctx, connectionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func connectionToAPI(conn *models.CalendarConnection) *api.CalendarConnectionResponse {
	return &api.CalendarConnectionResponse{
		ID:                 conn.ID,
		ProviderID:         conn.ProviderID,
		Platform:           string(conn.Platform),
		AccountEmail:       conn.AccountEmail,
		IsActive:           conn.IsActive,
		DefaultForBookings: conn.DefaultForBookings,
		SyncEnabled:        conn.SyncEnabled,
	}
}
