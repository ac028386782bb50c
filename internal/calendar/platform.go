// Package calendar talks to the external calendar platforms. Each platform
// registers a Client in the Registry; callers dispatch on the platform tag
// instead of branching on platform strings.
package calendar

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"booking-service/internal/config"
	"booking-service/internal/models"
)

var ErrUnsupportedPlatform = errors.New("unsupported calendar platform")

type Event struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

type Info struct {
	ID   string
	Name string
}

type Client interface {
	BusyIntervals(ctx context.Context, conn *models.CalendarConnection, from, to time.Time) ([]models.BusyInterval, error)
	CreateEvent(ctx context.Context, conn *models.CalendarConnection, event Event) error
	ListCalendars(ctx context.Context, conn *models.CalendarConnection) ([]Info, error)
	AccountEmail(ctx context.Context, conn *models.CalendarConnection) (string, error)
}

type Registry struct {
	clients   map[models.CalendarPlatform]Client
	oauth     map[models.CalendarPlatform]oauthEndpoints
	httpc     *http.Client
}

func NewRegistry(cfg config.Calendar) *Registry {
	httpc := &http.Client{Timeout: 15 * time.Second}

	r := &Registry{
		clients: map[models.CalendarPlatform]Client{},
		oauth:   map[models.CalendarPlatform]oauthEndpoints{},
		httpc:   httpc,
	}

	r.clients[models.PlatformGoogle] = &googleClient{httpc: httpc}
	r.clients[models.PlatformOutlook] = &graphClient{httpc: httpc}
	r.clients[models.PlatformTeams] = &graphClient{httpc: httpc}
	r.clients[models.PlatformApple] = &appleClient{httpc: httpc}

	r.oauth[models.PlatformGoogle] = googleOAuth(cfg.Google)
	r.oauth[models.PlatformOutlook] = microsoftOAuth(cfg.Outlook)
	r.oauth[models.PlatformTeams] = microsoftOAuth(cfg.Teams)

	return r
}

func (r *Registry) Client(platform models.CalendarPlatform) (Client, error) {
	c, ok := r.clients[platform]
	if !ok {
		return nil, ErrUnsupportedPlatform
	}
	return c, nil
}

// ParsePlatform validates a platform tag from user input.
func ParsePlatform(s string) (models.CalendarPlatform, error) {
	switch models.CalendarPlatform(strings.ToLower(s)) {
	case models.PlatformGoogle:
		return models.PlatformGoogle, nil
	case models.PlatformOutlook:
		return models.PlatformOutlook, nil
	case models.PlatformTeams:
		return models.PlatformTeams, nil
	case models.PlatformApple:
		return models.PlatformApple, nil
	default:
		return "", ErrUnsupportedPlatform
	}
}

// readOnlyCalendarNames are substrings of system calendars that cannot take
// bookings. Matched case-insensitively against calendar display names.
var readOnlyCalendarNames = []string{
	"holiday",
	"holidays",
	"birthday",
	"birthdays",
	"week numbers",
	"phases of the moon",
	"contacts",
	"united states holidays",
	"suggested",
}

// FilterWritable drops calendars whose names hit the read-only denylist.
func FilterWritable(calendars []Info) []Info {
	result := make([]Info, 0, len(calendars))

	for _, c := range calendars {
		name := strings.ToLower(c.Name)
		blocked := false
		for _, deny := range readOnlyCalendarNames {
			if strings.Contains(name, deny) {
				blocked = true
				break
			}
		}
		if !blocked {
			result = append(result, c)
		}
	}

	return result
}
