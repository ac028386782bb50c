package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"booking-service/internal/models"
)

const googleAPIBase = "https://www.googleapis.com/calendar/v3"

type googleClient struct {
	httpc *http.Client
}

func (g *googleClient) calendarRef(conn *models.CalendarConnection) string {
	if conn.CalendarRef != "" {
		return conn.CalendarRef
	}
	return "primary"
}

func (g *googleClient) BusyIntervals(ctx context.Context, conn *models.CalendarConnection, from, to time.Time) ([]models.BusyInterval, error) {
	const op = "calendar.googleClient.BusyIntervals"

	body := map[string]interface{}{
		"timeMin": from.UTC().Format(time.RFC3339),
		"timeMax": to.UTC().Format(time.RFC3339),
		"items":   []map[string]string{{"id": g.calendarRef(conn)}},
	}

	var result struct {
		Calendars map[string]struct {
			Busy []struct {
				Start time.Time `json:"start"`
				End   time.Time `json:"end"`
			} `json:"busy"`
		} `json:"calendars"`
	}

	if err := g.doJSON(ctx, conn, http.MethodPost, googleAPIBase+"/freeBusy", body, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var busy []models.BusyInterval
	for _, cal := range result.Calendars {
		for _, b := range cal.Busy {
			busy = append(busy, models.BusyInterval{Start: b.Start, End: b.End})
		}
	}

	return busy, nil
}

func (g *googleClient) CreateEvent(ctx context.Context, conn *models.CalendarConnection, event Event) error {
	const op = "calendar.googleClient.CreateEvent"

	body := map[string]interface{}{
		"summary":     event.Title,
		"description": event.Description,
		"start":       map[string]string{"dateTime": event.Start.UTC().Format(time.RFC3339), "timeZone": "UTC"},
		"end":         map[string]string{"dateTime": event.End.UTC().Format(time.RFC3339), "timeZone": "UTC"},
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", googleAPIBase, url.PathEscape(g.calendarRef(conn)))

	if err := g.doJSON(ctx, conn, http.MethodPost, endpoint, body, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (g *googleClient) ListCalendars(ctx context.Context, conn *models.CalendarConnection) ([]Info, error) {
	const op = "calendar.googleClient.ListCalendars"

	var result struct {
		Items []struct {
			ID         string `json:"id"`
			Summary    string `json:"summary"`
			AccessRole string `json:"accessRole"`
		} `json:"items"`
	}

	if err := g.doJSON(ctx, conn, http.MethodGet, googleAPIBase+"/users/me/calendarList", nil, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	calendars := make([]Info, 0, len(result.Items))
	for _, item := range result.Items {
		if item.AccessRole == "reader" || item.AccessRole == "freeBusyReader" {
			continue
		}
		calendars = append(calendars, Info{ID: item.ID, Name: item.Summary})
	}

	return calendars, nil
}

func (g *googleClient) AccountEmail(ctx context.Context, conn *models.CalendarConnection) (string, error) {
	const op = "calendar.googleClient.AccountEmail"

	var result struct {
		Email string `json:"email"`
	}

	if err := g.doJSON(ctx, conn, http.MethodGet, "https://www.googleapis.com/oauth2/v2/userinfo", nil, &result); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return result.Email, nil
}

func (g *googleClient) doJSON(ctx context.Context, conn *models.CalendarConnection, method, endpoint string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("google calendar API returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
