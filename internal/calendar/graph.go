package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"booking-service/internal/models"
)

const graphAPIBase = "https://graph.microsoft.com/v1.0"

// graphClient serves both Outlook and Teams connections: both live on the
// Microsoft Graph calendar API and differ only in the OAuth app used.
type graphClient struct {
	httpc *http.Client
}

// graphTime is the zone-less timestamp Graph returns when the request asks
// for UTC via the Prefer header.
const graphTime = "2006-01-02T15:04:05.9999999"

func (g *graphClient) BusyIntervals(ctx context.Context, conn *models.CalendarConnection, from, to time.Time) ([]models.BusyInterval, error) {
	const op = "calendar.graphClient.BusyIntervals"

	q := url.Values{}
	q.Set("startDateTime", from.UTC().Format(time.RFC3339))
	q.Set("endDateTime", to.UTC().Format(time.RFC3339))
	q.Set("$select", "start,end,showAs")
	q.Set("$top", "200")

	endpoint := graphAPIBase + "/me/calendarView?" + q.Encode()
	if conn.CalendarRef != "" {
		endpoint = fmt.Sprintf("%s/me/calendars/%s/calendarView?%s", graphAPIBase, url.PathEscape(conn.CalendarRef), q.Encode())
	}

	var result struct {
		Value []struct {
			ShowAs string `json:"showAs"`
			Start  struct {
				DateTime string `json:"dateTime"`
			} `json:"start"`
			End struct {
				DateTime string `json:"dateTime"`
			} `json:"end"`
		} `json:"value"`
	}

	if err := g.doJSON(ctx, conn, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var busy []models.BusyInterval
	for _, ev := range result.Value {
		if strings.EqualFold(ev.ShowAs, "free") {
			continue
		}
		start, err := time.ParseInLocation(graphTime, ev.Start.DateTime, time.UTC)
		if err != nil {
			continue
		}
		end, err := time.ParseInLocation(graphTime, ev.End.DateTime, time.UTC)
		if err != nil {
			continue
		}
		busy = append(busy, models.BusyInterval{Start: start, End: end})
	}

	return busy, nil
}

func (g *graphClient) CreateEvent(ctx context.Context, conn *models.CalendarConnection, event Event) error {
	const op = "calendar.graphClient.CreateEvent"

	body := map[string]interface{}{
		"subject": event.Title,
		"body": map[string]string{
			"contentType": "text",
			"content":     event.Description,
		},
		"start": map[string]string{
			"dateTime": event.Start.UTC().Format(graphTime),
			"timeZone": "UTC",
		},
		"end": map[string]string{
			"dateTime": event.End.UTC().Format(graphTime),
			"timeZone": "UTC",
		},
	}

	endpoint := graphAPIBase + "/me/events"
	if conn.CalendarRef != "" {
		endpoint = fmt.Sprintf("%s/me/calendars/%s/events", graphAPIBase, url.PathEscape(conn.CalendarRef))
	}

	if err := g.doJSON(ctx, conn, http.MethodPost, endpoint, body, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (g *graphClient) ListCalendars(ctx context.Context, conn *models.CalendarConnection) ([]Info, error) {
	const op = "calendar.graphClient.ListCalendars"

	var result struct {
		Value []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			CanEdit bool   `json:"canEdit"`
		} `json:"value"`
	}

	if err := g.doJSON(ctx, conn, http.MethodGet, graphAPIBase+"/me/calendars", nil, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	calendars := make([]Info, 0, len(result.Value))
	for _, c := range result.Value {
		if !c.CanEdit {
			continue
		}
		calendars = append(calendars, Info{ID: c.ID, Name: c.Name})
	}

	return calendars, nil
}

func (g *graphClient) AccountEmail(ctx context.Context, conn *models.CalendarConnection) (string, error) {
	const op = "calendar.graphClient.AccountEmail"

	var result struct {
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}

	if err := g.doJSON(ctx, conn, http.MethodGet, graphAPIBase+"/me", nil, &result); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if result.Mail != "" {
		return result.Mail, nil
	}

	return result.UserPrincipalName, nil
}

func (g *graphClient) doJSON(ctx context.Context, conn *models.CalendarConnection, method, endpoint string, body interface{}, out interface{}) error {
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
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("graph API returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
