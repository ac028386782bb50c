package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"booking-service/internal/models"
)

// appleClient talks to an iCloud CalDAV collection authenticated with the
// Apple ID and an app-specific password. CalendarRef holds the collection
// URL supplied when the connection was created.
type appleClient struct {
	httpc *http.Client
}

// maxICSOccurrences caps recurrence expansion per event.
const maxICSOccurrences = 500

func (a *appleClient) BusyIntervals(ctx context.Context, conn *models.CalendarConnection, from, to time.Time) ([]models.BusyInterval, error) {
	const op = "calendar.appleClient.BusyIntervals"

	if conn.CalendarRef == "" {
		return nil, fmt.Errorf("%s: connection has no calendar URL", op)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, conn.CalendarRef, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.SetBasicAuth(conn.AccountEmail, conn.AccessToken)

	resp, err := a.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: calendar feed returned %d", op, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cal, err := ical.ParseCalendar(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var busy []models.BusyInterval
	for _, ve := range cal.Events() {
		busy = append(busy, eventBusyIntervals(ve, from, to)...)
	}

	return busy, nil
}

// eventBusyIntervals yields the event's occurrences overlapping [from, to],
// expanding RRULE recurrences when present.
func eventBusyIntervals(ve *ical.VEvent, from, to time.Time) []models.BusyInterval {
	start, err := ve.GetStartAt()
	if err != nil {
		return nil
	}
	end, err := ve.GetEndAt()
	if err != nil || !end.After(start) {
		end = start.Add(time.Hour)
	}
	length := end.Sub(start)

	rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
	if rruleProp == nil || rruleProp.Value == "" {
		if start.Before(to) && end.After(from) {
			return []models.BusyInterval{{Start: start, End: end}}
		}
		return nil
	}

	rule, err := rrule.StrToRRule(rruleProp.Value)
	if err != nil {
		// unparseable recurrence, fall back to the base occurrence
		if start.Before(to) && end.After(from) {
			return []models.BusyInterval{{Start: start, End: end}}
		}
		return nil
	}
	rule.DTStart(start)

	var intervals []models.BusyInterval
	for _, occ := range rule.Between(from.Add(-length), to, true) {
		if len(intervals) >= maxICSOccurrences {
			break
		}
		occEnd := occ.Add(length)
		if occ.Before(to) && occEnd.After(from) {
			intervals = append(intervals, models.BusyInterval{Start: occ, End: occEnd})
		}
	}

	return intervals
}

func (a *appleClient) CreateEvent(ctx context.Context, conn *models.CalendarConnection, event Event) error {
	const op = "calendar.appleClient.CreateEvent"

	if conn.CalendarRef == "" {
		return fmt.Errorf("%s: connection has no calendar URL", op)
	}

	uid := uuid.NewString()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	ve := cal.AddEvent(uid)
	ve.SetDtStampTime(time.Now().UTC())
	ve.SetStartAt(event.Start.UTC())
	ve.SetEndAt(event.End.UTC())
	ve.SetSummary(event.Title)
	ve.SetDescription(event.Description)

	target := strings.TrimSuffix(conn.CalendarRef, "/") + "/" + uid + ".ics"

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, strings.NewReader(cal.Serialize()))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.SetBasicAuth(conn.AccountEmail, conn.AccessToken)
	req.Header.Set("Content-Type", "text/calendar; charset=utf-8")

	resp, err := a.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: caldav PUT returned %d", op, resp.StatusCode)
	}

	return nil
}

func (a *appleClient) ListCalendars(_ context.Context, conn *models.CalendarConnection) ([]Info, error) {
	// CalDAV collection discovery is not implemented; the connection is
	// bound to the single collection URL supplied at connect time.
	return []Info{{ID: conn.CalendarRef, Name: "iCloud Calendar"}}, nil
}

func (a *appleClient) AccountEmail(_ context.Context, conn *models.CalendarConnection) (string, error) {
	return conn.AccountEmail, nil
}
