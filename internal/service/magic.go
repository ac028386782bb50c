package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"booking-service/api"
	"booking-service/internal/magiclink"
	"booking-service/pkg/response"
)

// IssueMagicLinks mints the confirm, cancel and reschedule tokens for a
// booking. The caller must present the booking's customer email; a mismatch
// is reported as not found so the endpoint does not confirm which booking
// IDs exist.
func (s *Service) IssueMagicLinks(ctx context.Context, req api.MagicLinkIssueRequest) (*api.MagicLinkIssueResponse, error) {
	const op = "service.IssueMagicLinks"

	booking, err := s.store.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !strings.EqualFold(booking.CustomerEmail, req.CustomerEmail) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	counterKey := "magiclink:issue:" + strings.ToLower(req.CustomerEmail)
	issued, err := s.counters.Incr(ctx, counterKey, time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if issued > s.magicIssuesPerHour {
		return nil, fmt.Errorf("%s: too many magic links requested: %w", op, response.ErrLocked)
	}

	resp := &api.MagicLinkIssueResponse{}

	if resp.ConfirmToken, err = s.magic.Issue(booking.ID, booking.CustomerEmail, magiclink.ActionConfirm); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.CancelToken, err = s.magic.Issue(booking.ID, booking.CustomerEmail, magiclink.ActionCancel); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.RescheduleToken, err = s.magic.Issue(booking.ID, booking.CustomerEmail, magiclink.ActionReschedule); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return resp, nil
}

// HandleMagicAction verifies a token and performs the action it encodes.
// newScheduledAt is only consulted for reschedule tokens.
func (s *Service) HandleMagicAction(ctx context.Context, token, newScheduledAt string) (*api.BookingResponse, error) {
	const op = "service.HandleMagicAction"

	claims, err := s.magic.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	booking, err := s.store.GetBooking(ctx, claims.BookingID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// the token was issued for this booking's customer; a mismatch means the
	// email changed since issuance
	if !strings.EqualFold(booking.CustomerEmail, claims.CustomerEmail) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	// magic links are clicked by the customer, so the notification from the
	// resulting action goes to the provider
	switch claims.Action {
	case magiclink.ActionConfirm:
		return s.confirmBookingAs(ctx, booking.ID, actorCustomer)
	case magiclink.ActionCancel:
		return s.cancelBookingAs(ctx, booking.ID, actorCustomer)
	case magiclink.ActionReschedule:
		if newScheduledAt == "" {
			return nil, fmt.Errorf("%s: new_scheduled_at is required: %w", op, response.ErrBadRequest)
		}
		return s.rescheduleBookingAs(ctx, api.BookingRescheduleRequest{
			BookingID:      booking.ID,
			NewScheduledAt: newScheduledAt,
		}, actorCustomer)
	default:
		return nil, fmt.Errorf("%s: %w", op, magiclink.ErrInvalidToken)
	}
}
