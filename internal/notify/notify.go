// Package notify is the seam for booking lifecycle notifications. Outbound
// message content and delivery live outside this service; the slog
// implementation records the intent so a mailer can be swapped in.
package notify

import (
	"context"
	"log/slog"

	"booking-service/internal/models"
)

type Notifier interface {
	BookingCancelled(ctx context.Context, booking *models.Booking, recipient string)
	BookingRescheduled(ctx context.Context, booking *models.Booking, recipient string)
	BookingConfirmed(ctx context.Context, booking *models.Booking, recipient string)
}

type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) BookingCancelled(_ context.Context, booking *models.Booking, recipient string) {
	n.log.Info("Notify: booking cancelled",
		slog.String("booking_id", booking.ID),
		slog.String("recipient", recipient),
	)
}

func (n *LogNotifier) BookingRescheduled(_ context.Context, booking *models.Booking, recipient string) {
	n.log.Info("Notify: booking rescheduled",
		slog.String("booking_id", booking.ID),
		slog.String("recipient", recipient),
		slog.Time("scheduled_at", booking.ScheduledAt),
	)
}

func (n *LogNotifier) BookingConfirmed(_ context.Context, booking *models.Booking, recipient string) {
	n.log.Info("Notify: booking confirmed",
		slog.String("booking_id", booking.ID),
		slog.String("recipient", recipient),
	)
}
