package magic

import (
	"booking-service/api"
	"booking-service/internal/magiclink"
	"booking-service/pkg/response"
	"booking-service/pkg/sl"
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
)

type MagicHandler interface {
	HandleMagicAction(ctx context.Context, token, newScheduledAt string) (*api.BookingResponse, error)
}

// New serves the links customers click in email, so it answers with a small
// HTML page instead of JSON.
func New(log *slog.Logger, handler MagicHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.magic.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := r.URL.Query().Get("token")
		if token == "" {
			log.Error("token is empty")
			renderPage(w, http.StatusBadRequest, "Invalid link", "This link is missing its token.")
			return
		}

		newScheduledAt := r.URL.Query().Get("new_scheduled_at")

		booking, err := handler.HandleMagicAction(r.Context(), token, newScheduledAt)

		if errors.Is(err, magiclink.ErrTokenUsed) {
			log.Error("magic link already used")
			renderPage(w, http.StatusGone, "Link already used", "This link was already used. Request a new one if you still need to change your booking.")
			return
		}

		if errors.Is(err, magiclink.ErrInvalidToken) {
			log.Error("magic link invalid or expired")
			renderPage(w, http.StatusUnauthorized, "Link expired", "This link is invalid or has expired. Request a new one to manage your booking.")
			return
		}

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid magic action request", sl.Err(err))
			renderPage(w, http.StatusBadRequest, "Missing information", "Rescheduling needs a new time. Pick a slot and try again.")
			return
		}

		if errors.Is(err, response.ErrSlotNotAvailable) {
			log.Error("slot is not available")
			renderPage(w, http.StatusConflict, "Slot taken", "That time is no longer available. Pick another slot and try again.")
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Error("booking state conflict", sl.Err(err))
			renderPage(w, http.StatusConflict, "Cannot change booking", "This booking can no longer be changed.")
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			renderPage(w, http.StatusNotFound, "Booking not found", "We could not find this booking.")
			return
		}

		if err != nil {
			log.Error("Failed to handle magic action", sl.Err(err))
			renderPage(w, http.StatusInternalServerError, "Something went wrong", "We could not process your request. Please try again later.")
			return
		}

		log.Info("Magic action handled",
			slog.String("booking_id", booking.ID),
			slog.String("status", booking.Status),
		)

		renderPage(w, http.StatusOK, "Done",
			fmt.Sprintf("Your booking is now %s.", booking.Status))
	}
}

func renderPage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w,
		`<!DOCTYPE html><html><head><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>`,
		html.EscapeString(title), html.EscapeString(title), html.EscapeString(message))
}
