package available

import (
	"booking-service/api"
	"booking-service/pkg/response"
	"booking-service/pkg/sl"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type CalendarLister interface {
	ListAvailableCalendars(ctx context.Context, connectionID string) ([]*api.AvailableCalendarResponse, error)
}

type Response struct {
	response.Response
	Calendars []*api.AvailableCalendarResponse `json:"calendars"`
}

func New(log *slog.Logger, lister CalendarLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.calendars.available.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		connectionID := chi.URLParam(r, "id")
		if connectionID == "" {
			log.Error("connection id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "connection id is required"))
			return
		}

		calendars, err := lister.ListAvailableCalendars(r.Context(), connectionID)

		if errors.Is(err, response.ErrNeedsReauth) {
			log.Error("calendar connection needs reauthorization", sl.Err(err))
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error(string(response.NEEDS_REAUTH), "calendar connection needs reauthorization"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to list available calendars", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list available calendars"))
			return
		}

		log.Info("Available calendars listed",
			slog.String("connection_id", connectionID),
			slog.Int("count", len(calendars)),
		)

		render.JSON(w, r, Response{Calendars: calendars})
	}
}
