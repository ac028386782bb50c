package disconnect

import (
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

type Disconnector interface {
	DisconnectCalendar(ctx context.Context, connectionID string) error
}

type Response struct {
	response.Response
	Deleted bool `json:"deleted"`
}

func New(log *slog.Logger, disconnector Disconnector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.calendars.disconnect.New"

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

		err := disconnector.DisconnectCalendar(r.Context(), connectionID)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to disconnect calendar", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to disconnect calendar"))
			return
		}

		log.Info("Calendar disconnected", slog.String("connection_id", connectionID))

		render.JSON(w, r, Response{Deleted: true})
	}
}
