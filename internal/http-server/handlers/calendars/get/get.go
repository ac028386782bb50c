package get

import (
	"booking-service/api"
	"booking-service/pkg/response"
	"booking-service/pkg/sl"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ConnectionLister interface {
	ListConnections(ctx context.Context, providerID string) ([]*api.CalendarConnectionResponse, error)
}

type Response struct {
	response.Response
	Connections []*api.CalendarConnectionResponse `json:"connections"`
}

func New(log *slog.Logger, lister ConnectionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.calendars.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		providerID := r.URL.Query().Get("provider_id")
		if providerID == "" {
			log.Error("provider_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "provider_id is required"))
			return
		}

		connections, err := lister.ListConnections(r.Context(), providerID)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to list calendar connections", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list calendar connections"))
			return
		}

		log.Info("Calendar connections listed",
			slog.String("provider_id", providerID),
			slog.Int("count", len(connections)),
		)

		render.JSON(w, r, Response{Connections: connections})
	}
}
