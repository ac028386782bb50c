package apple

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

type AppleConnector interface {
	ConnectAppleCalendar(ctx context.Context, req api.AppleConnectRequest) (*api.CalendarConnectionResponse, error)
}

type Request struct {
	api.AppleConnectRequest
}

type Response struct {
	response.Response
	Connection api.CalendarConnectionResponse `json:"connection,omitempty"`
}

func New(log *slog.Logger, connector AppleConnector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.calendars.apple.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		if req.ProviderID == "" {
			log.Error("provider_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "provider_id is required"))
			return
		}

		connection, err := connector.ConnectAppleCalendar(r.Context(), req.AppleConnectRequest)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid apple connect payload", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "apple_id, app_password and calendar_url are required"))
			return
		}

		if errors.Is(err, response.ErrUnauthorized) {
			log.Error("apple calendar credentials rejected", sl.Err(err))
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "calendar credentials were rejected"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to connect apple calendar", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to connect apple calendar"))
			return
		}

		log.Info("Apple calendar connected", slog.String("connection_id", connection.ID))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{Connection: *connection})
	}
}
