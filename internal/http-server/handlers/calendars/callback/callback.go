package callback

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

type AuthCompleter interface {
	CompleteCalendarAuth(ctx context.Context, state, code string) (*api.CalendarConnectionResponse, error)
}

type Response struct {
	response.Response
	Connection api.CalendarConnectionResponse `json:"connection,omitempty"`
}

func New(log *slog.Logger, completer AuthCompleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.calendars.callback.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		state := r.URL.Query().Get("state")
		code := r.URL.Query().Get("code")

		if state == "" || code == "" {
			log.Error("state or code is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "state and code are required"))
			return
		}

		connection, err := completer.CompleteCalendarAuth(r.Context(), state, code)

		if errors.Is(err, response.ErrUnauthorized) {
			log.Error("invalid oauth state", sl.Err(err))
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "invalid oauth state"))
			return
		}

		if err != nil {
			log.Error("Failed to complete calendar auth", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to complete calendar auth"))
			return
		}

		log.Info("Calendar connected",
			slog.String("connection_id", connection.ID),
			slog.String("platform", connection.Platform),
		)

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{Connection: *connection})
	}
}
