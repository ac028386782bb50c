package update

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

type ScheduleUpdater interface {
	UpdateSchedule(ctx context.Context, id string, req api.AdvancedScheduleRequest) (*api.AdvancedScheduleResponse, error)
}

type Request struct {
	api.AdvancedScheduleRequest
}

type Response struct {
	response.Response
	Schedule api.AdvancedScheduleResponse `json:"schedule,omitempty"`
}

func New(log *slog.Logger, updater ScheduleUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.schedules.update.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			log.Error("id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "id is required"))
			return
		}

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		log.Info("Request body decoded", slog.Any("request", req))

		schedule, err := updater.UpdateSchedule(r.Context(), id, req.AdvancedScheduleRequest)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid schedule payload", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid schedule payload"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to update schedule", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to update schedule"))
			return
		}

		log.Info("Schedule updated", slog.Any("schedule", schedule))
		responseOK(w, r, schedule)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, schedule *api.AdvancedScheduleResponse) {
	render.JSON(w, r, Response{
		Schedule: *schedule,
	})
}
