package create

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

type ScheduleCreator interface {
	CreateSchedule(ctx context.Context, req api.AdvancedScheduleRequest) (*api.AdvancedScheduleResponse, error)
}

type Request struct {
	api.AdvancedScheduleRequest
}

type Response struct {
	response.Response
	Schedule api.AdvancedScheduleResponse `json:"schedule,omitempty"`
}

func New(log *slog.Logger, creator ScheduleCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.schedules.create.New"

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

		log.Info("Request body decoded", slog.Any("request", req))

		if req.TemplateID == "" {
			log.Error("template_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "template_id is required"))
			return
		}

		schedule, err := creator.CreateSchedule(r.Context(), req.AdvancedScheduleRequest)

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
			log.Error("Failed to create schedule", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to create schedule"))
			return
		}

		log.Info("Schedule created", slog.Any("schedule", schedule))

		w.WriteHeader(http.StatusCreated)
		responseOK(w, r, schedule)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, schedule *api.AdvancedScheduleResponse) {
	render.JSON(w, r, Response{
		Schedule: *schedule,
	})
}
