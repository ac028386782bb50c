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
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type ScheduleGetter interface {
	GetSchedule(ctx context.Context, id string) (*api.AdvancedScheduleResponse, error)
	ListSchedules(ctx context.Context, templateID string) ([]*api.AdvancedScheduleResponse, error)
}

type Response struct {
	response.Response
	Schedule  *api.AdvancedScheduleResponse  `json:"schedule,omitempty"`
	Schedules []api.AdvancedScheduleResponse `json:"schedules,omitempty"`
}

func New(log *slog.Logger, getter ScheduleGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.schedules.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		if id != "" {
			schedule, err := getter.GetSchedule(r.Context(), id)

			if errors.Is(err, response.ErrNotFound) {
				log.Error("resource not found")
				w.WriteHeader(http.StatusNotFound)
				render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
				return
			}

			if err != nil {
				log.Error("Failed to get schedule", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to get schedule"))
				return
			}

			log.Info("Schedule retrieved", slog.Any("schedule", schedule))
			render.JSON(w, r, Response{Schedule: schedule})
			return
		}

		templateID := r.URL.Query().Get("template_id")
		if templateID == "" {
			log.Error("template_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "template_id is required"))
			return
		}

		schedules, err := getter.ListSchedules(r.Context(), templateID)

		if err != nil {
			log.Error("Failed to list schedules", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list schedules"))
			return
		}

		log.Info("Schedules retrieved", slog.Int("count", len(schedules)))
		schedulesResponse := make([]api.AdvancedScheduleResponse, len(schedules))
		for i, s := range schedules {
			schedulesResponse[i] = *s
		}
		render.JSON(w, r, Response{Schedules: schedulesResponse})
	}
}
