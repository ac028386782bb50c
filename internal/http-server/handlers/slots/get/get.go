package get

import (
	"booking-service/api"
	"booking-service/internal/civildate"
	"booking-service/pkg/response"
	"booking-service/pkg/sl"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type SlotLister interface {
	ListSlots(ctx context.Context, providerID string, date civildate.Date, durationMinutes int) ([]*api.SlotResponse, error)
}

type Response struct {
	response.Response
	Slots []api.SlotResponse `json:"slots"`
}

func New(log *slog.Logger, lister SlotLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		providerID := chi.URLParam(r, "id")
		if providerID == "" {
			providerID = r.URL.Query().Get("provider_id")
		}
		if providerID == "" {
			log.Error("provider id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "provider id is required"))
			return
		}

		dateStr := r.URL.Query().Get("date")
		if dateStr == "" {
			log.Error("date is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "date is required"))
			return
		}

		date, err := civildate.Parse(dateStr)
		if err != nil {
			log.Error("invalid date", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "date must be YYYY-MM-DD"))
			return
		}

		duration := 0
		if durationStr := r.URL.Query().Get("duration"); durationStr != "" {
			duration, err = strconv.Atoi(durationStr)
			if err != nil {
				log.Error("invalid duration", sl.Err(err))
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "duration must be an integer"))
				return
			}
		}

		slots, err := lister.ListSlots(r.Context(), providerID, date, duration)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid slot query", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid slot query"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to list slots", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list slots"))
			return
		}

		log.Info("Slots retrieved", slog.Int("count", len(slots)))

		slotsResponse := make([]api.SlotResponse, len(slots))
		for i, s := range slots {
			slotsResponse[i] = *s
		}
		render.JSON(w, r, Response{Slots: slotsResponse})
	}
}
