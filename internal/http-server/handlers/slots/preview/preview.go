package preview

import (
	"booking-service/api"
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

type SlotPreviewer interface {
	PreviewSlots(ctx context.Context, providerID string, daysAhead int) ([]*api.DayAvailabilityResponse, error)
}

type Response struct {
	response.Response
	Days []api.DayAvailabilityResponse `json:"days"`
}

func New(log *slog.Logger, previewer SlotPreviewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.preview.New"

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

		daysAhead := 0
		if daysStr := r.URL.Query().Get("days_ahead"); daysStr != "" {
			if days, err := strconv.Atoi(daysStr); err == nil {
				daysAhead = days
			}
		}

		days, err := previewer.PreviewSlots(r.Context(), providerID, daysAhead)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to preview slots", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to preview slots"))
			return
		}

		log.Info("Slot preview computed", slog.Int("days", len(days)))

		daysResponse := make([]api.DayAvailabilityResponse, len(days))
		for i, d := range days {
			daysResponse[i] = *d
		}
		render.JSON(w, r, Response{Days: daysResponse})
	}
}
