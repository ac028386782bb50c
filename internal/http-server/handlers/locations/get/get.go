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

type LocationGetter interface {
	GetLocation(ctx context.Context, id string) (*api.LocationResponse, error)
	ListLocations(ctx context.Context, providerID string) ([]*api.LocationResponse, error)
}

type Response struct {
	response.Response
	Location  *api.LocationResponse  `json:"location,omitempty"`
	Locations []api.LocationResponse `json:"locations,omitempty"`
}

func New(log *slog.Logger, getter LocationGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.locations.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		if id != "" {
			location, err := getter.GetLocation(r.Context(), id)

			if errors.Is(err, response.ErrNotFound) {
				log.Error("resource not found")
				w.WriteHeader(http.StatusNotFound)
				render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
				return
			}

			if err != nil {
				log.Error("Failed to get location", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to get location"))
				return
			}

			log.Info("Location retrieved", slog.Any("location", location))
			render.JSON(w, r, Response{Location: location})
			return
		}

		providerID := r.URL.Query().Get("provider_id")
		if providerID == "" {
			log.Error("provider_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "provider_id is required"))
			return
		}

		locations, err := getter.ListLocations(r.Context(), providerID)

		if err != nil {
			log.Error("Failed to list locations", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list locations"))
			return
		}

		log.Info("Locations retrieved", slog.Int("count", len(locations)))
		locationsResponse := make([]api.LocationResponse, len(locations))
		for i, l := range locations {
			locationsResponse[i] = *l
		}
		render.JSON(w, r, Response{Locations: locationsResponse})
	}
}
