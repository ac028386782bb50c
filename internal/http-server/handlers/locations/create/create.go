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

type LocationCreator interface {
	CreateLocation(ctx context.Context, req api.LocationRequest) (*api.LocationResponse, error)
}

type Request struct {
	api.LocationRequest
}

type Response struct {
	response.Response
	Location api.LocationResponse `json:"location,omitempty"`
}

func New(log *slog.Logger, creator LocationCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.locations.create.New"

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

		if req.ProviderID == "" {
			log.Error("provider_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "provider_id is required"))
			return
		}

		location, err := creator.CreateLocation(r.Context(), req.LocationRequest)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid location payload", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid location payload"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to create location", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to create location"))
			return
		}

		log.Info("Location created", slog.Any("location", location))

		w.WriteHeader(http.StatusCreated)
		responseOK(w, r, location)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, location *api.LocationResponse) {
	render.JSON(w, r, Response{
		Location: *location,
	})
}
