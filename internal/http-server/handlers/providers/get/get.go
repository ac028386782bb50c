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

type ProviderGetter interface {
	GetProviderInfo(ctx context.Context, id string) (*api.ProviderResponse, error)
}

type Response struct {
	response.Response
	Provider api.ProviderResponse `json:"provider,omitempty"`
}

func New(log *slog.Logger, getter ProviderGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.providers.get.New"

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

		provider, err := getter.GetProviderInfo(r.Context(), id)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to get provider", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to get provider"))
			return
		}

		log.Info("Provider retrieved", slog.Any("provider", provider))
		responseOK(w, r, provider)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, provider *api.ProviderResponse) {
	render.JSON(w, r, Response{
		Provider: *provider,
	})
}
