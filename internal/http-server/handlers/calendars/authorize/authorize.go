package authorize

import (
	"booking-service/pkg/response"
	"booking-service/pkg/sl"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type AuthStarter interface {
	BeginCalendarAuth(ctx context.Context, providerID, platformTag string) (string, error)
}

func New(log *slog.Logger, starter AuthStarter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.calendars.authorize.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		providerID := r.URL.Query().Get("provider_id")
		platform := r.URL.Query().Get("platform")

		if providerID == "" || platform == "" {
			log.Error("provider_id or platform is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "provider_id and platform are required"))
			return
		}

		authURL, err := starter.BeginCalendarAuth(r.Context(), providerID, platform)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("unsupported platform", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "unsupported calendar platform"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to start calendar auth", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to start calendar auth"))
			return
		}

		log.Info("Calendar auth started",
			slog.String("provider_id", providerID),
			slog.String("platform", platform),
		)

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}
