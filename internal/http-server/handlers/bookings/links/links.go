package links

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

type LinkIssuer interface {
	IssueMagicLinks(ctx context.Context, req api.MagicLinkIssueRequest) (*api.MagicLinkIssueResponse, error)
}

type Request struct {
	api.MagicLinkIssueRequest
}

type Response struct {
	response.Response
	Links api.MagicLinkIssueResponse `json:"links,omitempty"`
}

func New(log *slog.Logger, issuer LinkIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.links.New"

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

		if req.BookingID == "" || req.CustomerEmail == "" {
			log.Error("booking_id or customer_email is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "booking_id and customer_email are required"))
			return
		}

		links, err := issuer.IssueMagicLinks(r.Context(), req.MagicLinkIssueRequest)

		if errors.Is(err, response.ErrLocked) {
			log.Error("magic link rate limit hit")
			w.WriteHeader(http.StatusTooManyRequests)
			render.JSON(w, r, response.Error(string(response.LOCKED), "too many magic links requested"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to issue magic links", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to issue magic links"))
			return
		}

		log.Info("Magic links issued", slog.String("booking_id", req.BookingID))

		render.JSON(w, r, Response{Links: *links})
	}
}
