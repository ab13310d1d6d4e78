package ingest

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"OrderPulse/entity"
	"OrderPulse/internal/lib/api/cont"
	"OrderPulse/internal/lib/api/response"
	"OrderPulse/internal/lib/sl"
)

type Request struct {
	Platform string                  `json:"platform" validate:"required,oneof=whatsapp instagram"`
	Messages []entity.InboundMessage `json:"messages" validate:"required,min=1,dive"`
}

// Ingest accepts a batch of raw platform messages for the caller's tenant.
func Ingest(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.ingest"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user := cont.GetUser(r.Context())
		if user == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		var req Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			logger.Warn("decoding request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}
		if err := validator.New().Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Validation failed: %v", err)))
			return
		}

		report, err := handler.Ingest(r.Context(), user.Tenant, req.Platform, req.Messages)
		if err != nil {
			logger.Error("ingest batch", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(fmt.Sprintf("Ingest failed: %v", err)))
			return
		}

		logger.Debug("batch ingested",
			slog.Int("processed", report.Processed),
			slog.Int("new", report.NewMessages),
		)
		render.JSON(w, r, response.Ok(report))
	}
}
