package sync

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"OrderPulse/internal/lib/api/cont"
	"OrderPulse/internal/lib/api/response"
	"OrderPulse/internal/lib/sl"
)

type TriggerRequest struct {
	Platform string `json:"platform" validate:"required,oneof=whatsapp instagram"`
}

// Trigger runs one sync pass for the caller's tenant. Conflicts come back as
// report outcomes with a 200, matching the orchestrator contract.
func Trigger(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.sync"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user := cont.GetUser(r.Context())
		if user == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		var req TriggerRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}
		if err := validator.New().Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Validation failed: %v", err)))
			return
		}

		report, err := handler.TriggerSync(r.Context(), user.Tenant, req.Platform)
		if err != nil {
			logger.Error("trigger sync", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(fmt.Sprintf("Sync failed: %v", err)))
			return
		}

		logger.Debug("sync triggered", slog.String("outcome", report.Outcome))
		render.JSON(w, r, response.Ok(report))
	}
}
