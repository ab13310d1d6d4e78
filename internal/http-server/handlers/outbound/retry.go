package outbound

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

type RetryRequest struct {
	MessageID   string `json:"message_id" validate:"required"`
	RecipientID string `json:"recipient_id"`
}

// Retry re-sends one failed message.
func Retry(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.outbound"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user := cont.GetUser(r.Context())
		if user == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		var req RetryRequest
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

		msg, err := handler.RetryOutbound(r.Context(), user.Tenant, req.MessageID, req.RecipientID)
		if err != nil {
			logger.Warn("retry outbound", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Retry failed: %v", err)))
			return
		}

		logger.Debug("retry handled", slog.String("status", msg.Status))
		render.JSON(w, r, response.Ok(msg))
	}
}
