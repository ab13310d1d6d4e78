package outbound

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"OrderPulse/entity"
	"OrderPulse/impl/core"
	"OrderPulse/internal/lib/api/cont"
	"OrderPulse/internal/lib/api/response"
	"OrderPulse/internal/lib/sl"
)

// Send delivers one seller reply. A message parked as pending because the
// connection is offline still comes back with a 200.
func Send(log *slog.Logger, handler Core) http.HandlerFunc {
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

		var req core.OutboundRequest
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

		msg, err := handler.SendOutbound(r.Context(), user.Tenant, req)
		if err != nil {
			logger.Error("send outbound", sl.Err(err))
			if msg != nil && msg.Status == entity.StatusFailed {
				// persisted but undelivered, hand the message back for retry
				render.Status(r, http.StatusBadGateway)
				render.JSON(w, r, response.Ok(msg))
				return
			}
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(fmt.Sprintf("Send failed: %v", err)))
			return
		}

		logger.Debug("outbound handled", slog.String("status", msg.Status))
		render.JSON(w, r, response.Ok(msg))
	}
}
