package conversation

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

type ReadRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

// MarkRead zeroes the unread counter on one conversation.
func MarkRead(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.conversation"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user := cont.GetUser(r.Context())
		if user == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		var req ReadRequest
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

		if err := handler.MarkRead(r.Context(), user.Tenant, req.ConversationID); err != nil {
			logger.Warn("mark conversation read", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Failed to mark read: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok("conversation marked read"))
	}
}
