package conversation

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"OrderPulse/internal/lib/api/cont"
	"OrderPulse/internal/lib/api/response"
	"OrderPulse/internal/lib/sl"
)

// List returns the tenant's inbox, most recent activity first.
func List(log *slog.Logger, handler Core) http.HandlerFunc {
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

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		convos, err := handler.Conversations(r.Context(), user.Tenant, limit, offset)
		if err != nil {
			logger.Error("list conversations", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(fmt.Sprintf("Failed to list conversations: %v", err)))
			return
		}

		logger.Debug("conversations listed", slog.Int("count", len(convos)))
		render.JSON(w, r, response.Ok(convos))
	}
}
