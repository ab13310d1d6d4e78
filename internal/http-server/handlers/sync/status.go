package sync

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"OrderPulse/internal/lib/api/cont"
	"OrderPulse/internal/lib/api/response"
	"OrderPulse/internal/lib/sl"
)

// Status reports the persisted connection state for one platform.
func Status(log *slog.Logger, handler Core) http.HandlerFunc {
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

		platform := r.URL.Query().Get("platform")
		if platform == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Query parameter platform is required"))
			return
		}

		state, err := handler.GetSyncStatus(r.Context(), user.Tenant, platform)
		if err != nil {
			logger.Error("load sync status", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(fmt.Sprintf("Failed to load sync status: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(state))
	}
}
