package classify

import (
	"context"
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

type Core interface {
	Classify(ctx context.Context, tenant, content string, contextLines []string) entity.AIAnalysis
}

type Request struct {
	Content string   `json:"content" validate:"required"`
	Context []string `json:"context,omitempty"`
}

// Classify runs one ad-hoc text through the purchase-intent analyzer.
func Classify(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.classify"),
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
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}
		if err := validator.New().Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Validation failed: %v", err)))
			return
		}

		result := handler.Classify(r.Context(), user.Tenant, req.Content, req.Context)
		logger.Debug("text classified",
			slog.String("intent", result.Intent),
			slog.Bool("order_detected", result.OrderDetected),
			slog.String("source", result.Source),
		)
		render.JSON(w, r, response.Ok(result))
	}
}
