package key

import (
	"context"
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

type Core interface {
	GenerateApiKey(ctx context.Context, tenant string) (string, error)
}

type GenerateRequest struct {
	Tenant string `json:"tenant" validate:"required"`
}

// Generate issues (or returns the existing) API key for a tenant. Admin only.
func Generate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.key"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user := cont.GetUser(r.Context())
		if user == nil || user.Role != "admin" {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("Admin access required"))
			return
		}

		var req GenerateRequest
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

		apiKey, err := handler.GenerateApiKey(r.Context(), req.Tenant)
		if err != nil {
			logger.Error("generate api key", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(fmt.Sprintf("Failed to generate key: %v", err)))
			return
		}

		logger.Info("api key issued", slog.String("tenant", req.Tenant))
		render.JSON(w, r, response.Ok(map[string]string{"tenant": req.Tenant, "api_key": apiKey}))
	}
}
