package sync

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"OrderPulse/internal/lib/api/cont"
	"OrderPulse/internal/lib/api/response"
	"OrderPulse/internal/lib/sl"
)

type ScheduleRequest struct {
	Platform        string `json:"platform" validate:"required,oneof=whatsapp instagram"`
	IntervalSeconds int    `json:"interval_seconds" validate:"required,min=30"`
}

type CancelRequest struct {
	Platform string `json:"platform" validate:"required,oneof=whatsapp instagram"`
}

// Schedule installs or replaces the periodic sync timer for one platform.
func Schedule(log *slog.Logger, scheduler Scheduler) http.HandlerFunc {
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

		var req ScheduleRequest
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

		scheduler.Schedule(user.Tenant, req.Platform, time.Duration(req.IntervalSeconds)*time.Second)
		logger.Info("sync scheduled",
			slog.String("platform", req.Platform),
			slog.Int("interval_seconds", req.IntervalSeconds),
		)
		render.JSON(w, r, response.Ok("sync scheduled"))
	}
}

// CancelSchedule removes the periodic sync timer. Cancelling a missing timer
// succeeds.
func CancelSchedule(log *slog.Logger, scheduler Scheduler) http.HandlerFunc {
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

		var req CancelRequest
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

		scheduler.Cancel(user.Tenant, req.Platform)
		logger.Info("sync schedule cancelled", slog.String("platform", req.Platform))
		render.JSON(w, r, response.Ok("sync schedule cancelled"))
	}
}
