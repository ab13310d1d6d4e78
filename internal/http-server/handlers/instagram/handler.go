package instagram

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"OrderPulse/bot/insta"
	"OrderPulse/entity"
	"OrderPulse/internal/lib/sl"
)

type Core interface {
	Ingest(ctx context.Context, tenant, platform string, batch []entity.InboundMessage) (entity.IngestReport, error)
	MarkConnected(ctx context.Context, tenant, platform string) error
}

// WebhookVerify handles GET requests for webhook verification
func WebhookVerify(log *slog.Logger, bot *insta.InstaBot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.With(sl.Module("instagram.webhook")).Debug("webhook verification request")
		bot.VerifyWebhook(w, r)
	}
}

// WebhookHandler accepts incoming message deliveries and processes them off
// the request goroutine.
func WebhookHandler(log *slog.Logger, bot *insta.InstaBot, handler Core, tenant string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("instagram.webhook"))

		body, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error("reading webhook body", sl.Err(err))
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		batch, err := bot.ParseWebhook(body, r.Header.Get("X-Hub-Signature-256"))
		if err != nil {
			logger.Warn("rejecting webhook", sl.Err(err))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		w.WriteHeader(http.StatusOK)
		if len(batch) == 0 {
			return
		}

		go func() {
			ctx := context.Background()
			if err := handler.MarkConnected(ctx, tenant, entity.PlatformInstagram); err != nil {
				logger.Warn("marking connection", sl.Err(err))
			}
			report, err := handler.Ingest(ctx, tenant, entity.PlatformInstagram, batch)
			if err != nil {
				logger.Error("ingesting webhook batch", sl.Err(err))
				return
			}
			logger.Debug("webhook batch ingested",
				slog.Int("processed", report.Processed),
				slog.Int("new", report.NewMessages),
			)
		}()
	}
}
