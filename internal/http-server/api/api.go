package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	instabot "OrderPulse/bot/insta"
	wabot "OrderPulse/bot/whatsapp"
	"OrderPulse/internal/config"
	"OrderPulse/internal/http-server/handlers/classify"
	"OrderPulse/internal/http-server/handlers/conversation"
	"OrderPulse/internal/http-server/handlers/errors"
	"OrderPulse/internal/http-server/handlers/ingest"
	"OrderPulse/internal/http-server/handlers/instagram"
	"OrderPulse/internal/http-server/handlers/key"
	"OrderPulse/internal/http-server/handlers/outbound"
	syncapi "OrderPulse/internal/http-server/handlers/sync"
	"OrderPulse/internal/http-server/handlers/whatsapp"
	"OrderPulse/internal/http-server/middleware/authenticate"
	"OrderPulse/internal/http-server/middleware/timeout"
	"OrderPulse/internal/lib/sl"
	"OrderPulse/internal/ws"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

// Handler is everything the routes need from the core.
type Handler interface {
	authenticate.Authenticate
	ws.Authenticator
	ingest.Core
	syncapi.Core
	classify.Core
	outbound.Core
	conversation.Core
	key.Core
	whatsapp.Core
}

// Deps carries the non-core collaborators the router mounts directly.
type Deps struct {
	Handler   Handler
	Scheduler syncapi.Scheduler
	Hub       *ws.Hub
	WhatsApp  *wabot.WhatsAppBot
	Instagram *instabot.InstaBot
}

// New builds the router and serves it. Blocks until the listener fails.
func New(conf *config.Config, log *slog.Logger, deps Deps) error {
	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(30))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	// platform webhooks authenticate with verify tokens and signatures, not
	// bearer keys
	if deps.WhatsApp != nil {
		router.Get("/webhook/whatsapp", whatsapp.WebhookVerify(log, deps.WhatsApp))
		router.Post("/webhook/whatsapp", whatsapp.WebhookHandler(log, deps.WhatsApp, deps.Handler, conf.WhatsApp.Tenant))
	}
	if deps.Instagram != nil {
		router.Get("/webhook/instagram", instagram.WebhookVerify(log, deps.Instagram))
		router.Post("/webhook/instagram", instagram.WebhookHandler(log, deps.Instagram, deps.Handler, conf.Instagram.Tenant))
	}

	// websocket clients pass the key as a query token
	if deps.Hub != nil {
		router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWs(deps.Hub, deps.Handler, log, w, r)
		})
	}

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(authenticate.New(log, deps.Handler))

		v1.Post("/ingest", ingest.Ingest(log, deps.Handler))
		v1.Route("/sync", func(r chi.Router) {
			r.Post("/trigger", syncapi.Trigger(log, deps.Handler))
			r.Get("/status", syncapi.Status(log, deps.Handler))
			r.Post("/schedule", syncapi.Schedule(log, deps.Scheduler))
			r.Post("/cancel", syncapi.CancelSchedule(log, deps.Scheduler))
		})
		v1.Post("/classify", classify.Classify(log, deps.Handler))
		v1.Route("/outbound", func(r chi.Router) {
			r.Post("/send", outbound.Send(log, deps.Handler))
			r.Post("/retry", outbound.Retry(log, deps.Handler))
		})
		v1.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversation.List(log, deps.Handler))
			r.Post("/read", conversation.MarkRead(log, deps.Handler))
		})
		v1.Route("/key", func(r chi.Router) {
			r.Post("/new", key.Generate(log, deps.Handler))
		})
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  router,
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
