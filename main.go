package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"OrderPulse/ai/analyzer"
	"OrderPulse/ai/patterns"
	"OrderPulse/bot"
	instabot "OrderPulse/bot/insta"
	wabot "OrderPulse/bot/whatsapp"
	"OrderPulse/impl/core"
	"OrderPulse/internal/config"
	repository "OrderPulse/internal/database"
	"OrderPulse/internal/events"
	"OrderPulse/internal/http-server/api"
	"OrderPulse/internal/lib/logger"
	"OrderPulse/internal/lib/sl"
	"OrderPulse/internal/scheduler"
	"OrderPulse/internal/ws"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath)

	// Telegram alert channel, wired into the log pipeline when enabled
	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		var err error
		tgBot, err = bot.NewTgBot(conf.Telegram.BotName, conf.Telegram.ApiKey, conf.Telegram.AdminId, lg)
		if err != nil {
			lg.Error("failed to initialize telegram bot", sl.Err(err))
		} else {
			lg = logger.SetupTelegramHandler(lg, tgBot, slog.LevelDebug)
			lg.With(
				slog.String("bot_name", conf.Telegram.BotName),
			).Info("telegram bot initialized")

			go func() {
				if err := tgBot.Start(); err != nil {
					lg.Error("telegram bot error", sl.Err(err))
				}
			}()
		}
	}

	lg.Info("starting orderpulse", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	handler := core.New(conf, lg)
	handler.SetAuthKey(conf.Listen.ApiKey)

	db, err := repository.NewMongoClient(conf, lg)
	if err != nil {
		lg.With(
			sl.Err(err),
		).Error("mongo client")
	}
	if db != nil {
		handler.SetRepository(db)
		lg.With(
			slog.String("host", conf.Mongo.Host),
			slog.String("port", conf.Mongo.Port),
			slog.String("user", conf.Mongo.User),
			slog.String("database", conf.Mongo.Database),
		).Info("mongo client initialized")
	}

	an := analyzer.New(conf, patterns.New(), lg)
	if an.Available() {
		lg.With(
			sl.Secret("openai_key", conf.OpenAI.ApiKey),
			slog.String("model", conf.OpenAI.Model),
		).Info("analyzer initialized")
	} else {
		lg.Warn("no openai credentials, running on pattern classification only")
	}
	handler.SetAnalyzer(an)

	hub := ws.NewHub(lg)
	go hub.Run()

	emitters := []events.Emitter{events.NewHubEmitter(hub)}
	if rabbit, err := events.NewRabbitEmitter(conf, lg); err != nil {
		lg.With(sl.Err(err)).Error("rabbit emitter")
	} else if rabbit != nil {
		defer rabbit.Close()
		emitters = append(emitters, rabbit)
		lg.Info("rabbit emitter initialized", slog.String("queue", conf.Rabbit.Queue))
	}
	handler.SetEmitter(events.NewMulti(emitters...))

	waBot := wabot.NewWhatsAppBot(
		conf.WhatsApp.AccessToken,
		conf.WhatsApp.VerifyToken,
		conf.WhatsApp.AppSecret,
		conf.WhatsApp.PhoneNumberID,
		lg,
	)
	handler.SetConnector(waBot)

	igBot := instabot.NewInstaBot(
		conf.Instagram.AccessToken,
		conf.Instagram.VerifyToken,
		conf.Instagram.AppSecret,
		lg,
	)
	handler.SetConnector(igBot)

	handler.Init(context.Background())
	if conf.Sweep.Enabled {
		handler.StartSweeper(time.Duration(conf.Sweep.IntervalMinutes) * time.Minute)
	}
	defer handler.Close()

	registry := scheduler.NewRegistry(func(ctx context.Context, tenant, platform string) {
		if _, err := handler.TriggerSync(ctx, tenant, platform); err != nil {
			lg.With(
				slog.String("tenant", tenant),
				slog.String("platform", platform),
			).Error("scheduled sync", sl.Err(err))
		}
	}, lg)
	defer registry.StopAll()

	// *** blocking start with http server ***
	err = api.New(conf, lg, api.Deps{
		Handler:   handler,
		Scheduler: registry,
		Hub:       hub,
		WhatsApp:  waBot,
		Instagram: igBot,
	})
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Error("service stopped")
}
