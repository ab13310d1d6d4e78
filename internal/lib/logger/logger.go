package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// AlertSender delivers a log line to an out-of-band alert channel.
type AlertSender interface {
	SendMessage(msg string)
}

// SetupLogger builds the root logger for the given environment. Local gets
// human-readable text on stdout, dev and prod write JSON to a file next to
// stdout output.
func SetupLogger(env, logPath string) *slog.Logger {
	var handler slog.Handler

	switch env {
	case envLocal:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	case envDev:
		handler = slog.NewJSONHandler(logWriter(logPath), &slog.HandlerOptions{Level: slog.LevelDebug})
	case envProd:
		handler = slog.NewJSONHandler(logWriter(logPath), &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	return slog.New(handler)
}

func logWriter(logPath string) io.Writer {
	file, err := os.OpenFile(filepath.Join(logPath, "orderpulse.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, file)
}

// SetupTelegramHandler tees records at or above level into the Telegram ops
// channel while keeping the original handler intact.
func SetupTelegramHandler(log *slog.Logger, sender AlertSender, level slog.Level) *slog.Logger {
	return slog.New(&telegramHandler{
		next:   log.Handler(),
		sender: sender,
		level:  level,
	})
}

type telegramHandler struct {
	next   slog.Handler
	sender AlertSender
	level  slog.Level
	attrs  []slog.Attr
}

func (h *telegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *telegramHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= slog.LevelError && h.sender != nil {
		text := fmt.Sprintf("[%s] %s", record.Level.String(), record.Message)
		record.Attrs(func(a slog.Attr) bool {
			text += fmt.Sprintf("\n%s: %s", a.Key, a.Value.String())
			return true
		})
		for _, a := range h.attrs {
			text += fmt.Sprintf("\n%s: %s", a.Key, a.Value.String())
		}
		go h.sender.SendMessage(text)
	}
	return h.next.Handle(ctx, record)
}

func (h *telegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &telegramHandler{
		next:   h.next.WithAttrs(attrs),
		sender: h.sender,
		level:  h.level,
		attrs:  append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *telegramHandler) WithGroup(name string) slog.Handler {
	return &telegramHandler{
		next:   h.next.WithGroup(name),
		sender: h.sender,
		level:  h.level,
		attrs:  h.attrs,
	}
}
