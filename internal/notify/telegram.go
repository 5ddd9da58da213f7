// Package notify pushes stability transitions to Telegram. Like history,
// it only consumes engine events.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"

	"reachwatch/internal/monitor"
)

// StartTelegram forwards every debounced up/down transition to a chat.
// Sends are best-effort; a failed delivery is logged and dropped.
func StartTelegram(ctx context.Context, engine *monitor.Engine, tbot *bot.Bot, chatID int64, logger *slog.Logger) {
	if tbot == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	ch := make(chan monitor.Event, 64)
	engine.Subscribe(ch)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if ev.Kind != monitor.EventStabilityChanged {
					continue
				}

				var msg string
				if ev.Up {
					msg = formatUpMessage(ev)
				} else {
					msg = formatDownMessage(ev)
				}

				if _, err := tbot.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: chatID,
					Text:   msg,
				}); err != nil {
					logger.Warn("telegram send failed", "host", ev.Host, "error", err)
				}
			}
		}
	}()
}

func formatDownMessage(ev monitor.Event) string {
	statusLine := "Status: "
	switch {
	case ev.StatusCode == 0 && ev.Reason != "":
		statusLine += fmt.Sprintf("DOWN (%s)", ev.Reason)
	case ev.StatusCode == 0:
		statusLine += "DOWN"
	case ev.StatusCode >= 500:
		statusLine += fmt.Sprintf("HTTP %d (server error)", ev.StatusCode)
	default:
		statusLine += fmt.Sprintf("HTTP %d", ev.StatusCode)
	}

	return fmt.Sprintf("🚨 DOWN: %s\n%s\nAt: %s",
		ev.Host,
		statusLine,
		ev.At.UTC().Format("2006-01-02 15:04 MST"),
	)
}

func formatUpMessage(ev monitor.Event) string {
	statusLine := "Status: UP"
	if ev.StatusCode != 0 {
		statusLine = fmt.Sprintf("Status: HTTP %d", ev.StatusCode)
	}

	return fmt.Sprintf("✅ UP: %s\n%s\nAt: %s",
		ev.Host,
		statusLine,
		ev.At.UTC().Format("2006-01-02 15:04 MST"),
	)
}
