package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"autotrader/internal/cache"
	"autotrader/internal/job"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

type SchedulerLister interface {
	List() []job.SchedulerStatus
}

type CacheHealth interface {
	Health() cache.Health
}

// StartTelegramBot starts long polling and returns the dispatcher the engine
// notifies. It returns nil when token is empty or the bot cannot start.
func StartTelegramBot(ctx context.Context, token string, schedulers SchedulerLister, cacheHealth CacheHealth) *AlertDispatcher {
	if token == "" {
		log.Info().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Error().Err(err).Msg("failed to create Telegram bot")
		return nil
	}
	alerts := NewAlertDispatcher(b)
	alerts.Async(ctx, 64)

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/status", func(c tele.Context) error {
		return c.Send(formatStatus(schedulers, cacheHealth))
	})

	b.Handle("/alerts", func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return c.Send("Unable to detect chat")
		}

		mode, err := parseAlertMode(c.Args())
		if err != nil {
			return c.Send("Usage: /alerts on | /alerts off | /alerts status")
		}

		switch mode {
		case "on":
			if alerts.Subscribe(chat.ID) {
				return c.Send("Trading alerts enabled for this chat.")
			}
			return c.Send("Trading alerts are already enabled for this chat.")
		case "off":
			if alerts.Unsubscribe(chat.ID) {
				return c.Send("Trading alerts disabled for this chat.")
			}
			return c.Send("Trading alerts are already disabled for this chat.")
		default:
			if alerts.IsSubscribed(chat.ID) {
				return c.Send("Alerts status: ON")
			}
			return c.Send("Alerts status: OFF")
		}
	})

	go func() {
		<-ctx.Done()
		b.Stop()
	}()

	log.Info().Msg("Telegram bot started")
	go b.Start()
	return alerts
}

func formatStatus(schedulers SchedulerLister, cacheHealth CacheHealth) string {
	lines := []string{"Engine status"}
	if cacheHealth != nil {
		h := cacheHealth.Health()
		lines = append(lines, fmt.Sprintf("Cache: %s (%s), hit rate %.0f%%", strings.ToUpper(string(h.Status)), h.Reason, h.Stats.HitRate*100))
	}
	if schedulers == nil {
		return strings.Join(append(lines, "Schedulers: unavailable"), "\n")
	}
	list := schedulers.List()
	if len(list) == 0 {
		return strings.Join(append(lines, "Schedulers: none"), "\n")
	}
	for _, st := range list {
		state := "stopped"
		if st.Running {
			state = "running"
		}
		line := fmt.Sprintf("Scheduler %s: %s every %s, %d ticks", st.Owner, state, st.Interval, st.Ticks)
		if st.LastReport != nil {
			line += fmt.Sprintf(", last tick %d bots", len(st.LastReport.Bots))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
