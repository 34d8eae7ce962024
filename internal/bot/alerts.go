package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"autotrader/internal/domain"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// AlertDispatcher forwards notable activity records to subscribed chats.
type AlertDispatcher struct {
	sender messageSender

	mu          sync.RWMutex
	subscribers map[int64]struct{}
	queue       chan string
}

func NewAlertDispatcher(sender messageSender) *AlertDispatcher {
	return &AlertDispatcher{
		sender:      sender,
		subscribers: make(map[int64]struct{}),
	}
}

// Async moves delivery onto a background worker so NotifyActivity never
// waits on Telegram. Messages beyond buffer are dropped.
func (d *AlertDispatcher) Async(ctx context.Context, buffer int) {
	if buffer <= 0 {
		buffer = 64
	}
	q := make(chan string, buffer)
	d.mu.Lock()
	d.queue = q
	d.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-q:
				if err := d.broadcast(msg); err != nil {
					log.Warn().Err(err).Msg("telegram alert delivery failed")
				}
			}
		}
	}()
}

func (d *AlertDispatcher) Subscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.subscribers[chatID]; exists {
		return false
	}
	d.subscribers[chatID] = struct{}{}
	return true
}

func (d *AlertDispatcher) Unsubscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.subscribers[chatID]; !exists {
		return false
	}
	delete(d.subscribers, chatID)
	return true
}

func (d *AlertDispatcher) IsSubscribed(chatID int64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, exists := d.subscribers[chatID]
	return exists
}

func (d *AlertDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

// NotifyActivity forwards warnings, errors, fills and end-of-day closes.
// Everything else is ignored.
func (d *AlertDispatcher) NotifyActivity(_ context.Context, rec domain.ActivityRecord) {
	if d == nil || d.sender == nil || !shouldAlert(rec) {
		return
	}
	msg := formatActivity(rec)

	d.mu.RLock()
	q := d.queue
	d.mu.RUnlock()
	if q != nil {
		select {
		case q <- msg:
		default:
			log.Warn().Str("bot_id", rec.BotID).Msg("telegram alert queue full, dropping alert")
		}
		return
	}
	if err := d.broadcast(msg); err != nil {
		log.Warn().Err(err).Msg("telegram alert delivery failed")
	}
}

func (d *AlertDispatcher) broadcast(msg string) error {
	chatIDs := d.snapshotSubscribers()
	var failures []string
	for _, chatID := range chatIDs {
		if _, err := d.sender.Send(&tele.Chat{ID: chatID}, msg); err != nil {
			failures = append(failures, fmt.Sprintf("chat %d: %v", chatID, err))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("failed sending %d alerts: %s", len(failures), strings.Join(failures, "; "))
	}
	return nil
}

func (d *AlertDispatcher) snapshotSubscribers() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	chatIDs := make([]int64, 0, len(d.subscribers))
	for chatID := range d.subscribers {
		chatIDs = append(chatIDs, chatID)
	}
	sort.Slice(chatIDs, func(i, j int) bool { return chatIDs[i] < chatIDs[j] })
	return chatIDs
}

func shouldAlert(rec domain.ActivityRecord) bool {
	switch rec.Status {
	case domain.StatusWarning, domain.StatusError:
		return true
	}
	switch rec.Kind {
	case domain.ActivityOrderFilled, domain.ActivityEndOfDayClose:
		return true
	}
	return false
}

func parseAlertMode(args []string) (string, error) {
	if len(args) == 0 {
		return "status", nil
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "on":
		return "on", nil
	case "off":
		return "off", nil
	case "status":
		return "status", nil
	default:
		return "", fmt.Errorf("invalid mode")
	}
}

func formatActivity(rec domain.ActivityRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(string(rec.Status)), rec.Title)
	fmt.Fprintf(&b, "bot %s", rec.BotID)
	if rec.Description != "" {
		fmt.Fprintf(&b, ": %s", rec.Description)
	}
	if !rec.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "\n%s", rec.CreatedAt.Format("2006-01-02 15:04 UTC"))
	}
	return b.String()
}
