package engine

import (
	"sync"

	"autotrader/internal/domain"

	"github.com/rs/zerolog/log"
)

// PhaseTracker holds the pipeline phase of every bot the engine has seen.
type PhaseTracker struct {
	mu     sync.RWMutex
	phases map[string]domain.BotPhase
}

func NewPhaseTracker() *PhaseTracker {
	return &PhaseTracker{phases: make(map[string]domain.BotPhase)}
}

// Move advances botID to next. Illegal transitions are logged and refused.
func (t *PhaseTracker) Move(botID string, next domain.BotPhase) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.phases[botID]
	if !ok {
		cur = domain.PhaseIdle
	}
	if cur == next {
		return true
	}
	if !cur.CanTransition(next) {
		log.Error().Str("bot_id", botID).Str("from", string(cur)).Str("to", string(next)).Msg("illegal phase transition")
		return false
	}
	t.phases[botID] = next
	return true
}

// Idle returns botID to idle from any phase.
func (t *PhaseTracker) Idle(botID string) {
	t.mu.Lock()
	t.phases[botID] = domain.PhaseIdle
	t.mu.Unlock()
}

func (t *PhaseTracker) Get(botID string) domain.BotPhase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if p, ok := t.phases[botID]; ok {
		return p
	}
	return domain.PhaseIdle
}

func (t *PhaseTracker) Snapshot() map[string]domain.BotPhase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]domain.BotPhase, len(t.phases))
	for id, p := range t.phases {
		out[id] = p
	}
	return out
}
