package domain

import (
	"fmt"
	"strings"
)

type RiskLevel int

const (
	RiskLevel1 RiskLevel = 1
	RiskLevel2 RiskLevel = 2
	RiskLevel3 RiskLevel = 3
	RiskLevel4 RiskLevel = 4
	RiskLevel5 RiskLevel = 5
)

func (r RiskLevel) IsValid() bool {
	return r >= RiskLevel1 && r <= RiskLevel5
}

var riskThresholds = map[RiskLevel]float64{
	RiskLevel1: 20,
	RiskLevel2: 35,
	RiskLevel3: 50,
	RiskLevel4: 70,
	RiskLevel5: 85,
}

// Threshold is the highest composite risk score a bot at this level accepts.
// Out-of-range levels get the most conservative threshold.
func (r RiskLevel) Threshold() float64 {
	if t, ok := riskThresholds[r]; ok {
		return t
	}
	return riskThresholds[RiskLevel1]
}

type BotStatus string

const (
	BotRunning BotStatus = "running"
	BotPaused  BotStatus = "paused"
	BotStopped BotStatus = "stopped"
)

func (s BotStatus) IsValid() bool {
	switch s {
	case BotRunning, BotPaused, BotStopped:
		return true
	}
	return false
}

func ParseBotStatus(raw string) (BotStatus, error) {
	s := BotStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown bot status %q", raw)
	}
	return s, nil
}

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	}
	return false
}

func ParseAction(raw string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	if !a.IsValid() {
		return "", fmt.Errorf("unknown action %q", raw)
	}
	return a, nil
}

type ActivityKind string

const (
	ActivitySignalGenerated ActivityKind = "signal_generated"
	ActivityRiskRejected    ActivityKind = "risk_rejected"
	ActivityOrderPlaced     ActivityKind = "order_placed"
	ActivityOrderFilled     ActivityKind = "order_filled"
	ActivityOrderFailed     ActivityKind = "order_failed"
	ActivityEndOfDayClose   ActivityKind = "eod_close"
	ActivitySkipped         ActivityKind = "skipped"
	ActivityError           ActivityKind = "error"
)

func (k ActivityKind) IsValid() bool {
	switch k {
	case ActivitySignalGenerated, ActivityRiskRejected, ActivityOrderPlaced, ActivityOrderFilled,
		ActivityOrderFailed, ActivityEndOfDayClose, ActivitySkipped, ActivityError:
		return true
	}
	return false
}

func ParseActivityKind(raw string) (ActivityKind, error) {
	k := ActivityKind(strings.ToLower(strings.TrimSpace(raw)))
	if !k.IsValid() {
		return "", fmt.Errorf("unknown activity kind %q", raw)
	}
	return k, nil
}

type ActivityStatus string

const (
	StatusInfo    ActivityStatus = "info"
	StatusSuccess ActivityStatus = "success"
	StatusWarning ActivityStatus = "warning"
	StatusError   ActivityStatus = "error"
)

func (s ActivityStatus) IsValid() bool {
	switch s {
	case StatusInfo, StatusSuccess, StatusWarning, StatusError:
		return true
	}
	return false
}

func ParseActivityStatus(raw string) (ActivityStatus, error) {
	s := ActivityStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown activity status %q", raw)
	}
	return s, nil
}

type RiskRecommendation string

const (
	RecommendApprove RiskRecommendation = "approve"
	RecommendReduce  RiskRecommendation = "reduce"
	RecommendReject  RiskRecommendation = "reject"
)

func (r RiskRecommendation) IsValid() bool {
	switch r {
	case RecommendApprove, RecommendReduce, RecommendReject:
		return true
	}
	return false
}

type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

// SourceKind identifies a class of external data with its own cache lifetime.
type SourceKind string

const (
	SourceMarket     SourceKind = "market"
	SourceHistory    SourceKind = "history"
	SourceSentiment  SourceKind = "sentiment"
	SourceNews       SourceKind = "news"
	SourceIndicators SourceKind = "indicators"
)

var SourceKinds = []SourceKind{SourceMarket, SourceHistory, SourceSentiment, SourceNews, SourceIndicators}

func (k SourceKind) IsValid() bool {
	switch k {
	case SourceMarket, SourceHistory, SourceSentiment, SourceNews, SourceIndicators:
		return true
	}
	return false
}

func ParseSourceKind(raw string) (SourceKind, error) {
	k := SourceKind(strings.ToLower(strings.TrimSpace(raw)))
	if !k.IsValid() {
		return "", fmt.Errorf("unknown source kind %q", raw)
	}
	return k, nil
}

// BotPhase is where a bot currently sits in the per-tick pipeline.
type BotPhase string

const (
	PhaseIdle            BotPhase = "idle"
	PhaseFetching        BotPhase = "fetching"
	PhaseAnalyzing       BotPhase = "analyzing"
	PhaseRiskChecking    BotPhase = "risk_checking"
	PhaseExecuting       BotPhase = "executing"
	PhaseRejected        BotPhase = "rejected"
	PhaseEndOfDayClosing BotPhase = "eod_closing"
)

var phaseTransitions = map[BotPhase][]BotPhase{
	PhaseIdle:            {PhaseFetching, PhaseEndOfDayClosing},
	PhaseFetching:        {PhaseAnalyzing, PhaseIdle},
	PhaseAnalyzing:       {PhaseRiskChecking, PhaseRejected, PhaseIdle},
	PhaseRiskChecking:    {PhaseExecuting, PhaseRejected, PhaseIdle},
	PhaseExecuting:       {PhaseIdle},
	PhaseRejected:        {PhaseIdle},
	PhaseEndOfDayClosing: {PhaseIdle},
}

// CanTransition reports whether moving from p to next is a legal step.
func (p BotPhase) CanTransition(next BotPhase) bool {
	for _, allowed := range phaseTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}
