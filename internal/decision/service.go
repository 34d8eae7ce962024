package decision

import (
	"context"
	"encoding/json"
	"fmt"

	"autotrader/internal/domain"
	"autotrader/internal/retry"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

type Input struct {
	Symbol       string
	Snapshot     *domain.MarketSnapshot
	Indicators   domain.Indicators
	Sentiment    *domain.Sentiment
	News         []domain.NewsItem
	RiskSettings domain.RiskSettings
}

type Result struct {
	Signal         domain.TradeSignal
	Question       string
	Source         Source
	FallbackReason string
}

type Service struct {
	tracer   trace.Tracer
	reasoner Reasoner
	policy   retry.Policy
}

// NewService builds the decision step. A nil reasoner means every decision
// comes from the technical fallback.
func NewService(tracer trace.Tracer, reasoner Reasoner, policy retry.Policy) *Service {
	return &Service{tracer: tracer, reasoner: reasoner, policy: policy}
}

// Decide always returns a signal: the reasoning source's answer when it is
// usable, otherwise the deterministic fallback.
func (s *Service) Decide(ctx context.Context, in Input) Result {
	ctx, span := s.tracer.Start(ctx, "decision.decide")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", in.Symbol))

	question := BuildQuestion(in)
	log.Debug().Str("symbol", in.Symbol).Str("question", question).Msg("decision question")

	fallback := func(reason string) Result {
		span.SetAttributes(attribute.String("decision.source", string(SourceFallback)))
		return Result{
			Signal:         Fallback(in.Symbol, in.Indicators, in.Snapshot, DefaultQuantity),
			Question:       question,
			Source:         SourceFallback,
			FallbackReason: reason,
		}
	}

	if s.reasoner == nil {
		return fallback("reasoning source not configured")
	}

	prompt := Prompt{System: systemPrompt, User: userPrompt(question, in)}
	raw, err := retry.Do(ctx, s.policy, func(ctx context.Context) (string, error) {
		return s.reasoner.Analyze(ctx, prompt)
	})
	if err != nil {
		log.Warn().Err(err).Str("symbol", in.Symbol).Msg("reasoning call failed, using technical fallback")
		return fallback(fmt.Sprintf("reasoning call failed: %v", err))
	}

	analysis, err := ParseAnalysis(raw)
	if err != nil {
		log.Warn().Err(err).Str("symbol", in.Symbol).Msg("unusable reasoning output, using technical fallback")
		return fallback(err.Error())
	}

	qty := analysis.SuggestedQuantity
	if qty <= 0 {
		qty = DefaultQuantity
	}
	span.SetAttributes(attribute.String("decision.source", string(SourceAI)))
	return Result{
		Signal: domain.TradeSignal{
			Symbol:     in.Symbol,
			Action:     analysis.Decision,
			Quantity:   qty,
			Confidence: analysis.Confidence,
			Reasoning:  analysis.Reasoning,
		},
		Question: question,
		Source:   SourceAI,
	}
}

func userPrompt(question string, in Input) string {
	headlines := make([]string, 0, len(in.News))
	for _, n := range in.News {
		headlines = append(headlines, n.Title)
	}
	payload := map[string]any{
		"symbol":     in.Symbol,
		"market":     in.Snapshot,
		"indicators": in.Indicators,
		"sentiment":  in.Sentiment,
		"headlines":  headlines,
		"risk":       in.RiskSettings,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return question
	}
	return question + "\n\nMarket data:\n" + string(data)
}
