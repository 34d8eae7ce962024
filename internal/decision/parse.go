package decision

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"autotrader/internal/domain"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"
)

var ErrMalformed = errors.New("malformed analysis")

type Analysis struct {
	Decision          domain.Action
	Confidence        float64
	Reasoning         string
	SuggestedQuantity float64
}

// ParseAnalysis repairs and validates a reasoning response. decision and
// confidence are required; reasoning and suggested quantity are optional.
func ParseAnalysis(raw string) (Analysis, error) {
	body := extractObject(raw)
	if body == "" {
		return Analysis{}, fmt.Errorf("%w: no JSON object in response", ErrMalformed)
	}
	repaired, err := jsonrepair.JSONRepair(body)
	if err != nil {
		return Analysis{}, fmt.Errorf("%w: repair: %v", ErrMalformed, err)
	}
	if !gjson.Valid(repaired) {
		return Analysis{}, fmt.Errorf("%w: invalid JSON after repair", ErrMalformed)
	}

	doc := gjson.Parse(repaired)

	decision := doc.Get("decision")
	if !decision.Exists() || decision.Type != gjson.String {
		return Analysis{}, fmt.Errorf("%w: missing decision", ErrMalformed)
	}
	action, err := domain.ParseAction(decision.String())
	if err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	confidence := doc.Get("confidence")
	if !confidence.Exists() || (confidence.Type != gjson.Number && confidence.Type != gjson.String) {
		return Analysis{}, fmt.Errorf("%w: missing confidence", ErrMalformed)
	}
	c := confidence.Float()
	if confidence.Type == gjson.String {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(confidence.String()), 64)
		if err != nil {
			return Analysis{}, fmt.Errorf("%w: confidence %q is not a number", ErrMalformed, confidence.String())
		}
		c = parsed
	}
	if math.IsNaN(c) || c < 0 || c > 100 {
		return Analysis{}, fmt.Errorf("%w: confidence %.2f out of range", ErrMalformed, c)
	}

	out := Analysis{
		Decision:   action,
		Confidence: c,
		Reasoning:  strings.TrimSpace(doc.Get("reasoning").String()),
	}
	qty := doc.Get("suggested_quantity")
	if !qty.Exists() {
		qty = doc.Get("suggestedQuantity")
	}
	if qty.Exists() && qty.Float() > 0 {
		out.SuggestedQuantity = qty.Float()
	}
	return out, nil
}

func extractObject(raw string) string {
	start := strings.Index(raw, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(raw, "}")
	if end < start {
		return raw[start:]
	}
	return raw[start : end+1]
}
