package anthropic

import "go.uber.org/zap"

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// Pricing is USD per million tokens.
type Pricing struct {
	Input  float64
	Output float64
}

// Cache writes bill at a premium over input tokens, reads at a discount.
const (
	cacheWriteMultiplier = 1.25
	cacheReadMultiplier  = 0.1
)

var pricing = map[string]Pricing{
	"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
	"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
	"claude-3-5-haiku-latest":    {Input: 0.80, Output: 4.00},
}

// PricingFor returns the known pricing for model.
func PricingFor(model string) (Pricing, bool) {
	p, ok := pricing[model]
	return p, ok
}

// EstimateCost computes an estimated cost in USD. Unknown models cost 0.
func (u TokenUsage) EstimateCost(model string) float64 {
	p, ok := PricingFor(model)
	if !ok {
		return 0
	}
	input := float64(u.InputTokens) +
		float64(u.CacheCreationInputTokens)*cacheWriteMultiplier +
		float64(u.CacheReadInputTokens)*cacheReadMultiplier
	return (input*p.Input + float64(u.OutputTokens)*p.Output) / 1e6
}

// LogCost logs token usage and estimated cost for one call.
func (u TokenUsage) LogCost(model, operation string) {
	zap.L().Info("anthropic: usage",
		zap.String("operation", operation),
		zap.String("model", model),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}
