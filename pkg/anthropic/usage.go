package anthropic

import "go.uber.org/zap"

// TokenUsage is the token accounting of one reply.
type TokenUsage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheWriteTokens int64
	CacheReadTokens  int64
}

// price is USD per million tokens.
type price struct {
	input, output float64
}

var prices = map[string]price{
	"claude-haiku-4-5-20251001":  {input: 0.80, output: 4.00},
	"claude-sonnet-4-5-20250929": {input: 3.00, output: 15.00},
}

// Cache writes bill at 1.25x input, cache reads at 0.1x.
const (
	cacheWriteFactor = 1.25
	cacheReadFactor  = 0.1
)

// EstimateCost returns the USD cost of u under model's list price, or 0 for
// models without a price.
func (u TokenUsage) EstimateCost(model string) float64 {
	p, ok := prices[model]
	if !ok {
		return 0
	}
	input := float64(u.InputTokens) + cacheWriteFactor*float64(u.CacheWriteTokens) + cacheReadFactor*float64(u.CacheReadTokens)
	return (input*p.input + float64(u.OutputTokens)*p.output) / 1e6
}

// LogCost records u and its estimated cost against operation.
func (u TokenUsage) LogCost(model, operation string) {
	zap.L().Info("anthropic: usage",
		zap.String("model", model),
		zap.String("operation", operation),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheWriteTokens),
		zap.Int64("cache_read_tokens", u.CacheReadTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}
