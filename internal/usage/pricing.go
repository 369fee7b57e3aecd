package usage

import (
	"strings"

	"github.com/fadilmartias/interview-coach/internal/llm"
)

// Price is the list price in USD per million tokens.
type Price struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// Pricing maps a model name prefix to its price.
type Pricing map[string]Price

// DefaultPricing covers the models the service is configured with.
func DefaultPricing() Pricing {
	return Pricing{
		"gemini-2.5-pro":       {InputPerMillion: 1.25, OutputPerMillion: 10.00},
		"gemini-2.5-flash":     {InputPerMillion: 0.30, OutputPerMillion: 2.50},
		"gemini-embedding-001": {InputPerMillion: 0.15},
		"openai/gpt-4o-mini":   {InputPerMillion: 0.15, OutputPerMillion: 0.60},
		"openai/gpt-4o":        {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	}
}

// Cost prices u for modelName using the longest matching prefix. Unknown
// models cost zero.
func (p Pricing) Cost(modelName string, u llm.Usage) float64 {
	price, ok := p.lookup(modelName)
	if !ok {
		return 0
	}
	return (float64(u.PromptTokens)*price.InputPerMillion + float64(u.OutputTokens)*price.OutputPerMillion) / 1_000_000
}

func (p Pricing) lookup(modelName string) (Price, bool) {
	modelName = strings.TrimPrefix(strings.TrimSpace(modelName), "models/")
	best := ""
	for prefix := range p {
		if strings.HasPrefix(modelName, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return Price{}, false
	}
	return p[best], true
}
