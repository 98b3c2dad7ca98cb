package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"swapkit/domain"
	"swapkit/pkg/logger"
)

// LLMProvider is the black-box completion backend. Implementations may fail
// with timeout, transport error, or malformed content; all of those resolve
// to an empty candidate list here, never to a request failure.
type LLMProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMOrchestrator is the fallback strategy: expensive and latent, invoked
// only when the cheap strategies fail to clear the confidence gate.
type LLMOrchestrator struct {
	provider LLMProvider
	cfg      Config
}

func NewLLMOrchestrator(provider LLMProvider, cfg Config) *LLMOrchestrator {
	return &LLMOrchestrator{
		provider: provider,
		cfg:      cfg,
	}
}

type llmSuggestion struct {
	SKU        string  `json:"sku"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// Suggest asks the model for swap candidates from the shortlist. Failures are
// soft: any transport, timeout, or parse problem yields an empty list.
func (o *LLMOrchestrator) Suggest(ctx context.Context, source domain.Product, shortlist []domain.Product, reqContext string) []domain.Candidate {
	if o.provider == nil || len(shortlist) == 0 {
		return []domain.Candidate{}
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.LLMTimeout)
	defer cancel()

	prompt := o.buildPrompt(source, shortlist, reqContext)

	raw, err := o.provider.Complete(ctx, prompt)
	if err != nil && ctx.Err() == nil {
		// one retry on transient transport failure, then fail soft
		raw, err = o.provider.Complete(ctx, prompt)
	}
	if err != nil {
		logger.Warn("llm completion failed",
			"trace_id", TraceIDFromContext(ctx),
			"source_product_id", source.ID,
			"error", err,
		)
		SwapLLMInvocationsTotal.WithLabelValues("failed").Inc()
		return []domain.Candidate{}
	}

	suggestions, err := parseLLMResponse(raw)
	if err != nil {
		logger.Warn("llm response unparseable",
			"trace_id", TraceIDFromContext(ctx),
			"source_product_id", source.ID,
			"error", err,
		)
		SwapLLMInvocationsTotal.WithLabelValues("failed").Inc()
		return []domain.Candidate{}
	}

	SwapLLMInvocationsTotal.WithLabelValues("ok").Inc()

	bySKU := make(map[string]domain.Product, len(shortlist))
	for _, p := range shortlist {
		bySKU[p.SKU] = p
	}

	out := make([]domain.Candidate, 0, len(suggestions))
	seen := make(map[uint64]struct{}, len(suggestions))
	for _, s := range suggestions {
		p, ok := bySKU[s.SKU]
		if !ok {
			// the model may hallucinate SKUs; only shortlist members count
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}

		conf := s.Confidence
		if conf <= 0 {
			conf = o.cfg.LLMConfidence
		}
		if conf > 1 {
			conf = 1
		}

		out = append(out, domain.Candidate{
			ProductID:  p.ID,
			SKU:        p.SKU,
			Strategy:   domain.StrategyLLM,
			RawScore:   s.Confidence,
			Confidence: conf,
			Reason:     s.Reasoning,
		})
	}

	return out
}

// buildPrompt keeps the context bounded: the shortlist and per-product
// attribute lists are capped.
func (o *LLMOrchestrator) buildPrompt(source domain.Product, shortlist []domain.Product, reqContext string) string {
	limit := o.cfg.PromptMaxShortlist
	if limit > 0 && len(shortlist) > limit {
		shortlist = shortlist[:limit]
	}

	var b strings.Builder
	b.WriteString("Given the following product that needs a swap:\n")
	fmt.Fprintf(&b, "Product: %s\nSKU: %s\nCategory: %s\nPrice: $%.2f\n", source.Name, source.SKU, source.Category, source.Price)
	if attrs := promptAttributes(source, o.cfg.PromptMaxAttributes); attrs != "" {
		fmt.Fprintf(&b, "Attributes: %s\n", attrs)
	}

	if reqContext != "" {
		fmt.Fprintf(&b, "\nContext: %s\n", reqContext)
	}

	b.WriteString("\nAvailable products for swapping:\n")
	for _, p := range shortlist {
		fmt.Fprintf(&b, "- %s (SKU: %s, Price: $%.2f, Category: %s)\n", p.Name, p.SKU, p.Price, p.Category)
	}

	b.WriteString("\nSuggest the most suitable product swaps and explain your reasoning.\n")
	b.WriteString("Consider category similarity, price range, and the given context.\n")
	b.WriteString(`Respond with a JSON array of objects, each with: "sku" (string), "reasoning" (string), "confidence" (number 0-1).` + "\n")
	b.WriteString(`Example: [{"sku": "LAPTOP-002", "reasoning": "Similar specs, better price", "confidence": 0.85}]`)

	return b.String()
}

func promptAttributes(p domain.Product, max int) string {
	keys := make([]string, 0, len(p.Attributes))
	for k := range p.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if max > 0 && len(keys) > max {
		keys = keys[:max]
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p.Attributes[k]))
	}
	return strings.Join(parts, ", ")
}

// parseLLMResponse validates the response shape, tolerating markdown code
// fences around the JSON body.
func parseLLMResponse(raw string) ([]llmSuggestion, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	if strings.Contains(text, "```json") {
		parts := strings.SplitN(text, "```json", 2)
		text = strings.SplitN(parts[1], "```", 2)[0]
	} else if strings.Contains(text, "```") {
		parts := strings.SplitN(text, "```", 3)
		if len(parts) >= 2 {
			text = parts[1]
		}
	}
	text = strings.TrimSpace(text)

	var suggestions []llmSuggestion
	if err := json.Unmarshal([]byte(text), &suggestions); err != nil {
		return nil, fmt.Errorf("invalid JSON from llm: %w", err)
	}

	return suggestions, nil
}
