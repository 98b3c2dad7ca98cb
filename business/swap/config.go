package swap

import "time"

const (
	defaultConfidenceThreshold  = 0.5
	defaultK                    = 5
	maxK                        = 20
	defaultExplicitConfidence   = 1.0
	defaultCategoryConfidence   = 0.6
	defaultRuleCandidateLimit   = 10
	defaultPriceBandPct         = 0.2
	defaultLLMTimeout           = 10 * time.Second
	defaultLLMConfidence        = 0.7
	defaultPromptMaxShortlist   = 20
	defaultPromptMaxAttributes  = 8
	defaultLearningRate         = 0.2
	defaultWeightMin            = 0.1
	defaultWeightMax            = 5.0
	defaultStrictnessMin        = 0.5
	defaultStrictnessMax        = 2.0
	defaultFeedbackWindow       = 200
)

type Config struct {
	// LLM gate: the LLM phase runs only when the best merged confidence of
	// the rule+similarity phases is BELOW this, or fewer than K candidates
	// were produced.
	ConfidenceThreshold float64

	DefaultK int
	MaxK     int

	// fixed per-rule-type confidences
	ExplicitConfidence float64
	CategoryConfidence float64
	RuleCandidateLimit int

	// attribute keys that the category-match rule requires to be equal
	RuleMatchAttributes []string

	// guardrails
	PriceBandPct         float64
	ComplianceAttributes []string

	// llm orchestrator
	LLMTimeout          time.Duration
	LLMConfidence       float64
	PromptMaxShortlist  int
	PromptMaxAttributes int

	// feedback learner
	LearningRate   float64
	WeightMin      float64
	WeightMax      float64
	StrictnessMin  float64
	StrictnessMax  float64
	FeedbackWindow int
}

func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: defaultConfidenceThreshold,
		DefaultK:            defaultK,
		MaxK:                maxK,

		ExplicitConfidence: defaultExplicitConfidence,
		CategoryConfidence: defaultCategoryConfidence,
		RuleCandidateLimit: defaultRuleCandidateLimit,

		PriceBandPct: defaultPriceBandPct,

		LLMTimeout:          defaultLLMTimeout,
		LLMConfidence:       defaultLLMConfidence,
		PromptMaxShortlist:  defaultPromptMaxShortlist,
		PromptMaxAttributes: defaultPromptMaxAttributes,

		LearningRate:   defaultLearningRate,
		WeightMin:      defaultWeightMin,
		WeightMax:      defaultWeightMax,
		StrictnessMin:  defaultStrictnessMin,
		StrictnessMax:  defaultStrictnessMax,
		FeedbackWindow: defaultFeedbackWindow,
	}
}
