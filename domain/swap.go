package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Strategy tags attached to every candidate. Merge ties are broken in this
// order: rule beats similarity beats llm.
const (
	StrategyRule       = "rule"
	StrategySimilarity = "similarity"
	StrategyLLM        = "llm"
)

// StrategyPriority returns the tie-break rank of a strategy (lower wins).
func StrategyPriority(strategy string) int {
	switch strategy {
	case StrategyRule:
		return 0
	case StrategySimilarity:
		return 1
	case StrategyLLM:
		return 2
	default:
		return 3
	}
}

// Candidate is a scored, strategy-attributed swap proposal. Candidates are
// never mutated after creation; re-scoring produces a new Candidate.
type Candidate struct {
	ProductID  uint64  `json:"product_id"`
	SKU        string  `json:"sku"`
	Strategy   string  `json:"strategy"`
	RawScore   float64 `json:"raw_score"`
	Confidence float64 `json:"confidence"`
	Merged     float64 `json:"merged"`
	Reason     string  `json:"reason,omitempty"`
}

// GuardrailDrop records why a candidate was rejected; part of the decision
// trace, never surfaced as an error.
type GuardrailDrop struct {
	ProductID uint64 `json:"product_id"`
	Strategy  string `json:"strategy"`
	Reason    string `json:"reason"`
}

// DecisionTrace is the recorded rationale attached to a SwapDecision.
type DecisionTrace struct {
	RuleCandidates       int             `json:"rule_candidates"`
	SimilarityCandidates int             `json:"similarity_candidates"`
	SimilarityDegraded   bool            `json:"similarity_degraded,omitempty"`
	LLMInvoked           bool            `json:"llm_invoked"`
	LLMCandidates        int             `json:"llm_candidates"`
	Drops                []GuardrailDrop `json:"drops,omitempty"`
}

// CREATE TABLE public.swap_decisions (
//     id                TEXT PRIMARY KEY,
//     source_product_id BIGINT NOT NULL,
//     candidates        JSONB NOT NULL,
//     weight_version    INT NOT NULL,
//     trace             JSONB,
//     created_at        TIMESTAMPTZ DEFAULT NOW()
// );

// SwapDecision is immutable once created and is the unit feedback refers to.
type SwapDecision struct {
	ID              string    `gorm:"primaryKey;column:id" json:"id"`
	SourceProductID uint64    `gorm:"column:source_product_id;not null;index" json:"source_product_id"`
	WeightVersion   int       `gorm:"column:weight_version;not null" json:"weight_version"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	CandidatesRaw datatypes.JSON `gorm:"column:candidates" json:"-"`
	TraceRaw      datatypes.JSON `gorm:"column:trace" json:"-"`

	Candidates []Candidate   `gorm:"-" json:"candidates"`
	Trace      DecisionTrace `gorm:"-" json:"trace"`
}

func (SwapDecision) TableName() string {
	return "swap_decisions"
}

// EncodePayload fills the raw jsonb columns from the typed fields.
func (d *SwapDecision) EncodePayload() error {
	candidates, err := json.Marshal(d.Candidates)
	if err != nil {
		return err
	}
	trace, err := json.Marshal(d.Trace)
	if err != nil {
		return err
	}
	d.CandidatesRaw = candidates
	d.TraceRaw = trace
	return nil
}

// DecodePayload fills the typed fields from the raw jsonb columns.
func (d *SwapDecision) DecodePayload() error {
	if len(d.CandidatesRaw) > 0 {
		if err := json.Unmarshal(d.CandidatesRaw, &d.Candidates); err != nil {
			return err
		}
	}
	if len(d.TraceRaw) > 0 {
		if err := json.Unmarshal(d.TraceRaw, &d.Trace); err != nil {
			return err
		}
	}
	return nil
}

// TopStrategy returns the strategy of the top-ranked candidate, or "" for an
// empty decision. The learner attributes accept/reject outcomes to it.
func (d SwapDecision) TopStrategy() string {
	if len(d.Candidates) == 0 {
		return ""
	}
	return d.Candidates[0].Strategy
}
