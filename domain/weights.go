package domain

import "time"

// CREATE TABLE public.weight_tables (
//     version       INT PRIMARY KEY,
//     w_rule        NUMERIC NOT NULL,
//     w_similarity  NUMERIC NOT NULL,
//     w_llm         NUMERIC NOT NULL,
//     strictness    NUMERIC NOT NULL,
//     created_at    TIMESTAMPTZ DEFAULT NOW()
// );

// WeightTable holds the per-strategy multipliers and the guardrail strictness
// in effect for a decision. Versions are append-only: the learner writes a new
// version rather than mutating an old one, so past decisions keep an accurate
// reference to the weights they were made with.
type WeightTable struct {
	Version     int       `gorm:"primaryKey;column:version" json:"version"`
	WRule       float64   `gorm:"column:w_rule;type:numeric" json:"w_rule"`
	WSimilarity float64   `gorm:"column:w_similarity;type:numeric" json:"w_similarity"`
	WLLM        float64   `gorm:"column:w_llm;type:numeric" json:"w_llm"`
	Strictness  float64   `gorm:"column:strictness;type:numeric" json:"strictness"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (WeightTable) TableName() string {
	return "weight_tables"
}

// WeightFor returns the multiplier for a strategy tag.
func (w WeightTable) WeightFor(strategy string) float64 {
	switch strategy {
	case StrategyRule:
		return w.WRule
	case StrategySimilarity:
		return w.WSimilarity
	case StrategyLLM:
		return w.WLLM
	default:
		return 1.0
	}
}
