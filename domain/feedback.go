package domain

import "time"

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeIgnored  = "ignored"
)

// ValidOutcome reports whether s is a known feedback outcome label.
func ValidOutcome(s string) bool {
	switch s {
	case OutcomeAccepted, OutcomeRejected, OutcomeIgnored:
		return true
	}
	return false
}

// CREATE TABLE public.feedback_signals (
//     id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     decision_id TEXT NOT NULL,
//     product_id  BIGINT,
//     outcome     TEXT NOT NULL,
//     created_at  TIMESTAMPTZ DEFAULT NOW()
// );

// FeedbackSignal is an append-only accept/reject/ignore record for a past
// decision. ProductID 0 means "none accepted".
type FeedbackSignal struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	DecisionID string    `gorm:"column:decision_id;not null;index" json:"decision_id"`
	ProductID  uint64    `gorm:"column:product_id" json:"product_id"`
	Outcome    string    `gorm:"column:outcome;not null" json:"outcome"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (FeedbackSignal) TableName() string {
	return "feedback_signals"
}
