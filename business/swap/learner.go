package swap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"swapkit/domain"
	"swapkit/pkg/logger"
)

// ErrUnknownDecision marks feedback referencing a decision that does not
// exist. Such signals are dropped with a warning; they never block other
// feedback ingestion.
var ErrUnknownDecision = errors.New("unknown decision")

// ---- Repository interfaces ----

type DecisionRepository interface {
	Save(ctx context.Context, decision *domain.SwapDecision) error
	FindByID(ctx context.Context, id string) (domain.SwapDecision, error)
	FindRecent(ctx context.Context, limit int) ([]domain.SwapDecision, error)
}

type FeedbackRepository interface {
	Save(ctx context.Context, signal *domain.FeedbackSignal) error
	FindByDecisionIDs(ctx context.Context, decisionIDs []string) ([]domain.FeedbackSignal, error)
	CountByOutcome(ctx context.Context) (map[string]int64, error)
}

type WeightRepository interface {
	SaveVersion(ctx context.Context, table domain.WeightTable) error
	LatestVersion(ctx context.Context) (domain.WeightTable, bool, error)
}

// FeedbackLearner ingests accept/reject signals and periodically recomputes
// the WeightTable from aggregated counts. The update is a pure function of
// (current table, feedback window), so replaying the same window in any
// order yields the same table.
type FeedbackLearner struct {
	decisionRepo DecisionRepository
	feedbackRepo FeedbackRepository
	weightRepo   WeightRepository
	store        *WeightStore
	cfg          Config

	// at most one reconciliation in flight
	mu sync.Mutex
}

func NewFeedbackLearner(
	decisionRepo DecisionRepository,
	feedbackRepo FeedbackRepository,
	weightRepo WeightRepository,
	store *WeightStore,
	cfg Config,
) *FeedbackLearner {
	return &FeedbackLearner{
		decisionRepo: decisionRepo,
		feedbackRepo: feedbackRepo,
		weightRepo:   weightRepo,
		store:        store,
		cfg:          cfg,
	}
}

// Record appends a feedback signal. The referenced decision must exist.
func (l *FeedbackLearner) Record(ctx context.Context, signal domain.FeedbackSignal) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if !domain.ValidOutcome(signal.Outcome) {
		return fmt.Errorf("invalid outcome: %s", signal.Outcome)
	}

	if _, err := l.decisionRepo.FindByID(ctx, signal.DecisionID); err != nil {
		logger.Warn("feedback for unknown decision dropped",
			"decision_id", signal.DecisionID,
			"error", err,
		)
		return ErrUnknownDecision
	}

	if err := l.feedbackRepo.Save(ctx, &signal); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}

	logger.Debug("feedback recorded",
		"decision_id", signal.DecisionID,
		"product_id", signal.ProductID,
		"outcome", signal.Outcome,
	)

	return nil
}

type strategyStats struct {
	accepted int
	total    int
}

// Reconcile recomputes the weight table from the recent decision window,
// persists the new version, and swaps it in atomically.
func (l *FeedbackLearner) Reconcile(ctx context.Context) (domain.WeightTable, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.WeightTable{}, fmt.Errorf("context error: %w", err)
	}

	current := l.store.Snapshot()

	decisions, err := l.decisionRepo.FindRecent(ctx, l.cfg.FeedbackWindow)
	if err != nil {
		return domain.WeightTable{}, fmt.Errorf("load decision window: %w", err)
	}
	if len(decisions) == 0 {
		return current, nil
	}

	ids := make([]string, 0, len(decisions))
	topStrategy := make(map[string]string, len(decisions))
	for _, d := range decisions {
		ids = append(ids, d.ID)
		topStrategy[d.ID] = d.TopStrategy()
	}

	signals, err := l.feedbackRepo.FindByDecisionIDs(ctx, ids)
	if err != nil {
		return domain.WeightTable{}, fmt.Errorf("load feedback window: %w", err)
	}

	stats := aggregate(signals, topStrategy)
	if len(stats) == 0 {
		// no accept/reject signals yet, nothing to learn from
		return current, nil
	}

	next := reconcileWeights(current, stats, l.cfg)
	next.Version = current.Version + 1

	if l.weightRepo != nil {
		if err := l.weightRepo.SaveVersion(ctx, next); err != nil {
			return domain.WeightTable{}, fmt.Errorf("save weight version: %w", err)
		}
	}

	l.store.Swap(next)
	SwapReconcilesTotal.Inc()

	logger.Info("weight table reconciled",
		"version", next.Version,
		"w_rule", next.WRule,
		"w_similarity", next.WSimilarity,
		"w_llm", next.WLLM,
		"strictness", next.Strictness,
	)

	return next, nil
}

// Stats returns overall feedback acceptance counts.
func (l *FeedbackLearner) Stats(ctx context.Context) (FeedbackStats, error) {
	counts, err := l.feedbackRepo.CountByOutcome(ctx)
	if err != nil {
		return FeedbackStats{}, fmt.Errorf("count feedback: %w", err)
	}

	stats := FeedbackStats{
		Accepted: counts[domain.OutcomeAccepted],
		Rejected: counts[domain.OutcomeRejected],
		Ignored:  counts[domain.OutcomeIgnored],
	}
	stats.Total = stats.Accepted + stats.Rejected + stats.Ignored
	if stats.Total > 0 {
		stats.AcceptanceRate = float64(stats.Accepted) / float64(stats.Total)
	}

	return stats, nil
}

type FeedbackStats struct {
	Total          int64   `json:"total"`
	Accepted       int64   `json:"accepted"`
	Rejected       int64   `json:"rejected"`
	Ignored        int64   `json:"ignored"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

// aggregate counts accept/reject outcomes per strategy of the top-ranked
// candidate of the referenced decision. Ignored signals carry no signal
// about ranking quality and are excluded.
func aggregate(signals []domain.FeedbackSignal, topStrategy map[string]string) map[string]strategyStats {
	stats := make(map[string]strategyStats, 3)

	for _, s := range signals {
		strategy, ok := topStrategy[s.DecisionID]
		if !ok || strategy == "" {
			continue
		}

		switch s.Outcome {
		case domain.OutcomeAccepted:
			st := stats[strategy]
			st.accepted++
			st.total++
			stats[strategy] = st
		case domain.OutcomeRejected:
			st := stats[strategy]
			st.total++
			stats[strategy] = st
		}
	}

	return stats
}

// reconcileWeights is the pure update rule. For each strategy with feedback,
// the acceptance rate maps to a target weight in [0.5, 1.5] around neutral
// 1.0, and the weight moves one bounded learning-rate step toward it, then
// clamps to the configured bounds. A strategy with no feedback keeps its
// weight. Guardrail strictness moves the same way on the overall rate:
// low acceptance tightens, high acceptance loosens.
func reconcileWeights(current domain.WeightTable, stats map[string]strategyStats, cfg Config) domain.WeightTable {
	next := current

	next.WRule = nudge(current.WRule, stats[domain.StrategyRule], cfg)
	next.WSimilarity = nudge(current.WSimilarity, stats[domain.StrategySimilarity], cfg)
	next.WLLM = nudge(current.WLLM, stats[domain.StrategyLLM], cfg)

	var accepted, total int
	for _, st := range stats {
		accepted += st.accepted
		total += st.total
	}
	if total > 0 {
		rate := float64(accepted) / float64(total)
		// strictness target: 1.5 when nothing is accepted, 0.5 when all is
		target := 1.5 - rate
		strictness := current.Strictness + cfg.LearningRate*(target-current.Strictness)
		next.Strictness = clamp(strictness, cfg.StrictnessMin, cfg.StrictnessMax)
	}

	return next
}

func nudge(weight float64, st strategyStats, cfg Config) float64 {
	if st.total == 0 {
		return weight
	}

	rate := float64(st.accepted) / float64(st.total)
	target := 0.5 + rate
	return clamp(weight+cfg.LearningRate*(target-weight), cfg.WeightMin, cfg.WeightMax)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
