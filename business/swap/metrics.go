package swap

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SwapDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_decisions_total",
			Help: "Count of swap decisions by outcome (filled, empty).",
		},
		[]string{"outcome"},
	)

	SwapStrategyCandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_strategy_candidates_total",
			Help: "Count of candidates produced per strategy.",
		},
		[]string{"strategy"},
	)

	SwapLLMInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_llm_invocations_total",
			Help: "Count of LLM orchestrator invocations by result (ok, failed).",
		},
		[]string{"result"},
	)

	SwapGuardrailDropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_guardrail_drops_total",
			Help: "Count of candidates dropped by guardrails, by reason.",
		},
		[]string{"reason"},
	)

	SwapReconcilesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swap_weight_reconciles_total",
			Help: "Count of weight table reconciliations.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SwapDecisionsTotal,
		SwapStrategyCandidatesTotal,
		SwapLLMInvocationsTotal,
		SwapGuardrailDropsTotal,
		SwapReconcilesTotal,
	)
}
