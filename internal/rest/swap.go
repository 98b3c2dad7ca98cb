package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"swapkit/business/swap"
	"swapkit/domain"
	"swapkit/pkg/logger"
	"swapkit/pkg/metrics"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type ResponseError struct {
	Message string `json:"message"`
}

type (
	SwapHandler struct {
		validate    *validator.Validate
		swapService SwapService
		learner     FeedbackLearner
		timeout     time.Duration
	}

	SwapService interface {
		Decide(ctx context.Context, req swap.Request) (domain.SwapDecision, error)
		Decisions(ctx context.Context, limit int) ([]domain.SwapDecision, error)
	}

	FeedbackLearner interface {
		Record(ctx context.Context, signal domain.FeedbackSignal) error
		Stats(ctx context.Context) (swap.FeedbackStats, error)
	}

	SuggestSwapRequest struct {
		SourceProductID  uint64  `json:"source_product_id" validate:"required"`
		K                int     `json:"k" validate:"gte=0"`
		MaxPriceDeltaPct float64 `json:"max_price_delta_pct" validate:"gte=0"`
		Context          string  `json:"context"`
	}

	SwapFeedbackRequest struct {
		DecisionID string `json:"decision_id" validate:"required"`
		ProductID  uint64 `json:"product_id"`
		Outcome    string `json:"outcome" validate:"required,oneof=accepted rejected ignored"`
	}
)

func NewSwapHandler(svc SwapService, learner FeedbackLearner) *SwapHandler {
	return &SwapHandler{
		validate:    validator.New(),
		swapService: svc,
		learner:     learner,
		timeout:     30 * time.Second,
	}
}

// POST /api/v1/swaps/suggest
func (h *SwapHandler) SuggestSwaps(c echo.Context) error {
	start := time.Now()
	metrics.SwapSuggestRequests.Inc()

	var req SuggestSwapRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind swap request", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		logger.Error("Failed to validate swap request", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	decision, err := h.swapService.Decide(ctx, swap.Request{
		SourceProductID:  req.SourceProductID,
		K:                req.K,
		MaxPriceDeltaPct: req.MaxPriceDeltaPct,
		Context:          req.Context,
	})
	// a failed persist is retried once; the pipeline itself is deterministic
	// for an unchanged catalog, so rerunning it is safe
	if err != nil && strings.HasPrefix(err.Error(), "save decision") {
		logger.Warn("retrying swap decision after save failure", "error", err)
		decision, err = h.swapService.Decide(ctx, swap.Request{
			SourceProductID:  req.SourceProductID,
			K:                req.K,
			MaxPriceDeltaPct: req.MaxPriceDeltaPct,
			Context:          req.Context,
		})
	}
	if err != nil {
		logger.Error("Failed to decide swaps", err)
		if err.Error() == "product not found" {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		if strings.HasPrefix(err.Error(), "invalid constraints") {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	metrics.SwapSuggestLatency.Observe(time.Since(start).Seconds())

	return c.JSON(http.StatusOK, fres.Response.StatusOK(decision))
}

// POST /api/v1/swaps/feedback
func (h *SwapHandler) Feedback(c echo.Context) error {
	var req SwapFeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	signal := domain.FeedbackSignal{
		DecisionID: req.DecisionID,
		ProductID:  req.ProductID,
		Outcome:    req.Outcome,
	}

	if err := h.learner.Record(ctx, signal); err != nil {
		logger.Error("Failed to record swap feedback", err)
		if errors.Is(err, swap.ErrUnknownDecision) {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated("feedback recorded"))
}

// GET /api/v1/swaps/decisions?limit=20
func (h *SwapHandler) RecentDecisions(c echo.Context) error {
	limit := 20
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid limit"})
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	decisions, err := h.swapService.Decisions(ctx, limit)
	if err != nil {
		logger.Error("Failed to list swap decisions", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(decisions))
}

// GET /api/v1/swaps/stats
func (h *SwapHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	stats, err := h.learner.Stats(ctx)
	if err != nil {
		logger.Error("Failed to load feedback stats", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(stats))
}
