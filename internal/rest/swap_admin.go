package rest

import (
	"context"
	"net/http"

	"swapkit/business/swap"
	"swapkit/domain"

	"github.com/labstack/echo/v4"
)

type (
	SwapAdminHandler struct {
		weights    *swap.WeightStore
		reconciler Reconciler
	}

	Reconciler interface {
		Reconcile(ctx context.Context) (domain.WeightTable, error)
	}
)

func NewSwapAdminHandler(weights *swap.WeightStore, reconciler Reconciler) *SwapAdminHandler {
	return &SwapAdminHandler{
		weights:    weights,
		reconciler: reconciler,
	}
}

// GET /api/v1/admin/swaps/weights
func (h *SwapAdminHandler) GetWeights(c echo.Context) error {
	return c.JSON(http.StatusOK, h.weights.Snapshot())
}

// POST /api/v1/admin/swaps/reconcile
//
// Runs one feedback reconciliation pass and publishes the new weight table
// version. Concurrent calls are serialized by the learner.
func (h *SwapAdminHandler) Reconcile(c echo.Context) error {
	ctx := c.Request().Context()

	table, err := h.reconciler.Reconcile(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  "ok",
		"weights": table,
	})
}
