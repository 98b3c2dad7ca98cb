package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"swapkit/domain"
	"swapkit/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	SwapRuleHandler struct {
		ruleRepo SwapRuleRepository
		validate *validator.Validate
		timeout  time.Duration
	}

	SwapRuleRepository interface {
		Create(ctx context.Context, rule *domain.SwapRule) error
		FindByID(ctx context.Context, id uint64) (domain.SwapRule, error)
		FindAll(ctx context.Context) ([]domain.SwapRule, error)
		Update(ctx context.Context, rule *domain.SwapRule) error
		Delete(ctx context.Context, id uint64) error
	}

	SwapRuleRequest struct {
		Name            string `json:"name" validate:"required"`
		Description     string `json:"description"`
		SourceProductID uint64 `json:"source_product_id" validate:"required"`
		TargetProductID uint64 `json:"target_product_id" validate:"required"`
		Priority        int    `json:"priority"`
		Active          *bool  `json:"active"`
	}
)

func NewSwapRuleHandler(ruleRepo SwapRuleRepository) *SwapRuleHandler {
	return &SwapRuleHandler{
		ruleRepo: ruleRepo,
		validate: validator.New(),
		timeout:  10 * time.Second,
	}
}

// GET /api/v1/admin/swap-rules
func (h *SwapRuleHandler) GetAllRules(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	rules, err := h.ruleRepo.FindAll(ctx)
	if err != nil {
		logger.Error("Failed to list swap rules", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "successfully get all swap rules",
		"rules":   rules,
	})
}

// GET /api/v1/admin/swap-rules/:id
func (h *SwapRuleHandler) GetRuleByID(c echo.Context) error {
	ruleId, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	rule, err := h.ruleRepo.FindByID(ctx, ruleId)
	if err != nil {
		if err.Error() == "swap rule not found" {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "successfully find swap rule by id",
		"rule":    rule,
	})
}

// POST /api/v1/admin/swap-rules
func (h *SwapRuleHandler) CreateRule(c echo.Context) error {
	var req SwapRuleRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind swap rule request", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		logger.Error("Failed to validate swap rule request", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if req.SourceProductID == req.TargetProductID {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "source and target product must differ"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule := &domain.SwapRule{
		Name:            req.Name,
		Description:     req.Description,
		SourceProductID: req.SourceProductID,
		TargetProductID: req.TargetProductID,
		Priority:        req.Priority,
		Active:          active,
	}

	if err := h.ruleRepo.Create(ctx, rule); err != nil {
		logger.Error("Failed to create swap rule", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "swap rule successfully created",
		"rule":    rule,
	})
}

// PUT /api/v1/admin/swap-rules/:id
func (h *SwapRuleHandler) UpdateRule(c echo.Context) error {
	ruleId, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	var req SwapRuleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if req.SourceProductID == req.TargetProductID {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "source and target product must differ"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule := &domain.SwapRule{
		ID:              ruleId,
		Name:            req.Name,
		Description:     req.Description,
		SourceProductID: req.SourceProductID,
		TargetProductID: req.TargetProductID,
		Priority:        req.Priority,
		Active:          active,
	}

	if err := h.ruleRepo.Update(ctx, rule); err != nil {
		logger.Error("Failed to update swap rule", err)
		if err.Error() == "swap rule not found or already deleted" {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "successfully update swap rule",
		"rule":    rule,
	})
}

// DELETE /api/v1/admin/swap-rules/:id
func (h *SwapRuleHandler) DeleteRule(c echo.Context) error {
	ruleId, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.ruleRepo.Delete(ctx, ruleId); err != nil {
		logger.Error("Failed to delete swap rule", err)
		if err.Error() == "swap rule not found or already deleted" {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "successfully delete swap rule",
	})
}
