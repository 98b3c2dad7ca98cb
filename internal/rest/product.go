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
	"gorm.io/datatypes"
)

type ProductService interface {
	GetAllProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id uint64) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uint64) error
}

type ProductHandler struct {
	productService ProductService
	validator      *validator.Validate
	timeout        time.Duration
}

func NewProductHandler(productService ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		validator:      validator.New(),
		timeout:        10 * time.Second,
	}
}

type CreateProductRequest struct {
	SKU          string                 `json:"sku" validate:"required"`
	Name         string                 `json:"name" validate:"required,min=3,max=200"`
	Category     string                 `json:"category" validate:"required"`
	Price        float64                `json:"price" validate:"required,gt=0"`
	RetailerID   string                 `json:"retailer_id"`
	Availability *bool                  `json:"availability"`
	Attributes   map[string]interface{} `json:"attributes"`
}

type UpdateProductRequest struct {
	SKU          string                 `json:"sku" validate:"required"`
	Name         string                 `json:"name" validate:"required,min=3,max=200"`
	Category     string                 `json:"category" validate:"required"`
	Price        float64                `json:"price" validate:"required,gt=0"`
	RetailerID   string                 `json:"retailer_id"`
	Availability *bool                  `json:"availability"`
	Attributes   map[string]interface{} `json:"attributes"`
}

func (h *ProductHandler) GetAllProducts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	products, err := h.productService.GetAllProducts(ctx)
	if err != nil {
		logger.Error("Failed to find all Product", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "successfully get all products",
		"products": products,
	})
}

func (h *ProductHandler) GetProductByID(c echo.Context) error {
	productIdStr := c.Param("id")

	productId, err := strconv.ParseUint(productIdStr, 10, 64)
	if err != nil {
		logger.Error("Invalid product id", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	product, err := h.productService.GetProductByID(ctx, productId)
	if err != nil {
		if err.Error() == "product not found" {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "successfully find product by id",
		"product": product,
	})
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req CreateProductRequest

	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind request", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.Error("Failed to validate product request", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	availability := true
	if req.Availability != nil {
		availability = *req.Availability
	}

	product := &domain.Product{
		SKU:          req.SKU,
		Name:         req.Name,
		Category:     req.Category,
		Price:        req.Price,
		RetailerID:   req.RetailerID,
		Availability: availability,
		Attributes:   datatypes.JSONMap(req.Attributes),
	}

	newProduct, err := h.productService.CreateProduct(ctx, product)
	if err != nil {
		logger.Error("Failed to create Product", err)
		// Check if it's a validation error
		if err.Error() == "sku is required" ||
			err.Error() == "sku contains invalid characters" ||
			err.Error() == "product name is required" ||
			err.Error() == "product name too short" ||
			err.Error() == "product name too long" ||
			err.Error() == "category is required" ||
			err.Error() == "price must be greater than 0" ||
			err.Error() == "price seems unrealistic" ||
			err.Error() == "product with this sku already exists for retailer" {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Product successfully created",
		"product": newProduct,
	})
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	productIdStr := c.Param("id")

	productId, err := strconv.ParseUint(productIdStr, 10, 64)
	if err != nil {
		logger.Error("Invalid product id", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	var req UpdateProductRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind request", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.Error("Failed to validate product request", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	availability := true
	if req.Availability != nil {
		availability = *req.Availability
	}

	product := &domain.Product{
		ID:           productId,
		SKU:          req.SKU,
		Name:         req.Name,
		Category:     req.Category,
		Price:        req.Price,
		RetailerID:   req.RetailerID,
		Availability: availability,
		Attributes:   datatypes.JSONMap(req.Attributes),
	}

	updateProduct, err := h.productService.UpdateProduct(ctx, product)
	if err != nil {
		logger.Error("Failed to update Product", err)
		if err.Error() == "product not found" {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		if err.Error() == "sku is required" ||
			err.Error() == "sku contains invalid characters" ||
			err.Error() == "product name is required" ||
			err.Error() == "product name too short" ||
			err.Error() == "product name too long" ||
			err.Error() == "category is required" ||
			err.Error() == "price must be greater than 0" ||
			err.Error() == "price seems unrealistic" {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "successfully update product",
		"product": updateProduct,
	})
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	productIdStr := c.Param("id")

	productId, err := strconv.ParseUint(productIdStr, 10, 64)
	if err != nil {
		logger.Error("Invalid product id", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.productService.DeleteProduct(ctx, productId); err != nil {
		logger.Error("Failed to delete Product", err)
		if err.Error() == "product not found" {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "successfully delete product",
	})
}
