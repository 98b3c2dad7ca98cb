package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"swapkit/domain"
	"swapkit/pkg/logger"
)

const maxReasonablePrice = 1000000

// ProductRepository contract interface
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uint64) (domain.Product, error)
	FindAll(ctx context.Context) ([]domain.Product, error)
	FindBySKU(ctx context.Context, sku, retailerID string) (domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uint64) error
}

type productService struct {
	productRepo ProductRepository
}

func NewProductService(productRepo ProductRepository) *productService {
	return &productService{
		productRepo: productRepo,
	}
}

func (s *productService) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		logger.Error("failed to find all products", "error", err)
		return nil, err
	}

	return products, nil
}

func (s *productService) GetProductByID(ctx context.Context, id uint64) (*domain.Product, error) {
	if id == 0 {
		return nil, errors.New("invalid product id")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error("failed to find product by id", "product_id", id, "error", err)
		return nil, err
	}

	return &product, nil
}

func (s *productService) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	if err := validateProduct(product); err != nil {
		logger.Error("invalid product data", "sku", product.SKU, "error", err)
		return nil, err
	}

	// reject duplicate SKU for the same retailer
	existing, err := s.productRepo.FindBySKU(ctx, product.SKU, product.RetailerID)
	if err == nil && existing.ID != 0 {
		return nil, errors.New("product with this sku already exists for retailer")
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		logger.Error("failed to create product", "error", err)
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	logger.Info("product created", "product_id", product.ID, "sku", product.SKU)

	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	if product.ID == 0 {
		return nil, errors.New("product ID is required")
	}

	if err := validateProduct(product); err != nil {
		logger.Error("invalid product data", "product_id", product.ID, "error", err)
		return nil, err
	}

	if _, err := s.productRepo.FindByID(ctx, product.ID); err != nil {
		return nil, errors.New("product not found")
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		logger.Error("failed to update product", "product_id", product.ID, "error", err)
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	updated, err := s.productRepo.FindByID(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch updated product: %w", err)
	}

	logger.Info("product updated", "product_id", product.ID)

	return &updated, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id uint64) error {
	if id == 0 {
		return errors.New("invalid product id")
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if _, err := s.productRepo.FindByID(ctx, id); err != nil {
		return errors.New("product not found")
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		logger.Error("failed to delete product", "product_id", id, "error", err)
		return fmt.Errorf("failed to delete product: %w", err)
	}

	logger.Info("product deleted", "product_id", id)

	return nil
}

// validateProduct applies the basic data-quality rules a product must pass
// before entering the catalog.
func validateProduct(p *domain.Product) error {
	if strings.TrimSpace(p.SKU) == "" {
		return errors.New("sku is required")
	}
	if !validSKU(p.SKU) {
		return errors.New("sku contains invalid characters")
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		return errors.New("product name is required")
	}
	if len(name) < 3 {
		return errors.New("product name too short")
	}
	if len(name) > 200 {
		return errors.New("product name too long")
	}

	if strings.TrimSpace(p.Category) == "" {
		return errors.New("category is required")
	}

	if p.Price <= 0 {
		return errors.New("price must be greater than 0")
	}
	if p.Price > maxReasonablePrice {
		return errors.New("price seems unrealistic")
	}

	return nil
}

// validSKU allows alphanumerics, dashes and underscores.
func validSKU(sku string) bool {
	for _, r := range sku {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
