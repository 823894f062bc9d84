package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teahaven/teahaven-backend/pkg/db/models"
	"github.com/teahaven/teahaven-backend/pkg/enums"
	pkgerrors "github.com/teahaven/teahaven-backend/pkg/errors"
	"github.com/teahaven/teahaven-backend/pkg/pagination"
)

// Service owns catalog reads and seller-side listing management.
type Service interface {
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]ProductDTO, string, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListMine(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]ProductDTO, string, error)
	Create(ctx context.Context, sellerID uuid.UUID, role enums.UserRole, input CreateProductDTO) (*ProductDTO, error)
	Update(ctx context.Context, sellerID uuid.UUID, role enums.UserRole, id uuid.UUID, input UpdateProductDTO) (*ProductDTO, error)
	Delete(ctx context.Context, sellerID uuid.UUID, role enums.UserRole, id uuid.UUID) error
	Restock(ctx context.Context, sellerID uuid.UUID, role enums.UserRole, id uuid.UUID, qty int) (*ProductDTO, error)
}

type service struct {
	repo Repository
}

// NewService builds the product service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]ProductDTO, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	items, err := s.repo.List(ctx, filter, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, "", err
	}
	return paginate(items, params.Limit)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.findProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	// Inactive listings are hidden from the public catalog.
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return FromModel(product), nil
}

func (s *service) ListMine(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]ProductDTO, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	items, err := s.repo.ListBySeller(ctx, sellerID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, "", err
	}
	return paginate(items, params.Limit)
}

func (s *service) Create(ctx context.Context, sellerID uuid.UUID, role enums.UserRole, input CreateProductDTO) (*ProductDTO, error) {
	if err := requireSeller(role); err != nil {
		return nil, err
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		SellerID:     sellerID,
		Name:         input.Name,
		Description:  input.Description,
		Category:     input.Category,
		TastingNotes: input.TastingNotes,
		Price:        input.Price,
		Stock:        input.Stock,
		IsActive:     input.Stock > 0,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return FromModel(product), nil
}

func (s *service) Update(ctx context.Context, sellerID uuid.UUID, role enums.UserRole, id uuid.UUID, input UpdateProductDTO) (*ProductDTO, error) {
	product, err := s.loadOwned(ctx, sellerID, role, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
		}
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tea category")
		}
		product.Category = *input.Category
	}
	if input.TastingNotes != nil {
		product.TastingNotes = *input.TastingNotes
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		product.Price = *input.Price
	}

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, err
	}
	return FromModel(product), nil
}

func (s *service) Delete(ctx context.Context, sellerID uuid.UUID, role enums.UserRole, id uuid.UUID) error {
	if _, err := s.loadOwned(ctx, sellerID, role, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) Restock(ctx context.Context, sellerID uuid.UUID, role enums.UserRole, id uuid.UUID, qty int) (*ProductDTO, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}
	if _, err := s.loadOwned(ctx, sellerID, role, id); err != nil {
		return nil, err
	}

	ok, err := s.repo.AddStock(ctx, id, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(product), nil
}

func (s *service) loadOwned(ctx context.Context, sellerID uuid.UUID, role enums.UserRole, id uuid.UUID) (*models.Product, error) {
	if err := requireSeller(role); err != nil {
		return nil, err
	}
	product, err := s.findProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another seller")
	}
	return product, nil
}

func (s *service) findProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	return product, nil
}

func requireSeller(role enums.UserRole) error {
	if role != enums.UserRoleSeller {
		return pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}
	return nil
}

func validateCreate(input CreateProductDTO) error {
	if input.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if !input.Category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid tea category")
	}
	if input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	return nil
}

func paginate(items []models.Product, limit int) ([]ProductDTO, string, error) {
	pageSize := pagination.NormalizeLimit(limit)
	nextCursor := ""
	if len(items) > pageSize {
		items = items[:pageSize]
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return FromModels(items), nextCursor, nil
}
