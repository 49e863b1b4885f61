package service

import (
	"context"

	"opticare/internal/dto"
	"opticare/internal/model"
	"opticare/internal/repository"

	"github.com/google/uuid"
)

// CatalogService covers the minimal product/branch CRUD the inventory core
// hangs off. Richer catalog features (frames/lens attributes, suppliers)
// live outside this backend.
type CatalogService interface {
	CreateProduct(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	ListProducts(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	DeactivateProduct(ctx context.Context, id uuid.UUID) error

	CreateBranch(ctx context.Context, req dto.CreateBranchRequest) (*dto.BranchResponse, error)
	ListBranches(ctx context.Context) ([]dto.BranchResponse, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	branchRepo  repository.BranchRepository
}

func NewCatalogService(productRepo repository.ProductRepository, branchRepo repository.BranchRepository) CatalogService {
	return &catalogService{productRepo: productRepo, branchRepo: branchRepo}
}

func (s *catalogService) CreateProduct(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if _, err := s.productRepo.FindBySKU(ctx, req.SKU); err == nil {
		return nil, ErrDuplicate
	}
	p := &model.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		IsActive:    true,
	}
	if err := s.productRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	return productToResponse(p), nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return productToResponse(p), nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		data = append(data, *productToResponse(&products[i]))
	}
	return &dto.ProductListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *catalogService) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.productRepo.FindByID(ctx, id); err != nil {
		return notFound(err)
	}
	return s.productRepo.SoftDelete(ctx, id)
}

func (s *catalogService) CreateBranch(ctx context.Context, req dto.CreateBranchRequest) (*dto.BranchResponse, error) {
	b := &model.Branch{
		Code:         req.Code,
		Name:         req.Name,
		Address:      req.Address,
		Phone:        req.Phone,
		ManagerEmail: req.ManagerEmail,
		IsActive:     true,
	}
	if err := s.branchRepo.Create(ctx, b); err != nil {
		return nil, err
	}
	return branchToResponse(b), nil
}

func (s *catalogService) ListBranches(ctx context.Context) ([]dto.BranchResponse, error) {
	branches, err := s.branchRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.BranchResponse, 0, len(branches))
	for i := range branches {
		out = append(out, *branchToResponse(&branches[i]))
	}
	return out, nil
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:            p.ID.String(),
		SKU:           p.SKU,
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		IsActive:      p.IsActive,
	}
}

func branchToResponse(b *model.Branch) *dto.BranchResponse {
	return &dto.BranchResponse{
		ID:           b.ID.String(),
		Code:         b.Code,
		Name:         b.Name,
		Address:      b.Address,
		Phone:        b.Phone,
		ManagerEmail: b.ManagerEmail,
		IsActive:     b.IsActive,
	}
}
