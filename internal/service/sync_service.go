package service

import (
	"context"

	"opticare/internal/dto"
	"opticare/internal/model"
	"opticare/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SyncService reconciles the legacy products.stock_quantity aggregate with
// the branch_stock table. Safe to re-run: a second pass over unchanged data
// creates no rows and rewrites no totals.
type SyncService interface {
	Run(ctx context.Context) (*dto.SyncReportResponse, error)
}

type syncService struct {
	stockRepo   repository.BranchStockRepository
	productRepo repository.ProductRepository
	branchRepo  repository.BranchRepository
}

func NewSyncService(
	stockRepo repository.BranchStockRepository,
	productRepo repository.ProductRepository,
	branchRepo repository.BranchRepository,
) SyncService {
	return &syncService{stockRepo: stockRepo, productRepo: productRepo, branchRepo: branchRepo}
}

// Run executes the three reconcile passes in one transaction:
//  1. Every active product with no branch_stock row gets one at the primary
//     branch, seeded from the legacy aggregate (the pre-branch data shape).
//  2. Every row's persisted status is recomputed; drifted labels are fixed.
//  3. Each product's legacy aggregate is rewritten as the sum of its rows.
func (s *syncService) Run(ctx context.Context) (*dto.SyncReportResponse, error) {
	report := &dto.SyncReportResponse{}
	txErr := runTx(ctx, s.stockRepo.DB(), func(tx *gorm.DB) error {
		// All three snapshots are read through the tx so the passes work
		// on state consistent with their own writes.
		products, err := s.productRepo.ListActiveTx(tx)
		if err != nil {
			return err
		}
		branches, err := s.branchRepo.ListActiveTx(tx)
		if err != nil {
			return err
		}
		rows, err := s.stockRepo.ListAllTx(tx)
		if err != nil {
			return err
		}

		var primary *model.Branch
		if len(branches) > 0 {
			primary = &branches[0]
		}

		byProduct := make(map[string][]*model.BranchStock, len(products))
		for i := range rows {
			key := rows[i].ProductID.String()
			byProduct[key] = append(byProduct[key], &rows[i])
		}

		// Pass 1: seed missing rows from the legacy aggregate.
		for i := range products {
			p := &products[i]
			if len(byProduct[p.ID.String()]) > 0 || primary == nil {
				continue
			}
			bs := &model.BranchStock{
				ProductID:         p.ID,
				BranchID:          primary.ID,
				StockQuantity:     p.StockQuantity,
				MinStockThreshold: 5,
				IsActive:          true,
			}
			bs.RecomputeStatus()
			if err := s.stockRepo.CreateTx(tx, bs); err != nil {
				return err
			}
			byProduct[p.ID.String()] = append(byProduct[p.ID.String()], bs)
			report.RowsCreated++
		}

		// Pass 2: fix drifted status labels.
		for i := range rows {
			bs := &rows[i]
			if derived := bs.DeriveStatus(); bs.Status != derived {
				bs.Status = derived
				if err := s.stockRepo.SaveTx(tx, bs); err != nil {
					return err
				}
				report.StatusesFixed++
			}
		}

		// Pass 3: rewrite each product aggregate as the sum of its rows.
		for i := range products {
			p := &products[i]
			total := 0
			for _, bs := range byProduct[p.ID.String()] {
				total += bs.StockQuantity
			}
			if total == p.StockQuantity {
				continue
			}
			if err := s.productRepo.UpdateAggregateStockTx(tx, p.ID, total); err != nil {
				return err
			}
			report.ProductsUpdated++
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Int("rows_created", report.RowsCreated).
		Int("statuses_fixed", report.StatusesFixed).
		Int("products_updated", report.ProductsUpdated).
		Msg("stock reconcile finished")
	return report, nil
}
