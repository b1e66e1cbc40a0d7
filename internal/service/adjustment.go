package service

import (
	"context"
	"fmt"
	"strings"

	"inventra/backend/internal/cache"
	"inventra/backend/internal/domain"
	"inventra/backend/internal/store"
)

func (s *Service) RecordAdjustment(ctx context.Context, req domain.StockAdjustmentRequest, actor domain.Actor) (domain.StockAdjustment, error) {
	if err := requireActor(actor); err != nil {
		return domain.StockAdjustment{}, err
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		return domain.StockAdjustment{}, invalid("productId is required")
	}

	var entry *domain.StockAdjustment
	err := s.repo.Atomic(ctx, func(tx store.Tx) error {
		var err error
		entry, err = s.ledger.ApplyAdjustment(ctx, tx, req, actor)
		return err
	})
	if err != nil {
		return domain.StockAdjustment{}, err
	}

	s.invalidate(ctx, cache.AdjustmentListKey(entry.ProductID))
	s.logAudit(actor, "stock_adjustment", "product", entry.ProductID, fmt.Sprintf("type=%s,old=%d,new=%d", entry.Type, entry.OldQty, entry.NewQty))
	return *entry, nil
}

func (s *Service) ListAdjustments(ctx context.Context, productID string) ([]domain.StockAdjustment, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, invalid("productId is required")
	}
	return cachedList(ctx, s, cache.AdjustmentListKey(productID), func(ctx context.Context) ([]domain.StockAdjustment, error) {
		return s.repo.ListAdjustments(ctx, productID)
	})
}
