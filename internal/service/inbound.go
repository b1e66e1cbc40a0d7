package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"inventra/backend/internal/cache"
	"inventra/backend/internal/domain"
	"inventra/backend/internal/store"
	"inventra/backend/internal/xid"
)

// normalizeInbound trims and validates a create or edit request and returns
// the total price: the override when given, otherwise purchasePrice * qty.
func normalizeInbound(req domain.InboundCreateRequest) (domain.InboundCreateRequest, decimal.Decimal, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.SupplierID = strings.TrimSpace(req.SupplierID)
	req.Note = strings.TrimSpace(req.Note)
	if req.ProductID == "" {
		return req, decimal.Zero, invalid("productId is required")
	}
	if req.Qty <= 0 {
		return req, decimal.Zero, invalid("qty must be greater than zero")
	}
	if req.Qty > domain.MaxQuantity {
		return req, decimal.Zero, invalid("qty cannot exceed %d", domain.MaxQuantity)
	}
	if !req.PurchasePrice.IsPositive() {
		return req, decimal.Zero, invalid("purchasePrice must be greater than zero")
	}

	total := req.PurchasePrice.Mul(decimal.NewFromInt(int64(req.Qty)))
	if req.TotalPrice != nil {
		if req.TotalPrice.IsNegative() {
			return req, decimal.Zero, invalid("totalPrice cannot be negative")
		}
		total = *req.TotalPrice
	}
	return req, total, nil
}

func checkInboundRefs(ctx context.Context, tx store.Tx, productID string, supplierID string) error {
	if _, err := tx.GetProductForUpdate(ctx, productID); err != nil {
		return err
	}
	if supplierID != "" {
		if _, err := tx.GetSupplier(ctx, supplierID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ListInbound(ctx context.Context) ([]domain.InboundSummary, error) {
	return cachedList(ctx, s, cache.InboundListKey, s.repo.ListInbound)
}

func (s *Service) GetInbound(ctx context.Context, id string) (domain.InboundSummary, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.InboundSummary{}, invalid("id is required")
	}
	summary, err := s.repo.GetInbound(ctx, id)
	if err != nil {
		return domain.InboundSummary{}, err
	}
	return *summary, nil
}

// CreateInbound records goods arriving at the dock. Stock is untouched until
// the record reaches STORED.
func (s *Service) CreateInbound(ctx context.Context, req domain.InboundCreateRequest, actor domain.Actor) (domain.InboundRecord, error) {
	if err := requireActor(actor); err != nil {
		return domain.InboundRecord{}, err
	}

	req, total, err := normalizeInbound(req)
	if err != nil {
		return domain.InboundRecord{}, err
	}

	now := s.now()
	receiveDate := now
	if req.ReceiveDate != nil {
		receiveDate = req.ReceiveDate.UTC()
	}

	record := domain.InboundRecord{
		ID:            xid.New("inb"),
		ProductID:     req.ProductID,
		SupplierID:    req.SupplierID,
		Qty:           req.Qty,
		PurchasePrice: req.PurchasePrice,
		TotalPrice:    total,
		Status:        domain.InboundReceived,
		ReceiveDate:   &receiveDate,
		Note:          req.Note,
		CreatedBy:     actor.Username,
		UpdatedBy:     actor.Username,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.repo.Atomic(ctx, func(tx store.Tx) error {
		if err := checkInboundRefs(ctx, tx, record.ProductID, record.SupplierID); err != nil {
			return err
		}
		return tx.InsertInbound(ctx, record)
	})
	if err != nil {
		return domain.InboundRecord{}, err
	}

	s.invalidate(ctx, cache.InboundListKey)
	s.logAudit(actor, "inbound_create", "inbound", record.ID, fmt.Sprintf("qty=%d,total=%s", record.Qty, record.TotalPrice))
	return record, nil
}

// UpdateInbound edits the commercial fields of a record that has not reached
// STORED or CANCELED. The total is recomputed unless an override is given.
// Stock is never touched: it only moves when the record is stored.
func (s *Service) UpdateInbound(ctx context.Context, id string, req domain.InboundCreateRequest, actor domain.Actor) (domain.InboundRecord, error) {
	if err := requireActor(actor); err != nil {
		return domain.InboundRecord{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.InboundRecord{}, invalid("id is required")
	}
	req, total, err := normalizeInbound(req)
	if err != nil {
		return domain.InboundRecord{}, err
	}

	var updated domain.InboundRecord
	err = s.repo.Atomic(ctx, func(tx store.Tx) error {
		record, err := tx.GetInboundForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if record.IsTerminal() {
			return transition("inbound %s is %s", record.ID, record.Status)
		}
		if err := checkInboundRefs(ctx, tx, req.ProductID, req.SupplierID); err != nil {
			return err
		}

		record.ProductID = req.ProductID
		record.SupplierID = req.SupplierID
		record.Qty = req.Qty
		record.PurchasePrice = req.PurchasePrice
		record.TotalPrice = total
		record.Note = req.Note
		if req.ReceiveDate != nil {
			record.ReceiveDate = utcPtr(req.ReceiveDate)
		}
		record.UpdatedBy = actor.Username
		record.UpdatedAt = s.now()
		if err := tx.UpdateInbound(ctx, *record); err != nil {
			return err
		}
		updated = *record
		return nil
	})
	if err != nil {
		return domain.InboundRecord{}, err
	}

	s.invalidate(ctx, cache.InboundListKey)
	s.logAudit(actor, "inbound_update", "inbound", updated.ID, fmt.Sprintf("qty=%d,total=%s", updated.Qty, updated.TotalPrice))
	return updated, nil
}

// UpdateInboundTracking stamps the supplied dates and re-derives the status.
// The first arrival at STORED moves stock into the product's location; later
// updates never count it again.
func (s *Service) UpdateInboundTracking(ctx context.Context, req domain.InboundTrackingRequest, actor domain.Actor) (domain.InboundRecord, error) {
	if err := requireActor(actor); err != nil {
		return domain.InboundRecord{}, err
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		return domain.InboundRecord{}, invalid("id is required")
	}
	if req.ReceiveDate == nil && req.ItemCheckingDate == nil && req.StoredDate == nil && req.CanceledDate == nil {
		return domain.InboundRecord{}, invalid("at least one tracking date is required")
	}

	var updated domain.InboundRecord
	err := s.repo.Atomic(ctx, func(tx store.Tx) error {
		record, err := tx.GetInboundForUpdate(ctx, req.ID)
		if err != nil {
			return err
		}
		if record.Status == domain.InboundCanceled {
			return transition("inbound %s is canceled", record.ID)
		}
		if req.CanceledDate != nil && record.Status == domain.InboundStored {
			return transition("inbound %s is already stored", record.ID)
		}

		if req.ReceiveDate != nil {
			record.ReceiveDate = utcPtr(req.ReceiveDate)
		}
		if req.ItemCheckingDate != nil {
			record.ItemCheckingDate = utcPtr(req.ItemCheckingDate)
		}
		if req.StoredDate != nil {
			record.StoredDate = utcPtr(req.StoredDate)
		}
		if req.CanceledDate != nil {
			note := strings.TrimSpace(req.CanceledNote)
			if note == "" {
				note = record.CanceledNote
			}
			if note == "" {
				return invalid("canceledNote is required to cancel")
			}
			record.CanceledDate = utcPtr(req.CanceledDate)
			record.CanceledNote = note
		}

		record.Status = record.FoldStatus()
		if record.Status == domain.InboundStored && !record.StockApplied {
			product, err := tx.GetProductForUpdate(ctx, record.ProductID)
			if err != nil {
				return err
			}
			if err := s.ledger.IncrementOnReceipt(ctx, tx, product.ID, product.StorageLocationID, record.Qty); err != nil {
				return err
			}
			record.StockApplied = true
		}

		record.UpdatedBy = actor.Username
		record.UpdatedAt = s.now()
		if err := tx.UpdateInbound(ctx, *record); err != nil {
			return err
		}
		updated = *record
		return nil
	})
	if err != nil {
		return domain.InboundRecord{}, err
	}

	s.invalidate(ctx, cache.InboundListKey)
	s.logAudit(actor, "inbound_tracking", "inbound", updated.ID, "status="+string(updated.Status))
	return updated, nil
}

// CancelInbound is only legal before the goods are stored, so there is never
// stock to reverse.
func (s *Service) CancelInbound(ctx context.Context, req domain.CancelRequest, actor domain.Actor) (domain.InboundRecord, error) {
	if err := requireActor(actor); err != nil {
		return domain.InboundRecord{}, err
	}
	req.ID = strings.TrimSpace(req.ID)
	note := strings.TrimSpace(req.CanceledNote)
	if req.ID == "" {
		return domain.InboundRecord{}, invalid("id is required")
	}
	if note == "" {
		return domain.InboundRecord{}, invalid("canceledNote is required")
	}

	var updated domain.InboundRecord
	err := s.repo.Atomic(ctx, func(tx store.Tx) error {
		record, err := tx.GetInboundForUpdate(ctx, req.ID)
		if err != nil {
			return err
		}
		if record.IsTerminal() {
			return transition("inbound %s is %s", record.ID, record.Status)
		}

		now := s.now()
		record.CanceledDate = &now
		record.CanceledNote = note
		record.Status = record.FoldStatus()
		record.UpdatedBy = actor.Username
		record.UpdatedAt = now
		if err := tx.UpdateInbound(ctx, *record); err != nil {
			return err
		}
		updated = *record
		return nil
	})
	if err != nil {
		return domain.InboundRecord{}, err
	}

	s.invalidate(ctx, cache.InboundListKey)
	s.logAudit(actor, "inbound_cancel", "inbound", updated.ID, note)
	return updated, nil
}
