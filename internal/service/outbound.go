package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"inventra/backend/internal/cache"
	"inventra/backend/internal/domain"
	"inventra/backend/internal/receipt"
	"inventra/backend/internal/store"
	"inventra/backend/internal/xid"
)

const MaxReceiptBytes = 5 << 20

func (s *Service) ListOutbound(ctx context.Context) ([]domain.OutboundSummary, error) {
	return cachedList(ctx, s, cache.OutboundListKey, s.repo.ListOutbound)
}

func (s *Service) GetOutbound(ctx context.Context, id string) (domain.OutboundSummary, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.OutboundSummary{}, invalid("id is required")
	}
	summary, err := s.repo.GetOutbound(ctx, id)
	if err != nil {
		return domain.OutboundSummary{}, err
	}
	return *summary, nil
}

func normalizeOutbound(req domain.OutboundRequest) (domain.OutboundRequest, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.Courier = strings.TrimSpace(req.Courier)
	req.PickupBy = strings.TrimSpace(req.PickupBy)
	req.Note = strings.TrimSpace(req.Note)
	req.Reason = domain.OutboundReason(strings.ToUpper(strings.TrimSpace(string(req.Reason))))

	if req.ProductID == "" {
		return req, invalid("productId is required")
	}
	if req.Qty <= 0 {
		return req, invalid("qty must be greater than zero")
	}
	if req.Qty > domain.MaxQuantity {
		return req, invalid("qty cannot exceed %d", domain.MaxQuantity)
	}
	if req.OperationalCost.IsNegative() {
		return req, invalid("operationalCost cannot be negative")
	}
	if !req.Reason.Valid() {
		return req, invalid("reason must be one of SALES, RETURN, WASTE, INTERNAL_USE")
	}
	if req.IsShipping && req.IsPickup {
		return req, invalid("isShipping and isPickup are mutually exclusive")
	}
	return req, nil
}

// applyDispatch copies the dispatch details onto the record. Receipt fields
// survive only while the record stays a shipping dispatch.
func (s *Service) applyDispatch(record *domain.OutboundRecord, req domain.OutboundRequest) {
	now := s.now()

	if req.IsShipping {
		shipping := record.ShippingInfo
		if !shipping.IsShipping {
			shipping = domain.ShippingInfo{}
		}
		shipping.IsShipping = true
		shipping.Courier = req.Courier
		shipping.ShippingDate = utcPtr(req.ShippingDate)
		if shipping.ShippingDate == nil {
			shipping.ShippingDate = &now
		}
		record.ShippingInfo = shipping
	} else {
		record.ShippingInfo = domain.ShippingInfo{}
	}

	if req.IsPickup {
		record.PickupInfo = domain.PickupInfo{
			IsPickup:   true,
			PickupDate: utcPtr(req.PickupDate),
			PickupBy:   req.PickupBy,
		}
		if record.PickupDate == nil {
			record.PickupDate = &now
		}
	} else {
		record.PickupInfo = domain.PickupInfo{}
	}

	record.Status = domain.DeriveOutboundStatus(record.IsShipping, record.IsPickup)
}

// CreateOutbound records goods leaving the warehouse and deducts them from
// stock in the same unit of work.
func (s *Service) CreateOutbound(ctx context.Context, req domain.OutboundRequest, actor domain.Actor) (domain.OutboundRecord, error) {
	if err := requireActor(actor); err != nil {
		return domain.OutboundRecord{}, err
	}
	req, err := normalizeOutbound(req)
	if err != nil {
		return domain.OutboundRecord{}, err
	}

	now := s.now()
	record := domain.OutboundRecord{
		ID:              xid.New("out"),
		ProductID:       req.ProductID,
		Qty:             req.Qty,
		OperationalCost: req.OperationalCost,
		Reason:          req.Reason,
		Note:            req.Note,
		CreatedBy:       actor.Username,
		UpdatedBy:       actor.Username,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.applyDispatch(&record, req)

	err = s.repo.Atomic(ctx, func(tx store.Tx) error {
		product, err := tx.GetProductForUpdate(ctx, record.ProductID)
		if err != nil {
			return err
		}
		if err := s.ledger.DeductOnDispatch(ctx, tx, product.ID, product.StorageLocationID, record.Qty); err != nil {
			return err
		}
		record.StorageLocationID = product.StorageLocationID
		record.StockDeducted = true
		record.TotalValue = domain.OutboundTotalValue(record.Qty, product.Price, record.OperationalCost)
		return tx.InsertOutbound(ctx, record)
	})
	if err != nil {
		return domain.OutboundRecord{}, err
	}

	s.invalidate(ctx, cache.OutboundListKey)
	s.logAudit(actor, "outbound_create", "outbound", record.ID, fmt.Sprintf("qty=%d,status=%s", record.Qty, record.Status))
	return record, nil
}

// UpdateOutbound replaces the editable fields of a live outbound. A change of
// product or quantity restocks the previous deduction before taking the new one.
func (s *Service) UpdateOutbound(ctx context.Context, id string, req domain.OutboundRequest, actor domain.Actor) (domain.OutboundRecord, error) {
	if err := requireActor(actor); err != nil {
		return domain.OutboundRecord{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.OutboundRecord{}, invalid("id is required")
	}
	req, err := normalizeOutbound(req)
	if err != nil {
		return domain.OutboundRecord{}, err
	}

	var updated domain.OutboundRecord
	err = s.repo.Atomic(ctx, func(tx store.Tx) error {
		record, err := tx.GetOutboundForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if record.IsTerminal() {
			return transition("outbound %s is %s", record.ID, record.Status)
		}

		if record.ProductID != req.ProductID || record.Qty != req.Qty {
			if record.StockDeducted {
				if err := s.ledger.RestockOnCancel(ctx, tx, record.ProductID, record.StorageLocationID, record.Qty); err != nil {
					return err
				}
				record.StockDeducted = false
			}
			product, err := tx.GetProductForUpdate(ctx, req.ProductID)
			if err != nil {
				return err
			}
			if err := s.ledger.DeductOnDispatch(ctx, tx, product.ID, product.StorageLocationID, req.Qty); err != nil {
				return err
			}
			record.ProductID = product.ID
			record.StorageLocationID = product.StorageLocationID
			record.Qty = req.Qty
			record.StockDeducted = true
		}

		product, err := tx.GetProductForUpdate(ctx, record.ProductID)
		if err != nil {
			return err
		}
		record.OperationalCost = req.OperationalCost
		record.TotalValue = domain.OutboundTotalValue(record.Qty, product.Price, record.OperationalCost)
		record.Reason = req.Reason
		record.Note = req.Note
		s.applyDispatch(record, req)
		record.UpdatedBy = actor.Username
		record.UpdatedAt = s.now()

		if err := tx.UpdateOutbound(ctx, *record); err != nil {
			return err
		}
		updated = *record
		return nil
	})
	if err != nil {
		return domain.OutboundRecord{}, err
	}

	s.invalidate(ctx, cache.OutboundListKey)
	s.logAudit(actor, "outbound_update", "outbound", updated.ID, fmt.Sprintf("qty=%d,status=%s", updated.Qty, updated.Status))
	return updated, nil
}

func (s *Service) MarkOutboundDelivered(ctx context.Context, req domain.DeliverRequest, actor domain.Actor) (domain.OutboundRecord, error) {
	if err := requireActor(actor); err != nil {
		return domain.OutboundRecord{}, err
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		return domain.OutboundRecord{}, invalid("id is required")
	}

	var updated domain.OutboundRecord
	err := s.repo.Atomic(ctx, func(tx store.Tx) error {
		record, err := tx.GetOutboundForUpdate(ctx, req.ID)
		if err != nil {
			return err
		}
		if record.Status != domain.OutboundShipped && record.Status != domain.OutboundPickedUp {
			return transition("outbound %s is %s, only shipped or picked up goods can be delivered", record.ID, record.Status)
		}

		now := s.now()
		record.Status = domain.OutboundDelivered
		record.DeliveredDate = &now
		record.UpdatedBy = actor.Username
		record.UpdatedAt = now
		if err := tx.UpdateOutbound(ctx, *record); err != nil {
			return err
		}
		updated = *record
		return nil
	})
	if err != nil {
		return domain.OutboundRecord{}, err
	}

	s.invalidate(ctx, cache.OutboundListKey)
	s.logAudit(actor, "outbound_deliver", "outbound", updated.ID, "")
	return updated, nil
}

// CancelOutbound returns deducted goods to the location they left from.
func (s *Service) CancelOutbound(ctx context.Context, req domain.CancelRequest, actor domain.Actor) (domain.OutboundRecord, error) {
	if err := requireActor(actor); err != nil {
		return domain.OutboundRecord{}, err
	}
	req.ID = strings.TrimSpace(req.ID)
	note := strings.TrimSpace(req.CanceledNote)
	if req.ID == "" {
		return domain.OutboundRecord{}, invalid("id is required")
	}
	if note == "" {
		return domain.OutboundRecord{}, invalid("canceledNote is required")
	}

	var updated domain.OutboundRecord
	err := s.repo.Atomic(ctx, func(tx store.Tx) error {
		record, err := tx.GetOutboundForUpdate(ctx, req.ID)
		if err != nil {
			return err
		}
		if record.IsTerminal() {
			return transition("outbound %s is %s", record.ID, record.Status)
		}

		if record.StockDeducted {
			if err := s.ledger.RestockOnCancel(ctx, tx, record.ProductID, record.StorageLocationID, record.Qty); err != nil {
				return err
			}
			record.StockDeducted = false
		}

		now := s.now()
		record.Status = domain.OutboundCanceled
		record.CanceledDate = &now
		record.CanceledNote = note
		record.UpdatedBy = actor.Username
		record.UpdatedAt = now
		if err := tx.UpdateOutbound(ctx, *record); err != nil {
			return err
		}
		updated = *record
		return nil
	})
	if err != nil {
		return domain.OutboundRecord{}, err
	}

	s.invalidate(ctx, cache.OutboundListKey)
	s.logAudit(actor, "outbound_cancel", "outbound", updated.ID, note)
	return updated, nil
}

func checkReceiptTarget(record domain.OutboundRecord) error {
	if record.Status == domain.OutboundCanceled {
		return transition("outbound %s is canceled", record.ID)
	}
	if !record.IsShipping {
		return transition("outbound %s is not shipped by courier", record.ID)
	}
	return nil
}

// AttachOutboundReceipt uploads the courier receipt image and marks the
// shipping record as having one. The object is written before the record is
// locked so no row lock is held during the upload.
func (s *Service) AttachOutboundReceipt(ctx context.Context, id string, upload domain.ReceiptUpload, body io.Reader, actor domain.Actor) (domain.OutboundRecord, error) {
	if err := requireActor(actor); err != nil {
		return domain.OutboundRecord{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.OutboundRecord{}, invalid("id is required")
	}
	contentType := strings.ToLower(strings.TrimSpace(upload.ContentType))
	if _, ok := receipt.Extension(contentType); !ok {
		return domain.OutboundRecord{}, invalid("receipt must be a jpeg, png or webp image")
	}
	if upload.Size <= 0 || upload.Size > MaxReceiptBytes {
		return domain.OutboundRecord{}, invalid("receipt must be between 1 byte and %d bytes", MaxReceiptBytes)
	}

	current, err := s.repo.GetOutbound(ctx, id)
	if err != nil {
		return domain.OutboundRecord{}, err
	}
	if err := checkReceiptTarget(current.OutboundRecord); err != nil {
		return domain.OutboundRecord{}, err
	}

	now := s.now()
	objectName, err := receipt.ObjectName(id, contentType, now)
	if err != nil {
		return domain.OutboundRecord{}, invalid("%s", err)
	}
	if err := s.receipts.Put(ctx, objectName, body, upload.Size, contentType); err != nil {
		return domain.OutboundRecord{}, err
	}

	var updated domain.OutboundRecord
	err = s.repo.Atomic(ctx, func(tx store.Tx) error {
		record, err := tx.GetOutboundForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkReceiptTarget(*record); err != nil {
			return err
		}
		record.IsReceipt = true
		record.ReceiptPath = objectName
		record.ReceiptUploadDate = &now
		record.UpdatedBy = actor.Username
		record.UpdatedAt = now
		if err := tx.UpdateOutbound(ctx, *record); err != nil {
			return err
		}
		updated = *record
		return nil
	})
	if err != nil {
		// The record moved on while the object was uploading.
		if rmErr := s.receipts.Remove(context.WithoutCancel(ctx), objectName); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("object", objectName).Str("outbound_id", id).Msg("orphan receipt left in object storage")
		}
		return domain.OutboundRecord{}, err
	}

	s.invalidate(ctx, cache.OutboundListKey)
	s.logAudit(actor, "outbound_receipt", "outbound", updated.ID, objectName)
	return updated, nil
}
