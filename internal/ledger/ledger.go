// Package ledger is the only writer of Product.stock and
// StorageLocation.currentCapacity. Every operation runs inside a caller
// supplied store.Tx so the quantity change commits with the record that
// caused it.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"inventra/backend/internal/domain"
	"inventra/backend/internal/logger"
	"inventra/backend/internal/store"
	"inventra/backend/internal/xid"
)

type Ledger struct {
	log zerolog.Logger
	now func() time.Time
}

func New() *Ledger {
	return &Ledger{
		log: logger.Log.With().Str("component", "ledger").Logger(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// ApplyAdjustment writes a journal entry and moves Product.stock by the
// signed quantity. Capacity is left alone: adjustments correct counts, they
// do not move goods between locations.
func (l *Ledger) ApplyAdjustment(ctx context.Context, tx store.Tx, req domain.StockAdjustmentRequest, actor domain.Actor) (*domain.StockAdjustment, error) {
	if req.Quantity <= 0 || req.Quantity > domain.MaxQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", store.ErrValidation, domain.MaxQuantity)
	}
	var delta int
	switch req.Type {
	case domain.AdjustmentIncrease:
		delta = req.Quantity
	case domain.AdjustmentDecrease:
		delta = -req.Quantity
	default:
		return nil, fmt.Errorf("%w: adjustment type must be Increase or Decrease", store.ErrValidation)
	}

	product, err := tx.GetProductForUpdate(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	oldQty := product.Stock
	if err := checkHeadroom(product.ID, oldQty, delta); err != nil {
		return nil, err
	}
	newQty := oldQty + delta
	if newQty < 0 {
		return nil, l.violation(product.ID, oldQty, delta, "adjustment")
	}

	entry := domain.StockAdjustment{
		ID:         xid.New("adj"),
		ProductID:  product.ID,
		Type:       req.Type,
		OldQty:     oldQty,
		NewQty:     newQty,
		Difference: delta,
		Reason:     strings.TrimSpace(req.Reason),
		Note:       strings.TrimSpace(req.Note),
		CreatedBy:  actor.Username,
		CreatedAt:  l.now(),
	}
	if err := tx.InsertAdjustment(ctx, entry); err != nil {
		return nil, err
	}
	if err := tx.SetProductStock(ctx, product.ID, newQty); err != nil {
		return nil, err
	}
	return &entry, nil
}

// IncrementOnReceipt adds qty to the product and to the location it is stored
// in. A location with a max capacity refuses increments that would overflow it.
func (l *Ledger) IncrementOnReceipt(ctx context.Context, tx store.Tx, productID string, locationID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero", store.ErrValidation)
	}
	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	location, err := tx.GetLocationForUpdate(ctx, locationID)
	if err != nil {
		return err
	}

	if err := checkHeadroom(product.ID, product.Stock, qty); err != nil {
		return err
	}
	if err := checkHeadroom(location.ID, location.CurrentCapacity, qty); err != nil {
		return err
	}
	nextCapacity := location.CurrentCapacity + qty
	if location.MaxCapacity != nil && nextCapacity > *location.MaxCapacity {
		return fmt.Errorf("%w: storage location %s has room for %d more, got %d",
			store.ErrValidation, location.Code, max(*location.MaxCapacity-location.CurrentCapacity, 0), qty)
	}

	if err := tx.SetProductStock(ctx, product.ID, product.Stock+qty); err != nil {
		return err
	}
	return tx.SetLocationCapacity(ctx, location.ID, nextCapacity)
}

// ReverseOnCancel undoes a previously counted receipt. Stock never goes
// negative here: that would mean an earlier increment was lost.
func (l *Ledger) ReverseOnCancel(ctx context.Context, tx store.Tx, productID string, locationID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero", store.ErrValidation)
	}
	return l.decrement(ctx, tx, productID, locationID, qty, "reverse")
}

// DeductOnDispatch takes qty out of stock when an outbound is recorded.
// Unlike ReverseOnCancel, running short is a user-facing condition.
func (l *Ledger) DeductOnDispatch(ctx context.Context, tx store.Tx, productID string, locationID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero", store.ErrValidation)
	}
	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	if product.Stock < qty {
		return fmt.Errorf("%w: product %s has %d, requested %d", store.ErrInsufficientStock, product.Code, product.Stock, qty)
	}
	return l.decrement(ctx, tx, productID, locationID, qty, "dispatch")
}

// RestockOnCancel returns dispatched goods to their location. The max capacity
// check is skipped since the room was theirs before they left.
func (l *Ledger) RestockOnCancel(ctx context.Context, tx store.Tx, productID string, locationID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero", store.ErrValidation)
	}
	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	if err := checkHeadroom(product.ID, product.Stock, qty); err != nil {
		return err
	}
	if err := tx.SetProductStock(ctx, product.ID, product.Stock+qty); err != nil {
		return err
	}
	if locationID == "" {
		return nil
	}
	location, err := tx.GetLocationForUpdate(ctx, locationID)
	if err != nil {
		return err
	}
	if err := checkHeadroom(location.ID, location.CurrentCapacity, qty); err != nil {
		return err
	}
	return tx.SetLocationCapacity(ctx, location.ID, location.CurrentCapacity+qty)
}

func (l *Ledger) decrement(ctx context.Context, tx store.Tx, productID string, locationID string, qty int, op string) error {
	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	newQty := product.Stock - qty
	if newQty < 0 {
		return l.violation(product.ID, product.Stock, -qty, op)
	}
	if err := tx.SetProductStock(ctx, product.ID, newQty); err != nil {
		return err
	}

	if locationID == "" {
		return nil
	}
	location, err := tx.GetLocationForUpdate(ctx, locationID)
	if err != nil {
		return err
	}
	nextCapacity := location.CurrentCapacity - qty
	if nextCapacity < 0 {
		l.log.Warn().
			Str("location_id", location.ID).
			Int("current_capacity", location.CurrentCapacity).
			Int("qty", qty).
			Str("op", op).
			Msg("location capacity floored at zero")
		nextCapacity = 0
	}
	return tx.SetLocationCapacity(ctx, location.ID, nextCapacity)
}

func (l *Ledger) violation(productID string, stock int, delta int, op string) error {
	l.log.Error().
		Str("product_id", productID).
		Int("stock", stock).
		Int("delta", delta).
		Str("op", op).
		Msg("stock would go negative")
	return fmt.Errorf("%w: product %s stock %d cannot move by %d", store.ErrInvariantViolation, productID, stock, delta)
}

// checkHeadroom refuses an increase that would push a running total past
// domain.MaxQuantity.
func checkHeadroom(id string, current int, delta int) error {
	if delta > 0 && delta > domain.MaxQuantity-current {
		return fmt.Errorf("%w: %s holds %d, adding %d exceeds %d", store.ErrValidation, id, current, delta, domain.MaxQuantity)
	}
	return nil
}
