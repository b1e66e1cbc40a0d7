package store

import (
	"context"
	"errors"

	"inventra/backend/internal/domain"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvariantViolation = errors.New("invariant violation")
)

// Repository exposes read models plus Atomic, the only way to mutate state.
// fn runs against a Tx whose writes commit together or not at all.
type Repository interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListStorageLocations(ctx context.Context) ([]domain.StorageLocation, error)
	GetStorageLocation(ctx context.Context, id string) (*domain.StorageLocation, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	ListInbound(ctx context.Context) ([]domain.InboundSummary, error)
	GetInbound(ctx context.Context, id string) (*domain.InboundSummary, error)
	ListOutbound(ctx context.Context) ([]domain.OutboundSummary, error)
	GetOutbound(ctx context.Context, id string) (*domain.OutboundSummary, error)
	ListAdjustments(ctx context.Context, productID string) ([]domain.StockAdjustment, error)
}

// Tx is a unit of work. The ForUpdate getters lock the row until the unit ends,
// so read-modify-write sequences on the same row serialize.
type Tx interface {
	GetProductForUpdate(ctx context.Context, id string) (*domain.Product, error)
	GetLocationForUpdate(ctx context.Context, id string) (*domain.StorageLocation, error)
	GetSupplier(ctx context.Context, id string) (*domain.Supplier, error)
	GetInboundForUpdate(ctx context.Context, id string) (*domain.InboundRecord, error)
	GetOutboundForUpdate(ctx context.Context, id string) (*domain.OutboundRecord, error)

	InsertProduct(ctx context.Context, product domain.Product) error
	InsertStorageLocation(ctx context.Context, location domain.StorageLocation) error
	InsertInbound(ctx context.Context, record domain.InboundRecord) error
	UpdateInbound(ctx context.Context, record domain.InboundRecord) error
	InsertOutbound(ctx context.Context, record domain.OutboundRecord) error
	UpdateOutbound(ctx context.Context, record domain.OutboundRecord) error
	InsertAdjustment(ctx context.Context, entry domain.StockAdjustment) error

	SetProductStock(ctx context.Context, productID string, stock int) error
	SetLocationCapacity(ctx context.Context, locationID string, capacity int) error

	SetProductActive(ctx context.Context, productID string, active bool) error
	// DeleteProduct fails with ErrInvalidTransition while any inbound,
	// outbound or adjustment row references the product.
	DeleteProduct(ctx context.Context, productID string) error
}
