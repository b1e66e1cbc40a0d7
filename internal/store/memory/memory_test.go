package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventra/backend/internal/domain"
	"inventra/backend/internal/store"
	"inventra/backend/internal/store/seed"
)

func TestSeededCapacityMatchesStock(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	products, err := s.ListProducts(ctx)
	require.NoError(t, err)
	locations, err := s.ListStorageLocations(ctx)
	require.NoError(t, err)

	held := map[string]int{}
	for _, p := range products {
		held[p.StorageLocationID] += p.Stock
	}
	for _, loc := range locations {
		assert.Equal(t, held[loc.ID], loc.CurrentCapacity, loc.Code)
	}

	suppliers, err := s.ListSuppliers(ctx)
	require.NoError(t, err)
	assert.Len(t, suppliers, len(seed.Build(time.Now()).Suppliers))
}

func TestAtomicRollsBackOnError(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(tx store.Tx) error {
		if err := tx.SetProductStock(ctx, "prd-ssd-512", 1); err != nil {
			return err
		}
		if err := tx.InsertInbound(ctx, domain.InboundRecord{ID: "inb-1", ProductID: "prd-ssd-512", Qty: 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := s.GetProduct(ctx, "prd-ssd-512")
	require.NoError(t, err)
	assert.Equal(t, 40, p.Stock)
	_, err = s.GetInbound(ctx, "inb-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTxRejectsNegativeStock(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	err := s.Atomic(ctx, func(tx store.Tx) error {
		return tx.SetProductStock(ctx, "prd-ssd-512", -1)
	})
	require.ErrorIs(t, err, store.ErrInvariantViolation)
}

func TestTxUnusableAfterAtomic(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	var leaked store.Tx
	require.NoError(t, s.Atomic(ctx, func(tx store.Tx) error {
		leaked = tx
		return nil
	}))
	_, err := leaked.GetProductForUpdate(ctx, "prd-ssd-512")
	require.ErrorIs(t, err, store.ErrInvariantViolation)
}

func TestListInboundNewestFirst(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.Atomic(ctx, func(tx store.Tx) error {
		for _, r := range []domain.InboundRecord{
			{ID: "inb-old", ProductID: "prd-ssd-512", SupplierID: "sup-001", CreatedAt: at.Add(-time.Hour)},
			{ID: "inb-a", ProductID: "prd-ssd-512", SupplierID: "sup-001", CreatedAt: at},
			{ID: "inb-b", ProductID: "prd-ram-16", CreatedAt: at},
		} {
			if err := tx.InsertInbound(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))

	list, err := s.ListInbound(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "inb-b", list[0].ID)
	assert.Equal(t, "inb-a", list[1].ID)
	assert.Equal(t, "inb-old", list[2].ID)
	assert.Equal(t, "SSD NVMe 512GB", list[1].ProductName)
	assert.Equal(t, "PT Astrindo Senayasa", list[1].SupplierName)
	assert.Empty(t, list[0].SupplierName)
}

func TestInsertProductRejectsDuplicateCode(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	err := s.Atomic(ctx, func(tx store.Tx) error {
		return tx.InsertProduct(ctx, domain.Product{ID: "prd-new", Code: "SSD-512"})
	})
	require.ErrorIs(t, err, store.ErrValidation)
}
