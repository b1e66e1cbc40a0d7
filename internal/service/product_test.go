package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventra/backend/internal/domain"
	"inventra/backend/internal/store"
)

func TestRecordAdjustmentDecrease(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.RecordAdjustment(ctx, domain.StockAdjustmentRequest{ProductID: "prd-kb-mech", Type: domain.AdjustmentDecrease, Quantity: 15, Reason: "recount"}, staff)
	require.NoError(t, err)
	require.Equal(t, 10, productStock(t, repo, "prd-kb-mech"))

	entry, err := svc.RecordAdjustment(ctx, domain.StockAdjustmentRequest{ProductID: "prd-kb-mech", Type: domain.AdjustmentDecrease, Quantity: 3, Reason: "damaged"}, staff)
	require.NoError(t, err)
	assert.Equal(t, 10, entry.OldQty)
	assert.Equal(t, 7, entry.NewQty)
	assert.Equal(t, -3, entry.Difference)
	assert.Equal(t, staff.Username, entry.CreatedBy)
	assert.Equal(t, 7, productStock(t, repo, "prd-kb-mech"))
	assert.Equal(t, 105, locationCapacity(t, repo, "loc-shelf-b2"))

	history, err := svc.ListAdjustments(ctx, "prd-kb-mech")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entry.ID, history[0].ID)
}

func TestRecordAdjustmentBelowZero(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.RecordAdjustment(context.Background(), domain.StockAdjustmentRequest{ProductID: "prd-psu-650", Type: domain.AdjustmentDecrease, Quantity: 1}, staff)
	require.ErrorIs(t, err, store.ErrInvariantViolation)
	assert.Equal(t, 0, productStock(t, repo, "prd-psu-650"))

	history, err := svc.ListAdjustments(context.Background(), "prd-psu-650")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestListAdjustmentsRequiresProduct(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.ListAdjustments(context.Background(), " ")
	require.ErrorIs(t, err, store.ErrValidation)

	_, err = svc.RecordAdjustment(context.Background(), domain.StockAdjustmentRequest{Type: domain.AdjustmentIncrease, Quantity: 1}, staff)
	require.ErrorIs(t, err, store.ErrValidation)
}

func TestCreateProductBooksInitialStock(t *testing.T) {
	svc, repo := newTestService()

	product, err := svc.CreateProduct(context.Background(), domain.ProductCreateRequest{
		Code:              "hdd-2tb",
		Name:              "HDD 2TB",
		Price:             dec(1100000),
		Stock:             12,
		Unit:              "pcs",
		CategoryID:        "cat-storage",
		StorageLocationID: "loc-rack-a1",
	}, staff)
	require.NoError(t, err)

	assert.Equal(t, "HDD-2TB", product.Code)
	assert.Equal(t, 12, product.Stock)
	assert.Equal(t, domain.ConditionNew, product.Condition)
	assert.True(t, product.Active)
	assert.Equal(t, 112, locationCapacity(t, repo, "loc-rack-a1"))

	_, err = svc.CreateProduct(context.Background(), domain.ProductCreateRequest{
		Code:              "HDD-2TB",
		Name:              "Duplicate",
		CategoryID:        "cat-storage",
		StorageLocationID: "loc-rack-a1",
	}, staff)
	require.ErrorIs(t, err, store.ErrValidation)
}

func TestCreateProductRejects(t *testing.T) {
	svc, repo := newTestService()
	base := domain.ProductCreateRequest{Code: "X-1", Name: "X", CategoryID: "cat", StorageLocationID: "loc-shelf-b2"}

	cases := []struct {
		name   string
		mutate func(*domain.ProductCreateRequest)
		want   error
	}{
		{"missing location", func(r *domain.ProductCreateRequest) { r.StorageLocationID = "" }, store.ErrValidation},
		{"negative stock", func(r *domain.ProductCreateRequest) { r.Stock = -1 }, store.ErrValidation},
		{"stock past int32", func(r *domain.ProductCreateRequest) { r.Stock = math.MaxInt }, store.ErrValidation},
		{"negative price", func(r *domain.ProductCreateRequest) { r.Price = dec(-5) }, store.ErrValidation},
		{"bad condition", func(r *domain.ProductCreateRequest) { r.Condition = "Broken" }, store.ErrValidation},
		{"unknown location", func(r *domain.ProductCreateRequest) { r.StorageLocationID = "loc-none" }, store.ErrNotFound},
		{"over capacity", func(r *domain.ProductCreateRequest) { r.Stock = 96 }, store.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, err := svc.CreateProduct(context.Background(), req, staff)
			require.ErrorIs(t, err, tc.want)
		})
	}

	products, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 5)
	assert.Equal(t, 105, locationCapacity(t, repo, "loc-shelf-b2"))
}

func TestCreateStorageLocation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	limit := 50

	loc, err := svc.CreateStorageLocation(ctx, domain.StorageLocationCreateRequest{Code: "d-01", Name: "Drawer 1", Type: "Drawer", MaxCapacity: &limit}, staff)
	require.NoError(t, err)
	assert.Equal(t, "D-01", loc.Code)
	assert.Equal(t, domain.LocationDrawer, loc.Type)
	assert.Equal(t, 0, loc.CurrentCapacity)

	_, err = svc.CreateStorageLocation(ctx, domain.StorageLocationCreateRequest{Code: "D-01", Name: "Again", Type: domain.LocationDrawer}, staff)
	require.ErrorIs(t, err, store.ErrValidation)

	_, err = svc.CreateStorageLocation(ctx, domain.StorageLocationCreateRequest{Code: "P-01", Name: "Pallet", Type: "pallet"}, staff)
	require.ErrorIs(t, err, store.ErrValidation)

	locations, err := svc.ListStorageLocations(ctx)
	require.NoError(t, err)
	assert.Len(t, locations, 4)
}

func TestRecordAdjustmentRejectsHugeQuantity(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.RecordAdjustment(ctx, domain.StockAdjustmentRequest{ProductID: "prd-ssd-512", Type: domain.AdjustmentIncrease, Quantity: math.MaxInt}, staff)
	require.ErrorIs(t, err, store.ErrValidation)

	_, err = svc.RecordAdjustment(ctx, domain.StockAdjustmentRequest{ProductID: "prd-ssd-512", Type: domain.AdjustmentIncrease, Quantity: domain.MaxQuantity}, staff)
	require.ErrorIs(t, err, store.ErrValidation)
	assert.Equal(t, 40, productStock(t, repo, "prd-ssd-512"))
}

func TestSetProductActiveLeavesStock(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	off := false

	product, err := svc.SetProductActive(ctx, "prd-ram-16", domain.ProductStatusRequest{Active: &off}, staff)
	require.NoError(t, err)
	assert.False(t, product.Active)
	assert.Equal(t, 60, product.Stock)
	assert.Equal(t, 60, productStock(t, repo, "prd-ram-16"))
	assert.Equal(t, 100, locationCapacity(t, repo, "loc-rack-a1"))

	_, err = svc.SetProductActive(ctx, "prd-ram-16", domain.ProductStatusRequest{}, staff)
	require.ErrorIs(t, err, store.ErrValidation)

	_, err = svc.SetProductActive(ctx, "prd-none", domain.ProductStatusRequest{Active: &off}, staff)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteProductWithHistoryIsRefused(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	inbound := createInbound(t, svc, "prd-psu-650", 3)

	err := svc.DeleteProduct(ctx, "prd-psu-650", staff)
	require.ErrorIs(t, err, store.ErrInvalidTransition)

	_, err = repo.GetProduct(ctx, "prd-psu-650")
	require.NoError(t, err)
	summary, err := svc.GetInbound(ctx, inbound.ID)
	require.NoError(t, err)
	assert.Equal(t, "PSU 650W 80+ Bronze", summary.ProductName)
}

func TestDeleteProductRefusesAdjustedAndStockedProducts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	err := svc.DeleteProduct(ctx, "prd-ssd-512", staff)
	require.ErrorIs(t, err, store.ErrInvalidTransition)

	_, err = svc.RecordAdjustment(ctx, domain.StockAdjustmentRequest{ProductID: "prd-psu-650", Type: domain.AdjustmentIncrease, Quantity: 1}, staff)
	require.NoError(t, err)
	_, err = svc.RecordAdjustment(ctx, domain.StockAdjustmentRequest{ProductID: "prd-psu-650", Type: domain.AdjustmentDecrease, Quantity: 1}, staff)
	require.NoError(t, err)

	err = svc.DeleteProduct(ctx, "prd-psu-650", staff)
	require.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestDeleteUnusedProduct(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Code:              "FAN-120",
		Name:              "Case Fan 120mm",
		CategoryID:        "cat-cooling",
		StorageLocationID: "loc-cabinet-c1",
	}, staff)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID, staff))
	_, err = repo.GetProduct(ctx, product.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	err = svc.DeleteProduct(ctx, product.ID, staff)
	require.ErrorIs(t, err, store.ErrNotFound)
	err = svc.DeleteProduct(ctx, "prd-psu-650", domain.Actor{})
	require.ErrorIs(t, err, store.ErrValidation)
}
