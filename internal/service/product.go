package service

import (
	"context"
	"fmt"
	"strings"

	"inventra/backend/internal/domain"
	"inventra/backend/internal/store"
	"inventra/backend/internal/xid"
)

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) ListStorageLocations(ctx context.Context) ([]domain.StorageLocation, error) {
	return s.repo.ListStorageLocations(ctx)
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

// CreateProduct inserts the product with zero stock and then books any
// initial stock through the ledger, so capacity follows.
func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest, actor domain.Actor) (domain.Product, error) {
	if err := requireActor(actor); err != nil {
		return domain.Product{}, err
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	req.CategoryID = strings.TrimSpace(req.CategoryID)
	req.StorageLocationID = strings.TrimSpace(req.StorageLocationID)
	req.SupplierID = strings.TrimSpace(req.SupplierID)
	req.Unit = strings.TrimSpace(req.Unit)

	if req.Code == "" || req.Name == "" || req.CategoryID == "" || req.StorageLocationID == "" {
		return domain.Product{}, invalid("code, name, productCategoryId and storageLocationId are required")
	}
	if req.Stock < 0 || req.Stock > domain.MaxQuantity {
		return domain.Product{}, invalid("stock must be between 0 and %d", domain.MaxQuantity)
	}
	if req.Price.IsNegative() {
		return domain.Product{}, invalid("price cannot be negative")
	}
	switch req.Condition {
	case "":
		req.Condition = domain.ConditionNew
	case domain.ConditionNew, domain.ConditionUsed, domain.ConditionRefurbished:
	default:
		return domain.Product{}, invalid("condition must be New, Used or Refurbished")
	}

	now := s.now()
	product := domain.Product{
		ID:                xid.New("prd"),
		Code:              req.Code,
		Name:              req.Name,
		Price:             req.Price,
		Unit:              req.Unit,
		Active:            true,
		Condition:         req.Condition,
		RestockDate:       now,
		CategoryID:        req.CategoryID,
		SupplierID:        req.SupplierID,
		StorageLocationID: req.StorageLocationID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	if req.RestockDate != nil {
		product.RestockDate = req.RestockDate.UTC()
	}

	var created domain.Product
	err := s.repo.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.GetLocationForUpdate(ctx, product.StorageLocationID); err != nil {
			return err
		}
		if product.SupplierID != "" {
			if _, err := tx.GetSupplier(ctx, product.SupplierID); err != nil {
				return err
			}
		}
		if err := tx.InsertProduct(ctx, product); err != nil {
			return err
		}
		if req.Stock > 0 {
			if err := s.ledger.IncrementOnReceipt(ctx, tx, product.ID, product.StorageLocationID, req.Stock); err != nil {
				return err
			}
		}
		p, err := tx.GetProductForUpdate(ctx, product.ID)
		if err != nil {
			return err
		}
		created = *p
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(actor, "product_create", "product", created.ID, fmt.Sprintf("code=%s,stock=%d", created.Code, created.Stock))
	return created, nil
}

// SetProductActive toggles whether a product is offered for new movements.
// Stock is never written here.
func (s *Service) SetProductActive(ctx context.Context, id string, req domain.ProductStatusRequest, actor domain.Actor) (domain.Product, error) {
	if err := requireActor(actor); err != nil {
		return domain.Product{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, invalid("id is required")
	}
	if req.Active == nil {
		return domain.Product{}, invalid("isActive is required")
	}

	var updated domain.Product
	err := s.repo.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.GetProductForUpdate(ctx, id); err != nil {
			return err
		}
		if err := tx.SetProductActive(ctx, id, *req.Active); err != nil {
			return err
		}
		p, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		updated = *p
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(actor, "product_status", "product", updated.ID, fmt.Sprintf("active=%t", updated.Active))
	return updated, nil
}

// DeleteProduct removes a product that has never moved. Products with any
// inbound, outbound or adjustment history are refused; deactivate them instead.
func (s *Service) DeleteProduct(ctx context.Context, id string, actor domain.Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("id is required")
	}

	var deleted domain.Product
	err := s.repo.Atomic(ctx, func(tx store.Tx) error {
		p, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.Stock != 0 {
			return transition("product %s still holds %d in stock", p.ID, p.Stock)
		}
		deleted = *p
		return tx.DeleteProduct(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logAudit(actor, "product_delete", "product", deleted.ID, deleted.Code)
	return nil
}

func (s *Service) CreateStorageLocation(ctx context.Context, req domain.StorageLocationCreateRequest, actor domain.Actor) (domain.StorageLocation, error) {
	if err := requireActor(actor); err != nil {
		return domain.StorageLocation{}, err
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	req.Type = domain.LocationType(strings.ToLower(strings.TrimSpace(string(req.Type))))
	if req.Code == "" || req.Name == "" {
		return domain.StorageLocation{}, invalid("code and name are required")
	}
	switch req.Type {
	case domain.LocationRack, domain.LocationShelf, domain.LocationDrawer, domain.LocationBox, domain.LocationBin, domain.LocationCabinet:
	default:
		return domain.StorageLocation{}, invalid("unknown storage location type %q", req.Type)
	}
	if req.MaxCapacity != nil && (*req.MaxCapacity < 0 || *req.MaxCapacity > domain.MaxQuantity) {
		return domain.StorageLocation{}, invalid("maxCapacity must be between 0 and %d", domain.MaxQuantity)
	}

	location := domain.StorageLocation{
		ID:           xid.New("loc"),
		Code:         req.Code,
		Name:         req.Name,
		Type:         req.Type,
		ZoneID:       strings.TrimSpace(req.ZoneID),
		MaxCapacity:  req.MaxCapacity,
		CapacityUnit: strings.TrimSpace(req.CapacityUnit),
		Active:       true,
		CreatedBy:    actor.Username,
		CreatedAt:    s.now(),
	}
	err := s.repo.Atomic(ctx, func(tx store.Tx) error {
		return tx.InsertStorageLocation(ctx, location)
	})
	if err != nil {
		return domain.StorageLocation{}, err
	}

	s.logAudit(actor, "storage_location_create", "storage_location", location.ID, location.Code)
	return location, nil
}
