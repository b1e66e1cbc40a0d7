package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"inventra/backend/internal/domain"
	"inventra/backend/internal/store"
)

const insertProductSQL = `
	INSERT INTO products (
		id, code, name, price, stock, unit, is_active, condition, restock_date,
		category_id, supplier_id, storage_location_id, created_at, updated_at
	) VALUES (
		:id, :code, :name, :price, :stock, :unit, :is_active, :condition, :restock_date,
		:category_id, NULLIF(:supplier_id, ''), :storage_location_id, :created_at, :updated_at
	)`

const insertLocationSQL = `
	INSERT INTO storage_locations (
		id, code, name, type, zone_id, max_capacity, current_capacity, capacity_unit,
		is_active, created_by, created_at
	) VALUES (
		:id, :code, :name, :type, :zone_id, :max_capacity, :current_capacity, :capacity_unit,
		:is_active, :created_by, :created_at
	)`

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) GetProductForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := t.tx.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products p WHERE p.id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return &p, nil
}

func (t *pgTx) GetLocationForUpdate(ctx context.Context, id string) (*domain.StorageLocation, error) {
	var loc domain.StorageLocation
	err := t.tx.GetContext(ctx, &loc, `SELECT `+locationColumns+` FROM storage_locations l WHERE l.id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, notFound(err, "storage location", id)
	}
	return &loc, nil
}

func (t *pgTx) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	var sup domain.Supplier
	err := t.tx.GetContext(ctx, &sup, `SELECT `+supplierColumns+` FROM suppliers s WHERE s.id = $1`, id)
	if err != nil {
		return nil, notFound(err, "supplier", id)
	}
	return &sup, nil
}

func (t *pgTx) GetInboundForUpdate(ctx context.Context, id string) (*domain.InboundRecord, error) {
	var r domain.InboundRecord
	err := t.tx.GetContext(ctx, &r, `SELECT `+inboundColumns+` FROM inbound_records r WHERE r.id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, notFound(err, "inbound", id)
	}
	return &r, nil
}

func (t *pgTx) GetOutboundForUpdate(ctx context.Context, id string) (*domain.OutboundRecord, error) {
	var r domain.OutboundRecord
	err := t.tx.GetContext(ctx, &r, `SELECT `+outboundColumns+` FROM outbound_records o WHERE o.id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, notFound(err, "outbound", id)
	}
	return &r, nil
}

func (t *pgTx) InsertProduct(ctx context.Context, product domain.Product) error {
	if _, err := t.tx.NamedExecContext(ctx, insertProductSQL, product); err != nil {
		return translate(err, "insert product")
	}
	return nil
}

func (t *pgTx) InsertStorageLocation(ctx context.Context, location domain.StorageLocation) error {
	if _, err := t.tx.NamedExecContext(ctx, insertLocationSQL, location); err != nil {
		return translate(err, "insert storage location")
	}
	return nil
}

func (t *pgTx) InsertInbound(ctx context.Context, record domain.InboundRecord) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO inbound_records (
			id, product_id, supplier_id, qty, purchase_price, total_price, status,
			receive_date, item_checking_date, stored_date, canceled_date, canceled_note,
			note, stock_applied, created_by, updated_by, created_at, updated_at
		) VALUES (
			:id, :product_id, NULLIF(:supplier_id, ''), :qty, :purchase_price, :total_price, :status,
			:receive_date, :item_checking_date, :stored_date, :canceled_date, :canceled_note,
			:note, :stock_applied, :created_by, :updated_by, :created_at, :updated_at
		)
	`, record)
	if err != nil {
		return translate(err, "insert inbound")
	}
	return nil
}

func (t *pgTx) UpdateInbound(ctx context.Context, record domain.InboundRecord) error {
	res, err := t.tx.NamedExecContext(ctx, `
		UPDATE inbound_records
		SET product_id = :product_id,
			supplier_id = NULLIF(:supplier_id, ''),
			qty = :qty,
			purchase_price = :purchase_price,
			total_price = :total_price,
			note = :note,
			status = :status,
			receive_date = :receive_date,
			item_checking_date = :item_checking_date,
			stored_date = :stored_date,
			canceled_date = :canceled_date,
			canceled_note = :canceled_note,
			stock_applied = :stock_applied,
			updated_by = :updated_by,
			updated_at = :updated_at
		WHERE id = :id
	`, record)
	if err != nil {
		return translate(err, "update inbound")
	}
	return expectOne(res, "inbound", record.ID)
}

func (t *pgTx) InsertOutbound(ctx context.Context, record domain.OutboundRecord) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO outbound_records (
			id, product_id, storage_location_id, qty, operational_cost, total_value, status,
			reason, note, is_shipping, shipping_date, courier, is_receipt, receipt_path,
			receipt_upload_date, is_pickup, pickup_date, pickup_by, delivered_date,
			canceled_date, canceled_note, stock_deducted, created_by, updated_by,
			created_at, updated_at
		) VALUES (
			:id, :product_id, :storage_location_id, :qty, :operational_cost, :total_value, :status,
			:reason, :note, :is_shipping, :shipping_date, :courier, :is_receipt, :receipt_path,
			:receipt_upload_date, :is_pickup, :pickup_date, :pickup_by, :delivered_date,
			:canceled_date, :canceled_note, :stock_deducted, :created_by, :updated_by,
			:created_at, :updated_at
		)
	`, record)
	if err != nil {
		return translate(err, "insert outbound")
	}
	return nil
}

func (t *pgTx) UpdateOutbound(ctx context.Context, record domain.OutboundRecord) error {
	res, err := t.tx.NamedExecContext(ctx, `
		UPDATE outbound_records
		SET product_id = :product_id,
			storage_location_id = :storage_location_id,
			qty = :qty,
			operational_cost = :operational_cost,
			total_value = :total_value,
			status = :status,
			reason = :reason,
			note = :note,
			is_shipping = :is_shipping,
			shipping_date = :shipping_date,
			courier = :courier,
			is_receipt = :is_receipt,
			receipt_path = :receipt_path,
			receipt_upload_date = :receipt_upload_date,
			is_pickup = :is_pickup,
			pickup_date = :pickup_date,
			pickup_by = :pickup_by,
			delivered_date = :delivered_date,
			canceled_date = :canceled_date,
			canceled_note = :canceled_note,
			stock_deducted = :stock_deducted,
			updated_by = :updated_by,
			updated_at = :updated_at
		WHERE id = :id
	`, record)
	if err != nil {
		return translate(err, "update outbound")
	}
	return expectOne(res, "outbound", record.ID)
}

func (t *pgTx) InsertAdjustment(ctx context.Context, entry domain.StockAdjustment) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO stock_adjustments (
			id, product_id, type, old_qty, new_qty, difference, reason, note, created_by, created_at
		) VALUES (
			:id, :product_id, :type, :old_qty, :new_qty, :difference, :reason, :note, :created_by, :created_at
		)
	`, entry)
	if err != nil {
		return translate(err, "insert stock adjustment")
	}
	return nil
}

func (t *pgTx) SetProductStock(ctx context.Context, productID string, stock int) error {
	if stock < 0 {
		return fmt.Errorf("%w: product %s stock would be %d", store.ErrInvariantViolation, productID, stock)
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE products SET stock = $2, updated_at = now() WHERE id = $1
	`, productID, stock)
	if err != nil {
		return translate(err, "set product stock")
	}
	return expectOne(res, "product", productID)
}

func (t *pgTx) SetLocationCapacity(ctx context.Context, locationID string, capacity int) error {
	if capacity < 0 {
		return fmt.Errorf("%w: location %s capacity would be %d", store.ErrInvariantViolation, locationID, capacity)
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE storage_locations SET current_capacity = $2 WHERE id = $1
	`, locationID, capacity)
	if err != nil {
		return translate(err, "set location capacity")
	}
	return expectOne(res, "storage location", locationID)
}

func (t *pgTx) SetProductActive(ctx context.Context, productID string, active bool) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE products SET is_active = $2, updated_at = now() WHERE id = $1
	`, productID, active)
	if err != nil {
		return translate(err, "set product active")
	}
	return expectOne(res, "product", productID)
}

func (t *pgTx) DeleteProduct(ctx context.Context, productID string) error {
	var referenced bool
	err := t.tx.GetContext(ctx, &referenced, `
		SELECT EXISTS (SELECT 1 FROM inbound_records WHERE product_id = $1)
			OR EXISTS (SELECT 1 FROM outbound_records WHERE product_id = $1)
			OR EXISTS (SELECT 1 FROM stock_adjustments WHERE product_id = $1)
	`, productID)
	if err != nil {
		return translate(err, "check product references")
	}
	if referenced {
		return fmt.Errorf("%w: product %s has inbound, outbound or adjustment history", store.ErrInvalidTransition, productID)
	}

	res, err := t.tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("%w: product %s is still referenced", store.ErrInvalidTransition, productID)
		}
		return translate(err, "delete product")
	}
	return expectOne(res, "product", productID)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectOne(res rowsAffected, what string, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return translate(err, "rows affected")
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", store.ErrNotFound, what, id)
	}
	return nil
}
