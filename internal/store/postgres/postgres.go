package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"inventra/backend/internal/domain"
	"inventra/backend/internal/logger"
	"inventra/backend/internal/store"
	"inventra/backend/internal/store/seed"
)

//go:embed schema.sql
var schema string

const (
	productColumns = `p.id, p.code, p.name, p.price, p.stock, p.unit, p.is_active, p.condition,
		p.restock_date, p.category_id, COALESCE(p.supplier_id, '') AS supplier_id,
		p.storage_location_id, p.created_at, p.updated_at`

	locationColumns = `l.id, l.code, l.name, l.type, l.zone_id, l.max_capacity, l.current_capacity,
		l.capacity_unit, l.is_active, l.created_by, l.created_at`

	supplierColumns = `s.id, s.name, s.phone, s.created_by, s.created_at`

	inboundColumns = `r.id, r.product_id, COALESCE(r.supplier_id, '') AS supplier_id, r.qty,
		r.purchase_price, r.total_price, r.status, r.receive_date, r.item_checking_date,
		r.stored_date, r.canceled_date, r.canceled_note, r.note, r.stock_applied,
		r.created_by, r.updated_by, r.created_at, r.updated_at`

	outboundColumns = `o.id, o.product_id, o.storage_location_id, o.qty, o.operational_cost,
		o.total_value, o.status, o.reason, o.note, o.is_shipping, o.shipping_date, o.courier,
		o.is_receipt, o.receipt_path, o.receipt_upload_date, o.is_pickup, o.pickup_date,
		o.pickup_by, o.delivered_date, o.canceled_date, o.canceled_note, o.stock_deducted,
		o.created_by, o.updated_by, o.created_at, o.updated_at`

	adjustmentColumns = `a.id, a.product_id, a.type, a.old_qty, a.new_qty, a.difference,
		a.reason, a.note, a.created_by, a.created_at`
)

type Store struct {
	db  *sqlx.DB
	sem *semaphore.Weighted
}

// New opens the pool and caps concurrent units of work at maxConcurrentTx.
func New(ctx context.Context, databaseURL string, maxConcurrentTx int) (*Store, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	if maxConcurrentTx < 1 {
		maxConcurrentTx = 1
	}
	return &Store{db: db, sem: semaphore.NewWeighted(int64(maxConcurrentTx))}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "apply schema")
	}
	return nil
}

// Seed loads the demo catalogue, skipping rows that already exist.
func (s *Store) Seed(ctx context.Context) error {
	catalog := seed.Build(time.Now().UTC())
	return s.Atomic(ctx, func(tx store.Tx) error {
		t := tx.(*pgTx)
		for _, loc := range catalog.Locations {
			if _, err := t.tx.NamedExecContext(ctx, insertLocationSQL+` ON CONFLICT DO NOTHING`, loc); err != nil {
				return errors.Wrapf(err, "seed location %s", loc.ID)
			}
		}
		for _, sup := range catalog.Suppliers {
			if _, err := t.tx.NamedExecContext(ctx, `
				INSERT INTO suppliers (id, name, phone, created_by, created_at)
				VALUES (:id, :name, :phone, :created_by, :created_at)
				ON CONFLICT DO NOTHING
			`, sup); err != nil {
				return errors.Wrapf(err, "seed supplier %s", sup.ID)
			}
		}
		for _, p := range catalog.Products {
			if _, err := t.tx.NamedExecContext(ctx, insertProductSQL+` ON CONFLICT DO NOTHING`, p); err != nil {
				return errors.Wrapf(err, "seed product %s", p.ID)
			}
		}
		return nil
	})
}

// Atomic runs fn in a READ COMMITTED transaction. Rows read through the
// ForUpdate getters stay locked until commit or rollback.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, "acquire transaction slot")
	}
	defer s.sem.Release(1)

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Log.Error().Err(rbErr).Msg("rollback failed")
		}
	}()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translate(err, "commit transaction")
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products := make([]domain.Product, 0, 64)
	err := s.db.SelectContext(ctx, &products, `SELECT `+productColumns+` FROM products p ORDER BY p.name`)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return &p, nil
}

func (s *Store) ListStorageLocations(ctx context.Context) ([]domain.StorageLocation, error) {
	locations := make([]domain.StorageLocation, 0, 32)
	err := s.db.SelectContext(ctx, &locations, `SELECT `+locationColumns+` FROM storage_locations l ORDER BY l.code`)
	if err != nil {
		return nil, errors.Wrap(err, "list storage locations")
	}
	return locations, nil
}

func (s *Store) GetStorageLocation(ctx context.Context, id string) (*domain.StorageLocation, error) {
	var loc domain.StorageLocation
	err := s.db.GetContext(ctx, &loc, `SELECT `+locationColumns+` FROM storage_locations l WHERE l.id = $1`, id)
	if err != nil {
		return nil, notFound(err, "storage location", id)
	}
	return &loc, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	suppliers := make([]domain.Supplier, 0, 64)
	err := s.db.SelectContext(ctx, &suppliers, `SELECT `+supplierColumns+` FROM suppliers s ORDER BY s.name`)
	if err != nil {
		return nil, errors.Wrap(err, "list suppliers")
	}
	return suppliers, nil
}

const inboundSummarySQL = `
	SELECT ` + inboundColumns + `, p.name AS product_name, COALESCE(s.name, '') AS supplier_name
	FROM inbound_records r
	JOIN products p ON p.id = r.product_id
	LEFT JOIN suppliers s ON s.id = r.supplier_id
`

func (s *Store) ListInbound(ctx context.Context) ([]domain.InboundSummary, error) {
	out := make([]domain.InboundSummary, 0, 64)
	if err := s.db.SelectContext(ctx, &out, inboundSummarySQL+` ORDER BY r.created_at DESC, r.id DESC`); err != nil {
		return nil, errors.Wrap(err, "list inbound")
	}
	return out, nil
}

func (s *Store) GetInbound(ctx context.Context, id string) (*domain.InboundSummary, error) {
	var out domain.InboundSummary
	if err := s.db.GetContext(ctx, &out, inboundSummarySQL+` WHERE r.id = $1`, id); err != nil {
		return nil, notFound(err, "inbound", id)
	}
	return &out, nil
}

const outboundSummarySQL = `
	SELECT ` + outboundColumns + `, p.name AS product_name
	FROM outbound_records o
	JOIN products p ON p.id = o.product_id
`

func (s *Store) ListOutbound(ctx context.Context) ([]domain.OutboundSummary, error) {
	out := make([]domain.OutboundSummary, 0, 64)
	if err := s.db.SelectContext(ctx, &out, outboundSummarySQL+` ORDER BY o.created_at DESC, o.id DESC`); err != nil {
		return nil, errors.Wrap(err, "list outbound")
	}
	return out, nil
}

func (s *Store) GetOutbound(ctx context.Context, id string) (*domain.OutboundSummary, error) {
	var out domain.OutboundSummary
	if err := s.db.GetContext(ctx, &out, outboundSummarySQL+` WHERE o.id = $1`, id); err != nil {
		return nil, notFound(err, "outbound", id)
	}
	return &out, nil
}

func (s *Store) ListAdjustments(ctx context.Context, productID string) ([]domain.StockAdjustment, error) {
	out := make([]domain.StockAdjustment, 0, 32)
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+adjustmentColumns+`
		FROM stock_adjustments a
		WHERE a.product_id = $1
		ORDER BY a.created_at DESC, a.id DESC
	`, productID)
	if err != nil {
		return nil, errors.Wrap(err, "list stock adjustments")
	}
	return out, nil
}

func notFound(err error, what string, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", store.ErrNotFound, what, id)
	}
	return errors.Wrapf(err, "select %s", what)
}

// translate maps constraint failures onto the store taxonomy and wraps
// everything else with a stack.
func translate(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s: duplicate %s", store.ErrValidation, op, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s: missing reference %s", store.ErrNotFound, op, pgErr.ConstraintName)
		case "23514":
			return fmt.Errorf("%w: %s: check %s failed", store.ErrInvariantViolation, op, pgErr.ConstraintName)
		}
	}
	return errors.Wrap(err, op)
}
