package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"inventra/backend/internal/domain"
	"inventra/backend/internal/store"
	"inventra/backend/internal/store/seed"
)

type Store struct {
	mu          sync.RWMutex
	products    map[string]domain.Product
	locations   map[string]domain.StorageLocation
	suppliers   map[string]domain.Supplier
	inbound     map[string]domain.InboundRecord
	outbound    map[string]domain.OutboundRecord
	adjustments []domain.StockAdjustment
	seq         int64
	seqByID     map[string]int64
}

func New() *Store {
	return &Store{
		products:    make(map[string]domain.Product),
		locations:   make(map[string]domain.StorageLocation),
		suppliers:   make(map[string]domain.Supplier),
		inbound:     make(map[string]domain.InboundRecord),
		outbound:    make(map[string]domain.OutboundRecord),
		adjustments: make([]domain.StockAdjustment, 0, 64),
		seqByID:     make(map[string]int64),
	}
}

// NewSeeded returns a store holding the demo catalogue.
func NewSeeded() *Store {
	s := New()
	catalog := seed.Build(time.Now().UTC())
	for _, loc := range catalog.Locations {
		s.locations[loc.ID] = loc
	}
	for _, p := range catalog.Products {
		s.products[p.ID] = p
	}
	for _, sup := range catalog.Suppliers {
		s.suppliers[sup.ID] = sup
	}
	return s
}

type snapshot struct {
	products    map[string]domain.Product
	locations   map[string]domain.StorageLocation
	suppliers   map[string]domain.Supplier
	inbound     map[string]domain.InboundRecord
	outbound    map[string]domain.OutboundRecord
	adjustments []domain.StockAdjustment
	seq         int64
	seqByID     map[string]int64
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		products:    maps.Clone(s.products),
		locations:   maps.Clone(s.locations),
		suppliers:   maps.Clone(s.suppliers),
		inbound:     maps.Clone(s.inbound),
		outbound:    maps.Clone(s.outbound),
		adjustments: slices.Clone(s.adjustments),
		seq:         s.seq,
		seqByID:     maps.Clone(s.seqByID),
	}
}

func (s *Store) restore(snap snapshot) {
	s.products = snap.products
	s.locations = snap.locations
	s.suppliers = snap.suppliers
	s.inbound = snap.inbound
	s.outbound = snap.outbound
	s.adjustments = snap.adjustments
	s.seq = snap.seq
	s.seqByID = snap.seqByID
}

// Atomic holds the write lock for the whole unit. Any error rolls every
// write in the unit back.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	tx := &memTx{s: s}
	err := fn(tx)
	tx.done = true
	if err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Collect(maps.Values(s.products))
	slices.SortFunc(out, func(a, b domain.Product) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListStorageLocations(_ context.Context) ([]domain.StorageLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Collect(maps.Values(s.locations))
	slices.SortFunc(out, func(a, b domain.StorageLocation) int {
		return cmp.Compare(a.Code, b.Code)
	})
	return out, nil
}

func (s *Store) GetStorageLocation(_ context.Context, id string) (*domain.StorageLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.locations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &loc, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Collect(maps.Values(s.suppliers))
	slices.SortFunc(out, func(a, b domain.Supplier) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *Store) ListInbound(_ context.Context) ([]domain.InboundSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.InboundSummary, 0, len(s.inbound))
	for _, r := range s.inbound {
		out = append(out, s.inboundSummary(r))
	}
	slices.SortFunc(out, func(a, b domain.InboundSummary) int {
		return s.newestFirst(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
	})
	return out, nil
}

func (s *Store) GetInbound(_ context.Context, id string) (*domain.InboundSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.inbound[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	summary := s.inboundSummary(r)
	return &summary, nil
}

func (s *Store) ListOutbound(_ context.Context) ([]domain.OutboundSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.OutboundSummary, 0, len(s.outbound))
	for _, r := range s.outbound {
		out = append(out, domain.OutboundSummary{OutboundRecord: r, ProductName: s.products[r.ProductID].Name})
	}
	slices.SortFunc(out, func(a, b domain.OutboundSummary) int {
		return s.newestFirst(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
	})
	return out, nil
}

func (s *Store) GetOutbound(_ context.Context, id string) (*domain.OutboundSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.outbound[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &domain.OutboundSummary{OutboundRecord: r, ProductName: s.products[r.ProductID].Name}, nil
}

func (s *Store) ListAdjustments(_ context.Context, productID string) ([]domain.StockAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StockAdjustment, 0, 16)
	for i := len(s.adjustments) - 1; i >= 0; i-- {
		if s.adjustments[i].ProductID == productID {
			out = append(out, s.adjustments[i])
		}
	}
	return out, nil
}

func (s *Store) inboundSummary(r domain.InboundRecord) domain.InboundSummary {
	return domain.InboundSummary{
		InboundRecord: r,
		ProductName:   s.products[r.ProductID].Name,
		SupplierName:  s.suppliers[r.SupplierID].Name,
	}
}

// newestFirst orders by creation time descending, falling back to insertion
// order when timestamps tie.
func (s *Store) newestFirst(aAt time.Time, aID string, bAt time.Time, bID string) int {
	if c := bAt.Compare(aAt); c != 0 {
		return c
	}
	return cmp.Compare(s.seqByID[bID], s.seqByID[aID])
}

type memTx struct {
	s    *Store
	done bool
}

func (t *memTx) check() error {
	if t.done {
		return fmt.Errorf("%w: transaction already finished", store.ErrInvariantViolation)
	}
	return nil
}

func (t *memTx) track(id string) {
	t.s.seq++
	t.s.seqByID[id] = t.s.seq
}

func (t *memTx) GetProductForUpdate(_ context.Context, id string) (*domain.Product, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	p, ok := t.s.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	return &p, nil
}

func (t *memTx) GetLocationForUpdate(_ context.Context, id string) (*domain.StorageLocation, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	loc, ok := t.s.locations[id]
	if !ok {
		return nil, fmt.Errorf("%w: storage location %s", store.ErrNotFound, id)
	}
	return &loc, nil
}

func (t *memTx) GetSupplier(_ context.Context, id string) (*domain.Supplier, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	sup, ok := t.s.suppliers[id]
	if !ok {
		return nil, fmt.Errorf("%w: supplier %s", store.ErrNotFound, id)
	}
	return &sup, nil
}

func (t *memTx) GetInboundForUpdate(_ context.Context, id string) (*domain.InboundRecord, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	r, ok := t.s.inbound[id]
	if !ok {
		return nil, fmt.Errorf("%w: inbound %s", store.ErrNotFound, id)
	}
	return &r, nil
}

func (t *memTx) GetOutboundForUpdate(_ context.Context, id string) (*domain.OutboundRecord, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	r, ok := t.s.outbound[id]
	if !ok {
		return nil, fmt.Errorf("%w: outbound %s", store.ErrNotFound, id)
	}
	return &r, nil
}

func (t *memTx) InsertProduct(_ context.Context, product domain.Product) error {
	if err := t.check(); err != nil {
		return err
	}
	if _, exists := t.s.products[product.ID]; exists {
		return fmt.Errorf("%w: product %s already exists", store.ErrValidation, product.ID)
	}
	for _, p := range t.s.products {
		if p.Code == product.Code {
			return fmt.Errorf("%w: product code %s already exists", store.ErrValidation, product.Code)
		}
	}
	t.s.products[product.ID] = product
	return nil
}

func (t *memTx) InsertStorageLocation(_ context.Context, location domain.StorageLocation) error {
	if err := t.check(); err != nil {
		return err
	}
	for _, loc := range t.s.locations {
		if loc.ID == location.ID || loc.Code == location.Code {
			return fmt.Errorf("%w: storage location code %s already exists", store.ErrValidation, location.Code)
		}
	}
	t.s.locations[location.ID] = location
	return nil
}

func (t *memTx) InsertInbound(_ context.Context, record domain.InboundRecord) error {
	if err := t.check(); err != nil {
		return err
	}
	if _, exists := t.s.inbound[record.ID]; exists {
		return fmt.Errorf("%w: inbound %s already exists", store.ErrValidation, record.ID)
	}
	t.s.inbound[record.ID] = record
	t.track(record.ID)
	return nil
}

func (t *memTx) UpdateInbound(_ context.Context, record domain.InboundRecord) error {
	if err := t.check(); err != nil {
		return err
	}
	if _, exists := t.s.inbound[record.ID]; !exists {
		return fmt.Errorf("%w: inbound %s", store.ErrNotFound, record.ID)
	}
	t.s.inbound[record.ID] = record
	return nil
}

func (t *memTx) InsertOutbound(_ context.Context, record domain.OutboundRecord) error {
	if err := t.check(); err != nil {
		return err
	}
	if _, exists := t.s.outbound[record.ID]; exists {
		return fmt.Errorf("%w: outbound %s already exists", store.ErrValidation, record.ID)
	}
	t.s.outbound[record.ID] = record
	t.track(record.ID)
	return nil
}

func (t *memTx) UpdateOutbound(_ context.Context, record domain.OutboundRecord) error {
	if err := t.check(); err != nil {
		return err
	}
	if _, exists := t.s.outbound[record.ID]; !exists {
		return fmt.Errorf("%w: outbound %s", store.ErrNotFound, record.ID)
	}
	t.s.outbound[record.ID] = record
	return nil
}

func (t *memTx) InsertAdjustment(_ context.Context, entry domain.StockAdjustment) error {
	if err := t.check(); err != nil {
		return err
	}
	if entry.NewQty != entry.OldQty+entry.Difference {
		return fmt.Errorf("%w: adjustment %s does not balance", store.ErrInvariantViolation, entry.ID)
	}
	t.s.adjustments = append(t.s.adjustments, entry)
	return nil
}

func (t *memTx) SetProductStock(_ context.Context, productID string, stock int) error {
	if err := t.check(); err != nil {
		return err
	}
	if stock < 0 {
		return fmt.Errorf("%w: product %s stock would be %d", store.ErrInvariantViolation, productID, stock)
	}
	p, ok := t.s.products[productID]
	if !ok {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
	}
	p.Stock = stock
	p.UpdatedAt = time.Now().UTC()
	t.s.products[productID] = p
	return nil
}

func (t *memTx) SetProductActive(_ context.Context, productID string, active bool) error {
	if err := t.check(); err != nil {
		return err
	}
	p, ok := t.s.products[productID]
	if !ok {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
	}
	p.Active = active
	p.UpdatedAt = time.Now().UTC()
	t.s.products[productID] = p
	return nil
}

// DeleteProduct scans every table that holds a product id, standing in for
// the foreign keys postgres enforces.
func (t *memTx) DeleteProduct(_ context.Context, productID string) error {
	if err := t.check(); err != nil {
		return err
	}
	if _, ok := t.s.products[productID]; !ok {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
	}
	referenced := slices.ContainsFunc(t.s.adjustments, func(a domain.StockAdjustment) bool {
		return a.ProductID == productID
	})
	for _, r := range t.s.inbound {
		referenced = referenced || r.ProductID == productID
	}
	for _, r := range t.s.outbound {
		referenced = referenced || r.ProductID == productID
	}
	if referenced {
		return fmt.Errorf("%w: product %s has inbound, outbound or adjustment history", store.ErrInvalidTransition, productID)
	}
	delete(t.s.products, productID)
	return nil
}

func (t *memTx) SetLocationCapacity(_ context.Context, locationID string, capacity int) error {
	if err := t.check(); err != nil {
		return err
	}
	if capacity < 0 {
		return fmt.Errorf("%w: location %s capacity would be %d", store.ErrInvariantViolation, locationID, capacity)
	}
	loc, ok := t.s.locations[locationID]
	if !ok {
		return fmt.Errorf("%w: storage location %s", store.ErrNotFound, locationID)
	}
	loc.CurrentCapacity = capacity
	t.s.locations[locationID] = loc
	return nil
}
