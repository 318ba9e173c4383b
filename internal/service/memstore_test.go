package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/shopspring/decimal"
)

// memState is one version of the catalog. Transactions work on a clone and
// replace the committed state only when they succeed.
type memState struct {
	products     map[uuid.UUID]*model.Product
	variants     map[uuid.UUID]*model.Variant
	productOrder []uuid.UUID
	variantOrder []uuid.UUID
	events       []*model.Event
}

func newMemState() *memState {
	return &memState{
		products: map[uuid.UUID]*model.Product{},
		variants: map[uuid.UUID]*model.Variant{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for id, p := range s.products {
		cp := *p
		cp.Variants = nil
		c.products[id] = &cp
	}
	for id, v := range s.variants {
		cv := *v
		c.variants[id] = &cv
	}
	c.productOrder = slices.Clone(s.productOrder)
	c.variantOrder = slices.Clone(s.variantOrder)
	for _, e := range s.events {
		ce := *e
		c.events = append(c.events, &ce)
	}
	return c
}

// memStore implements repository.Store in memory. Transactions are serialized.
type memStore struct {
	mu    sync.Mutex
	state *memState

	// failures maps an operation name such as "events.insert" to the error it returns.
	failures map[string]error
}

func newMemStore() *memStore {
	return &memStore{state: newMemState(), failures: map[string]error{}}
}

func (m *memStore) Repositories() repository.Repositories {
	return m.bind(func() *memState { return m.state })
}

func (m *memStore) WithinTransaction(_ context.Context, fn func(repos repository.Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(m.bind(func() *memState { return work })); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) bind(state func() *memState) repository.Repositories {
	return repository.Repositories{
		Products: &memProducts{store: m, state: state},
		Variants: &memVariants{store: m, state: state},
		Events:   &memEvents{store: m, state: state},
	}
}

// snapshot returns a copy of the committed state for before/after comparisons.
func (m *memStore) snapshot() *memState {
	return m.state.clone()
}

func (m *memStore) fail(op string) error {
	return m.failures[op]
}

// liveVariants returns the committed live variants of a product in insertion order.
func (m *memStore) liveVariants(productID uuid.UUID) []*model.Variant {
	var out []*model.Variant
	for _, id := range m.state.variantOrder {
		v := m.state.variants[id]
		if v.ProductID == productID && v.IsLive() {
			out = append(out, v)
		}
	}
	return out
}

// seedProduct commits a product and its variants directly.
func (m *memStore) seedProduct(name, slug string, variants ...*model.Variant) *model.Product {
	p := &model.Product{Name: name, Slug: slug, BasePrice: decimal.NewFromInt(100)}
	p.InitMeta()
	m.state.products[p.ID] = p
	m.state.productOrder = append(m.state.productOrder, p.ID)
	for _, v := range variants {
		v.InitMeta()
		v.ProductID = p.ID
		if v.MetalType == "" {
			v.MetalType = model.MetalTypeGold
		}
		m.state.variants[v.ID] = v
		m.state.variantOrder = append(m.state.variantOrder, v.ID)
	}
	return p
}

type memProducts struct {
	store *memStore
	state func() *memState
}

func (r *memProducts) Insert(_ context.Context, product *model.Product) error {
	if err := r.store.fail("products.insert"); err != nil {
		return err
	}
	s := r.state()
	for _, p := range s.products {
		if p.IsLive() && p.Slug == product.Slug {
			return &repository.UniqueConstraintError{Constraint: "products_slug_live_key"}
		}
	}
	if product.ID == uuid.Nil {
		product.InitMeta()
	}
	cp := *product
	s.products[product.ID] = &cp
	s.productOrder = append(s.productOrder, product.ID)
	return nil
}

func (r *memProducts) FindLive(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.state().products[id]
	if !ok || !p.IsLive() {
		return nil, fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r *memProducts) ListLive(_ context.Context, query repository.Query) ([]*model.Product, error) {
	s := r.state()
	var out []*model.Product
	for i := len(s.productOrder) - 1; i >= 0; i-- {
		p := s.products[s.productOrder[i]]
		if !p.IsLive() {
			continue
		}
		if slug, ok := query.Values[repository.SlugField]; ok && p.Slug != slug {
			continue
		}
		cp := *p
		for _, v := range s.variants {
			if v.ProductID == p.ID && v.IsLive() {
				cp.VariantsCount++
			}
		}
		out = append(out, &cp)
		if query.Limit > 0 && len(out) == query.Limit {
			break
		}
	}
	return out, nil
}

func (r *memProducts) UpdateFields(_ context.Context, id uuid.UUID, fields repository.Fields) error {
	s := r.state()
	p, ok := s.products[id]
	if !ok || !p.IsLive() {
		return fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
	}
	if slug, ok := fields[repository.SlugField]; ok {
		for _, other := range s.products {
			if other.ID != id && other.IsLive() && other.Slug == slug {
				return &repository.UniqueConstraintError{Constraint: "products_slug_live_key"}
			}
		}
	}
	for field, value := range fields {
		switch field {
		case repository.NameField:
			p.Name = value.(string)
		case repository.DescriptionField:
			d := value.(sql.NullString)
			if d.Valid {
				p.Description = &d.String
			} else {
				p.Description = nil
			}
		case repository.BasePriceField:
			p.BasePrice = value.(decimal.Decimal)
		case repository.SlugField:
			p.Slug = value.(string)
		default:
			return fmt.Errorf("%w: products.%s", repository.ErrUnknownField, field)
		}
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memProducts) SoftDelete(_ context.Context, id uuid.UUID) error {
	if err := r.store.fail("products.delete"); err != nil {
		return err
	}
	p, ok := r.state().products[id]
	if !ok || !p.IsLive() {
		return fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	return nil
}

func (r *memProducts) ExistsLive(_ context.Context, field repository.QueryField, value string, excludeID uuid.UUID) (bool, error) {
	if field != repository.SlugField {
		return false, repository.ErrUnknownField
	}
	for _, p := range r.state().products {
		if p.IsLive() && p.ID != excludeID && p.Slug == value {
			return true, nil
		}
	}
	return false, nil
}

type memVariants struct {
	store *memStore
	state func() *memState
}

func (r *memVariants) skuTaken(sku string, excludeID uuid.UUID) bool {
	for _, v := range r.state().variants {
		if v.IsLive() && v.ID != excludeID && v.SKU == sku {
			return true
		}
	}
	return false
}

func (r *memVariants) Insert(_ context.Context, variant *model.Variant) error {
	if err := r.store.fail("variants.insert"); err != nil {
		return err
	}
	if r.skuTaken(variant.SKU, uuid.Nil) {
		return &repository.UniqueConstraintError{Constraint: "variants_sku_live_key"}
	}
	if variant.ID == uuid.Nil {
		variant.InitMeta()
	}
	s := r.state()
	cv := *variant
	s.variants[variant.ID] = &cv
	s.variantOrder = append(s.variantOrder, variant.ID)
	return nil
}

func (r *memVariants) FindLive(_ context.Context, id uuid.UUID) (*model.Variant, error) {
	v, ok := r.state().variants[id]
	if !ok || !v.IsLive() {
		return nil, fmt.Errorf("variant %s: %w", id, repository.ErrNotFound)
	}
	cv := *v
	return &cv, nil
}

func (r *memVariants) ListLive(_ context.Context, query repository.Query) ([]*model.Variant, error) {
	s := r.state()
	var out []*model.Variant
	for _, id := range s.variantOrder {
		v := s.variants[id]
		if !v.IsLive() {
			continue
		}
		if productID, ok := query.Values[repository.ProductIDField]; ok && v.ProductID.String() != productID {
			continue
		}
		if sku, ok := query.Values[repository.SKUField]; ok && v.SKU != sku {
			continue
		}
		cv := *v
		out = append(out, &cv)
	}
	return out, nil
}

func (r *memVariants) UpdateFields(_ context.Context, id uuid.UUID, fields repository.Fields) error {
	if err := r.store.fail("variants.update"); err != nil {
		return err
	}
	v, ok := r.state().variants[id]
	if !ok || !v.IsLive() {
		return fmt.Errorf("variant %s: %w", id, repository.ErrNotFound)
	}
	if sku, ok := fields[repository.SKUField]; ok && r.skuTaken(sku.(string), id) {
		return &repository.UniqueConstraintError{Constraint: "variants_sku_live_key"}
	}
	for field, value := range fields {
		switch field {
		case repository.CaratField:
			v.Carat = value.(decimal.NullDecimal)
		case repository.MetalTypeField:
			v.MetalType = model.MetalType(value.(string))
		case repository.PriceField:
			v.Price = value.(decimal.Decimal)
		case repository.StockField:
			v.Stock = value.(int)
		case repository.SKUField:
			v.SKU = value.(string)
		default:
			return fmt.Errorf("%w: variants.%s", repository.ErrUnknownField, field)
		}
	}
	v.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memVariants) SoftDelete(_ context.Context, id uuid.UUID) error {
	v, ok := r.state().variants[id]
	if !ok || !v.IsLive() {
		return fmt.Errorf("variant %s: %w", id, repository.ErrNotFound)
	}
	now := time.Now().UTC()
	v.DeletedAt = &now
	return nil
}

func (r *memVariants) SoftDeleteByProduct(_ context.Context, productID uuid.UUID) (int64, error) {
	var n int64
	now := time.Now().UTC()
	for _, v := range r.state().variants {
		if v.ProductID == productID && v.IsLive() {
			v.DeletedAt = &now
			n++
		}
	}
	return n, nil
}

func (r *memVariants) ExistsLive(_ context.Context, field repository.QueryField, value string, excludeID uuid.UUID) (bool, error) {
	if field != repository.SKUField {
		return false, repository.ErrUnknownField
	}
	if err := r.store.fail("variants.exists"); err != nil {
		return false, err
	}
	return r.skuTaken(value, excludeID), nil
}

type memEvents struct {
	store *memStore
	state func() *memState
}

func (r *memEvents) Insert(_ context.Context, event *model.Event) error {
	if err := r.store.fail("events.insert"); err != nil {
		return err
	}
	if event.ID == uuid.Nil {
		event.InitMeta()
	}
	ce := *event
	s := r.state()
	s.events = append(s.events, &ce)
	return nil
}

func (r *memEvents) ListPending(_ context.Context, limit int) ([]*model.Event, error) {
	var out []*model.Event
	for _, e := range r.state().events {
		if e.Status == model.EventStatusPending {
			ce := *e
			out = append(out, &ce)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memEvents) UpdateStatus(_ context.Context, id uuid.UUID, status model.EventStatus) error {
	for _, e := range r.state().events {
		if e.ID == id {
			e.Status = status
			return nil
		}
	}
	return fmt.Errorf("event %s: %w", id, repository.ErrNotFound)
}
