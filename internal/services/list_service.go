package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"catalogadmin/internal/models"
	"catalogadmin/internal/repositories"
)

// Filters is the (name, minPrice, maxPrice) triple driving client-side
// list narrowing. Nil price bounds mean "no filter", which is distinct
// from a zero bound.
type Filters struct {
	Name     string
	MinPrice *float64
	MaxPrice *float64
}

// SortColumn identifies the column a sort is applied to.
type SortColumn string

const (
	SortNone        SortColumn = ""
	SortName        SortColumn = "name"
	SortDescription SortColumn = "description"
	SortPrice       SortColumn = "price"
	SortStock       SortColumn = "stock"
)

// SortDirection is the current direction of the active sort.
type SortDirection int

const (
	SortUnsorted SortDirection = iota
	SortAscending
	SortDescending
)

// ListView owns the in-memory product snapshot and derives the visible
// set from it. The snapshot is only ever replaced wholesale by Load,
// never patched in place.
type ListView struct {
	repo repositories.ProductRepository
	mq   EventPublisher
	log  *logrus.Logger

	mu       sync.RWMutex
	products []models.Product
	loaded   bool
	filters  Filters
	sortCol  SortColumn
	sortDir  SortDirection
}

// NewListView creates a ListView. The event publisher may be nil.
func NewListView(repo repositories.ProductRepository, mq EventPublisher, log *logrus.Logger) *ListView {
	return &ListView{
		repo: repo,
		mq:   mq,
		log:  log,
	}
}

// Load replaces the snapshot with a fresh full fetch.
func (v *ListView) Load(ctx context.Context) error {
	products, err := v.repo.GetAll(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.products = products
	v.loaded = true
	v.mu.Unlock()
	return nil
}

// Loaded reports whether an initial snapshot has been fetched.
func (v *ListView) Loaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

// Invalidate marks the snapshot stale so the next render reloads it.
func (v *ListView) Invalidate() {
	v.mu.Lock()
	v.loaded = false
	v.mu.Unlock()
}

// SetFilters replaces the filter triple.
func (v *ListView) SetFilters(f Filters) {
	v.mu.Lock()
	v.filters = f
	v.mu.Unlock()
}

// Filters returns the current filter triple.
func (v *ListView) Filters() Filters {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.filters
}

// SetSort replaces the sort state. Half-set pairs collapse to unsorted
// so the column and direction are always consistent.
func (v *ListView) SetSort(col SortColumn, dir SortDirection) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if col == SortNone || dir == SortUnsorted {
		v.sortCol = SortNone
		v.sortDir = SortUnsorted
		return
	}
	v.sortCol = col
	v.sortDir = dir
}

// NextSort advances the sort cycle for a clicked column: a new column
// starts ascending, a second click flips to descending, and a third
// clears the sort. At most one column is sort-active at a time.
func NextSort(activeCol SortColumn, activeDir SortDirection, clicked SortColumn) (SortColumn, SortDirection) {
	if clicked != activeCol || activeDir == SortUnsorted {
		return clicked, SortAscending
	}
	if activeDir == SortAscending {
		return clicked, SortDescending
	}
	return SortNone, SortUnsorted
}

// SortState returns the active sort column and direction.
func (v *ListView) SortState() (SortColumn, SortDirection) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.sortCol, v.sortDir
}

// Visible derives the currently shown products: a pure function of the
// snapshot, the filter triple, and the sort state. The snapshot itself
// is never mutated or reordered.
func (v *ListView) Visible() []models.Product {
	v.mu.RLock()
	products := v.products
	filters := v.filters
	col, dir := v.sortCol, v.sortDir
	v.mu.RUnlock()

	return SortProducts(ApplyFilters(products, filters), col, dir)
}

// Delete removes a product and, on success, publishes an event and
// refetches the full list. A failed delete leaves the snapshot untouched;
// the repository layer already surfaced the notification.
func (v *ListView) Delete(ctx context.Context, id string) error {
	name := ""
	v.mu.RLock()
	for _, p := range v.products {
		if p.ID == id {
			name = p.Name
			break
		}
	}
	v.mu.RUnlock()

	if err := v.repo.Delete(ctx, id); err != nil {
		return err
	}
	publishEvent(v.mq, v.log, "deleted", id, name)

	if err := v.Load(ctx); err != nil {
		v.log.WithError(err).Error("reload after delete failed")
	}
	return nil
}

// OutOfStock reports whether a row gets the out-of-stock highlight.
func OutOfStock(p models.Product) bool {
	return p.Stock == 0
}

// ApplyFilters narrows products by, in order, case-insensitive name
// substring, inclusive minimum price, and inclusive maximum price. The
// three filters are conjunctive, an unset filter is a no-op, and the
// input slice is never modified.
func ApplyFilters(products []models.Product, f Filters) []models.Product {
	name := strings.ToLower(f.Name)
	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if name != "" && !strings.Contains(strings.ToLower(p.Name), name) {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// SortProducts returns a sorted copy of products. Text columns compare
// lexicographically, price and stock numerically. The sort is stable, so
// re-sorting in the same direction is a no-op.
func SortProducts(products []models.Product, col SortColumn, dir SortDirection) []models.Product {
	out := make([]models.Product, len(products))
	copy(out, products)
	if col == SortNone || dir == SortUnsorted {
		return out
	}

	less := func(a, b models.Product) bool {
		switch col {
		case SortName:
			return a.Name < b.Name
		case SortDescription:
			return a.Description < b.Description
		case SortPrice:
			return a.Price < b.Price
		case SortStock:
			return a.Stock < b.Stock
		}
		return false
	}
	sort.SliceStable(out, func(i, j int) bool {
		if dir == SortDescending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}
