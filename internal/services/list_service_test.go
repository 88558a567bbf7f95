package services_test

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"catalogadmin/internal/models"
	"catalogadmin/internal/services"
)

// MockProductRepository is a mock implementation of
// repositories.ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(_ context.Context) ([]models.Product, error) {
	args := m.Called()
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(_ context.Context, product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(_ context.Context, product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(_ context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockProductRepository) UploadImage(_ context.Context, filename string, data []byte) (string, error) {
	args := m.Called(filename, data)
	return args.String(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of services.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishProductEvent(action, productID, name string) error {
	args := m.Called(action, productID, name)
	return args.Error(0)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func floatPtr(f float64) *float64 { return &f }

func sampleProducts() []models.Product {
	return []models.Product{
		{ID: "1", Name: "Laptop", Description: "High performance laptop", Price: 1200.00, Stock: 10},
		{ID: "2", Name: "Keyboard", Description: "Mechanical keyboard", Price: 75.00, Stock: 0},
		{ID: "3", Name: "Mouse", Description: "Ergonomic wireless mouse", Price: 25.00, Stock: 50},
		{ID: "4", Name: "Mouse Pad", Description: "Cloth mouse pad", Price: 25.00, Stock: 5},
	}
}

func TestApplyFilters(t *testing.T) {
	products := sampleProducts()

	t.Run("name match is a case-insensitive substring", func(t *testing.T) {
		got := services.ApplyFilters(products, services.Filters{Name: "mOuSe"})
		assert.Len(t, got, 2)
		assert.Equal(t, "Mouse", got[0].Name)
		assert.Equal(t, "Mouse Pad", got[1].Name)
	})

	t.Run("price bounds are inclusive", func(t *testing.T) {
		got := services.ApplyFilters(products, services.Filters{MinPrice: floatPtr(25), MaxPrice: floatPtr(75)})
		assert.Len(t, got, 3)
		for _, p := range got {
			assert.GreaterOrEqual(t, p.Price, 25.0)
			assert.LessOrEqual(t, p.Price, 75.0)
		}
	})

	t.Run("filters are conjunctive", func(t *testing.T) {
		got := services.ApplyFilters(products, services.Filters{Name: "mouse", MinPrice: floatPtr(25), MaxPrice: floatPtr(25)})
		assert.Len(t, got, 2)
	})

	t.Run("an unset bound is a no-op, not a zero bound", func(t *testing.T) {
		unset := services.ApplyFilters(products, services.Filters{})
		assert.Len(t, unset, len(products))

		zeroMax := services.ApplyFilters(products, services.Filters{MaxPrice: floatPtr(0)})
		assert.Empty(t, zeroMax)
	})

	t.Run("result is always a subset of the input", func(t *testing.T) {
		byID := make(map[string]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		triples := []services.Filters{
			{},
			{Name: "a"},
			{MinPrice: floatPtr(50)},
			{MaxPrice: floatPtr(50)},
			{Name: "laptop", MinPrice: floatPtr(0), MaxPrice: floatPtr(10000)},
		}
		for _, f := range triples {
			for _, p := range services.ApplyFilters(products, f) {
				assert.Equal(t, byID[p.ID], p, "filtering must never introduce products")
			}
		}
	})
}

func TestApplyFiltersIsIdempotent(t *testing.T) {
	products := sampleProducts()
	f := services.Filters{Name: "o", MinPrice: floatPtr(20), MaxPrice: floatPtr(2000)}

	once := services.ApplyFilters(products, f)
	twice := services.ApplyFilters(once, f)
	assert.Equal(t, once, twice)
}

func TestApplyFiltersDoesNotMutateInput(t *testing.T) {
	products := sampleProducts()
	snapshot := make([]models.Product, len(products))
	copy(snapshot, products)

	services.ApplyFilters(products, services.Filters{Name: "mouse", MinPrice: floatPtr(30)})
	assert.Equal(t, snapshot, products)
}

func TestSortProducts(t *testing.T) {
	products := sampleProducts()

	t.Run("text columns sort lexicographically", func(t *testing.T) {
		got := services.SortProducts(products, services.SortName, services.SortAscending)
		assert.Equal(t, "Keyboard", got[0].Name)
		assert.Equal(t, "Mouse Pad", got[3].Name)
	})

	t.Run("numeric columns sort numerically", func(t *testing.T) {
		got := services.SortProducts(products, services.SortPrice, services.SortDescending)
		assert.Equal(t, 1200.00, got[0].Price)
		assert.Equal(t, 25.00, got[3].Price)
	})

	t.Run("equal keys keep their relative order", func(t *testing.T) {
		got := services.SortProducts(products, services.SortPrice, services.SortAscending)
		// Mouse and Mouse Pad share a price; input order must survive.
		assert.Equal(t, "Mouse", got[0].Name)
		assert.Equal(t, "Mouse Pad", got[1].Name)
	})

	t.Run("re-sorting in the same direction is stable", func(t *testing.T) {
		once := services.SortProducts(products, services.SortStock, services.SortAscending)
		twice := services.SortProducts(once, services.SortStock, services.SortAscending)
		assert.Equal(t, once, twice)
	})

	t.Run("unsorted returns the input order", func(t *testing.T) {
		got := services.SortProducts(products, services.SortNone, services.SortUnsorted)
		assert.Equal(t, products, got)
	})
}

func TestNextSortCycle(t *testing.T) {
	col, dir := services.NextSort(services.SortNone, services.SortUnsorted, services.SortPrice)
	assert.Equal(t, services.SortPrice, col)
	assert.Equal(t, services.SortAscending, dir)

	col, dir = services.NextSort(col, dir, services.SortPrice)
	assert.Equal(t, services.SortPrice, col)
	assert.Equal(t, services.SortDescending, dir)

	col, dir = services.NextSort(col, dir, services.SortPrice)
	assert.Equal(t, services.SortNone, col)
	assert.Equal(t, services.SortUnsorted, dir)

	// Clicking another column mid-cycle resets to ascending.
	col, dir = services.NextSort(services.SortPrice, services.SortDescending, services.SortName)
	assert.Equal(t, services.SortName, col)
	assert.Equal(t, services.SortAscending, dir)
}

func TestListViewSetSort(t *testing.T) {
	view := services.NewListView(new(MockProductRepository), nil, testLogger())

	view.SetSort(services.SortPrice, services.SortDescending)
	col, dir := view.SortState()
	assert.Equal(t, services.SortPrice, col)
	assert.Equal(t, services.SortDescending, dir)

	// Half-set pairs collapse to unsorted.
	view.SetSort(services.SortName, services.SortUnsorted)
	col, dir = view.SortState()
	assert.Equal(t, services.SortNone, col)
	assert.Equal(t, services.SortUnsorted, dir)

	view.SetSort(services.SortNone, services.SortAscending)
	col, dir = view.SortState()
	assert.Equal(t, services.SortNone, col)
	assert.Equal(t, services.SortUnsorted, dir)
}

func TestListViewVisible(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockRepo.On("GetAll").Return(sampleProducts(), nil).Once()

	view := services.NewListView(mockRepo, nil, testLogger())
	assert.NoError(t, view.Load(context.Background()))
	assert.True(t, view.Loaded())

	view.SetFilters(services.Filters{Name: "mouse"})
	view.SetSort(services.SortPrice, services.SortAscending)
	got := view.Visible()
	assert.Len(t, got, 2)

	// The snapshot itself must be untouched by filtering and sorting.
	view.SetFilters(services.Filters{})
	view.SetSort(services.SortNone, services.SortUnsorted)
	assert.Equal(t, sampleProducts(), view.Visible())
	mockRepo.AssertExpectations(t)
}

func TestOutOfStock(t *testing.T) {
	assert.True(t, services.OutOfStock(models.Product{Stock: 0}))
	assert.False(t, services.OutOfStock(models.Product{Stock: 1}))
	assert.False(t, services.OutOfStock(models.Product{Stock: 50}))
}

func TestListViewDeleteFailureLeavesListUnchanged(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockRepo.On("GetAll").Return(sampleProducts(), nil).Once()
	mockRepo.On("Delete", "7").Return(fmt.Errorf("simulated transport error")).Once()

	view := services.NewListView(mockRepo, nil, testLogger())
	assert.NoError(t, view.Load(context.Background()))

	err := view.Delete(context.Background(), "7")
	assert.Error(t, err)
	assert.Equal(t, sampleProducts(), view.Visible())
	mockRepo.AssertNumberOfCalls(t, "GetAll", 1)
	mockRepo.AssertExpectations(t)
}

func TestListViewDeleteSuccessReloadsAndPublishes(t *testing.T) {
	after := sampleProducts()[1:]

	mockRepo := new(MockProductRepository)
	mockRepo.On("GetAll").Return(sampleProducts(), nil).Once()
	mockRepo.On("Delete", "1").Return(nil).Once()
	mockRepo.On("GetAll").Return(after, nil).Once()

	mockMQ := new(MockEventPublisher)
	mockMQ.On("PublishProductEvent", "deleted", "1", "Laptop").Return(nil).Once()

	view := services.NewListView(mockRepo, mockMQ, testLogger())
	assert.NoError(t, view.Load(context.Background()))

	assert.NoError(t, view.Delete(context.Background(), "1"))
	assert.Equal(t, after, view.Visible())
	mockRepo.AssertExpectations(t)
	mockMQ.AssertExpectations(t)
}
