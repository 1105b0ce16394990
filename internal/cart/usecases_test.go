package cart

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/storehq/storefront/internal/apperr"
	"github.com/storehq/storefront/internal/catalog"
	"github.com/storehq/storefront/pkg/postgres"
)

type stubTx struct {
	committed  bool
	rolledBack bool
}

func (t *stubTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	panic("unexpected Exec on stub tx")
}

func (t *stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("unexpected Query on stub tx")
}

func (t *stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("unexpected QueryRow on stub tx")
}

func (t *stubTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *stubTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Begin(ctx context.Context) (postgres.Tx, error) {
	args := m.Called(ctx)
	return args.Get(0).(postgres.Tx), args.Error(1)
}

func (m *mockRepository) GetOrCreate(ctx context.Context, userID string) (Cart, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(Cart), args.Error(1)
}

func (m *mockRepository) LockCart(ctx context.Context, tx postgres.Tx, cartID string) error {
	args := m.Called(ctx, tx, cartID)
	return args.Error(0)
}

func (m *mockRepository) ListItems(ctx context.Context, cartID string) ([]Item, error) {
	args := m.Called(ctx, cartID)
	return args.Get(0).([]Item), args.Error(1)
}

func (m *mockRepository) FindItemByProduct(ctx context.Context, tx postgres.Tx, cartID, productID string) (Item, bool, error) {
	args := m.Called(ctx, tx, cartID, productID)
	return args.Get(0).(Item), args.Bool(1), args.Error(2)
}

func (m *mockRepository) GetItem(ctx context.Context, tx postgres.Tx, cartID, itemID string) (Item, error) {
	args := m.Called(ctx, tx, cartID, itemID)
	return args.Get(0).(Item), args.Error(1)
}

func (m *mockRepository) InsertItem(ctx context.Context, tx postgres.Tx, item Item) error {
	args := m.Called(ctx, tx, item)
	return args.Error(0)
}

func (m *mockRepository) SetItemQuantity(ctx context.Context, tx postgres.Tx, itemID string, quantity int32) error {
	args := m.Called(ctx, tx, itemID, quantity)
	return args.Error(0)
}

func (m *mockRepository) DeleteItem(ctx context.Context, tx postgres.Tx, itemID string) error {
	args := m.Called(ctx, tx, itemID)
	return args.Error(0)
}

type stubStock struct {
	available map[string]int32
}

func (s *stubStock) CheckAvailable(ctx context.Context, productID string) (int32, error) {
	stock, ok := s.available[productID]
	if !ok {
		return 0, apperr.NotFoundf("product %s", productID)
	}
	return stock, nil
}

type stubProducts struct {
	products map[string]catalog.Product
}

func (s *stubProducts) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, apperr.NotFoundf("product %s", id)
	}
	return p, nil
}

func fixtures() (*stubStock, *stubProducts) {
	stock := &stubStock{available: map[string]int32{"prod-1": 10, "prod-5": 2}}
	products := &stubProducts{products: map[string]catalog.Product{
		"prod-1": {ID: "prod-1", Name: "widget", Price: 1000, Stock: 10},
		"prod-5": {ID: "prod-5", Name: "rare gadget", Price: 5000, Stock: 2},
	}}
	return stock, products
}

func TestAddItem_NewLineSnapshotsPrice(t *testing.T) {
	ctx := context.Background()
	tx := &stubTx{}
	repo := new(mockRepository)
	stock, products := fixtures()

	repo.On("GetOrCreate", ctx, "user-1").Return(Cart{ID: "cart-1", UserID: "user-1"}, nil)
	repo.On("Begin", ctx).Return(tx, nil)
	repo.On("LockCart", ctx, tx, "cart-1").Return(nil)
	repo.On("FindItemByProduct", ctx, tx, "cart-1", "prod-1").Return(Item{}, false, nil)

	var inserted Item
	repo.On("InsertItem", ctx, tx, mock.AnythingOfType("cart.Item")).Run(func(args mock.Arguments) {
		inserted = args.Get(2).(Item)
	}).Return(nil)
	repo.On("ListItems", ctx, "cart-1").Return([]Item{
		{ID: "line-1", CartID: "cart-1", ProductID: "prod-1", ProductName: "widget", Quantity: 2, UnitPrice: 1000},
	}, nil)

	uc := NewUseCase(repo, stock, products)
	view, err := uc.AddItem(ctx, "user-1", "prod-1", 2)

	assert.NoError(t, err)
	assert.True(t, tx.committed)
	assert.Equal(t, int32(2), inserted.Quantity)
	assert.Equal(t, int64(1000), inserted.UnitPrice, "unit price is snapshotted from the current catalog price")
	assert.Equal(t, int64(2000), view.TotalAmount)
}

func TestAddItem_MergeValidatesNewTotal(t *testing.T) {
	ctx := context.Background()
	tx := &stubTx{}
	repo := new(mockRepository)
	stock, products := fixtures()
	stock.available["prod-1"] = 4

	existing := Item{ID: "line-1", CartID: "cart-1", ProductID: "prod-1", ProductName: "widget", Quantity: 2, UnitPrice: 900}

	repo.On("GetOrCreate", ctx, "user-1").Return(Cart{ID: "cart-1", UserID: "user-1"}, nil)
	repo.On("Begin", ctx).Return(tx, nil)
	repo.On("LockCart", ctx, tx, "cart-1").Return(nil)
	repo.On("FindItemByProduct", ctx, tx, "cart-1", "prod-1").Return(existing, true, nil)

	uc := NewUseCase(repo, stock, products)

	// merged total 2+3=5 exceeds available 4, even though the delta alone fits
	_, err := uc.AddItem(ctx, "user-1", "prod-1", 3)

	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	var shortfall *apperr.InsufficientStockError
	assert.ErrorAs(t, err, &shortfall)
	assert.Equal(t, int32(4), shortfall.Available)
	assert.True(t, tx.rolledBack)
	repo.AssertNotCalled(t, "SetItemQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddItem_MergeSumsQuantities(t *testing.T) {
	ctx := context.Background()
	tx := &stubTx{}
	repo := new(mockRepository)
	stock, products := fixtures()

	existing := Item{ID: "line-1", CartID: "cart-1", ProductID: "prod-1", ProductName: "widget", Quantity: 2, UnitPrice: 900}

	repo.On("GetOrCreate", ctx, "user-1").Return(Cart{ID: "cart-1", UserID: "user-1"}, nil)
	repo.On("Begin", ctx).Return(tx, nil)
	repo.On("LockCart", ctx, tx, "cart-1").Return(nil)
	repo.On("FindItemByProduct", ctx, tx, "cart-1", "prod-1").Return(existing, true, nil)
	repo.On("SetItemQuantity", ctx, tx, "line-1", int32(5)).Return(nil)
	repo.On("ListItems", ctx, "cart-1").Return([]Item{
		{ID: "line-1", CartID: "cart-1", ProductID: "prod-1", ProductName: "widget", Quantity: 5, UnitPrice: 900},
	}, nil)

	uc := NewUseCase(repo, stock, products)
	view, err := uc.AddItem(ctx, "user-1", "prod-1", 3)

	assert.NoError(t, err)
	// the line keeps its original price snapshot; no new line is created
	assert.Len(t, view.Items, 1)
	assert.Equal(t, int64(900), view.Items[0].UnitPrice)
	assert.Equal(t, int64(4500), view.TotalAmount)
	repo.AssertNotCalled(t, "InsertItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddItem_InsufficientStockCreatesNothing(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	stock, products := fixtures()

	uc := NewUseCase(repo, stock, products)

	// product 5 has stock 2; asking for 3 fails before any cart access
	_, err := uc.AddItem(ctx, "user-1", "prod-5", 3)

	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	var shortfall *apperr.InsufficientStockError
	assert.ErrorAs(t, err, &shortfall)
	assert.Equal(t, int32(2), shortfall.Available)
	assert.Equal(t, "rare gadget", shortfall.ProductName)
	repo.AssertNotCalled(t, "Begin", mock.Anything)
	repo.AssertNotCalled(t, "InsertItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	stock, products := fixtures()

	uc := NewUseCase(repo, stock, products)
	_, err := uc.AddItem(ctx, "user-1", "prod-404", 1)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAddItem_RejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	stock, products := fixtures()

	uc := NewUseCase(repo, stock, products)
	_, err := uc.AddItem(ctx, "user-1", "prod-1", 0)

	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestUpdateItemQuantity(t *testing.T) {
	ctx := context.Background()
	stock, products := fixtures()

	t.Run("missing item", func(t *testing.T) {
		tx := &stubTx{}
		repo := new(mockRepository)
		repo.On("GetOrCreate", ctx, "user-1").Return(Cart{ID: "cart-1"}, nil)
		repo.On("Begin", ctx).Return(tx, nil)
		repo.On("LockCart", ctx, tx, "cart-1").Return(nil)
		repo.On("GetItem", ctx, tx, "cart-1", "nope").Return(Item{}, apperr.NotFoundf("cart item %s", "nope"))

		uc := NewUseCase(repo, stock, products)
		_, err := uc.UpdateItemQuantity(ctx, "user-1", "nope", 2)

		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.True(t, tx.rolledBack)
	})

	t.Run("re-validates against current stock", func(t *testing.T) {
		tx := &stubTx{}
		repo := new(mockRepository)
		item := Item{ID: "line-1", CartID: "cart-1", ProductID: "prod-5", ProductName: "rare gadget", Quantity: 1, UnitPrice: 5000}
		repo.On("GetOrCreate", ctx, "user-1").Return(Cart{ID: "cart-1"}, nil)
		repo.On("Begin", ctx).Return(tx, nil)
		repo.On("LockCart", ctx, tx, "cart-1").Return(nil)
		repo.On("GetItem", ctx, tx, "cart-1", "line-1").Return(item, nil)

		uc := NewUseCase(repo, stock, products)
		_, err := uc.UpdateItemQuantity(ctx, "user-1", "line-1", 3)

		assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
		repo.AssertNotCalled(t, "SetItemQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("replaces quantity, keeps price snapshot", func(t *testing.T) {
		tx := &stubTx{}
		repo := new(mockRepository)
		item := Item{ID: "line-1", CartID: "cart-1", ProductID: "prod-1", ProductName: "widget", Quantity: 1, UnitPrice: 900}
		repo.On("GetOrCreate", ctx, "user-1").Return(Cart{ID: "cart-1"}, nil)
		repo.On("Begin", ctx).Return(tx, nil)
		repo.On("LockCart", ctx, tx, "cart-1").Return(nil)
		repo.On("GetItem", ctx, tx, "cart-1", "line-1").Return(item, nil)
		repo.On("SetItemQuantity", ctx, tx, "line-1", int32(4)).Return(nil)
		repo.On("ListItems", ctx, "cart-1").Return([]Item{
			{ID: "line-1", CartID: "cart-1", ProductID: "prod-1", ProductName: "widget", Quantity: 4, UnitPrice: 900},
		}, nil)

		uc := NewUseCase(repo, stock, products)
		view, err := uc.UpdateItemQuantity(ctx, "user-1", "line-1", 4)

		assert.NoError(t, err)
		assert.True(t, tx.committed)
		assert.Equal(t, int64(900), view.Items[0].UnitPrice)
		assert.Equal(t, int64(3600), view.TotalAmount)
	})
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	stock, products := fixtures()

	t.Run("missing item", func(t *testing.T) {
		tx := &stubTx{}
		repo := new(mockRepository)
		repo.On("GetOrCreate", ctx, "user-1").Return(Cart{ID: "cart-1"}, nil)
		repo.On("Begin", ctx).Return(tx, nil)
		repo.On("LockCart", ctx, tx, "cart-1").Return(nil)
		repo.On("GetItem", ctx, tx, "cart-1", "nope").Return(Item{}, apperr.NotFoundf("cart item %s", "nope"))

		uc := NewUseCase(repo, stock, products)
		_, err := uc.RemoveItem(ctx, "user-1", "nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("deletes the line", func(t *testing.T) {
		tx := &stubTx{}
		repo := new(mockRepository)
		item := Item{ID: "line-1", CartID: "cart-1", ProductID: "prod-1"}
		repo.On("GetOrCreate", ctx, "user-1").Return(Cart{ID: "cart-1"}, nil)
		repo.On("Begin", ctx).Return(tx, nil)
		repo.On("LockCart", ctx, tx, "cart-1").Return(nil)
		repo.On("GetItem", ctx, tx, "cart-1", "line-1").Return(item, nil)
		repo.On("DeleteItem", ctx, tx, "line-1").Return(nil)
		repo.On("ListItems", ctx, "cart-1").Return([]Item{}, nil)

		uc := NewUseCase(repo, stock, products)
		view, err := uc.RemoveItem(ctx, "user-1", "line-1")

		assert.NoError(t, err)
		assert.True(t, tx.committed)
		assert.Empty(t, view.Items)
		assert.Equal(t, int64(0), view.TotalAmount)
	})
}
