package tests

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/application/service"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
	domainservice "github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/service"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/infrastructure/memory"
)

type fixture struct {
	checkout   service.CheckoutService
	catalog    domainservice.CatalogService
	orders     domainservice.OrderService
	bills      domainservice.BillService
	catalogDB  *memory.CatalogRepository
	orderDB    model.OrderRepository
	billDB     *failingBillRepository
	tx         *recordingTransactor
	dispatcher *mockEventDispatcher
	observer   *mockObserver
	logs       *logtest.Hook
}

type option func(*fixtureConfig)

type fixtureConfig struct {
	policy   model.StockPolicy
	cfg      service.Config
	orderDB  func(*memory.OrderRepository) model.OrderRepository
	failBill bool
}

func withPolicy(p model.StockPolicy) option { return func(c *fixtureConfig) { c.policy = p } }
func withConfig(cfg service.Config) option  { return func(c *fixtureConfig) { c.cfg = cfg } }
func withFailingBills() option              { return func(c *fixtureConfig) { c.failBill = true } }
func withFailingOrders() option {
	return func(c *fixtureConfig) {
		c.orderDB = func(r *memory.OrderRepository) model.OrderRepository {
			return &failingOrderRepository{OrderRepository: r}
		}
	}
}

func setup(t *testing.T, opts ...option) *fixture {
	t.Helper()
	fc := fixtureConfig{
		policy: model.PermissiveStock,
		cfg:    service.Config{Consistency: service.ConsistencyCompensation},
		orderDB: func(r *memory.OrderRepository) model.OrderRepository {
			return r
		},
	}
	for _, o := range opts {
		o(&fc)
	}

	f := &fixture{
		catalogDB:  memory.NewCatalogRepository(),
		billDB:     &failingBillRepository{BillRepository: memory.NewBillRepository(), failing: fc.failBill},
		tx:         &recordingTransactor{},
		dispatcher: &mockEventDispatcher{},
		observer:   &mockObserver{},
	}
	f.orderDB = fc.orderDB(memory.NewOrderRepository())

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	f.logs = hook

	f.catalog = domainservice.NewCatalogService(f.catalogDB, f.dispatcher, fc.policy)
	f.orders = domainservice.NewOrderService(f.orderDB, f.dispatcher)
	f.bills = domainservice.NewBillService(f.billDB, f.orderDB, f.dispatcher)
	f.checkout = service.NewCheckoutService(f.catalog, f.orders, f.bills, f.tx, f.dispatcher, f.observer, logger, fc.cfg)
	return f
}

func (f *fixture) addItem(t *testing.T, variant model.Variant, name string, price model.Money, stock int) *model.CatalogItem {
	t.Helper()
	item, err := f.catalog.AddItem(context.Background(), variant, name, price, stock)
	require.NoError(t, err)
	return item
}

func (f *fixture) stock(t *testing.T, item *model.CatalogItem) int {
	t.Helper()
	stored, err := f.catalog.GetItem(context.Background(), item.Variant, item.ID)
	require.NoError(t, err)
	return stored.Stock
}

func buyer() model.Actor {
	return model.Actor{ID: uuid.New(), Email: "buyer@example.com", Name: "Buyer", Role: model.RoleUser}
}

func TestPlaceOrderHappyPath(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	phone := f.addItem(t, model.Product, "P1", 50000, 10)
	actor := buyer()

	order, err := f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{
		Items:       []service.CartLine{{ItemID: phone.ID, Quantity: 2}},
		Total:       100000,
		Address:     "Pune",
		PaymentInfo: json.RawMessage(`{"method":"card"}`),
	}, actor)
	require.NoError(t, err)

	assert.Equal(t, 8, f.stock(t, phone))
	assert.Equal(t, model.Processing, order.Status)
	assert.Equal(t, actor.Email, order.UserEmail)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "P1", order.Items[0].Name)
	assert.Equal(t, model.Money(50000), order.Items[0].UnitPrice)
	require.NotNil(t, order.BillID)

	bill, err := f.bills.GetBillByOrder(ctx, order.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, *order.BillID, bill.ID)
	assert.Equal(t, "1000.00", bill.Subtotal.String())
	assert.Equal(t, bill.Subtotal, bill.Total)
	assert.Equal(t, model.BillPending, bill.Status)
	assert.Equal(t, "Buyer", bill.UserName)

	entries, err := f.catalogDB.ListInventoryLog(ctx, model.Product, phone.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, order.ID.String(), entries[0].Reference)

	assert.Equal(t, 1, f.dispatcher.Count("OrderPlaced"))
	assert.Equal(t, 1, f.dispatcher.Count("BillCreated"))
	assert.Equal(t, []string{service.OutcomePlaced}, f.observer.outcomes)
}

func TestPlaceOrderMixedCatalog(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	phone := f.addItem(t, model.Product, "Phone", 30000, 5)
	cover := f.addItem(t, model.Accessory, "Cover", 999, 5)

	order, err := f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{
		Items: []service.CartLine{
			{ItemID: phone.ID, Quantity: 1},
			{ItemID: cover.ID, Quantity: 3},
		},
		Total: 32997,
	}, buyer())
	require.NoError(t, err)

	assert.Equal(t, 4, f.stock(t, phone))
	assert.Equal(t, 2, f.stock(t, cover))
	assert.Equal(t, model.Product, order.Items[0].Variant)
	assert.Equal(t, model.Accessory, order.Items[1].Variant)
	assert.Equal(t, model.Money(32997), order.ItemsTotal())
}

func TestPlaceOrderSurvivesBillFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("Error", func(t *testing.T) {
		f := setup(t, withFailingBills())
		phone := f.addItem(t, model.Product, "Phone", 50000, 10)
		actor := buyer()

		order, err := f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{
			Items: []service.CartLine{{ItemID: phone.ID, Quantity: 1}},
			Total: 50000,
		}, actor)
		require.NoError(t, err)

		assert.Equal(t, model.Processing, order.Status)
		assert.Nil(t, order.BillID)
		assert.Equal(t, 9, f.stock(t, phone))

		_, err = f.bills.GetBillByOrder(ctx, order.ID, actor)
		assert.ErrorIs(t, err, model.ErrBillNotFound)

		assert.Equal(t, 1, f.observer.billFailures)
		assert.Equal(t, 1, f.dispatcher.Count("BillGenerationFailed"))
		require.NotNil(t, f.logs.LastEntry())
		assert.Equal(t, logrus.ErrorLevel, f.logs.LastEntry().Level)
		assert.Equal(t, order.ID, f.logs.LastEntry().Data["order_id"])
	})

	t.Run("Panic", func(t *testing.T) {
		f := setup(t)
		f.billDB.panics = true
		phone := f.addItem(t, model.Product, "Phone", 50000, 10)

		order, err := f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{
			Items: []service.CartLine{{ItemID: phone.ID, Quantity: 1}},
			Total: 50000,
		}, buyer())
		require.NoError(t, err)
		assert.Nil(t, order.BillID)
		assert.Equal(t, 1, f.observer.billFailures)
	})
}

func TestPlaceOrderUnknownItemMutatesNothing(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	phone := f.addItem(t, model.Product, "Phone", 50000, 10)
	actor := buyer()

	_, err := f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{
		Items: []service.CartLine{
			{ItemID: phone.ID, Quantity: 2},
			{ItemID: uuid.New(), Quantity: 1},
		},
		Total: 100000,
	}, actor)
	assert.ErrorIs(t, err, model.ErrCatalogItemNotFound)

	assert.Equal(t, 10, f.stock(t, phone))
	orders, _ := f.orders.ListOrders(ctx, actor)
	assert.Empty(t, orders)
	assert.Equal(t, []string{service.OutcomeRejected}, f.observer.outcomes)
}

func TestPlaceOrderValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	phone := f.addItem(t, model.Product, "Phone", 50000, 10)

	cases := map[string]struct {
		req  service.PlaceOrderRequest
		want error
	}{
		"Empty cart": {
			req:  service.PlaceOrderRequest{},
			want: model.ErrEmptyCart,
		},
		"Zero quantity": {
			req:  service.PlaceOrderRequest{Items: []service.CartLine{{ItemID: phone.ID}}},
			want: model.ErrInvalidQuantity,
		},
		"Missing item": {
			req:  service.PlaceOrderRequest{Items: []service.CartLine{{Quantity: 1}}},
			want: model.ErrInvalidCartItem,
		},
		"Unknown variant": {
			req:  service.PlaceOrderRequest{Items: []service.CartLine{{ItemID: phone.ID, Quantity: 1, Variant: "gadget"}}},
			want: model.ErrInvalidVariant,
		},
		"Negative total": {
			req:  service.PlaceOrderRequest{Items: []service.CartLine{{ItemID: phone.ID, Quantity: 1}}, Total: -1},
			want: model.ErrNegativeAmount,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.checkout.PlaceOrder(ctx, tc.req, buyer())
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
	assert.Equal(t, 10, f.stock(t, phone))
}

func TestPlaceOrderVerifyTotal(t *testing.T) {
	ctx := context.Background()
	f := setup(t, withConfig(service.Config{
		Consistency:    service.ConsistencyCompensation,
		VerifyTotal:    true,
		TotalTolerance: 100,
	}))
	phone := f.addItem(t, model.Product, "Phone", 50000, 10)
	line := []service.CartLine{{ItemID: phone.ID, Quantity: 2}}

	_, err := f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{Items: line, Total: 1}, buyer())
	assert.ErrorIs(t, err, model.ErrTotalMismatch)
	assert.Equal(t, 10, f.stock(t, phone))

	_, err = f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{Items: line, Total: 99950}, buyer())
	require.NoError(t, err)
	assert.Equal(t, 8, f.stock(t, phone))
}

func TestPlaceOrderCompensation(t *testing.T) {
	ctx := context.Background()
	f := setup(t, withFailingOrders())
	phone := f.addItem(t, model.Product, "Phone", 50000, 10)
	cover := f.addItem(t, model.Accessory, "Cover", 999, 4)

	_, err := f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{
		Items: []service.CartLine{
			{ItemID: phone.ID, Quantity: 2},
			{ItemID: cover.ID, Quantity: 1, Variant: model.Accessory},
		},
		Total: 100999,
	}, buyer())
	require.ErrorIs(t, err, errStorageDown)

	assert.Equal(t, 10, f.stock(t, phone))
	assert.Equal(t, 4, f.stock(t, cover))
	assert.Equal(t, 1, f.observer.compensations)
	assert.Equal(t, 0, f.tx.calls)
	assert.Equal(t, []string{service.OutcomeFailed}, f.observer.outcomes)

	entries, _ := f.catalogDB.ListInventoryLog(ctx, model.Product, phone.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, model.InventorySold, entries[0].Action)
	assert.Equal(t, model.InventoryReturn, entries[1].Action)
}

func TestPlaceOrderCompensationReturnsOnlyTakenUnits(t *testing.T) {
	ctx := context.Background()
	f := setup(t, withFailingOrders())
	phone := f.addItem(t, model.Product, "Phone", 50000, 1)
	cover := f.addItem(t, model.Accessory, "Cover", 999, 0)

	_, err := f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{
		Items: []service.CartLine{
			{ItemID: phone.ID, Quantity: 3},
			{ItemID: cover.ID, Quantity: 2},
		},
		Total: 151998,
	}, buyer())
	require.ErrorIs(t, err, errStorageDown)

	assert.Equal(t, 1, f.stock(t, phone))
	assert.Equal(t, 0, f.stock(t, cover))
	// The cover line took nothing, so only the phone line is reversed.
	assert.Equal(t, 1, f.observer.compensatedLines)

	entries, _ := f.catalogDB.ListInventoryLog(ctx, model.Product, phone.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, model.InventorySold, entries[0].Action)
	assert.Equal(t, 1, entries[0].Quantity)
	assert.Equal(t, model.InventoryReturn, entries[1].Action)
	assert.Equal(t, 1, entries[1].Quantity)

	assert.Zero(t, f.dispatcher.Count("StockChanged"), "reversed changes are not published")
}

func TestPlaceOrderPublishesStockEventsAfterCommit(t *testing.T) {
	ctx := context.Background()
	f := setup(t, withConfig(service.Config{Consistency: service.ConsistencyTransaction}))
	phone := f.addItem(t, model.Product, "Phone", 50000, 10)
	cover := f.addItem(t, model.Accessory, "Cover", 999, 4)

	inside := -1
	f.tx.beforeCommit = func() { inside = f.dispatcher.Count("StockChanged") }

	_, err := f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{
		Items: []service.CartLine{
			{ItemID: phone.ID, Quantity: 1},
			{ItemID: cover.ID, Quantity: 1},
		},
		Total: 50999,
	}, buyer())
	require.NoError(t, err)

	assert.Equal(t, 0, inside)
	assert.Equal(t, 2, f.dispatcher.Count("StockChanged"))
}

func TestPlaceOrderDropsEventsOfRolledBackTransaction(t *testing.T) {
	ctx := context.Background()
	f := setup(t, withFailingOrders(), withConfig(service.Config{Consistency: service.ConsistencyTransaction}))
	phone := f.addItem(t, model.Product, "Phone", 50000, 10)

	_, err := f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{
		Items: []service.CartLine{{ItemID: phone.ID, Quantity: 1}},
		Total: 50000,
	}, buyer())
	require.ErrorIs(t, err, errStorageDown)
	assert.Zero(t, f.dispatcher.Count("StockChanged"))
	assert.Zero(t, f.dispatcher.Count("OrderPlaced"))
}

func TestPlaceOrderLogsDispatchFailure(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.dispatcher.failOn = "OrderPlaced"
	phone := f.addItem(t, model.Product, "Phone", 50000, 10)

	order, err := f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{
		Items: []service.CartLine{{ItemID: phone.ID, Quantity: 1}},
		Total: 50000,
	}, buyer())
	require.NoError(t, err)
	require.NotNil(t, order.BillID)

	var warned bool
	for _, entry := range f.logs.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Data["event"] == "OrderPlaced" {
			warned = true
			assert.Equal(t, order.ID, entry.Data["order_id"])
		}
	}
	assert.True(t, warned, "dispatch failure is logged")
}

func TestPlaceOrderTransaction(t *testing.T) {
	ctx := context.Background()
	f := setup(t, withFailingOrders(), withConfig(service.Config{Consistency: service.ConsistencyTransaction}))
	phone := f.addItem(t, model.Product, "Phone", 50000, 10)

	_, err := f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{
		Items: []service.CartLine{{ItemID: phone.ID, Quantity: 2}},
		Total: 100000,
	}, buyer())
	require.ErrorIs(t, err, errStorageDown)

	assert.Equal(t, 1, f.tx.calls)
	// Rollback belongs to the transactor; no restock is issued.
	assert.Equal(t, 0, f.observer.compensations)
}

func TestConcurrentCheckoutOnLastUnit(t *testing.T) {
	ctx := context.Background()

	run := func(t *testing.T, f *fixture, item *model.CatalogItem) []error {
		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{
					Items: []service.CartLine{{ItemID: item.ID, Quantity: 1}},
					Total: item.Price,
				}, buyer())
			}(i)
		}
		wg.Wait()
		return errs
	}

	t.Run("Strict rejects one buyer", func(t *testing.T) {
		f := setup(t, withPolicy(model.StrictStock))
		phone := f.addItem(t, model.Product, "Phone", 50000, 1)

		errs := run(t, f, phone)

		failed := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, model.ErrInsufficientStock)
				failed++
			}
		}
		assert.Equal(t, 1, failed)
		assert.Equal(t, 0, f.stock(t, phone))
	})

	t.Run("Permissive oversells and clamps at zero", func(t *testing.T) {
		f := setup(t, withPolicy(model.PermissiveStock))
		phone := f.addItem(t, model.Product, "Phone", 50000, 1)

		errs := run(t, f, phone)

		for _, err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, 0, f.stock(t, phone))
	})
}

func TestCreateMissingBills(t *testing.T) {
	ctx := context.Background()
	f := setup(t, withFailingBills())
	phone := f.addItem(t, model.Product, "Phone", 50000, 10)
	actor := buyer()

	var placed []uuid.UUID
	for i := 0; i < 3; i++ {
		order, err := f.checkout.PlaceOrder(ctx, service.PlaceOrderRequest{
			Items: []service.CartLine{{ItemID: phone.ID, Quantity: 1}},
			Total: 50000,
		}, actor)
		require.NoError(t, err)
		require.Nil(t, order.BillID)
		placed = append(placed, order.ID)
	}

	f.billDB.Heal()

	t.Run("Single order", func(t *testing.T) {
		bill, err := f.checkout.CreateBillForOrder(ctx, placed[0])
		require.NoError(t, err)
		assert.Equal(t, placed[0], bill.OrderID)
		assert.Equal(t, actor.ID, bill.UserID)

		again, err := f.checkout.CreateBillForOrder(ctx, placed[0])
		require.NoError(t, err)
		assert.Equal(t, bill.ID, again.ID)
	})

	t.Run("All remaining", func(t *testing.T) {
		results, err := f.checkout.CreateMissingBills(ctx)
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, r := range results {
			assert.NoError(t, r.Err)
			require.NotNil(t, r.Bill)
		}

		unbilled, err := f.orders.ListUnbilledOrders(ctx)
		require.NoError(t, err)
		assert.Empty(t, unbilled)
	})

	t.Run("Unknown order", func(t *testing.T) {
		_, err := f.checkout.CreateBillForOrder(ctx, uuid.New())
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})
}
