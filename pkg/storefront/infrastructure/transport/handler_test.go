package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appservice "github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/application/service"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/service"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/infrastructure/memory"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(service.Event) error { return nil }

type requestCounter struct {
	names []string
}

func (c *requestCounter) ObserveRequest(handler string, _ int, _ time.Duration) {
	c.names = append(c.names, handler)
}

type server struct {
	http.Handler
	catalog  service.CatalogService
	requests *requestCounter
}

func newServer(t *testing.T) *server {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	dispatcher := nopDispatcher{}

	orderRepo := memory.NewOrderRepository()
	catalog := service.NewCatalogService(memory.NewCatalogRepository(), dispatcher, model.StrictStock)
	orders := service.NewOrderService(orderRepo, dispatcher)
	bills := service.NewBillService(memory.NewBillRepository(), orderRepo, dispatcher)
	checkout := appservice.NewCheckoutService(catalog, orders, bills, memory.Transactor{}, dispatcher, nil, logger,
		appservice.Config{Consistency: appservice.ConsistencyCompensation})

	requests := &requestCounter{}
	return &server{
		Handler:  Router(NewHandler(checkout, orders, bills, catalog, logger), requests, nil),
		catalog:  catalog,
		requests: requests,
	}
}

type caller struct {
	id   uuid.UUID
	role model.Role
}

var (
	alice = caller{id: uuid.New(), role: model.RoleUser}
	bob   = caller{id: uuid.New(), role: model.RoleUser}
	boss  = caller{id: uuid.New(), role: model.RoleAdmin}
)

func (s *server) do(t *testing.T, who *caller, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reader).Encode(body))
	}
	req := httptest.NewRequest(method, path, &reader)
	if who != nil {
		req.Header.Set(headerUserID, who.id.String())
		req.Header.Set(headerUserEmail, "user@example.com")
		req.Header.Set(headerUserName, "Test User")
		req.Header.Set(headerUserRole, string(who.role))
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func (s *server) seed(t *testing.T, variant model.Variant, price string, stock int) uuid.UUID {
	t.Helper()
	amount, err := model.ParseMoney(price)
	require.NoError(t, err)
	item, err := s.catalog.AddItem(context.Background(), variant, "Pixel 8", amount, stock)
	require.NoError(t, err)
	return item.ID
}

func placeBody(itemID uuid.UUID, quantity int) map[string]interface{} {
	return map[string]interface{}{
		"items":       []map[string]interface{}{{"product": itemID.String(), "quantity": quantity}},
		"total":       "1000.00",
		"address":     "221B Baker Street",
		"paymentInfo": map[string]string{"method": "card"},
	}
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func TestPlaceOrder(t *testing.T) {
	s := newServer(t)
	itemID := s.seed(t, model.Product, "500", 10)

	t.Run("creates order with bill", func(t *testing.T) {
		rec, body := s.do(t, &alice, http.MethodPost, "/api/v1/orders", placeBody(itemID, 2))
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, true, body["success"])

		order := data(t, body)
		assert.Equal(t, "Processing", order["status"])
		assert.NotEmpty(t, order["bill"])

		rec, body = s.do(t, &alice, http.MethodGet, "/api/v1/bills/order/"+order["id"].(string), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		bill := data(t, body)
		assert.Equal(t, 1000.0, bill["subtotal"])
		assert.Equal(t, 1000.0, bill["total"])
		assert.Equal(t, "Pending", bill["status"])

		item, err := s.catalog.GetItem(context.Background(), model.Product, itemID)
		require.NoError(t, err)
		assert.Equal(t, 8, item.Stock)
	})

	t.Run("requires authentication", func(t *testing.T) {
		rec, body := s.do(t, nil, http.MethodPost, "/api/v1/orders", placeBody(itemID, 1))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, false, body["success"])
	})

	t.Run("maps errors to status codes", func(t *testing.T) {
		cases := []struct {
			name   string
			body   interface{}
			status int
		}{
			{"empty cart", map[string]interface{}{"items": []interface{}{}, "total": 0}, http.StatusBadRequest},
			{"zero quantity", placeBody(itemID, 0), http.StatusBadRequest},
			{"bad item id", map[string]interface{}{"items": []map[string]interface{}{{"product": "nope", "quantity": 1}}}, http.StatusBadRequest},
			{"bad total", map[string]interface{}{"items": []map[string]interface{}{{"product": itemID.String(), "quantity": 1}}, "total": "abc"}, http.StatusBadRequest},
			{"unknown item", placeBody(uuid.New(), 1), http.StatusNotFound},
			{"insufficient stock", placeBody(itemID, 100), http.StatusConflict},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				rec, _ := s.do(t, &alice, http.MethodPost, "/api/v1/orders", tc.body)
				assert.Equal(t, tc.status, rec.Code)
			})
		}
	})
}

func TestOrderLifecycle(t *testing.T) {
	s := newServer(t)
	itemID := s.seed(t, model.Accessory, "250", 5)

	_, body := s.do(t, &alice, http.MethodPost, "/api/v1/orders", placeBody(itemID, 1))
	orderID := data(t, body)["id"].(string)

	rec, _ := s.do(t, &bob, http.MethodGet, "/api/v1/orders/"+orderID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, &alice, http.MethodDelete, "/api/v1/orders/"+orderID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, &alice, http.MethodPut, "/api/v1/orders/"+orderID+"/status", map[string]string{"status": "Shipped"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = s.do(t, &boss, http.MethodPut, "/api/v1/orders/"+orderID+"/status", map[string]string{"status": "Shipped"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Shipped", data(t, body)["status"])

	rec, _ = s.do(t, &alice, http.MethodPut, "/api/v1/orders/"+orderID+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, &alice, http.MethodPut, "/api/v1/orders/"+orderID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, &alice, http.MethodDelete, "/api/v1/orders/"+orderID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, &alice, http.MethodGet, "/api/v1/orders/"+orderID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBills(t *testing.T) {
	s := newServer(t)
	itemID := s.seed(t, model.Product, "500", 10)

	_, body := s.do(t, &alice, http.MethodPost, "/api/v1/orders", placeBody(itemID, 2))
	billID := data(t, body)["bill"].(string)

	t.Run("my bills", func(t *testing.T) {
		rec, body := s.do(t, &alice, http.MethodGet, "/api/v1/bills/my-bills", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, body["data"], 1)

		rec, body = s.do(t, &bob, http.MethodGet, "/api/v1/bills/my-bills", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, body["data"], 0)
	})

	t.Run("admin adjusts charges", func(t *testing.T) {
		rec, _ := s.do(t, &alice, http.MethodPut, "/api/v1/bills/"+billID, map[string]string{"tax": "10"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec, body := s.do(t, &boss, http.MethodPut, "/api/v1/bills/"+billID,
			map[string]string{"tax": "180", "shippingCost": "50", "discount": "30"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1200.0, data(t, body)["total"])
	})

	t.Run("admin updates status", func(t *testing.T) {
		rec, _ := s.do(t, &boss, http.MethodPatch, "/api/v1/bills/"+billID+"/status", map[string]string{"status": "Bogus"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec, body := s.do(t, &boss, http.MethodPatch, "/api/v1/bills/"+billID+"/status", map[string]string{"status": "Paid"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Paid", data(t, body)["status"])
	})

	t.Run("create bill is idempotent", func(t *testing.T) {
		orderID := data(t, body)["id"].(string)
		rec, created := s.do(t, &boss, http.MethodPost, "/api/v1/bills", map[string]string{"orderId": orderID})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, billID, data(t, created)["id"])

		rec, _ = s.do(t, &alice, http.MethodPost, "/api/v1/bills", map[string]string{"orderId": orderID})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("owner only", func(t *testing.T) {
		rec, _ := s.do(t, &bob, http.MethodGet, "/api/v1/bills/"+billID, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestCatalogRoutes(t *testing.T) {
	s := newServer(t)

	rec, _ := s.do(t, &alice, http.MethodPost, "/api/v1/catalog/product", map[string]interface{}{"name": "Case", "price": "99", "stock": 3})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := s.do(t, &boss, http.MethodPost, "/api/v1/catalog/accessory", map[string]interface{}{"name": "Case", "price": "99", "stock": 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	itemID := data(t, body)["id"].(string)
	path := "/api/v1/catalog/accessory/" + itemID

	rec, _ = s.do(t, nil, http.MethodGet, "/api/v1/catalog/product/"+itemID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, nil, http.MethodGet, "/api/v1/catalog/gadget/"+itemID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, &alice, http.MethodPost, path+"/reviews", map[string]interface{}{"rating": 6})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(t, &alice, http.MethodPost, path+"/reviews", map[string]interface{}{"rating": 4, "comment": "snug"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 4.0, data(t, body)["avgRating"])
	assert.Equal(t, 1.0, data(t, body)["reviewCount"])

	rec, _ = s.do(t, &alice, http.MethodPost, path+"/reviews", map[string]interface{}{"rating": 5})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = s.do(t, &boss, http.MethodPost, path+"/stock", map[string]interface{}{"delta": 7, "note": "delivery"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10.0, data(t, body)["stock"])

	rec, body = s.do(t, nil, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, data(t, body)["inStock"])

	rec, _ = s.do(t, &alice, http.MethodGet, path+"/inventory", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = s.do(t, &boss, http.MethodGet, path+"/inventory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries, ok := body["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]interface{})
	assert.Equal(t, "restock", entry["action"])
	assert.Equal(t, 7.0, entry["quantity"])
	assert.Equal(t, 10.0, entry["newStock"])
	assert.Equal(t, "delivery", entry["note"])

	assert.Contains(t, s.requests.names, "add_catalog_item")
	assert.Contains(t, s.requests.names, "get_catalog_item")
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec, body := s.do(t, nil, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}
