package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second), srv
}

func TestListSuppliersAttachesBearer(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/vendor/suppliers/", r.URL.Path)
		w.Write([]byte(`[{"supplier_id":1,"supplier_name":"Northline Components","score":86.4}]`))
	})

	vendors, err := client.ListSuppliers(context.Background(), NewSession("tok-123"))

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	require.Len(t, vendors, 1)
	assert.Equal(t, "Northline Components", vendors[0].SupplierName)
}

func TestListSuppliersNonArrayIsEmpty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detail":"throttled"}`))
	})

	vendors, err := client.ListSuppliers(context.Background(), NewSession("tok"))

	require.NoError(t, err)
	assert.Empty(t, vendors)
}

func TestNoSession(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach upstream")
	})

	_, err := client.ListSuppliers(context.Background(), NewSession(""))
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = client.ListSuppliers(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestErrorBodySurfaced(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"sku_code":["spare part with this sku code already exists."]}`))
	})

	_, err := client.ListParts(context.Background(), NewSession("tok"))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "already exists")
}

func TestErrorFallsBackToStatusText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListParts(context.Background(), NewSession("tok"))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Bad Gateway", apiErr.Error())
}

func TestUnauthorizedClearsSession(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	session := NewSession("expired")
	_, err := client.ListSuppliers(context.Background(), session)

	require.Error(t, err)
	assert.False(t, session.Valid())
}

func TestConcurrentCallsOnExpiredSession(t *testing.T) {
	// A batch fan-out shares one session across goroutines; a 401 clearing
	// the token must not race sibling calls attaching it.
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	session := NewSession("expired")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.ListSuppliers(context.Background(), session)
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, session.Valid())
}

func TestCreatePurchaseOrderPayload(t *testing.T) {
	var got map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/vendor/purchase-orders/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"order_id":42,"po_reference_number":"PO-9-1","status":"Pending"}`))
	})

	payload := &CreateOrderPayload{
		Reference:            "PO-9-1",
		SupplierID:           7,
		OrderDate:            "2026-08-27",
		ExpectedDeliveryDate: "2026-09-10",
		Items: []OrderItemPayload{
			{PartID: 101, Quantity: 2, AgreedPrice: decimal.NewFromInt(10), Subtotal: decimal.NewFromInt(20)},
		},
		TotalAmount: decimal.NewFromInt(20),
	}

	order, err := client.CreatePurchaseOrder(context.Background(), NewSession("tok"), payload)

	require.NoError(t, err)
	assert.Equal(t, int64(42), order.OrderID)
	assert.Equal(t, "PO-9-1", got["po_reference_number"])
	assert.Equal(t, float64(7), got["supplier"])
	items, ok := got["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
}

func TestOrderActionPath(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"status":"Approved"}`))
	})

	err := client.OrderAction(context.Background(), NewSession("tok"), 42, OrderActionApprove)

	require.NoError(t, err)
	assert.Equal(t, "/api/vendor/purchase-orders/42/approve/", gotPath)
}
