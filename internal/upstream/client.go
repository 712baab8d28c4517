package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gobihapalanivel/VendorPulse/internal/models"
	"github.com/gobihapalanivel/VendorPulse/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNoSession is returned when a call is attempted without a bearer token.
var ErrNoSession = errors.New("no session: missing bearer token")

// Session carries the bearer credential for one user's calls to the
// procurement backend. It is acquired from the incoming request, attached
// to every outgoing call, and cleared on logout or rejection; it is never
// stored globally. One session is shared by the goroutines of a fanned-out
// batch, so the token is guarded.
type Session struct {
	mu    sync.RWMutex
	token string
}

// NewSession creates a session from a bearer token.
func NewSession(token string) *Session {
	return &Session{token: token}
}

// Valid reports whether the session holds a credential.
func (s *Session) Valid() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Clear drops the credential.
func (s *Session) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

func (s *Session) attach(req *http.Request) error {
	if s == nil {
		return ErrNoSession
	}
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return ErrNoSession
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// APIError is a non-2xx response from the procurement backend. The body
// text is surfaced to the user where available.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return http.StatusText(e.StatusCode)
}

// Client calls the external procurement REST API. All list endpoints are
// expected to return JSON arrays; anything else is treated as an empty
// list.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for the procurement backend.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  util.GetLogger(),
	}
}

func (c *Client) do(ctx context.Context, s *Session, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if err := s.attach(req); err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		util.UpstreamRequestDuration.WithLabelValues(path, "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	util.UpstreamRequestDuration.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		s.Clear()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Upstream returned non-success status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}

	return respBody, nil
}

// getList fetches a list endpoint into out, tolerating non-array bodies.
func (c *Client) getList(ctx context.Context, s *Session, path string, out interface{}) error {
	body, err := c.do(ctx, s, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		// Non-array response is defensively treated as an empty list.
		return nil
	}
	return json.Unmarshal(trimmed, out)
}

// CurrentUser fetches the authenticated account.
func (c *Client) CurrentUser(ctx context.Context, s *Session) (*models.User, error) {
	body, err := c.do(ctx, s, http.MethodGet, "/api/accounts/user/", nil)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

// ListSuppliers fetches all vendors with their latest scores.
func (c *Client) ListSuppliers(ctx context.Context, s *Session) ([]models.Vendor, error) {
	vendors := []models.Vendor{}
	if err := c.getList(ctx, s, "/api/vendor/suppliers/", &vendors); err != nil {
		return nil, err
	}
	return vendors, nil
}

// ListParts fetches the full catalog.
func (c *Client) ListParts(ctx context.Context, s *Session) ([]models.Part, error) {
	parts := []models.Part{}
	if err := c.getList(ctx, s, "/api/vendor/parts/", &parts); err != nil {
		return nil, err
	}
	return parts, nil
}

// ListNotifications fetches the user's notifications.
func (c *Client) ListNotifications(ctx context.Context, s *Session) ([]models.Notification, error) {
	notifications := []models.Notification{}
	if err := c.getList(ctx, s, "/api/accounts/notifications/", &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// ListInvoices fetches purchase invoices.
func (c *Client) ListInvoices(ctx context.Context, s *Session) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	if err := c.getList(ctx, s, "/api/vendor/purchase-invoices/", &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// ListPayments fetches supplier payments.
func (c *Client) ListPayments(ctx context.Context, s *Session) ([]models.Payment, error) {
	payments := []models.Payment{}
	if err := c.getList(ctx, s, "/api/vendor/supplier-payments/", &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// CreateOrderPayload is the order-creation request body in the backend's
// field naming.
type CreateOrderPayload struct {
	Reference            string             `json:"po_reference_number"`
	SupplierID           int64              `json:"supplier"`
	OrderDate            string             `json:"order_date"`
	ExpectedDeliveryDate string             `json:"expected_delivery_date"`
	Items                []OrderItemPayload `json:"items"`
	TotalAmount          decimal.Decimal    `json:"total_amount"`
}

// OrderItemPayload is one line item of a creation request.
type OrderItemPayload struct {
	PartID      int64           `json:"spare_part"`
	Quantity    int             `json:"quantity"`
	AgreedPrice decimal.Decimal `json:"agreed_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// CreatePurchaseOrder submits one per-supplier purchase order.
func (c *Client) CreatePurchaseOrder(ctx context.Context, s *Session, payload *CreateOrderPayload) (*models.PurchaseOrder, error) {
	body, err := c.do(ctx, s, http.MethodPost, "/api/vendor/purchase-orders/", payload)
	if err != nil {
		return nil, err
	}

	var order models.PurchaseOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to decode purchase order: %w", err)
	}
	return &order, nil
}

// Order lifecycle sub-actions on the backend.
const (
	OrderActionApprove   = "approve"
	OrderActionReject    = "reject"
	OrderActionDelivered = "delivered"
)

// OrderAction posts an approve/reject/delivered transition for an order.
func (c *Client) OrderAction(ctx context.Context, s *Session, orderID int64, action string) error {
	path := fmt.Sprintf("/api/vendor/purchase-orders/%d/%s/", orderID, action)
	_, err := c.do(ctx, s, http.MethodPost, path, nil)
	return err
}

// RecalculateScores triggers the backend's vendor score recalculation job.
func (c *Client) RecalculateScores(ctx context.Context, s *Session) error {
	_, err := c.do(ctx, s, http.MethodPost, "/api/vendor/vendor-scores/recalculate/", nil)
	return err
}
