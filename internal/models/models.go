package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Vendor is a supplier record as served by the procurement backend,
// flattened together with its latest reliability score.
type Vendor struct {
	SupplierID     int64   `json:"supplier_id"`
	SupplierName   string  `json:"supplier_name"`
	ContactEmail   string  `json:"contact_email"`
	PhoneNumber    string  `json:"phone_number"`
	Address        string  `json:"address"`
	IsActive       bool    `json:"is_active"`
	Score          float64 `json:"score"`
	OnTimeRate     float64 `json:"on_time_rate"`
	CompletionRate float64 `json:"completion_rate"`
	AvgApprovalHrs float64 `json:"avg_approval_hours"`
}

// Part is a catalog item owned by exactly one supplier. SKU uniqueness
// is enforced by the backend; we only surface the resulting error.
type Part struct {
	PartID       int64           `json:"part_id"`
	PartName     string          `json:"part_name"`
	SKUCode      string          `json:"sku_code"`
	Description  string          `json:"description"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	CurrentStock int             `json:"current_stock"`
	SupplierID   int64           `json:"supplier"`
}

// PurchaseOrder mirrors the backend's purchase order resource.
type PurchaseOrder struct {
	OrderID              int64               `json:"order_id"`
	Reference            string              `json:"po_reference_number"`
	SupplierID           int64               `json:"supplier"`
	OrderDate            string              `json:"order_date"`
	ExpectedDeliveryDate string              `json:"expected_delivery_date"`
	Items                []PurchaseOrderItem `json:"items"`
	TotalAmount          decimal.Decimal     `json:"total_amount"`
	Status               string              `json:"status"`
	ApprovedAt           *time.Time          `json:"approved_at,omitempty"`
	DeliveredAt          *time.Time          `json:"delivered_at,omitempty"`
}

// PurchaseOrderItem is one line of a purchase order.
type PurchaseOrderItem struct {
	PartID      int64           `json:"spare_part"`
	Quantity    int             `json:"quantity"`
	AgreedPrice decimal.Decimal `json:"agreed_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Purchase order statuses as the backend spells them.
const (
	OrderStatusPending   = "Pending"
	OrderStatusApproved  = "Approved"
	OrderStatusRejected  = "Rejected"
	OrderStatusDelivered = "Delivered"
	OrderStatusCancelled = "Cancelled"
)

// Invoice references a purchase order; flat record, no derived logic.
type Invoice struct {
	InvoiceID     int64           `json:"invoice_id"`
	OrderID       int64           `json:"purchase_order"`
	InvoiceNumber string          `json:"invoice_number"`
	IssueDate     string          `json:"issue_date"`
	DueDate       string          `json:"due_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        string          `json:"status"`
}

// Payment references a purchase order; flat record, no derived logic.
type Payment struct {
	PaymentID     int64           `json:"payment_id"`
	SupplierID    int64           `json:"supplier"`
	OrderID       int64           `json:"purchase_order"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   string          `json:"payment_date"`
	PaymentMethod string          `json:"payment_method"`
	Reference     string          `json:"reference_number"`
}

// Notification types tagged by the backend.
const (
	NotificationLowStock      = "LOW_STOCK"
	NotificationOrderApproved = "ORDER_APPROVED"
	NotificationPaymentDue    = "PAYMENT_DUE"
)

// Notification is a per-user message from the backend. Dismissal is a
// local hide only; the backend record is never deleted.
type Notification struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Role is the closed set of dashboard roles.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleOperations Role = "OPS"
	RoleVendor     Role = "VENDOR"
)

// ParseRole maps the backend's role string to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleOperations, RoleVendor:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// User is the authenticated account as reported by the backend.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Batch journal statuses.
const (
	BatchStatusPending   = "PENDING"
	BatchStatusCompleted = "COMPLETED"
	BatchStatusPartial   = "PARTIAL"
	BatchStatusFailed    = "FAILED"
)

// Submission outcomes within a batch.
const (
	SubmissionCreated = "CREATED"
	SubmissionFailed  = "FAILED"
)

// Batch is one multi-vendor order composition recorded in the journal.
type Batch struct {
	BatchID       string    `db:"batch_id" json:"batch_id"`
	BaseReference string    `db:"base_reference" json:"base_reference"`
	GroupCount    int       `db:"group_count" json:"group_count"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Submission is one per-supplier order issued out of a batch.
type Submission struct {
	ID          int64           `db:"id" json:"id"`
	BatchID     string          `db:"batch_id" json:"batch_id"`
	Reference   string          `db:"reference" json:"reference"`
	SupplierID  int64           `db:"supplier_id" json:"supplier_id"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	Outcome     string          `db:"outcome" json:"outcome"`
	Error       string          `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
