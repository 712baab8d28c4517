package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeBatchSubmitted    = "PO_BATCH_SUBMITTED"
	EventTypeGroupCreated      = "PO_GROUP_CREATED"
	EventTypeGroupFailed       = "PO_GROUP_FAILED"
	EventTypeBatchCompleted    = "PO_BATCH_COMPLETED"
	EventTypeScoresRecalculate = "SCORES_RECALCULATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BatchSubmittedEvent published when a composed cart is fanned out
type BatchSubmittedEvent struct {
	BaseEvent
	BatchID       string `json:"batch_id"`
	BaseReference string `json:"base_reference"`
	GroupCount    int    `json:"group_count"`
}

// GroupCreatedEvent published when one per-supplier order is accepted upstream
type GroupCreatedEvent struct {
	BaseEvent
	BatchID     string          `json:"batch_id"`
	Reference   string          `json:"reference"`
	SupplierID  int64           `json:"supplier_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// GroupFailedEvent published when one per-supplier order is rejected upstream
type GroupFailedEvent struct {
	BaseEvent
	BatchID    string `json:"batch_id"`
	Reference  string `json:"reference"`
	SupplierID int64  `json:"supplier_id"`
	Reason     string `json:"reason"`
}

// BatchCompletedEvent published after every group of a batch has settled
type BatchCompletedEvent struct {
	BaseEvent
	BatchID string `json:"batch_id"`
	Status  string `json:"status"`
	Created int    `json:"created"`
	Failed  int    `json:"failed"`
}

// ScoresRecalculatedEvent published after an admin-triggered recalculation
type ScoresRecalculatedEvent struct {
	BaseEvent
	TriggeredBy string `json:"triggered_by"`
}
