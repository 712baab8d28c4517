package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gobihapalanivel/VendorPulse/internal/models"
	"github.com/gobihapalanivel/VendorPulse/internal/upstream"
	"github.com/gobihapalanivel/VendorPulse/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrEmptyCart is returned when no cart entry references a known part.
var ErrEmptyCart = errors.New("no valid line items in cart")

// ErrBatchFailed marks a batch where at least one per-supplier order was
// rejected upstream. Already-created orders are not rolled back; the
// journal records what happened.
var ErrBatchFailed = errors.New("one or more orders failed")

// CartEntry is one line of the order form: a part reference with a
// quantity and an agreed price.
type CartEntry struct {
	PartID      int64           `json:"spare_part"`
	Quantity    int             `json:"quantity"`
	AgreedPrice decimal.Decimal `json:"agreed_price"`
}

// ComposeInput is a full cart to be split into per-supplier orders.
type ComposeInput struct {
	Reference            string      `json:"po_reference_number" binding:"required"`
	OrderDate            string      `json:"order_date" binding:"required"`
	ExpectedDeliveryDate string      `json:"expected_delivery_date" binding:"required"`
	Entries              []CartEntry `json:"items" binding:"required,min=1"`
}

// OrderDraft is one per-supplier order ready to submit.
type OrderDraft struct {
	Reference   string
	SupplierID  int64
	Items       []upstream.OrderItemPayload
	TotalAmount decimal.Decimal
}

// lineSubtotal coerces a missing or non-positive quantity to zero rather
// than rejecting the entry, matching the order form's behavior.
func lineSubtotal(qty int, price decimal.Decimal) decimal.Decimal {
	if qty <= 0 {
		return decimal.Zero
	}
	return price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// Compose partitions cart entries by the owning supplier of each
// referenced part and drafts one order per supplier. Entries without a
// part reference, or referencing an unknown part, are discarded. Groups
// keep the order suppliers first appear in the cart; when more than one
// group results, each draft reference gets a 1-based -N suffix so every
// supplier's order is distinct.
func Compose(in ComposeInput, partsByID map[int64]models.Part) []OrderDraft {
	var supplierOrder []int64
	grouped := make(map[int64][]upstream.OrderItemPayload)
	totals := make(map[int64]decimal.Decimal)

	for _, entry := range in.Entries {
		if entry.PartID == 0 {
			continue
		}
		part, ok := partsByID[entry.PartID]
		if !ok {
			continue
		}

		subtotal := lineSubtotal(entry.Quantity, entry.AgreedPrice)
		if _, seen := grouped[part.SupplierID]; !seen {
			supplierOrder = append(supplierOrder, part.SupplierID)
			totals[part.SupplierID] = decimal.Zero
		}
		grouped[part.SupplierID] = append(grouped[part.SupplierID], upstream.OrderItemPayload{
			PartID:      entry.PartID,
			Quantity:    entry.Quantity,
			AgreedPrice: entry.AgreedPrice,
			Subtotal:    subtotal,
		})
		totals[part.SupplierID] = totals[part.SupplierID].Add(subtotal)
	}

	drafts := make([]OrderDraft, 0, len(supplierOrder))
	for i, supplierID := range supplierOrder {
		reference := in.Reference
		if len(supplierOrder) > 1 {
			reference = fmt.Sprintf("%s-%d", in.Reference, i+1)
		}
		drafts = append(drafts, OrderDraft{
			Reference:   reference,
			SupplierID:  supplierID,
			Items:       grouped[supplierID],
			TotalAmount: totals[supplierID],
		})
	}
	return drafts
}

// GroupResult is the settled outcome of one per-supplier submission.
type GroupResult struct {
	Reference   string          `json:"reference"`
	SupplierID  int64           `json:"supplier_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OrderID     int64           `json:"order_id,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// BatchResult is the settled outcome of a whole composed cart.
type BatchResult struct {
	BatchID string        `json:"batch_id"`
	Status  string        `json:"status"`
	Created int           `json:"created"`
	Failed  int           `json:"failed"`
	Groups  []GroupResult `json:"groups"`
}

// Journal records composed batches and their per-supplier submissions.
// Satisfied by *store.Store.
type Journal interface {
	CreateBatch(ctx context.Context, batch *models.Batch) error
	UpdateBatchStatus(ctx context.Context, batchID, status string) error
	RecordSubmission(ctx context.Context, sub *models.Submission) error
	GetBatchByID(ctx context.Context, batchID string) (*models.Batch, error)
	GetSubmissionsByBatch(ctx context.Context, batchID string) ([]models.Submission, error)
}

// BatchEvents publishes the batch lifecycle events. Satisfied by
// *broker.EventPublisher.
type BatchEvents interface {
	PublishBatchSubmitted(ctx context.Context, event *models.BatchSubmittedEvent) error
	PublishGroupCreated(ctx context.Context, event *models.GroupCreatedEvent) error
	PublishGroupFailed(ctx context.Context, event *models.GroupFailedEvent) error
	PublishBatchCompleted(ctx context.Context, event *models.BatchCompletedEvent) error
}

// ComposerService splits carts into per-supplier purchase orders and
// submits them concurrently, journaling every outcome.
type ComposerService struct {
	upstream *upstream.Client
	journal  Journal
	events   BatchEvents
	logger   *zap.Logger
}

// NewComposerService creates a new composer service
func NewComposerService(
	upstreamClient *upstream.Client,
	journal Journal,
	events BatchEvents,
) *ComposerService {
	return &ComposerService{
		upstream: upstreamClient,
		journal:  journal,
		events:   events,
		logger:   util.GetLogger(),
	}
}

// Submit composes the cart and issues all per-supplier orders at once,
// waiting for every one to settle. Any failure yields ErrBatchFailed
// with one combined message; created orders stand.
func (c *ComposerService) Submit(ctx context.Context, session *upstream.Session, in ComposeInput) (*BatchResult, error) {
	ctx, span := util.StartSpan(ctx, "ComposerService.Submit")
	defer span.End()

	parts, err := c.upstream.ListParts(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	partsByID := make(map[int64]models.Part, len(parts))
	for _, p := range parts {
		partsByID[p.PartID] = p
	}

	drafts := Compose(in, partsByID)
	if len(drafts) == 0 {
		return nil, ErrEmptyCart
	}

	batch := &models.Batch{
		BatchID:       uuid.New().String(),
		BaseReference: in.Reference,
		GroupCount:    len(drafts),
		Status:        models.BatchStatusPending,
	}
	if err := c.journal.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to journal batch: %w", err)
	}

	util.BatchesSubmittedTotal.Inc()
	if len(drafts) > 1 {
		util.MultiVendorSplitsTotal.Inc()
		c.logger.Info("Cart spans multiple suppliers, splitting",
			zap.String("batch_id", batch.BatchID),
			zap.Int("groups", len(drafts)))
	}

	submittedEvent := &models.BatchSubmittedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeBatchSubmitted),
		BatchID:       batch.BatchID,
		BaseReference: in.Reference,
		GroupCount:    len(drafts),
	}
	if err := c.events.PublishBatchSubmitted(ctx, submittedEvent); err != nil {
		c.logger.Error("Failed to publish BatchSubmitted event", zap.Error(err))
	}

	// Fire all group submissions, then wait for all to settle. There is
	// no ordering guarantee among them and no partial-success recovery.
	results := make([]GroupResult, len(drafts))
	var wg sync.WaitGroup
	for i, draft := range drafts {
		wg.Add(1)
		go func(i int, draft OrderDraft) {
			defer wg.Done()
			results[i] = c.submitGroup(ctx, session, batch.BatchID, draft, in)
		}(i, draft)
	}
	wg.Wait()

	result := &BatchResult{BatchID: batch.BatchID, Groups: results}
	var failedRefs []string
	for _, r := range results {
		if r.Error == "" {
			result.Created++
		} else {
			result.Failed++
			failedRefs = append(failedRefs, r.Reference)
		}
	}

	switch {
	case result.Failed == 0:
		result.Status = models.BatchStatusCompleted
	case result.Created == 0:
		result.Status = models.BatchStatusFailed
	default:
		result.Status = models.BatchStatusPartial
	}

	if err := c.journal.UpdateBatchStatus(ctx, batch.BatchID, result.Status); err != nil {
		c.logger.Error("Failed to settle batch in journal",
			zap.String("batch_id", batch.BatchID),
			zap.Error(err))
	}

	completedEvent := &models.BatchCompletedEvent{
		BaseEvent: newBaseEvent(models.EventTypeBatchCompleted),
		BatchID:   batch.BatchID,
		Status:    result.Status,
		Created:   result.Created,
		Failed:    result.Failed,
	}
	if err := c.events.PublishBatchCompleted(ctx, completedEvent); err != nil {
		c.logger.Error("Failed to publish BatchCompleted event", zap.Error(err))
	}

	if result.Failed > 0 {
		return result, fmt.Errorf("%w: %d of %d orders failed (%s)",
			ErrBatchFailed, result.Failed, len(drafts), strings.Join(failedRefs, ", "))
	}
	return result, nil
}

func (c *ComposerService) submitGroup(ctx context.Context, session *upstream.Session, batchID string, draft OrderDraft, in ComposeInput) GroupResult {
	result := GroupResult{
		Reference:   draft.Reference,
		SupplierID:  draft.SupplierID,
		TotalAmount: draft.TotalAmount,
	}

	payload := &upstream.CreateOrderPayload{
		Reference:            draft.Reference,
		SupplierID:           draft.SupplierID,
		OrderDate:            in.OrderDate,
		ExpectedDeliveryDate: in.ExpectedDeliveryDate,
		Items:                draft.Items,
		TotalAmount:          draft.TotalAmount,
	}

	sub := &models.Submission{
		BatchID:     batchID,
		Reference:   draft.Reference,
		SupplierID:  draft.SupplierID,
		TotalAmount: draft.TotalAmount,
	}

	order, err := c.upstream.CreatePurchaseOrder(ctx, session, payload)
	if err != nil {
		result.Error = err.Error()
		sub.Outcome = models.SubmissionFailed
		sub.Error = err.Error()
		util.GroupsFailedTotal.WithLabelValues(failureReason(err)).Inc()

		failedEvent := &models.GroupFailedEvent{
			BaseEvent:  newBaseEvent(models.EventTypeGroupFailed),
			BatchID:    batchID,
			Reference:  draft.Reference,
			SupplierID: draft.SupplierID,
			Reason:     err.Error(),
		}
		if pubErr := c.events.PublishGroupFailed(ctx, failedEvent); pubErr != nil {
			c.logger.Error("Failed to publish GroupFailed event", zap.Error(pubErr))
		}
	} else {
		result.OrderID = order.OrderID
		sub.Outcome = models.SubmissionCreated
		util.GroupsCreatedTotal.Inc()

		createdEvent := &models.GroupCreatedEvent{
			BaseEvent:   newBaseEvent(models.EventTypeGroupCreated),
			BatchID:     batchID,
			Reference:   draft.Reference,
			SupplierID:  draft.SupplierID,
			TotalAmount: draft.TotalAmount,
		}
		if pubErr := c.events.PublishGroupCreated(ctx, createdEvent); pubErr != nil {
			c.logger.Error("Failed to publish GroupCreated event", zap.Error(pubErr))
		}
	}

	if err := c.journal.RecordSubmission(ctx, sub); err != nil {
		c.logger.Error("Failed to journal submission",
			zap.String("batch_id", batchID),
			zap.String("reference", draft.Reference),
			zap.Error(err))
	}

	return result
}

// Batch looks up a journaled batch with its submissions.
func (c *ComposerService) Batch(ctx context.Context, batchID string) (*models.Batch, []models.Submission, error) {
	batch, err := c.journal.GetBatchByID(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}
	subs, err := c.journal.GetSubmissionsByBatch(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}
	return batch, subs, nil
}

func failureReason(err error) string {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("http_%d", apiErr.StatusCode)
	}
	return "transport"
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
