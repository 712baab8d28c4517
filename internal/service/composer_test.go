package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gobihapalanivel/VendorPulse/internal/models"
	"github.com/gobihapalanivel/VendorPulse/internal/upstream"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() map[int64]models.Part {
	return map[int64]models.Part{
		101: {PartID: 101, PartName: "Bearing", SupplierID: 1, UnitPrice: decimal.NewFromInt(10)},
		102: {PartID: 102, PartName: "Gasket", SupplierID: 1, UnitPrice: decimal.NewFromInt(5)},
		201: {PartID: 201, PartName: "Filter", SupplierID: 2, UnitPrice: decimal.NewFromInt(20)},
	}
}

func TestComposeSingleSupplierKeepsReference(t *testing.T) {
	in := ComposeInput{
		Reference: "PO-445566",
		Entries: []CartEntry{
			{PartID: 101, Quantity: 2, AgreedPrice: decimal.NewFromInt(10)},
			{PartID: 102, Quantity: 3, AgreedPrice: decimal.NewFromInt(5)},
		},
	}

	drafts := Compose(in, catalog())

	require.Len(t, drafts, 1)
	assert.Equal(t, "PO-445566", drafts[0].Reference)
	assert.Equal(t, int64(1), drafts[0].SupplierID)
	assert.True(t, drafts[0].TotalAmount.Equal(decimal.NewFromInt(35)),
		"total = %s", drafts[0].TotalAmount)
}

func TestComposeSplitsByOwningSupplier(t *testing.T) {
	in := ComposeInput{
		Reference: "PO-778899",
		Entries: []CartEntry{
			{PartID: 101, Quantity: 1, AgreedPrice: decimal.NewFromInt(10)},
			{PartID: 201, Quantity: 1, AgreedPrice: decimal.NewFromInt(20)},
			{PartID: 102, Quantity: 1, AgreedPrice: decimal.NewFromInt(5)},
		},
	}

	drafts := Compose(in, catalog())

	require.Len(t, drafts, 2)
	assert.Equal(t, "PO-778899-1", drafts[0].Reference)
	assert.Equal(t, "PO-778899-2", drafts[1].Reference)

	// Groups keep the order suppliers first appear in the cart.
	assert.Equal(t, int64(1), drafts[0].SupplierID)
	assert.Equal(t, int64(2), drafts[1].SupplierID)
	assert.Len(t, drafts[0].Items, 2)
	assert.Len(t, drafts[1].Items, 1)
}

func TestComposeEndToEndTotals(t *testing.T) {
	in := ComposeInput{
		Reference: "PO-1",
		Entries: []CartEntry{
			{PartID: 101, Quantity: 2, AgreedPrice: decimal.NewFromInt(10)},
			{PartID: 201, Quantity: 1, AgreedPrice: decimal.NewFromInt(20)},
		},
	}

	drafts := Compose(in, catalog())

	require.Len(t, drafts, 2)
	assert.True(t, drafts[0].TotalAmount.Equal(decimal.NewFromInt(20)))
	assert.True(t, drafts[1].TotalAmount.Equal(decimal.NewFromInt(20)))
}

func TestComposeDiscardsUnselectedEntries(t *testing.T) {
	in := ComposeInput{
		Reference: "PO-2",
		Entries: []CartEntry{
			{PartID: 0, Quantity: 5, AgreedPrice: decimal.NewFromInt(99)},
			{PartID: 999, Quantity: 5, AgreedPrice: decimal.NewFromInt(99)}, // unknown part
			{PartID: 101, Quantity: 1, AgreedPrice: decimal.NewFromInt(10)},
		},
	}

	drafts := Compose(in, catalog())

	require.Len(t, drafts, 1)
	assert.Len(t, drafts[0].Items, 1)
	assert.True(t, drafts[0].TotalAmount.Equal(decimal.NewFromInt(10)))
}

func TestComposeAllEntriesInvalid(t *testing.T) {
	in := ComposeInput{
		Reference: "PO-3",
		Entries:   []CartEntry{{PartID: 0, Quantity: 1}},
	}

	drafts := Compose(in, catalog())

	assert.Empty(t, drafts)
}

func TestComposeCoercesMissingNumericsToZero(t *testing.T) {
	// A zero quantity or price yields a zero subtotal, not an error.
	in := ComposeInput{
		Reference: "PO-4",
		Entries: []CartEntry{
			{PartID: 101, Quantity: 0, AgreedPrice: decimal.NewFromInt(10)},
			{PartID: 102, Quantity: 4}, // price absent
			{PartID: 201, Quantity: 2, AgreedPrice: decimal.NewFromInt(20)},
		},
	}

	drafts := Compose(in, catalog())

	require.Len(t, drafts, 2)
	assert.True(t, drafts[0].TotalAmount.Equal(decimal.Zero),
		"supplier 1 total = %s", drafts[0].TotalAmount)
	assert.True(t, drafts[1].TotalAmount.Equal(decimal.NewFromInt(40)))
}

func TestComposeSubtotalsPerLine(t *testing.T) {
	in := ComposeInput{
		Reference: "PO-5",
		Entries: []CartEntry{
			{PartID: 101, Quantity: 3, AgreedPrice: decimal.RequireFromString("2.50")},
		},
	}

	drafts := Compose(in, catalog())

	require.Len(t, drafts, 1)
	require.Len(t, drafts[0].Items, 1)
	assert.True(t, drafts[0].Items[0].Subtotal.Equal(decimal.RequireFromString("7.50")))
}

type journalStub struct {
	mu          sync.Mutex
	batch       *models.Batch
	status      string
	submissions []models.Submission
}

func (j *journalStub) CreateBatch(ctx context.Context, batch *models.Batch) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	b := *batch
	j.batch = &b
	return nil
}

func (j *journalStub) UpdateBatchStatus(ctx context.Context, batchID, status string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	return nil
}

func (j *journalStub) RecordSubmission(ctx context.Context, sub *models.Submission) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.submissions = append(j.submissions, *sub)
	return nil
}

func (j *journalStub) GetBatchByID(ctx context.Context, batchID string) (*models.Batch, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.batch == nil {
		return nil, fmt.Errorf("batch not found: %s", batchID)
	}
	return j.batch, nil
}

func (j *journalStub) GetSubmissionsByBatch(ctx context.Context, batchID string) ([]models.Submission, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.submissions, nil
}

type eventsStub struct {
	mu    sync.Mutex
	types []string
}

func (e *eventsStub) record(eventType string) {
	e.mu.Lock()
	e.types = append(e.types, eventType)
	e.mu.Unlock()
}

func (e *eventsStub) published() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.types...)
}

func (e *eventsStub) PublishBatchSubmitted(ctx context.Context, event *models.BatchSubmittedEvent) error {
	e.record(event.EventType)
	return nil
}

func (e *eventsStub) PublishGroupCreated(ctx context.Context, event *models.GroupCreatedEvent) error {
	e.record(event.EventType)
	return nil
}

func (e *eventsStub) PublishGroupFailed(ctx context.Context, event *models.GroupFailedEvent) error {
	e.record(event.EventType)
	return nil
}

func (e *eventsStub) PublishBatchCompleted(ctx context.Context, event *models.BatchCompletedEvent) error {
	e.record(event.EventType)
	return nil
}

// newComposerFixture wires a composer against a fake procurement backend
// that rejects orders for failSupplier and accepts the rest.
func newComposerFixture(t *testing.T, failSupplier int64) (*ComposerService, *journalStub, *eventsStub) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/vendor/parts/":
			w.Write([]byte(`[
				{"part_id":101,"part_name":"Bearing","unit_price":"10","supplier":1},
				{"part_id":201,"part_name":"Filter","unit_price":"20","supplier":2}
			]`))
		case "/api/vendor/purchase-orders/":
			var payload struct {
				Supplier int64 `json:"supplier"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("bad order payload: %v", err)
			}
			if payload.Supplier == failSupplier {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`insufficient stock`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"order_id":%d,"status":"Pending"}`, 1000+payload.Supplier)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	journal := &journalStub{}
	events := &eventsStub{}
	composer := NewComposerService(upstream.NewClient(srv.URL, 5*time.Second), journal, events)
	return composer, journal, events
}

func splitCart(reference string) ComposeInput {
	return ComposeInput{
		Reference:            reference,
		OrderDate:            "2026-08-27",
		ExpectedDeliveryDate: "2026-09-10",
		Entries: []CartEntry{
			{PartID: 101, Quantity: 2, AgreedPrice: decimal.NewFromInt(10)},
			{PartID: 201, Quantity: 1, AgreedPrice: decimal.NewFromInt(20)},
		},
	}
}

func TestSubmitPartialBatchCombinedFailure(t *testing.T) {
	composer, journal, _ := newComposerFixture(t, 2)

	result, err := composer.Submit(context.Background(), upstream.NewSession("tok"), splitCart("PO-778899"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBatchFailed)
	assert.Contains(t, err.Error(), "1 of 2 orders failed")
	assert.Contains(t, err.Error(), "PO-778899-2")

	require.NotNil(t, result)
	assert.Equal(t, models.BatchStatusPartial, result.Status)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Failed)

	// The created order stands; nothing is rolled back.
	require.Len(t, result.Groups, 2)
	assert.Equal(t, int64(1001), result.Groups[0].OrderID)
	assert.Empty(t, result.Groups[0].Error)
	assert.Contains(t, result.Groups[1].Error, "insufficient stock")

	journal.mu.Lock()
	defer journal.mu.Unlock()
	assert.Equal(t, models.BatchStatusPartial, journal.status)
	require.Len(t, journal.submissions, 2)
	outcomes := make(map[string]string)
	for _, sub := range journal.submissions {
		outcomes[sub.Reference] = sub.Outcome
	}
	assert.Equal(t, models.SubmissionCreated, outcomes["PO-778899-1"])
	assert.Equal(t, models.SubmissionFailed, outcomes["PO-778899-2"])
}

func TestSubmitAllGroupsCreated(t *testing.T) {
	composer, journal, events := newComposerFixture(t, 0)

	result, err := composer.Submit(context.Background(), upstream.NewSession("tok"), splitCart("PO-112233"))

	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusCompleted, result.Status)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Failed)

	journal.mu.Lock()
	assert.Equal(t, models.BatchStatusCompleted, journal.status)
	journal.mu.Unlock()

	assert.ElementsMatch(t, []string{
		models.EventTypeBatchSubmitted,
		models.EventTypeGroupCreated,
		models.EventTypeGroupCreated,
		models.EventTypeBatchCompleted,
	}, events.published())
}

func TestSubmitAllGroupsRejected(t *testing.T) {
	composer, journal, _ := newComposerFixture(t, 1)

	in := ComposeInput{
		Reference:            "PO-9",
		OrderDate:            "2026-08-27",
		ExpectedDeliveryDate: "2026-09-10",
		Entries: []CartEntry{
			{PartID: 101, Quantity: 1, AgreedPrice: decimal.NewFromInt(10)},
		},
	}

	result, err := composer.Submit(context.Background(), upstream.NewSession("tok"), in)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBatchFailed)
	require.NotNil(t, result)
	assert.Equal(t, models.BatchStatusFailed, result.Status)
	assert.Equal(t, 0, result.Created)

	journal.mu.Lock()
	assert.Equal(t, models.BatchStatusFailed, journal.status)
	journal.mu.Unlock()
}
