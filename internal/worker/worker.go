package worker

import (
	"context"
	"log"

	"github.com/gobihapalanivel/VendorPulse/internal/broker"
	"github.com/gobihapalanivel/VendorPulse/internal/models"
	"github.com/gobihapalanivel/VendorPulse/internal/service"
)

// SnapshotWorker keeps the cached vendor snapshot honest: completed
// order batches and score recalculations both change what the scorecard
// should show, so either event drops the cache. Running this off the
// event stream also covers batches submitted by other instances.
type SnapshotWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	snapshot     *service.VendorSnapshot
}

// NewSnapshotWorker creates a new snapshot worker
func NewSnapshotWorker(consumer *broker.Consumer, snapshot *service.VendorSnapshot) *SnapshotWorker {
	eventHandler := broker.NewEventHandler()

	w := &SnapshotWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		snapshot:     snapshot,
	}

	eventHandler.OnBatchCompleted(w.handleBatchCompleted)
	eventHandler.OnScoresRecalculated(w.handleScoresRecalculated)

	return w
}

func (w *SnapshotWorker) handleBatchCompleted(ctx context.Context, event *models.BatchCompletedEvent) error {
	log.Printf("Batch settled, dropping vendor snapshot: batch=%s status=%s", event.BatchID, event.Status)
	return w.snapshot.Invalidate(ctx)
}

func (w *SnapshotWorker) handleScoresRecalculated(ctx context.Context, event *models.ScoresRecalculatedEvent) error {
	log.Printf("Scores recalculated, dropping vendor snapshot: triggered_by=%s", event.TriggeredBy)
	return w.snapshot.Invalidate(ctx)
}

// Start starts the worker
func (w *SnapshotWorker) Start(ctx context.Context) error {
	log.Println("Starting snapshot worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SnapshotWorker) Stop() error {
	log.Println("Stopping snapshot worker...")
	return w.consumer.Close()
}
