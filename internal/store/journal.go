package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gobihapalanivel/VendorPulse/internal/models"
)

// The journal records every composed batch and its per-supplier
// submissions. There is no rollback of partially created upstream
// orders; the journal is what makes a partial failure auditable.

// CreateBatch inserts a new batch in PENDING state.
func (s *Store) CreateBatch(ctx context.Context, batch *models.Batch) error {
	query := `
		INSERT INTO po_batches (batch_id, base_reference, group_count, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		batch.BatchID, batch.BaseReference, batch.GroupCount, batch.Status).
		Scan(&batch.CreatedAt, &batch.UpdatedAt)
}

// UpdateBatchStatus moves a batch to its settled status.
func (s *Store) UpdateBatchStatus(ctx context.Context, batchID, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE po_batches SET status = $1, updated_at = NOW() WHERE batch_id = $2",
		status, batchID)
	return err
}

// GetBatchByID retrieves one batch.
func (s *Store) GetBatchByID(ctx context.Context, batchID string) (*models.Batch, error) {
	var batch models.Batch
	err := s.db.GetContext(ctx, &batch, "SELECT * FROM po_batches WHERE batch_id = $1", batchID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("batch not found: %s", batchID)
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// RecordSubmission inserts one per-supplier submission outcome.
func (s *Store) RecordSubmission(ctx context.Context, sub *models.Submission) error {
	query := `
		INSERT INTO po_submissions (batch_id, reference, supplier_id, total_amount, outcome, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return s.db.QueryRowxContext(ctx, query,
		sub.BatchID, sub.Reference, sub.SupplierID, sub.TotalAmount, sub.Outcome, sub.Error).
		Scan(&sub.ID, &sub.CreatedAt)
}

// GetSubmissionsByBatch retrieves all submissions of a batch.
func (s *Store) GetSubmissionsByBatch(ctx context.Context, batchID string) ([]models.Submission, error) {
	var subs []models.Submission
	err := s.db.SelectContext(ctx, &subs,
		"SELECT * FROM po_submissions WHERE batch_id = $1 ORDER BY id", batchID)
	return subs, err
}

// CountFailedSubmissions returns how many submissions of a batch failed.
func (s *Store) CountFailedSubmissions(ctx context.Context, batchID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM po_submissions WHERE batch_id = $1 AND outcome = $2",
		batchID, models.SubmissionFailed)
	return count, err
}
