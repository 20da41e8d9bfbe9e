package payments

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/hauswerk/hauswerk/app/models"
	"github.com/hauswerk/hauswerk/app/repository"
)

// Recorder appends rows to the financial audit ledger. A failed write is
// logged and swallowed: the subscription state change matters more than the
// audit row, and the asymmetry is deliberate.
type Recorder struct {
	txns repository.TransactionRepository
}

// NewRecorder creates a transaction recorder.
func NewRecorder(txns repository.TransactionRepository) *Recorder {
	return &Recorder{txns: txns}
}

// Record appends one transaction. Reference and status are filled in here so
// callers only describe the money movement.
func (r *Recorder) Record(ctx context.Context, txn *models.Transaction) {
	_ = ctx
	if txn.Reference == "" {
		txn.Reference = uuid.NewString()
	}
	if txn.Status == "" {
		txn.Status = models.TransactionStatusSucceeded
	}
	if err := r.txns.Create(txn); err != nil {
		log.Printf("payments: failed to record transaction (user=%s type=%s invoice=%s): %v",
			txn.UserID, txn.Type, txn.ExternalInvoiceID, err)
	}
}
