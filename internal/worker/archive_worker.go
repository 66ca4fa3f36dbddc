// Package worker processes payment archive messages: it looks up the
// referenced payment in the store and mirrors it to the spreadsheet archive.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"coopmanager/internal/amqp"
	"coopmanager/internal/archive"
	"coopmanager/internal/core"
	"coopmanager/internal/storage"
)

type ArchiveWorker struct {
	store  storage.Store
	writer archive.PaymentWriter
}

func NewArchiveWorker(store storage.Store, writer archive.PaymentWriter) *ArchiveWorker {
	return &ArchiveWorker{
		store:  store,
		writer: writer,
	}
}

// HandleArchiveMessage processes a single payment archive message from AMQP
func (w *ArchiveWorker) HandleArchiveMessage(ctx context.Context, msg *amqp.PaymentArchiveMessage) error {
	slog.InfoContext(ctx, "Processing archive message",
		"payment_id", msg.PaymentID,
		"timestamp", msg.Timestamp)

	payment, err := w.lookupPayment(ctx, msg.PaymentID)
	if err != nil {
		return fmt.Errorf("lookup payment: %w", err)
	}

	ref, err := w.writer.AppendPayment(ctx, payment)
	if err != nil {
		return fmt.Errorf("append payment to archive: %w", err)
	}

	slog.InfoContext(ctx, "Successfully archived payment",
		"payment_id", payment.ID,
		"apartment", payment.ApartmentNumber,
		"amount", payment.Amount,
		"sheets_ref", ref)

	return nil
}

// lookupPayment loads the payments collection and finds the payment by id.
// Payments are stored newest first, so recent ones are found quickly.
func (w *ArchiveWorker) lookupPayment(ctx context.Context, id string) (core.Payment, error) {
	var payments []core.Payment
	found, err := storage.LoadJSON(ctx, w.store, storage.KeyPayments, &payments)
	if err != nil {
		return core.Payment{}, fmt.Errorf("load payments: %w", err)
	}
	if !found {
		return core.Payment{}, fmt.Errorf("no payments recorded")
	}

	for _, p := range payments {
		if p.ID == id {
			return p, nil
		}
	}
	return core.Payment{}, fmt.Errorf("payment %s not found", id)
}
