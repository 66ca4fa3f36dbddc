// Package archive mirrors recorded payments into an external spreadsheet
// kept by the building accountant.
package archive

import (
	"context"

	"coopmanager/internal/core"
)

// PaymentWriter appends a single payment row to the archive.
type PaymentWriter interface {
	AppendPayment(ctx context.Context, p core.Payment) (string, error)
}
