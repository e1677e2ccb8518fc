package ledger

import (
	"context"
	"time"
)

// Kind classifies a ledger entry.
type Kind string

const (
	KindEscrowRelease Kind = "escrow_release"
	KindPlatformFee   Kind = "platform_fee"
	KindRefund        Kind = "refund"
)

// Entry is a single wallet credit. Amounts are minor currency units (kobo)
// and always positive; Reference points back at the escrow transaction that
// produced the entry.
type Entry struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Amount    int64     `json:"amount"`
	Kind      Kind      `json:"kind"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

// Ledger is the read side of wallet state. Writes happen only through the
// escrow store, atomically with the status change that caused them.
type Ledger interface {
	Balance(ctx context.Context, accountID string) (int64, error)
	Entries(ctx context.Context, accountID string) ([]Entry, error)
	AllEntries(ctx context.Context) ([]Entry, error)
}
