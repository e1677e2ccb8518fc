package escrow

import (
	"context"

	"github.com/kasuwahq/kasuwa/internal/ledger"
)

// Mutation transforms a transaction under the store's per-id lock. It may
// return ledger entries, which the store must apply atomically with the
// transaction update: if either side fails, neither is persisted.
type Mutation func(tx *Transaction) ([]ledger.Entry, error)

// Store is the persistence boundary for escrow transactions. The core does
// not own storage; it requires atomic read-modify-write per transaction id
// (no lost updates under concurrent confirm/release on the same id) and a
// uniqueness constraint on PaymentRef. Operations on different ids must not
// serialize against each other.
type Store interface {
	// Create persists a new transaction, failing with ErrDuplicatePaymentRef
	// if the payment reference was already captured.
	Create(ctx context.Context, tx *Transaction) error

	Get(ctx context.Context, id string) (*Transaction, error)
	GetByPaymentRef(ctx context.Context, ref string) (*Transaction, error)

	FindByBuyer(ctx context.Context, buyerID string) ([]*Transaction, error)
	FindBySeller(ctx context.Context, sellerID string) ([]*Transaction, error)
	// FindPending returns all non-terminal transactions.
	FindPending(ctx context.Context) ([]*Transaction, error)
	FindAll(ctx context.Context) ([]*Transaction, error)

	// Update runs fn against the current row under lock and persists the
	// result together with any ledger entries fn returns. If fn errors the
	// transaction is left untouched and the error is returned as-is.
	Update(ctx context.Context, id string, fn Mutation) (*Transaction, error)
}
