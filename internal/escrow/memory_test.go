package escrow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuwahq/kasuwa/internal/ledger"
)

func TestMemoryStoreDuplicateRef(t *testing.T) {
	store := NewMemoryStore(ledger.NewMemory())
	ctx := context.Background()

	err := store.Create(ctx, &Transaction{ID: "a", PaymentRef: "R1", Status: StatusHeld})
	require.NoError(t, err)

	err = store.Create(ctx, &Transaction{ID: "b", PaymentRef: "R1", Status: StatusHeld})
	assert.ErrorIs(t, err, ErrDuplicatePaymentRef)

	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUpdateIsIsolated(t *testing.T) {
	store := NewMemoryStore(ledger.NewMemory())
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Transaction{ID: "a", PaymentRef: "R1", Status: StatusHeld}))

	// a failed mutation must leave the stored row untouched
	_, err := store.Update(ctx, "a", func(tx *Transaction) ([]ledger.Entry, error) {
		tx.Status = StatusReleased
		return nil, ErrAlreadyResolved
	})
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StatusHeld, got.Status)
}

// Concurrent confirmations on the same transaction: exactly one must win.
func TestConcurrentBuyerConfirm(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tx := capture(t, svc, "R1", 10000)

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.BuyerConfirm(ctx, tx.ID, testBuyer, OutcomeReceived, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, alreadyConfirmed int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, ErrAlreadyConfirmed):
			alreadyConfirmed++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, alreadyConfirmed)
}

// Concurrent release attempts: the ledger must be credited exactly once.
func TestConcurrentRelease(t *testing.T) {
	svc, _, led := newTestService(t)
	ctx := context.Background()

	tx := capture(t, svc, "R1", 10000)
	_, err := svc.BuyerConfirm(ctx, tx.ID, testBuyer, OutcomeReceived, "")
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Release(ctx, tx.ID, testAdmin)
		}()
	}
	wg.Wait()

	sellerBal, _ := led.Balance(ctx, testSeller)
	platformBal, _ := led.Balance(ctx, testPlatform)
	assert.Equal(t, int64(8500), sellerBal)
	assert.Equal(t, int64(1500), platformBal)

	entries, _ := led.AllEntries(ctx)
	assert.Len(t, entries, 2)
}

func TestMemoryStoreFinders(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	a := capture(t, svc, "R1", 1000)
	b := capture(t, svc, "R2", 2000)
	_, err := svc.Release(ctx, b.ID, testAdmin)
	require.NoError(t, err)

	pending, err := store.FindPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].ID)

	byBuyer, err := store.FindByBuyer(ctx, testBuyer)
	require.NoError(t, err)
	assert.Len(t, byBuyer, 2)

	bySeller, err := store.FindBySeller(ctx, testSeller)
	require.NoError(t, err)
	assert.Len(t, bySeller, 2)

	byRef, err := store.GetByPaymentRef(ctx, "R2")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byRef.ID)
}
