package escrow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kasuwahq/kasuwa/internal/ledger"
)

// Service runs the escrow state machine: capture -> hold -> confirm ->
// release/cancel. All mutating operations go through the store's atomic
// Update so concurrent calls on the same transaction cannot interleave.
type Service struct {
	store           Store
	authz           Authorizer
	rate            float64
	platformAccount string
}

// NewService validates the commission rate once up front so a misconfigured
// rate fails at boot rather than on the first capture.
func NewService(store Store, authz Authorizer, commissionRate float64, platformAccount string) (*Service, error) {
	if commissionRate <= 0 || commissionRate >= 1 {
		return nil, ErrInvalidRate
	}
	return &Service{
		store:           store,
		authz:           authz,
		rate:            commissionRate,
		platformAccount: platformAccount,
	}, nil
}

// CaptureInput is the payload of a confirmed payment. The gateway has
// already collected funds by the time this is called; PaymentRef is its
// idempotency key.
type CaptureInput struct {
	PaymentRef  string `json:"payment_ref"`
	BuyerID     string `json:"buyer_id"`
	SellerID    string `json:"seller_id"`
	ProductID   string `json:"product_id"`
	TotalAmount int64  `json:"total_amount"`
}

// Capture creates a held transaction for a captured payment. Repeated calls
// with the same payment reference fail with ErrDuplicatePaymentRef and create
// nothing, which is what makes gateway webhook retries safe.
func (s *Service) Capture(ctx context.Context, in CaptureInput) (*Transaction, error) {
	platformShare, sellerShare, err := Split(in.TotalAmount, s.rate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tx := &Transaction{
		ID:               uuid.New().String(),
		PaymentRef:       in.PaymentRef,
		BuyerID:          in.BuyerID,
		SellerID:         in.SellerID,
		ProductID:        in.ProductID,
		TotalAmount:      in.TotalAmount,
		PlatformShare:    platformShare,
		SellerShare:      sellerShare,
		Status:           StatusHeld,
		ConfirmationCode: newConfirmationCode(),
		CreatedAt:        now,
		PaidAt:           &now,
	}

	if err := s.store.Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// BuyerConfirm records the buyer's attestation on a held transaction.
// Write-once: a second confirmation fails with ErrAlreadyConfirmed.
func (s *Service) BuyerConfirm(ctx context.Context, txID, buyerID string, outcome Outcome, note string) (*Transaction, error) {
	if outcome != OutcomeReceived && outcome != OutcomeNotReceived {
		return nil, ErrIllegalTransition
	}
	return s.store.Update(ctx, txID, func(tx *Transaction) ([]ledger.Entry, error) {
		if tx.BuyerID != buyerID {
			return nil, ErrForbidden
		}
		switch tx.Status {
		case StatusHeld:
		case StatusBuyerConfirmedReceived, StatusBuyerConfirmedNotReceived:
			return nil, ErrAlreadyConfirmed
		case StatusReleased, StatusCancelled:
			return nil, ErrAlreadyResolved
		default:
			return nil, ErrIllegalTransition
		}

		now := time.Now().UTC()
		if outcome == OutcomeReceived {
			tx.Status = StatusBuyerConfirmedReceived
		} else {
			tx.Status = StatusBuyerConfirmedNotReceived
		}
		tx.BuyerConfirmation = outcome
		tx.ConfirmationNote = note
		tx.ConfirmedAt = &now
		return nil, nil
	})
}

// Release moves a transaction to released and credits the seller and the
// platform with their shares in the same atomic update. Legal from
// buyer_confirmed_received, and from held as an explicit admin override.
func (s *Service) Release(ctx context.Context, txID, actorID string) (*Transaction, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, txID, func(tx *Transaction) ([]ledger.Entry, error) {
		if tx.Terminal() {
			return nil, ErrAlreadyResolved
		}
		if tx.Status != StatusBuyerConfirmedReceived && tx.Status != StatusHeld {
			return nil, ErrIllegalTransition
		}

		now := time.Now().UTC()
		tx.Status = StatusReleased
		tx.ResolvedAt = &now
		return []ledger.Entry{
			{
				ID:        uuid.New().String(),
				AccountID: tx.SellerID,
				Amount:    tx.SellerShare,
				Kind:      ledger.KindEscrowRelease,
				Reference: tx.ID,
				CreatedAt: now,
			},
			{
				ID:        uuid.New().String(),
				AccountID: s.platformAccount,
				Amount:    tx.PlatformShare,
				Kind:      ledger.KindPlatformFee,
				Reference: tx.ID,
				CreatedAt: now,
			},
		}, nil
	})
}

// Cancel refunds the buyer in full. Legal from held and from
// buyer_confirmed_not_received; the seller and platform are never credited.
func (s *Service) Cancel(ctx context.Context, txID, actorID string) (*Transaction, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, txID, func(tx *Transaction) ([]ledger.Entry, error) {
		if tx.Terminal() {
			return nil, ErrAlreadyResolved
		}
		if tx.Status != StatusHeld && tx.Status != StatusBuyerConfirmedNotReceived {
			return nil, ErrIllegalTransition
		}

		now := time.Now().UTC()
		tx.Status = StatusCancelled
		tx.ResolvedAt = &now
		return []ledger.Entry{
			{
				ID:        uuid.New().String(),
				AccountID: tx.BuyerID,
				Amount:    tx.TotalAmount,
				Kind:      ledger.KindRefund,
				Reference: tx.ID,
				CreatedAt: now,
			},
		}, nil
	})
}

// Get returns a single transaction by id.
func (s *Service) Get(ctx context.Context, txID string) (*Transaction, error) {
	return s.store.Get(ctx, txID)
}

// CheckByReference looks a transaction up by its external payment reference.
func (s *Service) CheckByReference(ctx context.Context, ref string) (*Transaction, error) {
	return s.store.GetByPaymentRef(ctx, ref)
}

func (s *Service) requireAdmin(ctx context.Context, actorID string) error {
	ok, err := s.authz.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// newConfirmationCode returns a short opaque code for human cross-reference.
func newConfirmationCode() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return strings.ToUpper(hex.EncodeToString(b))
}
