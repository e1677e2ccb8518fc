package escrow

import "time"

// Status of an escrow transaction along its lifecycle.
type Status string

const (
	StatusPending                   Status = "pending"
	StatusHeld                      Status = "held"
	StatusBuyerConfirmedReceived    Status = "buyer_confirmed_received"
	StatusBuyerConfirmedNotReceived Status = "buyer_confirmed_not_received"
	StatusReleased                  Status = "released"
	StatusCancelled                 Status = "cancelled"
)

// Outcome is the buyer's attestation on a held transaction.
type Outcome string

const (
	OutcomeReceived    Outcome = "received"
	OutcomeNotReceived Outcome = "not_received"
)

// statusLabels is the single source of human-readable status text. All
// dashboard views read from here so buyer/seller/admin screens never drift.
var statusLabels = map[Status]string{
	StatusPending:                   "Pending",
	StatusHeld:                      "Holding",
	StatusBuyerConfirmedReceived:    "Product Received",
	StatusBuyerConfirmedNotReceived: "Product Not Received",
	StatusReleased:                  "Released",
	StatusCancelled:                 "Refunded",
}

// Label returns the display label for a status, falling back to the raw value.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusReleased || s == StatusCancelled
}

// Transaction is the escrow record tracking funds held by the platform
// between payment capture and release/cancellation. Amounts are integer
// minor currency units (kobo). PlatformShare + SellerShare == TotalAmount
// always; the split is computed once at capture and never recomputed.
type Transaction struct {
	ID         string `json:"id"`
	PaymentRef string `json:"payment_ref"`
	BuyerID    string `json:"buyer_id"`
	SellerID   string `json:"seller_id"`
	ProductID  string `json:"product_id"`

	TotalAmount   int64 `json:"total_amount"`
	PlatformShare int64 `json:"platform_share"`
	SellerShare   int64 `json:"seller_share"`

	Status            Status  `json:"status"`
	BuyerConfirmation Outcome `json:"buyer_confirmation,omitempty"`
	ConfirmationNote  string  `json:"confirmation_note,omitempty"`

	// ConfirmationCode is a short opaque code for manual cross-reference
	// with the payment provider. Not a security control.
	ConfirmationCode string `json:"confirmation_code"`

	CreatedAt   time.Time  `json:"created_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// Terminal reports whether the transaction can no longer be mutated.
func (t *Transaction) Terminal() bool {
	return t.Status.Terminal()
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (t *Transaction) Clone() *Transaction {
	cp := *t
	if t.PaidAt != nil {
		v := *t.PaidAt
		cp.PaidAt = &v
	}
	if t.ConfirmedAt != nil {
		v := *t.ConfirmedAt
		cp.ConfirmedAt = &v
	}
	if t.ResolvedAt != nil {
		v := *t.ResolvedAt
		cp.ResolvedAt = &v
	}
	return &cp
}
