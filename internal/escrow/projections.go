package escrow

import "context"

// Dashboard projections are deterministic reads over the transaction set.
// Totals are always recomputed from the source transactions at query time;
// nothing here is cached or incrementally maintained.

// TransactionView is a transaction annotated with its display label.
type TransactionView struct {
	Transaction
	StatusLabel string `json:"status_label"`
}

// BuyerDashboard is the buyer's projection of their transactions.
type BuyerDashboard struct {
	Transactions []TransactionView `json:"transactions"`
	TotalSpent   int64             `json:"total_spent"`
}

// SellerDashboard is the seller's projection with earnings aggregates.
type SellerDashboard struct {
	Transactions    []TransactionView `json:"transactions"`
	PendingEarnings int64             `json:"pending_earnings"`
	TotalEarnings   int64             `json:"total_earnings"`
}

// AdminTransactionView adds the awaiting-action flag admins filter on.
type AdminTransactionView struct {
	TransactionView
	AwaitingAction bool `json:"awaiting_action"`
}

// AdminDashboard is the platform-wide projection.
type AdminDashboard struct {
	Transactions         []AdminTransactionView `json:"transactions"`
	TotalAdminRevenue    int64                  `json:"total_admin_revenue"`
	PendingAdminRevenue  int64                  `json:"pending_admin_revenue"`
	ReleasedTransactions int                    `json:"released_transactions"`
}

// BuyerView lists a buyer's transactions. TotalSpent counts money the buyer
// will not get back: released transactions plus those confirmed received.
func (s *Service) BuyerView(ctx context.Context, buyerID string) (*BuyerDashboard, error) {
	txs, err := s.store.FindByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	out := &BuyerDashboard{Transactions: make([]TransactionView, 0, len(txs))}
	for _, tx := range txs {
		out.Transactions = append(out.Transactions, newView(tx))
		if tx.Status == StatusReleased || tx.Status == StatusBuyerConfirmedReceived {
			out.TotalSpent += tx.TotalAmount
		}
	}
	return out, nil
}

// SellerView lists a seller's transactions with pending and realized earnings.
func (s *Service) SellerView(ctx context.Context, sellerID string) (*SellerDashboard, error) {
	txs, err := s.store.FindBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	out := &SellerDashboard{Transactions: make([]TransactionView, 0, len(txs))}
	for _, tx := range txs {
		out.Transactions = append(out.Transactions, newView(tx))
		switch tx.Status {
		case StatusHeld, StatusBuyerConfirmedReceived:
			out.PendingEarnings += tx.SellerShare
		case StatusReleased:
			out.TotalEarnings += tx.SellerShare
		}
	}
	return out, nil
}

// AdminView lists every transaction. AwaitingAction marks the ones that need
// an admin decision: still holding, or flagged not-received by the buyer.
func (s *Service) AdminView(ctx context.Context) (*AdminDashboard, error) {
	txs, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := &AdminDashboard{Transactions: make([]AdminTransactionView, 0, len(txs))}
	for _, tx := range txs {
		awaiting := tx.Status == StatusHeld || tx.Status == StatusBuyerConfirmedNotReceived
		out.Transactions = append(out.Transactions, AdminTransactionView{
			TransactionView: newView(tx),
			AwaitingAction:  awaiting,
		})
		switch tx.Status {
		case StatusReleased:
			out.TotalAdminRevenue += tx.PlatformShare
			out.ReleasedTransactions++
		case StatusCancelled:
			// refunded in full, never becomes revenue
		default:
			out.PendingAdminRevenue += tx.PlatformShare
		}
	}
	return out, nil
}

func newView(tx *Transaction) TransactionView {
	return TransactionView{Transaction: *tx, StatusLabel: tx.Status.Label()}
}
