package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/kasuwahq/kasuwa/internal/escrow"
	"github.com/kasuwahq/kasuwa/internal/ledger"
)

// Handler exposes the escrow lifecycle and its dashboard projections over
// HTTP. Identity comes from the JWT middleware (user_id/role in the echo
// context); authorization for money moves is re-checked inside the core.
type Handler struct {
	svc *escrow.Service
	led ledger.Ledger
}

func NewHandler(svc *escrow.Service, led ledger.Ledger) *Handler {
	return &Handler{svc: svc, led: led}
}

// Capture records a gateway-confirmed payment as a held escrow transaction.
// POST /payments/escrow/capture
func (h *Handler) Capture(c echo.Context) error {
	var in escrow.CaptureInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if in.PaymentRef == "" || in.BuyerID == "" || in.SellerID == "" || in.ProductID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_ref, buyer_id, seller_id and product_id are required"})
	}

	tx, err := h.svc.Capture(c.Request().Context(), in)
	if err != nil {
		return httpError(c, err)
	}
	logrus.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"payment_ref":    tx.PaymentRef,
		"amount":         tx.TotalAmount,
	}).Info("escrow captured")
	return c.JSON(http.StatusCreated, echo.Map{"transaction": tx})
}

// BuyerConfirm records the buyer's received / not-received attestation.
// POST /escrow/:id/confirm
func (h *Handler) BuyerConfirm(c echo.Context) error {
	buyerID, ok := c.Get("user_id").(string)
	if !ok || buyerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Outcome escrow.Outcome `json:"outcome"`
		Note    string         `json:"note"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Outcome != escrow.OutcomeReceived && req.Outcome != escrow.OutcomeNotReceived {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "outcome must be received or not_received"})
	}

	tx, err := h.svc.BuyerConfirm(c.Request().Context(), c.Param("id"), buyerID, req.Outcome, req.Note)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transaction": tx})
}

// Release credits seller and platform with their shares.
// POST /admin/escrow/:id/release
func (h *Handler) Release(c echo.Context) error {
	actorID, ok := c.Get("user_id").(string)
	if !ok || actorID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	tx, err := h.svc.Release(c.Request().Context(), c.Param("id"), actorID)
	if err != nil {
		return httpError(c, err)
	}
	logrus.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"seller_share":   tx.SellerShare,
		"platform_share": tx.PlatformShare,
	}).Info("escrow released")
	return c.JSON(http.StatusOK, echo.Map{"transaction": tx})
}

// Cancel refunds the buyer in full.
// POST /admin/escrow/:id/cancel
func (h *Handler) Cancel(c echo.Context) error {
	actorID, ok := c.Get("user_id").(string)
	if !ok || actorID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	tx, err := h.svc.Cancel(c.Request().Context(), c.Param("id"), actorID)
	if err != nil {
		return httpError(c, err)
	}
	logrus.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"refund":         tx.TotalAmount,
	}).Info("escrow cancelled, buyer refunded")
	return c.JSON(http.StatusOK, echo.Map{"transaction": tx})
}

// BuyerDashboard returns the caller's buyer projection.
// GET /escrow/buyer/dashboard
func (h *Handler) BuyerDashboard(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	view, err := h.svc.BuyerView(c.Request().Context(), uid)
	if err != nil {
		return httpError(c, err)
	}
	balance, err := h.led.Balance(c.Request().Context(), uid)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"wallet_balance": balance,
		"transactions":   view.Transactions,
		"total_spent":    view.TotalSpent,
	})
}

// SellerDashboard returns the caller's seller projection.
// GET /escrow/seller/dashboard
func (h *Handler) SellerDashboard(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	view, err := h.svc.SellerView(c.Request().Context(), uid)
	if err != nil {
		return httpError(c, err)
	}
	balance, err := h.led.Balance(c.Request().Context(), uid)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"wallet_balance":   balance,
		"transactions":     view.Transactions,
		"pending_earnings": view.PendingEarnings,
		"total_earnings":   view.TotalEarnings,
	})
}

// AdminTransactions lists all transactions with the awaiting-action flag.
// GET /admin/escrow/transactions
func (h *Handler) AdminTransactions(c echo.Context) error {
	view, err := h.svc.AdminView(c.Request().Context())
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": view.Transactions})
}

// AdminRevenue returns platform-wide revenue aggregates.
// GET /admin/escrow/revenue
func (h *Handler) AdminRevenue(c echo.Context) error {
	view, err := h.svc.AdminView(c.Request().Context())
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total_admin_revenue":   view.TotalAdminRevenue,
		"pending_admin_revenue": view.PendingAdminRevenue,
		"released_transactions": view.ReleasedTransactions,
	})
}

// CheckTransaction looks a transaction up by its gateway payment reference.
// GET /payments/check-transaction/:reference
func (h *Handler) CheckTransaction(c echo.Context) error {
	tx, err := h.svc.CheckByReference(c.Request().Context(), c.Param("reference"))
	if err != nil {
		if errors.Is(err, escrow.ErrNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"found": false})
		}
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"found":       true,
		"type":        "escrow",
		"transaction": tx,
	})
}

// WalletBalance returns the caller's wallet balance.
// GET /wallet/balance
func (h *Handler) WalletBalance(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	balance, err := h.led.Balance(c.Request().Context(), uid)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": uid, "balance": balance})
}

// WalletEntries returns the caller's ledger entries, newest first.
// GET /wallet/entries
func (h *Handler) WalletEntries(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	entries, err := h.led.Entries(c.Request().Context(), uid)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// AdminLedgerEntries lists every ledger entry on the platform.
// GET /admin/ledger/entries
func (h *Handler) AdminLedgerEntries(c echo.Context) error {
	entries, err := h.led.AllEntries(c.Request().Context())
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// httpError maps the escrow error taxonomy onto HTTP codes. Anything outside
// the taxonomy is a 500; the core never retries, so neither do we.
func httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, escrow.ErrInvalidAmount), errors.Is(err, escrow.ErrInvalidRate):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, escrow.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, escrow.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, escrow.ErrDuplicatePaymentRef),
		errors.Is(err, escrow.ErrAlreadyConfirmed),
		errors.Is(err, escrow.ErrAlreadyResolved),
		errors.Is(err, escrow.ErrIllegalTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		logrus.WithError(err).Error("escrow request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
