package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuwahq/kasuwa/internal/escrow"
	"github.com/kasuwahq/kasuwa/internal/ledger"
)

const (
	buyerID  = "11111111-1111-1111-1111-111111111111"
	sellerID = "22222222-2222-2222-2222-222222222222"
	prodID   = "33333333-3333-3333-3333-333333333333"
	adminID  = "44444444-4444-4444-4444-444444444444"
)

type adminSet map[string]bool

func (a adminSet) IsAdmin(_ context.Context, userID string) (bool, error) {
	return a[userID], nil
}

func newTestHandler(t *testing.T) (*Handler, *escrow.Service) {
	t.Helper()
	led := ledger.NewMemory()
	store := escrow.NewMemoryStore(led)
	svc, err := escrow.NewService(store, adminSet{adminID: true}, 0.15, "platform")
	require.NoError(t, err)
	return NewHandler(svc, led), svc
}

func doJSON(h echo.HandlerFunc, method, path, body, userID string, params map[string]string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set("user_id", userID)
	}
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	_ = h(c)
	return rec
}

func captureBody(ref string, amount int64) string {
	b, _ := json.Marshal(map[string]any{
		"payment_ref":  ref,
		"buyer_id":     buyerID,
		"seller_id":    sellerID,
		"product_id":   prodID,
		"total_amount": amount,
	})
	return string(b)
}

func TestCaptureEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(h.Capture, http.MethodPost, "/payments/escrow/capture", captureBody("R1", 10000), buyerID, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Transaction escrow.Transaction `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, escrow.StatusHeld, resp.Transaction.Status)
	assert.Equal(t, int64(1500), resp.Transaction.PlatformShare)
	assert.Equal(t, int64(8500), resp.Transaction.SellerShare)
}

func TestCaptureEndpointDuplicateRef(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(h.Capture, http.MethodPost, "/payments/escrow/capture", captureBody("R1", 10000), buyerID, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(h.Capture, http.MethodPost, "/payments/escrow/capture", captureBody("R1", 10000), buyerID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCaptureEndpointValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(h.Capture, http.MethodPost, "/payments/escrow/capture", `{"payment_ref":""}`, buyerID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(h.Capture, http.MethodPost, "/payments/escrow/capture", captureBody("R2", -5), buyerID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmEndpoint(t *testing.T) {
	h, svc := newTestHandler(t)
	tx := mustCapture(t, svc, "R1")

	rec := doJSON(h.BuyerConfirm, http.MethodPost, "/escrow/"+tx.ID+"/confirm",
		`{"outcome":"received","note":"all good"}`, buyerID, map[string]string{"id": tx.ID})
	assert.Equal(t, http.StatusOK, rec.Code)

	// second confirmation conflicts
	rec = doJSON(h.BuyerConfirm, http.MethodPost, "/escrow/"+tx.ID+"/confirm",
		`{"outcome":"not_received"}`, buyerID, map[string]string{"id": tx.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConfirmEndpointWrongBuyer(t *testing.T) {
	h, svc := newTestHandler(t)
	tx := mustCapture(t, svc, "R1")

	rec := doJSON(h.BuyerConfirm, http.MethodPost, "/escrow/"+tx.ID+"/confirm",
		`{"outcome":"received"}`, sellerID, map[string]string{"id": tx.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestConfirmEndpointBadOutcome(t *testing.T) {
	h, svc := newTestHandler(t)
	tx := mustCapture(t, svc, "R1")

	rec := doJSON(h.BuyerConfirm, http.MethodPost, "/escrow/"+tx.ID+"/confirm",
		`{"outcome":"maybe"}`, buyerID, map[string]string{"id": tx.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReleaseEndpoint(t *testing.T) {
	h, svc := newTestHandler(t)
	tx := mustCapture(t, svc, "R1")
	_, err := svc.BuyerConfirm(context.Background(), tx.ID, buyerID, escrow.OutcomeReceived, "")
	require.NoError(t, err)

	rec := doJSON(h.Release, http.MethodPost, "/admin/escrow/"+tx.ID+"/release", "", adminID, map[string]string{"id": tx.ID})
	assert.Equal(t, http.StatusOK, rec.Code)

	// releasing again conflicts
	rec = doJSON(h.Release, http.MethodPost, "/admin/escrow/"+tx.ID+"/release", "", adminID, map[string]string{"id": tx.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReleaseEndpointNonAdmin(t *testing.T) {
	h, svc := newTestHandler(t)
	tx := mustCapture(t, svc, "R1")

	rec := doJSON(h.Release, http.MethodPost, "/admin/escrow/"+tx.ID+"/release", "", sellerID, map[string]string{"id": tx.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCancelEndpoint(t *testing.T) {
	h, svc := newTestHandler(t)
	tx := mustCapture(t, svc, "R1")

	rec := doJSON(h.Cancel, http.MethodPost, "/admin/escrow/"+tx.ID+"/cancel", "", adminID, map[string]string{"id": tx.ID})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Transaction escrow.Transaction `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, escrow.StatusCancelled, resp.Transaction.Status)
}

func TestDashboardEndpoints(t *testing.T) {
	h, svc := newTestHandler(t)
	tx := mustCapture(t, svc, "R1")
	_, err := svc.BuyerConfirm(context.Background(), tx.ID, buyerID, escrow.OutcomeReceived, "")
	require.NoError(t, err)
	_, err = svc.Release(context.Background(), tx.ID, adminID)
	require.NoError(t, err)

	rec := doJSON(h.BuyerDashboard, http.MethodGet, "/escrow/buyer/dashboard", "", buyerID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var buyer struct {
		WalletBalance int64 `json:"wallet_balance"`
		TotalSpent    int64 `json:"total_spent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &buyer))
	assert.Equal(t, int64(10000), buyer.TotalSpent)
	assert.Equal(t, int64(0), buyer.WalletBalance)

	rec = doJSON(h.SellerDashboard, http.MethodGet, "/escrow/seller/dashboard", "", sellerID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var seller struct {
		WalletBalance int64 `json:"wallet_balance"`
		TotalEarnings int64 `json:"total_earnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seller))
	assert.Equal(t, int64(8500), seller.TotalEarnings)
	assert.Equal(t, int64(8500), seller.WalletBalance)

	rec = doJSON(h.AdminRevenue, http.MethodGet, "/admin/escrow/revenue", "", adminID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var revenue struct {
		TotalAdminRevenue    int64 `json:"total_admin_revenue"`
		ReleasedTransactions int   `json:"released_transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &revenue))
	assert.Equal(t, int64(1500), revenue.TotalAdminRevenue)
	assert.Equal(t, 1, revenue.ReleasedTransactions)
}

func TestCheckTransactionEndpoint(t *testing.T) {
	h, svc := newTestHandler(t)
	mustCapture(t, svc, "R1")

	rec := doJSON(h.CheckTransaction, http.MethodGet, "/payments/check-transaction/R1", "", buyerID, map[string]string{"reference": "R1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	var found struct {
		Found bool `json:"found"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.True(t, found.Found)

	rec = doJSON(h.CheckTransaction, http.MethodGet, "/payments/check-transaction/R9", "", buyerID, map[string]string{"reference": "R9"})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.False(t, found.Found)
}

func TestWalletEndpoints(t *testing.T) {
	h, svc := newTestHandler(t)
	tx := mustCapture(t, svc, "R1")
	_, err := svc.Cancel(context.Background(), tx.ID, adminID)
	require.NoError(t, err)

	rec := doJSON(h.WalletBalance, http.MethodGet, "/wallet/balance", "", buyerID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var bal struct {
		Balance int64 `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	assert.Equal(t, int64(10000), bal.Balance)

	rec = doJSON(h.WalletEntries, http.MethodGet, "/wallet/entries", "", buyerID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var entries []ledger.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.KindRefund, entries[0].Kind)

	rec = doJSON(h.WalletBalance, http.MethodGet, "/wallet/balance", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func mustCapture(t *testing.T, svc *escrow.Service, ref string) *escrow.Transaction {
	t.Helper()
	tx, err := svc.Capture(context.Background(), escrow.CaptureInput{
		PaymentRef:  ref,
		BuyerID:     buyerID,
		SellerID:    sellerID,
		ProductID:   prodID,
		TotalAmount: 10000,
	})
	require.NoError(t, err)
	return tx
}
