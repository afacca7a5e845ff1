package points_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/booksexchange/booksexchange-api/internal/domain/points"
	"github.com/booksexchange/booksexchange-api/internal/middleware"
	"github.com/booksexchange/booksexchange-api/internal/pkg/gateway"
	"github.com/booksexchange/booksexchange-api/internal/pkg/jwt"
)

const handlerGatewaySecret = "test-gateway-secret"

// Drives the points surface the way the gateway and a client would: through
// the mounted router, with a real bearer token and a real HMAC signature.
func TestPointsOverHTTP(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	userID := createTestUser(t, db)
	jwtSvc := jwt.NewService("handler-test-secret", time.Hour)
	handler := points.NewHandler(points.NewService(points.NewRepository(db)), handlerGatewaySecret)

	srv := httptest.NewServer(handler.Routes(middleware.Auth(jwtSvc)))
	defer srv.Close()

	token, err := jwtSvc.GenerateAccessToken(userID)
	if err != nil {
		t.Fatalf("mint token failed: %v", err)
	}

	// Anonymous requests never reach the handlers.
	resp, err := http.Get(srv.URL + "/balance")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	purchase := func(amount int64, reference, signature string) *http.Response {
		t.Helper()
		body, _ := json.Marshal(map[string]interface{}{"points": amount, "reference": reference})
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/purchase", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("build request failed: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Gateway-Signature", signature)
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		return res
	}

	resp = purchase(25, "order-1", "deadbeef")
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a bad signature, got %d", resp.StatusCode)
	}

	good := gateway.SignPurchase(handlerGatewaySecret, userID, 25, "order-1")

	resp = purchase(25, "order-1", good)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for a new purchase, got %d", resp.StatusCode)
	}
	first := decodePurchase(t, resp)
	if first.Balance != 25 {
		t.Fatalf("expected balance 25 after purchase, got %d", first.Balance)
	}

	// The gateway retries with the same reference: same transaction back,
	// no double credit.
	resp = purchase(25, "order-1", good)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for a replay, got %d", resp.StatusCode)
	}
	replay := decodePurchase(t, resp)
	if replay.TransactionID != first.TransactionID || replay.Balance != 25 {
		t.Fatalf("replay should return the original transaction: %+v vs %+v", replay, first)
	}

	authedGet := func(path string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		if err != nil {
			t.Fatalf("build request failed: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		return res
	}

	resp = authedGet("/balance")
	var balanceBody struct {
		Data struct {
			Balance int64 `json:"balance"`
		} `json:"data"`
	}
	decodeBody(t, resp, &balanceBody)
	if balanceBody.Data.Balance != 25 {
		t.Fatalf("expected balance 25, got %d", balanceBody.Data.Balance)
	}

	items, total := listTransactions(t, authedGet, "/transactions?reason=purchase")
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected exactly one purchase transaction, got %d", total)
	}
	if items[0].Reason != points.ReasonPurchase {
		t.Fatalf("expected a purchase entry, got %s", items[0].Reason)
	}

	_, total = listTransactions(t, authedGet, "/transactions?reason=exchange_debit")
	if total != 0 {
		t.Fatalf("expected no exchange debits, got %d", total)
	}

	resp = authedGet("/transactions?reason=bogus")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown reason filter, got %d", resp.StatusCode)
	}
}

func decodePurchase(t *testing.T, resp *http.Response) points.PurchaseResult {
	t.Helper()
	var body struct {
		Data points.PurchaseResult `json:"data"`
	}
	decodeBody(t, resp, &body)
	return body.Data
}

func listTransactions(t *testing.T, get func(string) *http.Response, path string) ([]points.Transaction, int) {
	t.Helper()
	resp := get(path)
	var body struct {
		Data []points.Transaction `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	decodeBody(t, resp, &body)
	return body.Data, body.Meta.Total
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
}
