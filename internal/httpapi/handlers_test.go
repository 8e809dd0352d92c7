package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"stoktakip/internal/document"
	"stoktakip/internal/domain"
	"stoktakip/internal/service"
	"stoktakip/internal/settings"
	"stoktakip/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store and real Service so
// handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	settingsStore := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.json"))
	cfg := settings.Defaults()
	cfg.ExportDir = t.TempDir()
	if err := settingsStore.Save(cfg); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	svc := service.New(repo, nil, settingsStore, document.TextRenderer{})

	return New(svc, "*")
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
}

func TestProductCRUD(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products", domain.ProductCreateRequest{
		Name:          "USB Hub",
		StockQuantity: 12,
		SalePrice:     "149,90",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var created domain.Product
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.SalePrice.String() != "149.9" {
		t.Fatalf("tolerant price parse lost: %s", created.SalePrice)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products?q=usb", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}

	name := "USB Hub v2"
	rec = doJSON(t, handler, http.MethodPatch, "/api/v1/products/3", domain.ProductUpdateRequest{Name: &name})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/products/3", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products/3", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", rec.Code)
	}
}

func TestCheckoutFlow(t *testing.T) {
	handler := newTestAPI(t).Handler()

	// Seeded product 1 is the cooling pad with 55 in stock.
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/session/cart/items", map[string]any{"product_id": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("add item: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/session/checkout", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var receipt domain.SaleReceipt
	if err := json.NewDecoder(rec.Body).Decode(&receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.Sale.InvoiceNumber == "" || receipt.Warning != "" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}

	// Empty cart checkout conflicts.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/session/checkout", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("empty checkout: expected 409, got %d", rec.Code)
	}
}

func TestCartItemByAmbiguousQuery(t *testing.T) {
	handler := newTestAPI(t).Handler()

	doJSON(t, handler, http.MethodPost, "/api/v1/products", domain.ProductCreateRequest{Name: "Wireless Charger", StockQuantity: 5, SalePrice: "80"})

	// "Wireless" matches both the seeded mouse and the new charger.
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/session/cart/items", map[string]any{"query": "Wireless"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("ambiguous query: expected 409, got %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/session/cart/items", map[string]any{"query": "Charger"})
	if rec.Code != http.StatusOK {
		t.Fatalf("unique query: expected 200, got %d: %s", rec.Code, rec.Body)
	}
}

func TestLedgerEndpoints(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/customers", domain.CustomerCreateRequest{Name: "K", Type: "retail"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create customer: expected 201, got %d", rec.Code)
	}
	var customer domain.Customer
	if err := json.NewDecoder(rec.Body).Decode(&customer); err != nil {
		t.Fatalf("decode customer: %v", err)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/customers/2/ledger", domain.LedgerPostRequest{Type: "debt", Amount: "200"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("post debt: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var updated domain.Customer
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Balance.String() != "-200" {
		t.Fatalf("expected balance -200, got %s", updated.Balance)
	}

	// Posting to the walk-in customer is forbidden.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/customers/1/ledger", domain.LedgerPostRequest{Type: "debt", Amount: "10"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("walk-in post: expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/customers/2/statement", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("statement: expected 200, got %d", rec.Code)
	}
}

func TestSalesReportRejectsReversedRange(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/reports/sales?from=2026-09-02&to=2026-09-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPatch, "/api/v1/settings", map[string]string{"company_name": "Acme Retail"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch settings: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/settings", nil)
	var got domain.Settings
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if got.CompanyName != "Acme Retail" {
		t.Fatalf("settings not persisted: %+v", got)
	}
}

func TestDeleteWalkInCustomerForbidden(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodDelete, "/api/v1/customers/1", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
