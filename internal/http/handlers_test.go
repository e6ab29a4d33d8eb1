package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/controlboxthe-coder/THE-BOX/internal/assistant"
	"github.com/controlboxthe-coder/THE-BOX/internal/core"
	"github.com/controlboxthe-coder/THE-BOX/internal/identity"
	"github.com/controlboxthe-coder/THE-BOX/internal/session"
	"github.com/controlboxthe-coder/THE-BOX/internal/store/memory"
)

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestServer(t *testing.T, gen assistant.Generator) *Server {
	t.Helper()

	mem := memory.New()
	controller := session.NewController(session.Options{
		Snapshots: mem,
		Sessions:  mem,
	})
	t.Cleanup(func() { _ = controller.Close() })

	var bridge *assistant.Bridge
	if gen != nil {
		bridge = assistant.NewBridge(gen, "test-model", time.Second, nil)
	}

	s := NewServer(":0", controller, identity.NewService(), bridge, nil)
	t.Cleanup(s.rateLimiter.stop)
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "192.0.2.10:54321"
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, s *Server, email string) {
	t.Helper()

	rec := doJSON(t, s, http.MethodPost, "/api/register", map[string]string{
		"name":     "Ana",
		"email":    email,
		"password": "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func activatePro(t *testing.T, s *Server) {
	t.Helper()

	rec := doJSON(t, s, http.MethodPost, "/api/license", map[string]string{"key": core.LicenseKeyPro})
	if rec.Code != http.StatusOK {
		t.Fatalf("license status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/register", map[string]string{
		"name":     "Ana",
		"email":    "ana@example.com",
		"password": "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}

	var view stateView
	decodeBody(t, rec, &view)
	if view.User == nil || view.User.Email != "ana@example.com" {
		t.Fatalf("register view user = %+v", view.User)
	}
	if len(view.Categories) != len(core.DefaultCategories()) {
		t.Fatalf("fresh session categories = %v", view.Categories)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/logout", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/state", nil)
	view = stateView{}
	decodeBody(t, rec, &view)
	if view.User != nil {
		t.Fatalf("state after logout still has user %+v", view.User)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/login", map[string]string{
		"email":    "ana@example.com",
		"password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &view)
	if view.User == nil || view.User.Name != "Ana" {
		t.Fatalf("login view user = %+v", view.User)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "ana@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/logout", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/register", map[string]string{
		"name":     "Other",
		"email":    "ana@example.com",
		"password": "another123",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d", rec.Code)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/register", map[string]string{
		"name":     "Ana",
		"email":    "ana@example.com",
		"password": "abc",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("short password status = %d", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "ana@example.com")
	doJSON(t, s, http.MethodPost, "/api/logout", nil)

	rec := doJSON(t, s, http.MethodPost, "/api/login", map[string]string{
		"email":    "ana@example.com",
		"password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad credentials status = %d", rec.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "ana@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"type":        "expense",
		"category":    "Alimentação",
		"description": "groceries",
		"amount":      "42.50",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Transaction core.Transaction `json:"transaction"`
	}
	decodeBody(t, rec, &created)
	if created.Transaction.ID == "" {
		t.Fatal("created transaction has no ID")
	}
	if created.Transaction.Amount.Cents != 4250 {
		t.Fatalf("created amount = %d cents", created.Transaction.Amount.Cents)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	var listed struct {
		Transactions []core.Transaction `json:"transactions"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Transactions) != 1 {
		t.Fatalf("listed %d transactions", len(listed.Transactions))
	}

	id := created.Transaction.ID

	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/"+id, nil)
	if rec.Code != http.StatusPreconditionRequired {
		t.Fatalf("unconfirmed delete status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/"+id+"?confirmed=true", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("confirmed delete status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/"+id+"?confirmed=true", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("repeat delete status = %d", rec.Code)
	}
}

func TestCreateTransactionUnknownCategoryFallsBack(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "ana@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"type":        "expense",
		"category":    "Jetski",
		"description": "rental",
		"amount":      "300",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	var created struct {
		Transaction core.Transaction `json:"transaction"`
	}
	decodeBody(t, rec, &created)
	if created.Transaction.Category != core.FallbackCategory {
		t.Fatalf("category = %q, want %q", created.Transaction.Category, core.FallbackCategory)
	}
}

func TestCreateTransactionRequiresAuth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"type":        "expense",
		"category":    "Alimentação",
		"description": "groceries",
		"amount":      "10.00",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create status = %d", rec.Code)
	}
}

func TestCreateTransactionRejectsBadAmount(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "ana@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"type":        "expense",
		"category":    "Alimentação",
		"description": "groceries",
		"amount":      "not-a-number",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad amount status = %d", rec.Code)
	}
}

func TestDashboardTotals(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "ana@example.com")

	for _, tx := range []map[string]any{
		{"type": "income", "category": "Salário", "description": "salary", "amount": "1000.00"},
		{"type": "expense", "category": "Alimentação", "description": "groceries", "amount": "42.50"},
	} {
		rec := doJSON(t, s, http.MethodPost, "/api/transactions", tx)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}

	var dash struct {
		Totals    core.Totals           `json:"totals"`
		Breakdown []core.CategoryAmount `json:"breakdown"`
		Recent    []core.Transaction    `json:"recent"`
	}
	decodeBody(t, rec, &dash)

	if dash.Totals.Income.Cents != 100000 || dash.Totals.Expense.Cents != 4250 {
		t.Fatalf("totals = %+v", dash.Totals)
	}
	if dash.Totals.Balance.Cents != 95750 {
		t.Fatalf("balance = %d", dash.Totals.Balance.Cents)
	}
	if len(dash.Breakdown) != 1 || dash.Breakdown[0].Name != "Alimentação" {
		t.Fatalf("breakdown = %+v", dash.Breakdown)
	}
	if len(dash.Recent) != 2 {
		t.Fatalf("recent = %+v", dash.Recent)
	}
}

func TestDashboardRequiresAuth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated dashboard status = %d", rec.Code)
	}
}

func TestAddCategory(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "ana@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "Viagens"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add category status = %d", rec.Code)
	}

	var resp struct {
		Categories []string `json:"categories"`
	}
	decodeBody(t, rec, &resp)
	if resp.Categories[len(resp.Categories)-1] != "Viagens" {
		t.Fatalf("categories = %v", resp.Categories)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "Viagens"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate category status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "   "})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank category status = %d", rec.Code)
	}
}

func TestLicenseActivation(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "ana@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/license", map[string]string{"key": "WRONG"})
	if rec.Code != http.StatusOK {
		t.Fatalf("license status = %d", rec.Code)
	}
	var resp struct {
		Pro bool `json:"pro"`
	}
	decodeBody(t, rec, &resp)
	if resp.Pro {
		t.Fatal("wrong key activated PRO")
	}

	rec = doJSON(t, s, http.MethodPost, "/api/license", map[string]string{"key": "  " + core.LicenseKeyPro + "  "})
	decodeBody(t, rec, &resp)
	if !resp.Pro {
		t.Fatal("valid key did not activate PRO")
	}
}

func TestBackupRequiresPro(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "ana@example.com")

	rec := doJSON(t, s, http.MethodGet, "/api/backup", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("free-tier export status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/backup", map[string]any{"categories": []string{"Only"}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("free-tier restore status = %d", rec.Code)
	}
}

func TestBackupExportRestoreRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "ana@example.com")
	activatePro(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"type":        "expense",
		"category":    "Alimentação",
		"description": "groceries",
		"amount":      "42.50",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/backup", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	exported := rec.Body.Bytes()

	var created struct {
		Transaction core.Transaction `json:"transaction"`
	}
	rec = doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"type":        "expense",
		"category":    "Lazer",
		"description": "cinema",
		"amount":      "30.00",
	})
	decodeBody(t, rec, &created)

	req := httptest.NewRequest(http.MethodPost, "/api/backup", bytes.NewReader(exported))
	req.RemoteAddr = "192.0.2.10:54321"
	restoreRec := httptest.NewRecorder()
	s.Handler.ServeHTTP(restoreRec, req)
	if restoreRec.Code != http.StatusOK {
		t.Fatalf("restore status = %d, body %s", restoreRec.Code, restoreRec.Body.String())
	}

	var view stateView
	decodeBody(t, restoreRec, &view)
	if len(view.Transactions) != 1 || view.Transactions[0].Description != "groceries" {
		t.Fatalf("restored transactions = %+v", view.Transactions)
	}
}

func TestBackupRestoreRejectsMalformedFile(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "ana@example.com")
	activatePro(t, s)

	req := httptest.NewRequest(http.MethodPost, "/api/backup", strings.NewReader(`{"transactions": "nope"}`))
	req.RemoteAddr = "192.0.2.10:54321"
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed restore status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAssistantAddsTransaction(t *testing.T) {
	gen := &fakeGenerator{
		response: `{"action":"add_tx","type":"expense","description":"lunch","amount":25.90,"category":"Alimentação","date":"2026-08-30"}`,
	}
	s := newTestServer(t, gen)
	register(t, s, "ana@example.com")
	activatePro(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/assistant", map[string]string{
		"transcript": "gastei 25,90 no almoço",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("assistant status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status      string           `json:"status"`
		Transaction core.Transaction `json:"transaction"`
	}
	decodeBody(t, rec, &resp)
	if resp.Status != "added" {
		t.Fatalf("status = %q", resp.Status)
	}
	if resp.Transaction.Amount.Cents != 2590 || resp.Transaction.Category != "Alimentação" {
		t.Fatalf("transaction = %+v", resp.Transaction)
	}
}

func TestAssistantUnrecognized(t *testing.T) {
	gen := &fakeGenerator{response: `{"action":"unknown"}`}
	s := newTestServer(t, gen)
	register(t, s, "ana@example.com")
	activatePro(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/assistant", map[string]string{
		"transcript": "what is the weather",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("assistant status = %d", rec.Code)
	}
}

func TestAssistantTransportFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("dial tcp: connection refused")}
	s := newTestServer(t, gen)
	register(t, s, "ana@example.com")
	activatePro(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/assistant", map[string]string{
		"transcript": "gastei 10 no mercado",
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("assistant status = %d", rec.Code)
	}
}

func TestAssistantUnavailableWithoutBridge(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "ana@example.com")
	activatePro(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/assistant", map[string]string{
		"transcript": "gastei 10 no mercado",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("assistant status = %d", rec.Code)
	}
}

func TestAssistantRequiresPro(t *testing.T) {
	gen := &fakeGenerator{response: `{"action":"add_tx"}`}
	s := newTestServer(t, gen)
	register(t, s, "ana@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/assistant", map[string]string{
		"transcript": "gastei 10 no mercado",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("free-tier assistant status = %d", rec.Code)
	}
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "ana@example.com")

	var limited bool
	for i := 0; i < 70; i++ {
		rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
			"type":        "expense",
			"category":    "Alimentação",
			"description": fmt.Sprintf("item %d", i),
			"amount":      "1.00",
		})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if rec.Header().Get("Retry-After") == "" {
				t.Fatal("429 without Retry-After")
			}
			break
		}
	}
	if !limited {
		t.Fatal("rate limiter never engaged")
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}
