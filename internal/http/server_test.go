package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"novoape/internal/core"
	"novoape/internal/docstore/memory"
	"novoape/internal/identity"
	"novoape/internal/metrics"
	"novoape/internal/persist"
	"novoape/internal/session"
)

type testServer struct {
	*Server
	sessions *session.Manager
	store    *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, Config{Addr: ":0", RateLimitPerMinute: 1000})
}

func newTestServerWith(t *testing.T, cfg Config) *testServer {
	t.Helper()
	store := memory.New()
	m := metrics.New()
	sessions := session.NewManager(persist.New(store, persist.WithMetrics(m)), session.ManagerConfig{
		MaxSessions: 10,
		TTL:         time.Hour,
		Metrics:     m,
	})
	s := NewServer(cfg, Deps{
		Sessions: sessions,
		Identity: identity.NewPasswordProvider(store, nil).WithCost(bcrypt.MinCost),
		Tokens:   identity.NewTokenManager("test-secret-0123456789", time.Hour),
		Metrics:  m,
	})
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
		sessions.Wait()
	})
	return &testServer{Server: s, sessions: sessions, store: store}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:5000"
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) signUp(t *testing.T, email string) authResponse {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Ana", "email": email, "password": "segredo",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp authResponse
	decode(t, rec, &resp)
	return resp
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	decode(t, rec, &body)
	return body.Error.Code
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestReadyzReportsStoreFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.ready = func(context.Context) error { return errors.New("down") }

	rec := ts.do(t, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != codeUnavailable {
		t.Fatalf("code = %q", code)
	}
}

func TestSignUpIssuesToken(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.signUp(t, "ana@example.com")
	if resp.Token == "" || resp.User.ID == "" || resp.User.Email != "ana@example.com" {
		t.Fatalf("response = %+v", resp)
	}
	if _, ok := ts.sessions.Lookup(resp.User.ID); !ok {
		t.Fatal("session not opened on sign-up")
	}
}

func TestSignUpErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "ana@example.com")

	tests := []struct {
		name   string
		body   map[string]string
		status int
		code   string
	}{
		{"duplicate", map[string]string{"name": "Ana", "email": "ana@example.com", "password": "segredo"}, http.StatusConflict, string(identity.CodeEmailInUse)},
		{"weak password", map[string]string{"name": "Bia", "email": "bia@example.com", "password": "123"}, http.StatusUnprocessableEntity, string(identity.CodeWeakPassword)},
		{"missing fields", map[string]string{"email": "bia@example.com", "password": "segredo"}, http.StatusUnprocessableEntity, string(identity.CodeMissingFields)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if code := errorCode(t, rec); code != tt.code {
				t.Fatalf("code = %q, want %q", code, tt.code)
			}
		})
	}
}

func TestSignIn(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "ana@example.com")

	rec := ts.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email": "ana@example.com", "password": "errada",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(identity.CodeWrongPassword) {
		t.Fatalf("code = %q", code)
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email": "ana@example.com", "password": "segredo",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	tests := map[string]string{
		"empty":         "",
		"unknown field": `{"email":"a@b.c","password":"x","admin":true}`,
		"two values":    `{"email":"a@b.c"}{"email":"d@e.f"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/auth/signin", "", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
		})
	}
}

func TestRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	for _, token := range []string{"", "not-a-jwt"} {
		rec := ts.do(t, http.MethodGet, "/api/project", token, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: status = %d", token, rec.Code)
		}
	}
}

func TestRoomLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "ana@example.com").Token

	rec := ts.do(t, http.MethodPost, "/api/rooms", token, map[string]string{"name": "Cozinha"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body)
	}
	var room core.Room
	decode(t, rec, &room)
	if room.ID == "" || room.Name != "Cozinha" {
		t.Fatalf("room = %+v", room)
	}

	rec = ts.do(t, http.MethodPatch, "/api/rooms/"+room.ID, token, map[string]any{"squareMeters": 12.5})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = ts.do(t, http.MethodPost, "/api/rooms/"+room.ID+"/materials", token, map[string]any{
		"name": "Piso", "quantity": 10, "unitPrice": "45,90",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("material status = %d, body = %s", rec.Code, rec.Body)
	}
	var material core.MaterialItem
	decode(t, rec, &material)
	if material.UnitPrice != core.Cents(4590) {
		t.Fatalf("unit price = %+v", material.UnitPrice)
	}

	rec = ts.do(t, http.MethodPost, "/api/rooms/"+room.ID+"/repairs", token, map[string]string{"description": "Trocar torneira"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("repair status = %d", rec.Code)
	}
	var repair core.RepairItem
	decode(t, rec, &repair)

	rec = ts.do(t, http.MethodPost, "/api/rooms/"+room.ID+"/repairs/"+repair.ID+"/toggle", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}
	decode(t, rec, &repair)
	if !repair.Completed {
		t.Fatal("repair not completed")
	}

	rec = ts.do(t, http.MethodGet, "/api/rooms/"+room.ID, token, nil)
	decode(t, rec, &room)
	if room.SquareMeters != 12.5 || len(room.Materials) != 1 || len(room.Repairs) != 1 {
		t.Fatalf("room = %+v", room)
	}

	rec = ts.do(t, http.MethodDelete, "/api/rooms/"+room.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodDelete, "/api/rooms/"+room.ID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "ana@example.com").Token

	rec := ts.do(t, http.MethodPost, "/api/rooms", token, map[string]string{"name": "   "})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != codeValidation {
		t.Fatalf("code = %q", code)
	}

	rec = ts.do(t, http.MethodPost, "/api/recurring-costs", token, map[string]any{"name": "Luz", "value": 120, "dueDay": 40})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("due day status = %d", rec.Code)
	}
}

func TestPatchRejectedAsWhole(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "ana@example.com").Token

	rec := ts.do(t, http.MethodPost, "/api/recurring-costs", token, map[string]any{"name": "Luz", "value": 120, "dueDay": 10})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body)
	}
	var cost core.RecurringCost
	decode(t, rec, &cost)

	rec = ts.do(t, http.MethodPatch, "/api/recurring-costs/"+cost.ID, token, map[string]any{"name": "Energia", "dueDay": 0})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("patch status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/recurring-costs", token, nil)
	var costs []core.RecurringCost
	decode(t, rec, &costs)
	if len(costs) != 1 || costs[0].Name != "Luz" || costs[0].DueDay != 10 {
		t.Fatalf("costs = %+v", costs)
	}
}

func TestPatchWithBlankNameStoresNothing(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.signUp(t, "ana@example.com")
	token := resp.Token

	rec := ts.do(t, http.MethodPost, "/api/initial-costs", token, map[string]string{"name": "ITBI"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var initial core.InitialCost
	decode(t, rec, &initial)
	rec = ts.do(t, http.MethodPost, "/api/recurring-costs", token, map[string]any{"name": "Luz", "value": 120, "dueDay": 10})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var recurring core.RecurringCost
	decode(t, rec, &recurring)

	// The name is only control characters, blank once sanitized.
	rec = ts.do(t, http.MethodPatch, "/api/initial-costs/"+initial.ID, token, `{"value":50,"name":"\u0001"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("initial cost patch status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPatch, "/api/recurring-costs/"+recurring.ID, token, `{"value":50,"name":"\u0001\u0002"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("recurring cost patch status = %d", rec.Code)
	}

	// Reload from the store so a write that slipped through would show.
	ts.sessions.Wait()
	ts.sessions.Close(resp.User.ID)

	rec = ts.do(t, http.MethodGet, "/api/initial-costs", token, nil)
	var initials []core.InitialCost
	decode(t, rec, &initials)
	if len(initials) != 1 || initials[0].Name != "ITBI" || initials[0].Value != (core.Money{}) {
		t.Fatalf("initial costs = %+v", initials)
	}
	rec = ts.do(t, http.MethodGet, "/api/recurring-costs", token, nil)
	var recurrings []core.RecurringCost
	decode(t, rec, &recurrings)
	if len(recurrings) != 1 || recurrings[0].Name != "Luz" || recurrings[0].Value != core.Cents(12000) {
		t.Fatalf("recurring costs = %+v", recurrings)
	}
}

func TestClosedSessionIsRetryable(t *testing.T) {
	status, code, _ := mapError(fmt.Errorf("add room: %w", session.ErrClosed))
	if status != http.StatusServiceUnavailable || code != codeUnavailable {
		t.Fatalf("status = %d, code = %s", status, code)
	}
}

func TestWriteLimitIsPerUser(t *testing.T) {
	ts := newTestServerWith(t, Config{Addr: ":0", RateLimitPerMinute: 1, AuthRateLimitPerMinute: 10})
	ana := ts.signUp(t, "ana@example.com").Token
	bia := ts.signUp(t, "bia@example.com").Token

	if rec := ts.do(t, http.MethodPost, "/api/rooms", ana, map[string]string{"name": "Sala"}); rec.Code != http.StatusCreated {
		t.Fatalf("first write status = %d", rec.Code)
	}
	rec := ts.do(t, http.MethodPost, "/api/rooms", ana, map[string]string{"name": "Quarto"})
	if rec.Code != http.StatusTooManyRequests || errorCode(t, rec) != codeRateLimited {
		t.Fatalf("second write status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	// Same client address, different user.
	if rec := ts.do(t, http.MethodPost, "/api/rooms", bia, map[string]string{"name": "Sala"}); rec.Code != http.StatusCreated {
		t.Fatalf("other user's write status = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/rooms", ana, nil); rec.Code != http.StatusOK {
		t.Fatalf("reads are not limited, status = %d", rec.Code)
	}
}

func TestUnknownIDs(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "ana@example.com").Token

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/rooms/missing"},
		{http.MethodDelete, "/api/purchases/missing"},
		{http.MethodPost, "/api/checklist/items/missing/toggle"},
		{http.MethodPatch, "/api/initial-costs/missing"},
	} {
		var body any
		if tc.method == http.MethodPatch {
			body = map[string]string{"name": "x"}
		}
		rec := ts.do(t, tc.method, tc.path, token, body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestSnapshotDefaults(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "ana@example.com").Token

	rec := ts.do(t, http.MethodGet, "/api/project", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp snapshotResponse
	decode(t, rec, &resp)
	if resp.Snapshot.ProjectName != core.DefaultProjectName {
		t.Fatalf("project name = %q", resp.Snapshot.ProjectName)
	}
	if len(resp.Snapshot.Checklist) != len(core.DefaultChecklist()) {
		t.Fatalf("checklist = %+v", resp.Snapshot.Checklist)
	}

	rec = ts.do(t, http.MethodPut, "/api/project/name", token, map[string]string{"name": "Apê da Vila"})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/project", token, nil)
	decode(t, rec, &resp)
	if resp.Snapshot.ProjectName != "Apê da Vila" {
		t.Fatalf("project name = %q", resp.Snapshot.ProjectName)
	}
}

func TestChecklistToggle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "ana@example.com").Token

	rec := ts.do(t, http.MethodPost, "/api/checklist/items/c3/toggle", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var item core.ChecklistItem
	decode(t, rec, &item)
	if item.ID != "c3" || !item.Completed {
		t.Fatalf("item = %+v", item)
	}

	rec = ts.do(t, http.MethodGet, "/api/checklist", token, nil)
	var resp checklistResponse
	decode(t, rec, &resp)
	if resp.Progress != core.ChecklistProgress(resp.Sections) || resp.Progress == 0 {
		t.Fatalf("progress = %d", resp.Progress)
	}
}

func TestPurchaseGroups(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "ana@example.com").Token

	for _, p := range []map[string]any{
		{"store": "Leroy", "itemName": "Tinta", "price": 100, "paymentMethod": "PIX", "purchaseDate": "2026-03-01"},
		{"store": "Leroy", "itemName": "Rolo", "price": 25, "paymentMethod": "PIX", "purchaseDate": "2026-03-02"},
		{"store": "Tok", "itemName": "Sofá", "price": 3000, "paymentMethod": "Boleto", "purchaseDate": "2026-04-10"},
	} {
		if rec := ts.do(t, http.MethodPost, "/api/purchases", token, p); rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body)
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/purchases/groups?by=store", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var groups []core.PurchaseGroup
	decode(t, rec, &groups)
	totals := map[string]core.Money{}
	for _, g := range groups {
		totals[g.Key] = g.Total
	}
	if totals["Leroy"] != core.Cents(12500) || totals["Tok"] != core.Cents(300000) {
		t.Fatalf("totals = %+v", totals)
	}

	rec = ts.do(t, http.MethodGet, "/api/purchases/groups?by=color", token, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad grouping status = %d", rec.Code)
	}
}

func TestPaymentMethods(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "ana@example.com").Token

	rec := ts.do(t, http.MethodPost, "/api/payment-methods", token, map[string]string{"name": "Vale"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var methods []string
	decode(t, rec, &methods)
	if len(methods) != len(core.DefaultPaymentMethods())+1 || methods[len(methods)-1] != "Vale" {
		t.Fatalf("methods = %v", methods)
	}
}

func TestSignOutDropsSession(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.signUp(t, "ana@example.com")

	rec := ts.do(t, http.MethodPost, "/api/auth/signout", resp.Token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, ok := ts.sessions.Lookup(resp.User.ID); ok {
		t.Fatal("session still held after sign-out")
	}
}

func TestDataSurvivesSessionReload(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.signUp(t, "ana@example.com")

	rec := ts.do(t, http.MethodPost, "/api/initial-costs", resp.Token, map[string]string{"name": "ITBI"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	ts.sessions.Close(resp.User.ID)

	rec = ts.do(t, http.MethodGet, "/api/initial-costs", resp.Token, nil)
	var costs []core.InitialCost
	decode(t, rec, &costs)
	if len(costs) != 1 || costs[0].Name != "ITBI" {
		t.Fatalf("costs = %+v", costs)
	}
}
