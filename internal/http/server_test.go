package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"marquee/internal/core"
	"marquee/internal/gateway/memory"
	"marquee/internal/ledger"
	applog "marquee/internal/log"
	"marquee/internal/reconcile"
	"marquee/internal/session"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()

	store := memory.New()
	store.SeedVenue("Laugh House",
		core.Show{ShowDate: "2025-08-29", ShowDatetime: time.Date(2025, 8, 29, 20, 0, 0, 0, time.UTC), DisplayLabel: "Fri Aug 29"},
	)
	store.SeedBreakdown("Laugh House", "2025-08-29", core.BreakdownPayload{
		PerSourceGross:        map[string]decimal.Decimal{"Eventbrite": decimal.RequireFromString("1000.00")},
		PerSourceTransactions: map[string]int{"Eventbrite": 40},
		TotalTickets:          40,
		VenueShareRate:        decimal.NewFromInt(30),
	})

	lg := ledger.New(store, ledger.WithDebounce(30*time.Millisecond), ledger.WithStatusHold(30*time.Millisecond))
	sess := session.New(store, reconcile.NewCalculator(core.DefaultFeeTable()), lg)

	srv := NewServer("0", sess, applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP))
	t.Cleanup(func() {
		srv.rateLimiter.stop()
		srv.cacheManager.Stop()
	})
	return srv, store
}

func doRequest(srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestServer_Venues(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/venues", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Venues []string `json:"venues"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Venues) != 1 || resp.Venues[0] != "Laugh House" {
		t.Errorf("venues = %v", resp.Venues)
	}
}

func TestServer_ShowsSelectsNearest(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/shows?venue=Laugh+House", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Shows     []core.Show    `json:"shows"`
		Selection core.Selection `json:"selection"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Shows) != 1 {
		t.Fatalf("shows = %+v", resp.Shows)
	}
	if resp.Selection.ShowDate != "2025-08-29" {
		t.Errorf("selection = %+v, want auto-selected show", resp.Selection)
	}
}

func TestServer_ShowBreakdown(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/show-breakdown?venue=Laugh+House&show_date=2025-08-29", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var breakdown core.RevenueBreakdown
	if err := json.Unmarshal(rec.Body.Bytes(), &breakdown); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Eventbrite: 3.7% of 1000 + 1.79 x 40 = 108.60 in fees.
	if !breakdown.GrossRevenue.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("gross = %v", breakdown.GrossRevenue)
	}
	if !breakdown.NetRevenue.Equal(breakdown.GrossRevenue.Sub(breakdown.TotalProcessingFees)) {
		t.Errorf("net invariant violated: %+v", breakdown)
	}

	// Second fetch for the same selected show comes from cache.
	rec2 := doRequest(srv, http.MethodGet, "/api/show-breakdown?venue=Laugh+House&show_date=2025-08-29", nil)
	if rec2.Code != http.StatusOK {
		t.Fatalf("cached status = %d", rec2.Code)
	}
	if srv.breakdownCache.Size() != 1 {
		t.Errorf("cache size = %d, want 1", srv.breakdownCache.Size())
	}
}

func TestServer_BreakdownMissingParams(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/show-breakdown?venue=Laugh+House", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestServer_PerformerLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	// Select a show so the ledger has an active key.
	if rec := doRequest(srv, http.MethodGet, "/api/show-breakdown?venue=Laugh+House&show_date=2025-08-29", nil); rec.Code != http.StatusOK {
		t.Fatalf("select show: %d", rec.Code)
	}

	rec := doRequest(srv, http.MethodPost, "/api/performers/", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d: %s", rec.Code, rec.Body)
	}

	rec = doRequest(srv, http.MethodPatch, "/api/performers/0", map[string]any{"field": "name", "value": "Joey"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update name status = %d: %s", rec.Code, rec.Body)
	}
	rec = doRequest(srv, http.MethodPatch, "/api/performers/0", map[string]any{"field": "amount", "value": "75.50"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update amount status = %d: %s", rec.Code, rec.Body)
	}

	var state performersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(state.Performers) != 1 || state.Performers[0].Name != "Joey" {
		t.Errorf("performers = %+v", state.Performers)
	}
	if !state.Total.Equal(decimal.RequireFromString("75.50")) {
		t.Errorf("total = %v, want 75.50", state.Total)
	}

	rec = doRequest(srv, http.MethodDelete, "/api/performers/0", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}
	rec = doRequest(srv, http.MethodGet, "/api/performers/", nil)
	var after performersResponse
	json.Unmarshal(rec.Body.Bytes(), &after)
	if len(after.Performers) != 0 {
		t.Errorf("performers after remove = %+v", after.Performers)
	}
}

func TestServer_UpdateValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	doRequest(srv, http.MethodGet, "/api/show-breakdown?venue=Laugh+House&show_date=2025-08-29", nil)
	doRequest(srv, http.MethodPost, "/api/performers/", nil)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"negative amount", map[string]any{"field": "amount", "value": "-5"}, http.StatusBadRequest},
		{"unknown field", map[string]any{"field": "color", "value": "red"}, http.StatusBadRequest},
		{"bad amount", map[string]any{"field": "amount", "value": "abc"}, http.StatusBadRequest},
		{"paid wants bool", map[string]any{"field": "paid", "value": "yes"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPatch, "/api/performers/0", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}

	rec := doRequest(srv, http.MethodPatch, "/api/performers/99", map[string]any{"field": "name", "value": "x"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("out of range status = %d, want 404", rec.Code)
	}
}

func TestServer_PaymentLink(t *testing.T) {
	srv, _ := newTestServer(t)
	doRequest(srv, http.MethodGet, "/api/show-breakdown?venue=Laugh+House&show_date=2025-08-29", nil)
	doRequest(srv, http.MethodPost, "/api/performers/", nil)
	doRequest(srv, http.MethodPatch, "/api/performers/0", map[string]any{"field": "name", "value": "Joey"})
	doRequest(srv, http.MethodPatch, "/api/performers/0", map[string]any{"field": "payee_handle", "value": "@joey-c"})

	rec := doRequest(srv, http.MethodGet, "/api/performers/0/payment-link", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var link struct {
		AppURI string `json:"app_uri"`
		WebURL string `json:"web_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &link); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(link.AppURI, "venmo://paycharge?txn=pay&recipients=joey-c") {
		t.Errorf("app uri = %s", link.AppURI)
	}
	if !strings.HasPrefix(link.WebURL, "https://venmo.com/joey-c") {
		t.Errorf("web url = %s", link.WebURL)
	}
}

func TestServer_PaymentLinkWithoutHandle(t *testing.T) {
	srv, _ := newTestServer(t)
	doRequest(srv, http.MethodGet, "/api/show-breakdown?venue=Laugh+House&show_date=2025-08-29", nil)
	doRequest(srv, http.MethodPost, "/api/performers/", nil)

	rec := doRequest(srv, http.MethodGet, "/api/performers/0/payment-link", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestServer_ResumeRestoresRecentShow(t *testing.T) {
	srv, store := newTestServer(t)
	store.SeedRecent("Laugh House", "2025-08-29")

	rec := doRequest(srv, http.MethodPost, "/api/resume", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Resumed   bool           `json:"resumed"`
		Selection core.Selection `json:"selection"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Resumed || resp.Selection.ShowDate != "2025-08-29" {
		t.Errorf("resume = %+v", resp)
	}
}

func TestServer_AddPerformerWithoutShow(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/performers/", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestServer_RecentBeforeAnySelection(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/recent", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestServer_InvalidateShowDropsCache(t *testing.T) {
	srv, _ := newTestServer(t)
	doRequest(srv, http.MethodGet, "/api/show-breakdown?venue=Laugh+House&show_date=2025-08-29", nil)
	if srv.breakdownCache.Size() != 1 {
		t.Fatalf("cache size = %d, want 1", srv.breakdownCache.Size())
	}

	srv.InvalidateShow("Laugh House", "2025-08-29")
	if srv.breakdownCache.Size() != 0 {
		t.Errorf("cache size after invalidation = %d, want 0", srv.breakdownCache.Size())
	}
}
