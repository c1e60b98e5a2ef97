package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"marquee/internal/core"
	"marquee/internal/gateway"
)

func TestClient_Venues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/venues" {
			t.Errorf("path = %s, want /api/venues", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"venues": []string{"Laugh House", "Elsewhere"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	venues, err := c.Venues(context.Background())
	if err != nil {
		t.Fatalf("Venues: %v", err)
	}
	if len(venues) != 2 || venues[0] != "Laugh House" {
		t.Errorf("venues = %v", venues)
	}
}

func TestClient_Shows_PassesVenueQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("venue"); got != "Laugh House" {
			t.Errorf("venue query = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"shows": []core.Show{
			{ShowDate: "2025-08-29", ShowDatetime: time.Date(2025, 8, 29, 20, 0, 0, 0, time.UTC), DisplayLabel: "Fri Aug 29"},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	shows, err := c.Shows(context.Background(), "Laugh House")
	if err != nil {
		t.Fatalf("Shows: %v", err)
	}
	if len(shows) != 1 || shows[0].ShowDate != "2025-08-29" {
		t.Errorf("shows = %+v", shows)
	}
}

func TestClient_ShowBreakdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("venue") != "Laugh House" || q.Get("show_date") != "2025-08-29" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode(core.BreakdownPayload{
			PerSourceGross:        map[string]decimal.Decimal{"Eventbrite": decimal.RequireFromString("1000.00")},
			PerSourceTransactions: map[string]int{"Eventbrite": 40},
			TotalTickets:          40,
			VenueShareRate:        decimal.NewFromInt(30),
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	payload, err := c.ShowBreakdown(context.Background(), "Laugh House", "2025-08-29")
	if err != nil {
		t.Fatalf("ShowBreakdown: %v", err)
	}
	if !payload.PerSourceGross["Eventbrite"].Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("gross = %v", payload.PerSourceGross)
	}
	if payload.TotalTickets != 40 {
		t.Errorf("tickets = %d, want 40", payload.TotalTickets)
	}
}

func TestClient_SavePaymentRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req struct {
			Venue      string               `json:"venue"`
			ShowDate   string               `json:"show_date"`
			Performers []core.PaymentRecord `json:"performers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Venue != "Laugh House" || len(req.Performers) != 1 {
			t.Errorf("request = %+v", req)
		}
		// Server assigns identifiers on save.
		req.Performers[0].ID = "srv:1"
		json.NewEncoder(w).Encode(map[string]any{"performers": req.Performers})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	saved, err := c.SavePaymentRecords(context.Background(), "Laugh House", "2025-08-29", []core.PaymentRecord{
		{Name: "Joey", Amount: decimal.NewFromInt(50)},
	})
	if err != nil {
		t.Fatalf("SavePaymentRecords: %v", err)
	}
	if len(saved) != 1 || saved[0].ID != "srv:1" {
		t.Errorf("saved = %+v, want server-assigned id", saved)
	}
}

func TestClient_RecentSelection_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, ok, err := c.RecentSelection(context.Background())
	if err != nil {
		t.Fatalf("RecentSelection: %v", err)
	}
	if ok {
		t.Error("no content should mean no recent selection")
	}
}

func TestClient_RecentSelection_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(core.Selection{Venue: "Laugh House", ShowDate: "2025-08-16"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	sel, ok, err := c.RecentSelection(context.Background())
	if err != nil {
		t.Fatalf("RecentSelection: %v", err)
	}
	if !ok || sel.Venue != "Laugh House" || sel.ShowDate != "2025-08-16" {
		t.Errorf("sel = %+v, ok = %v", sel, ok)
	}
}

func TestClient_ServerErrorWrapsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Venues(context.Background()); !errors.Is(err, gateway.ErrTransport) {
		t.Errorf("error = %v, want ErrTransport", err)
	}
}

func TestClient_BadJSONWrapsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Venues(context.Background()); !errors.Is(err, gateway.ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}
