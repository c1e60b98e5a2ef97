package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"marquee/internal/core"
	"marquee/internal/gateway"
	"marquee/internal/ledger"
	"marquee/internal/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Ready once the gateway answers; a busy load still counts as alive.
	if _, err := s.session.Venues(r.Context()); err != nil && !errors.Is(err, session.ErrBusy) {
		respondError(w, http.StatusServiceUnavailable, "gateway unreachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := s.session.Venues(r.Context())
	if err != nil {
		s.respondSessionError(w, r, err, "list venues")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"venues": venues})
}

// handleShows switches the active venue and returns its shows. Unless
// skip_auto_select is set, the show nearest to today is selected and its
// breakdown and ledger are loaded as a side effect.
func (s *Server) handleShows(w http.ResponseWriter, r *http.Request) {
	venue := r.URL.Query().Get("venue")
	if venue == "" {
		respondError(w, http.StatusBadRequest, "venue is required")
		return
	}
	skipAuto := r.URL.Query().Get("skip_auto_select") == "1"

	shows, err := s.session.SelectVenue(r.Context(), venue, skipAuto)
	if err != nil {
		s.respondSessionError(w, r, err, "load shows")
		return
	}
	if shows == nil {
		shows = []core.Show{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"shows":     shows,
		"selection": s.session.Selected(),
	})
}

func (s *Server) handleShowBreakdown(w http.ResponseWriter, r *http.Request) {
	venue := r.URL.Query().Get("venue")
	showDate := r.URL.Query().Get("show_date")
	if venue == "" || showDate == "" {
		respondError(w, http.StatusBadRequest, "venue and show_date are required")
		return
	}

	key := venue + "|" + showDate
	if sel := s.session.Selected(); sel.Venue == venue && sel.ShowDate == showDate {
		if breakdown, ok := s.breakdownCache.Get(key); ok {
			respondJSON(w, http.StatusOK, breakdown)
			return
		}
	}

	breakdown, err := s.session.SelectShow(r.Context(), venue, showDate)
	if err != nil {
		if errors.Is(err, ledger.ErrLoadFailed) {
			// The breakdown itself is fine; the ledger degraded to empty.
			s.logger.WarnContext(r.Context(), "Ledger load failed for selected show",
				"venue", venue, "show_date", showDate, "error", err)
		} else {
			s.respondSessionError(w, r, err, "load breakdown")
			return
		}
	}
	// Only cache when the selection still points at this show; a stale
	// response carries a zero breakdown.
	if sel := s.session.Selected(); sel.Venue == venue && sel.ShowDate == showDate {
		s.breakdownCache.Set(key, breakdown)
	}
	respondJSON(w, http.StatusOK, breakdown)
}

func (s *Server) handleRecent(w http.ResponseWriter, _ *http.Request) {
	sel := s.session.Selected()
	if sel.IsZero() {
		respondJSON(w, http.StatusNoContent, nil)
		return
	}
	respondJSON(w, http.StatusOK, sel)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	resumed, err := s.session.Resume(r.Context())
	if err != nil {
		s.respondSessionError(w, r, err, "resume")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"resumed":   resumed,
		"selection": s.session.Selected(),
	})
}

type performersResponse struct {
	Selection  core.Selection       `json:"selection"`
	Performers []core.PaymentRecord `json:"performers"`
	Total      decimal.Decimal      `json:"total"`
	Status     string               `json:"status"`
}

func (s *Server) performersState() performersResponse {
	lg := s.session.Ledger()
	records := lg.Records()
	if records == nil {
		records = []core.PaymentRecord{}
	}
	return performersResponse{
		Selection:  s.session.Selected(),
		Performers: records,
		Total:      lg.Total(),
		Status:     lg.Status().String(),
	}
}

func (s *Server) handlePerformers(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.performersState())
}

func (s *Server) handleAddPerformer(w http.ResponseWriter, _ *http.Request) {
	if s.session.Selected().ShowDate == "" {
		respondError(w, http.StatusConflict, ledger.ErrNoActiveShow.Error())
		return
	}
	s.session.Ledger().Add()
	respondJSON(w, http.StatusCreated, s.performersState())
}

type updateFieldRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

func (s *Server) handleUpdatePerformer(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	var req updateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	field := ledger.Field(req.Field)
	value, err := decodeFieldValue(field, req.Value)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.session.Ledger().UpdateField(index, field, value); err != nil {
		s.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.performersState())
}

// decodeFieldValue maps the JSON value to the type the field expects.
// Amounts arrive as JSON numbers or strings; both parse to decimal.
func decodeFieldValue(field ledger.Field, raw json.RawMessage) (any, error) {
	switch field {
	case ledger.FieldAmount:
		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil {
			amount, err := decimal.NewFromString(asString)
			if err != nil {
				return nil, errors.New("amount is not a valid number")
			}
			return amount, nil
		}
		var amount decimal.Decimal
		if err := json.Unmarshal(raw, &amount); err != nil {
			return nil, errors.New("amount is not a valid number")
		}
		return amount, nil
	case ledger.FieldPaid:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, errors.New("paid must be a boolean")
		}
		return b, nil
	default:
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil, errors.New("value must be a string")
		}
		return str, nil
	}
}

func (s *Server) handleRemovePerformer(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	if err := s.session.Ledger().Remove(index); err != nil {
		s.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.performersState())
}

func (s *Server) handleFlush(w http.ResponseWriter, _ *http.Request) {
	s.session.Ledger().Flush()
	respondJSON(w, http.StatusOK, s.performersState())
}

func (s *Server) handlePaymentLink(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	records := s.session.Ledger().Records()
	if index < 0 || index >= len(records) {
		respondError(w, http.StatusNotFound, "no performer at index")
		return
	}
	record := records[index]

	sel := s.session.Selected()
	note := sel.Venue + " " + sel.ShowDate
	link, err := core.BuildPaymentLink(record.PayeeHandle, record.Amount, note)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"app_uri": link.AppURI,
		"web_url": link.WebURL,
	})
}

func (s *Server) respondSessionError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, session.ErrBusy):
		respondError(w, http.StatusTooManyRequests, "load already in progress")
	case errors.Is(err, gateway.ErrTransport), errors.Is(err, gateway.ErrMalformedResponse):
		s.logger.ErrorContext(r.Context(), "Gateway failure", "operation", op, "error", err)
		respondError(w, http.StatusBadGateway, "upstream store unavailable")
	default:
		s.logger.ErrorContext(r.Context(), "Request failed", "operation", op, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrIndexRange):
		respondError(w, http.StatusNotFound, "no performer at index")
	case errors.Is(err, ledger.ErrUnknownField),
		errors.Is(err, ledger.ErrWrongType),
		errors.Is(err, core.ErrNegativeAmount):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
