// internal/reporting/handler.go
package reporting

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libraloan/internal/apperrors"
	"libraloan/internal/circulation"
	"libraloan/internal/clock"
	"libraloan/internal/httpx"
	"libraloan/internal/journal"
	"libraloan/internal/session"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the public report endpoints on r. /me/statistics is mounted
// separately behind the session middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/borrowers/{id}/statistics", h.HandleBorrowerStatistics)
	r.Get("/borrowers/{id}/history", h.HandleBorrowerHistory)
	r.Get("/loans", h.HandleLoans)
	r.Get("/loans/overdue", h.HandleOverdueLoans)
	r.Get("/audit", h.HandleAuditLog)
}

func (h *Handler) HandleBorrowerStatistics(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeStatistics(w, r, id)
}

// HandleMyStatistics reports on the borrower of the current session.
func (h *Handler) HandleMyStatistics(w http.ResponseWriter, r *http.Request) {
	id, ok := session.BorrowerFrom(r.Context())
	if !ok {
		http.Redirect(w, r, session.LoginPath, http.StatusSeeOther)
		return
	}
	h.writeStatistics(w, r, id)
}

func (h *Handler) writeStatistics(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	stats, err := h.service.BorrowerStatistics(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleBorrowerHistory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	limit, err := intQuery(r, "limit")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	lines, err := h.service.BorrowerHistory(r.Context(), id, limit)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, lines)
}

func (h *Handler) HandleLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.Loans(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if loans == nil {
		loans = []*circulation.LoanView{}
	}
	httpx.WriteJSON(w, http.StatusOK, loans)
}

func (h *Handler) HandleOverdueLoans(w http.ResponseWriter, r *http.Request) {
	lines, err := h.service.OverdueLoans(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, lines)
}

func (h *Handler) HandleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		filter journal.Filter
		err    error
	)
	if filter.From, err = timeQuery(q.Get("from"), false); err != nil {
		httpx.WriteError(w, r, apperrors.Validation(apperrors.InvalidInput, "invalid from %q", q.Get("from")))
		return
	}
	if filter.To, err = timeQuery(q.Get("to"), true); err != nil {
		httpx.WriteError(w, r, apperrors.Validation(apperrors.InvalidInput, "invalid to %q", q.Get("to")))
		return
	}
	filter.Operation = journal.Operation(q.Get("operation"))
	if filter.Limit, err = intQuery(r, "limit"); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	entries, err := h.service.AuditLog(r.Context(), filter)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	httpx.WriteJSON(w, http.StatusOK, entries)
}

// timeQuery accepts RFC 3339 or a calendar date. A date used as an upper
// bound covers the whole day.
func timeQuery(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := clock.ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return d, nil
}

func intQuery(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperrors.Validation(apperrors.InvalidInput, "invalid %s %q", name, v)
	}
	return n, nil
}
