// internal/circulation/handler.go
package circulation

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libraloan/internal/apperrors"
	"libraloan/internal/clock"
	"libraloan/internal/httpx"
)

type Handler struct {
	service Service
	clock   clock.Clock
}

func NewHandler(service Service, c clock.Clock) *Handler {
	return &Handler{service: service, clock: c}
}

// Routes mounts the loan write endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/loans", h.HandleCreateLoan)
	r.Get("/loans/{id}", h.HandleGetLoan)
	r.Post("/loans/{id}/return", h.HandleReturnLoan)
	r.Delete("/loans/{id}", h.HandleCancelLoan)
}

func (h *Handler) HandleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BorrowerID         uuid.UUID `json:"borrower_id"`
		BookID             uuid.UUID `json:"book_id"`
		LoanDate           string    `json:"loan_date"`
		ExpectedReturnDate string    `json:"expected_return_date"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if req.BorrowerID == uuid.Nil || req.BookID == uuid.Nil {
		httpx.WriteError(w, r, apperrors.Validation(apperrors.InvalidInput, "borrower_id and book_id are required"))
		return
	}

	loanDate, err := h.dateOrToday(req.LoanDate, "loan_date")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	create := CreateLoanRequest{BorrowerID: req.BorrowerID, BookID: req.BookID, LoanDate: loanDate}
	if req.ExpectedReturnDate != "" {
		expected, err := parseDate(req.ExpectedReturnDate, "expected_return_date")
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		create.ExpectedReturnDate = &expected
	}

	result, err := h.service.CreateLoan(r.Context(), create)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) HandleGetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	loan, err := h.service.GetLoan(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loan)
}

func (h *Handler) HandleReturnLoan(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var req struct {
		ActualReturnDate string `json:"actual_return_date"`
	}
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
	}

	actual, err := h.dateOrToday(req.ActualReturnDate, "actual_return_date")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	result, err := h.service.ReturnLoan(r.Context(), id, actual)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleCancelLoan(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := h.service.CancelLoan(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) dateOrToday(s, field string) (time.Time, error) {
	if s == "" {
		return clock.Today(h.clock), nil
	}
	return parseDate(s, field)
}

func parseDate(s, field string) (time.Time, error) {
	d, err := clock.ParseDate(s)
	if err != nil {
		return time.Time{}, apperrors.Validation(apperrors.InvalidInput, "invalid %s %q, want YYYY-MM-DD", field, s)
	}
	return d, nil
}
