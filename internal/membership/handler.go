// internal/membership/handler.go
package membership

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"libraloan/internal/apperrors"
	"libraloan/internal/clock"
	"libraloan/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the borrower endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/borrowers", h.HandleRegister)
	r.Get("/borrowers", h.HandleListBorrowers)
	r.Get("/borrowers/{id}", h.HandleGetBorrower)
	r.Put("/borrowers/{id}", h.HandleUpdateBorrower)
	r.Delete("/borrowers/{id}", h.HandleRemoveBorrower)
	r.Put("/borrowers/{id}/fine", h.HandleSetFine)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		EnrolledOn string `json:"enrolled_on"`
		Password   string `json:"password"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	reg := Registration{Name: req.Name, Email: req.Email, Phone: req.Phone, Password: req.Password}
	if req.EnrolledOn != "" {
		d, err := clock.ParseDate(req.EnrolledOn)
		if err != nil {
			httpx.WriteError(w, r, apperrors.Validation(apperrors.InvalidInput, "invalid enrolled_on %q", req.EnrolledOn))
			return
		}
		reg.EnrolledOn = d
	}

	borrower, err := h.service.Register(r.Context(), reg)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, borrower)
}

func (h *Handler) HandleListBorrowers(w http.ResponseWriter, r *http.Request) {
	borrowers, err := h.service.ListBorrowers(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if borrowers == nil {
		borrowers = []*Borrower{}
	}

	httpx.WriteJSON(w, http.StatusOK, borrowers)
}

func (h *Handler) HandleGetBorrower(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	borrower, err := h.service.GetBorrower(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, borrower)
}

func (h *Handler) HandleUpdateBorrower(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var req struct {
		Name        string           `json:"name"`
		Email       string           `json:"email"`
		Phone       string           `json:"phone"`
		EnrolledOn  string           `json:"enrolled_on"`
		FineBalance *decimal.Decimal `json:"fine_balance"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	upd := BorrowerUpdate{Name: req.Name, Email: req.Email, Phone: req.Phone, FineBalance: req.FineBalance}
	if req.EnrolledOn != "" {
		d, err := clock.ParseDate(req.EnrolledOn)
		if err != nil {
			httpx.WriteError(w, r, apperrors.Validation(apperrors.InvalidInput, "invalid enrolled_on %q", req.EnrolledOn))
			return
		}
		upd.EnrolledOn = d
	}

	borrower, err := h.service.UpdateBorrower(r.Context(), id, upd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, borrower)
}

func (h *Handler) HandleRemoveBorrower(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := h.service.RemoveBorrower(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSetFine(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var req struct {
		FineBalance decimal.Decimal `json:"fine_balance"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := h.service.SetFineBalance(r.Context(), id, req.FineBalance); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
