// internal/catalog/handler.go
package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"libraloan/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the catalog endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/books", h.HandleAddBook)
	r.Get("/books", h.HandleListBooks)
	r.Get("/books/{id}", h.HandleGetBook)
	r.Put("/books/{id}", h.HandleUpdateBook)
	r.Put("/books/{id}/copies", h.HandleSetCopies)
	r.Delete("/books/{id}", h.HandleRemoveBook)
}

func (h *Handler) HandleAddBook(w http.ResponseWriter, r *http.Request) {
	var req NewBook
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	book, err := h.service.AddBook(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, book)
}

func (h *Handler) HandleListBooks(w http.ResponseWriter, r *http.Request) {
	availableOnly := r.URL.Query().Get("available") == "true"

	books, err := h.service.ListBooks(r.Context(), availableOnly)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if books == nil {
		books = []*Book{}
	}

	httpx.WriteJSON(w, http.StatusOK, books)
}

func (h *Handler) HandleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, book)
}

func (h *Handler) HandleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var req NewBook
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	book, err := h.service.UpdateBook(r.Context(), id, req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, book)
}

func (h *Handler) HandleSetCopies(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var req struct {
		Available int `json:"available_copies"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := h.service.SetAvailableCopies(r.Context(), id, req.Available); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveBook(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := h.service.RemoveBook(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
