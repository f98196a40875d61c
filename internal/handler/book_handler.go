package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/GoArmGo/BookCatalog/internal/domain"
	"github.com/GoArmGo/BookCatalog/internal/usecase"
)

// BookHandler — обработчик HTTP-запросов для работы с книгами.
type BookHandler struct {
	catalog usecase.CatalogUseCase
	logger  *slog.Logger
}

// NewBookHandler создаёт новый экземпляр BookHandler.
func NewBookHandler(uc usecase.CatalogUseCase, logger *slog.Logger) *BookHandler {
	return &BookHandler{catalog: uc, logger: logger}
}

// ListBooks — GET /books?available=&author=
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.BookFilter{Author: q.Get("author")}

	if raw := q.Get("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithDomainError(w, r, domain.NewValidationError("available", "must be true or false"), h.logger)
			return
		}
		filter.Available = &available
	}

	books, err := h.catalog.ListBooks(r.Context(), filter)
	if err != nil {
		respondWithDomainError(w, r, err, h.logger)
		return
	}

	h.logger.Debug("books listed", "count", len(books))
	respondWithJSON(w, http.StatusOK, books, h.logger)
}

// GetBook — GET /books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, h.logger)
	if !ok {
		return
	}

	book, err := h.catalog.GetBook(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, book, h.logger)
}

// CreateBook — POST /books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var in domain.BookInput
	if !decodeJSON(w, r, &in, h.logger) {
		return
	}

	book, err := h.catalog.CreateBook(r.Context(), in)
	if err != nil {
		respondWithDomainError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusCreated, book, h.logger)
}
