package handler

import (
	"log/slog"
	"net/http"

	"github.com/GoArmGo/BookCatalog/internal/domain"
	"github.com/GoArmGo/BookCatalog/internal/usecase"
)

// UserHandler — регистрация и чтение пользователей.
type UserHandler struct {
	users  usecase.UserUseCase
	logger *slog.Logger
}

func NewUserHandler(uc usecase.UserUseCase, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: uc, logger: logger}
}

// CreateUser — POST /users. В ответе только UserView.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in domain.UserInput
	if !decodeJSON(w, r, &in, h.logger) {
		return
	}

	view, err := h.users.CreateUser(r.Context(), in)
	if err != nil {
		respondWithDomainError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusCreated, view, h.logger)
}

// GetUser — GET /users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, view, h.logger)
}
