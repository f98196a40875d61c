package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GoArmGo/BookCatalog/internal/domain"
	"github.com/GoArmGo/BookCatalog/internal/usecase"
)

// maxBodyBytes — предел размера тела запроса.
const maxBodyBytes = 1 << 20

const internalErrorMessage = "internal server error"

// errorResponse — тело любого ответа с ошибкой.
// Fields заполняется только для ошибок валидации.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// respondWithJSON — отправляет JSON-ответ клиенту.
func respondWithJSON(w http.ResponseWriter, code int, payload any, logger *slog.Logger) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		logger.Error("failed to marshal JSON response", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(response); err != nil {
		logger.Error("failed to write HTTP response", "error", err)
	}
}

// respondWithError — отправляет JSON-ответ с ошибкой.
func respondWithError(w http.ResponseWriter, code int, message string, logger *slog.Logger) {
	respondWithJSON(w, code, errorResponse{Error: message}, logger)
}

// respondWithDomainError классифицирует ошибку usecase и выбирает статус.
// Детали инфраструктурных ошибок остаются в логе.
func respondWithDomainError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		respondWithJSON(w, http.StatusBadRequest, errorResponse{
			Error:  domain.ErrValidation.Error(),
			Fields: validation.Fields,
		}, logger)
	case errors.As(err, &notFound):
		respondWithError(w, http.StatusNotFound, notFound.Error(), logger)
	case errors.Is(err, usecase.ErrEmailTaken):
		respondWithError(w, http.StatusConflict, usecase.ErrEmailTaken.Error(), logger)
	case errors.Is(err, domain.ErrConflict):
		respondWithError(w, http.StatusConflict, domain.ErrConflict.Error(), logger)
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		respondWithError(w, http.StatusInternalServerError, internalErrorMessage, logger)
	}
}

// decodeJSON читает тело запроса в dst. Неизвестные поля игнорируются.
// При ошибке ответ уже отправлен и возвращается false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, logger *slog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		respondWithError(w, http.StatusRequestEntityTooLarge, "request body too large", logger)
	case errors.Is(err, io.EOF):
		respondWithError(w, http.StatusBadRequest, "request body is required", logger)
	default:
		logger.Warn("malformed request body", "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusBadRequest, "malformed JSON body", logger)
	}
	return false
}

// parseID достаёт числовой {id} из пути. Нечисловой id — 400.
func parseID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logger.Warn("invalid id parameter", "id", raw)
		respondWithJSON(w, http.StatusBadRequest, errorResponse{
			Error:  domain.ErrValidation.Error(),
			Fields: map[string]string{"id": "must be an integer"},
		}, logger)
		return 0, false
	}
	return id, true
}
