package handler

import (
	"encoding/json"
	"errors"
	keywordService "github.com/Avi18971911/Tally/internal/keyword/service"
	sessionService "github.com/Avi18971911/Tally/internal/session/service"
	"github.com/Avi18971911/Tally/internal/source"
	"go.uber.org/zap"
	"io"
	"net/http"
	"os"
)

type ErrorMessage struct {
	Message string `json:"message"`
}

func HttpError(w http.ResponseWriter, message string, statusCode int, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(ErrorMessage{Message: message})
	if err != nil {
		logger.Error("Failed to encode error message", zap.Error(err))
	}
}

// statusFor maps command failures onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, keywordService.ErrEmptyKeyword),
		errors.Is(err, keywordService.ErrBuiltinKeyword),
		errors.Is(err, sessionService.ErrInvalidDevice),
		errors.Is(err, sessionService.ErrWrongSourceKind),
		errors.Is(err, sessionService.ErrNotRestartable):
		return http.StatusBadRequest
	case errors.Is(err, keywordService.ErrKeywordNotFound),
		errors.Is(err, sessionService.ErrSourceNotFound),
		errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, keywordService.ErrDuplicateKeyword),
		errors.Is(err, sessionService.ErrSourceExists),
		errors.Is(err, sessionService.ErrSourceClosed),
		errors.Is(err, sessionService.ErrOutputInUse),
		errors.Is(err, source.ErrPortNotOpen):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func commandError(w http.ResponseWriter, action string, err error, logger *zap.Logger) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Error encountered when handling "+action, zap.Error(err))
		HttpError(w, "Internal server error", status, logger)
		return
	}
	logger.Info("Rejected "+action, zap.Error(err))
	HttpError(w, err.Error(), status, logger)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logger.Error("Error encountered when closing request body", zap.Error(err))
		}
	}(r.Body)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Error("Error encountered when decoding request body", zap.Error(err))
		HttpError(w, "Invalid request payload", http.StatusBadRequest, logger)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Error encountered when encoding response", zap.Error(err))
	}
}
