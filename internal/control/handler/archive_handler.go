package handler

import (
	archiveService "github.com/Avi18971911/Tally/internal/archive/service"
	"go.uber.org/zap"
	"net/http"
	"strconv"
)

// SearchArchiveHandler searches exported streaming records by ?q= phrase, ?source_id= and ?size=.
func SearchArchiveHandler(as archiveService.ArchiveService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		size := 0
		if raw := query.Get("size"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				HttpError(w, "size must be a positive integer", http.StatusBadRequest, logger)
				return
			}
			size = parsed
		}
		documents, err := as.Search(r.Context(), query.Get("source_id"), query.Get("q"), size)
		if err != nil {
			logger.Error("Error encountered when searching the archive", zap.Error(err))
			HttpError(w, "Internal server error", http.StatusInternalServerError, logger)
			return
		}
		writeJSON(w, http.StatusOK, documents, logger)
	}
}

func CountArchiveHandler(as archiveService.ArchiveService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sourceId := r.URL.Query().Get("source_id")
		if sourceId == "" {
			HttpError(w, "source_id is required", http.StatusBadRequest, logger)
			return
		}
		count, err := as.Count(r.Context(), sourceId)
		if err != nil {
			logger.Error("Error encountered when counting the archive", zap.Error(err))
			HttpError(w, "Internal server error", http.StatusInternalServerError, logger)
			return
		}
		writeJSON(w, http.StatusOK, CountResponse{SourceId: sourceId, Count: count}, logger)
	}
}
