package handler

import (
	sessionService "github.com/Avi18971911/Tally/internal/session/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"net/http"
)

// ListSourcesHandler returns every registered source.
func ListSourcesHandler(s sessionService.Session, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Sources(), logger)
	}
}

func GetSourceHandler(s sessionService.Session, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := s.Source(mux.Vars(r)["id"])
		if err != nil {
			commandError(w, "source lookup", err, logger)
			return
		}
		writeJSON(w, http.StatusOK, info, logger)
	}
}

// LoadFileHandler replays a log file into a file source, replacing its previous batch.
func LoadFileHandler(s sessionService.Session, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoadFileRequest
		if !decodeBody(w, r, &req, logger) {
			return
		}
		if req.Path == "" {
			HttpError(w, "path is required", http.StatusBadRequest, logger)
			return
		}
		info, err := s.LoadFile(r.Context(), req.SourceId, req.Path)
		if err != nil {
			commandError(w, "file load", err, logger)
			return
		}
		writeJSON(w, http.StatusOK, info, logger)
	}
}

func ReloadHandler(s sessionService.Session, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := s.Reload(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			commandError(w, "reload", err, logger)
			return
		}
		writeJSON(w, http.StatusOK, info, logger)
	}
}

// ExportHandler writes the rich report of a file source or flushes a streaming source.
func ExportHandler(s sessionService.Session, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.Export(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			commandError(w, "export", err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result, logger)
	}
}

// RecordsHandler returns the recent records of a source, optionally narrowed by ?filter=.
func RecordsHandler(s sessionService.Session, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		records, err := s.Records(id, r.URL.Query().Get("filter"))
		if err != nil {
			commandError(w, "records lookup", err, logger)
			return
		}
		writeJSON(w, http.StatusOK, RecordsResponse{SourceId: id, Records: toRecordDTOs(records)}, logger)
	}
}

func ResetHandler(s sessionService.Session, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Reset(r.Context()); err != nil {
			commandError(w, "reset", err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
