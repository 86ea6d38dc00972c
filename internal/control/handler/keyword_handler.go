package handler

import (
	sessionService "github.com/Avi18971911/Tally/internal/session/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"net/http"
)

// ListKeywordsHandler returns the keyword set, built-ins first. ?source_id= selects a
// source's own set when keywords are scoped per source.
func ListKeywordsHandler(s sessionService.Session, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keywords, err := s.Keywords(r.URL.Query().Get("source_id"))
		if err != nil {
			commandError(w, "keyword listing", err, logger)
			return
		}
		writeJSON(w, http.StatusOK, KeywordsResponse{Keywords: keywords}, logger)
	}
}

func AddKeywordHandler(s sessionService.Session, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req KeywordRequest
		if !decodeBody(w, r, &req, logger) {
			return
		}
		if err := s.AddKeyword(req.SourceId, req.Keyword); err != nil {
			commandError(w, "keyword add", err, logger)
			return
		}
		keywords, err := s.Keywords(req.SourceId)
		if err != nil {
			commandError(w, "keyword listing", err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, KeywordsResponse{Keywords: keywords}, logger)
	}
}

func RemoveKeywordHandler(s sessionService.Session, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sourceId := r.URL.Query().Get("source_id")
		if err := s.RemoveKeyword(sourceId, mux.Vars(r)["keyword"]); err != nil {
			commandError(w, "keyword removal", err, logger)
			return
		}
		keywords, err := s.Keywords(sourceId)
		if err != nil {
			commandError(w, "keyword listing", err, logger)
			return
		}
		writeJSON(w, http.StatusOK, KeywordsResponse{Keywords: keywords}, logger)
	}
}
