package router

import (
	archiveService "github.com/Avi18971911/Tally/internal/archive/service"
	"github.com/Avi18971911/Tally/internal/control/handler"
	sessionService "github.com/Avi18971911/Tally/internal/session/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"net/http"
)

// CreateRouter maps one route per user command onto the session. archive may be nil, in
// which case the archive routes are not registered.
func CreateRouter(
	session sessionService.Session,
	archive archiveService.ArchiveService,
	logger *zap.Logger,
) http.Handler {
	r := mux.NewRouter()

	r.Handle("/sources", handler.ListSourcesHandler(session, logger)).Methods("GET")
	r.Handle("/sources/{id}", handler.GetSourceHandler(session, logger)).Methods("GET")
	r.Handle("/sources/{id}/reload", handler.ReloadHandler(session, logger)).Methods("POST")
	r.Handle("/sources/{id}/export", handler.ExportHandler(session, logger)).Methods("POST")
	r.Handle("/sources/{id}/records", handler.RecordsHandler(session, logger)).Methods("GET")

	r.Handle("/files", handler.LoadFileHandler(session, logger)).Methods("POST")

	r.Handle("/devices", handler.StartDeviceHandler(session, logger)).Methods("POST")
	r.Handle("/devices/{id}/stop", handler.StopDeviceHandler(session, logger)).Methods("POST")
	r.Handle("/devices/{id}/commands", handler.SendCommandHandler(session, logger)).Methods("POST")
	r.Handle("/ports", handler.ListPortsHandler(session, logger)).Methods("GET")

	r.Handle("/keywords", handler.ListKeywordsHandler(session, logger)).Methods("GET")
	r.Handle("/keywords", handler.AddKeywordHandler(session, logger)).Methods("POST")
	r.Handle("/keywords/{keyword}", handler.RemoveKeywordHandler(session, logger)).Methods("DELETE")

	r.Handle("/reset", handler.ResetHandler(session, logger)).Methods("POST")

	if archive != nil {
		r.Handle("/archive/search", handler.SearchArchiveHandler(archive, logger)).Methods("GET")
		r.Handle("/archive/count", handler.CountArchiveHandler(archive, logger)).Methods("GET")
	}

	return r
}
