package handler

import (
	sessionModel "github.com/Avi18971911/Tally/internal/session/model"
	sessionService "github.com/Avi18971911/Tally/internal/session/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"net/http"
)

func StartDeviceHandler(s sessionService.Session, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sessionModel.DeviceRequest
		if !decodeBody(w, r, &req, logger) {
			return
		}
		info, err := s.StartDevice(r.Context(), req)
		if err != nil {
			commandError(w, "device start", err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, info, logger)
	}
}

func StopDeviceHandler(s sessionService.Session, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := s.StopDevice(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			commandError(w, "device stop", err, logger)
			return
		}
		writeJSON(w, http.StatusOK, info, logger)
	}
}

func SendCommandHandler(s sessionService.Session, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CommandRequest
		if !decodeBody(w, r, &req, logger) {
			return
		}
		if err := s.SendCommand(mux.Vars(r)["id"], req.Command); err != nil {
			commandError(w, "device command", err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ListPortsHandler(s sessionService.Session, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ports, err := s.ListPorts()
		if err != nil {
			commandError(w, "port listing", err, logger)
			return
		}
		writeJSON(w, http.StatusOK, PortsResponse{Ports: ports}, logger)
	}
}
