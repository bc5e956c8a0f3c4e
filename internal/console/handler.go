package console

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// Reboot dispatches an asynchronous serial console reboot for the VM and
// returns the console log tracking it.
func (h *Handler) Reboot(w http.ResponseWriter, r *http.Request) {
	vmID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid virtual machine id", http.StatusBadRequest)
		return
	}
	entry, err := h.svc.RequestReboot(r.Context(), vmID)
	if err != nil {
		h.log.Error("reboot dispatch failed", "virtual_machine", vmID, "error", err)
		http.Error(w, "reboot dispatch failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(entry)
}

func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid console log id", http.StatusBadRequest)
		return
	}
	entry, err := h.svc.GetLog(r.Context(), id)
	if err != nil {
		http.Error(w, "console log not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entry)
}
