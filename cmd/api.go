package cmd

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zjrosen/plugboard/internal/extension"
	"github.com/zjrosen/plugboard/internal/log"
)

// extensionDTO is the wire shape of one extension in the management API.
type extensionDTO struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Summary      string   `json:"summary,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	Configurable bool     `json:"configurable"`
	Enabled      bool     `json:"enabled"`
	Installed    bool     `json:"installed"`
	State        string   `json:"state"`
}

func toExtensionDTO(manager *extension.Manager, d *extension.Descriptor) extensionDTO {
	return extensionDTO{
		ID:           d.ID,
		Name:         d.Name,
		Version:      d.Version,
		Summary:      d.Summary,
		Requirements: d.Requirements,
		Configurable: d.Configurable,
		Enabled:      d.Enabled,
		Installed:    d.Installed,
		State:        stateOf(d, manager.InstanceOf(d.ID) != nil),
	}
}

// stateOf names the furthest lifecycle state a descriptor has reached.
// Installed is sticky, so a disabled-but-installed extension reports
// "installed" rather than falling back to "registered". An extension
// recorded enabled without a live instance (its Init failed during the
// last discovery pass) reports "degraded".
func stateOf(d *extension.Descriptor, live bool) string {
	switch {
	case d.Enabled && live:
		return "enabled"
	case d.Enabled:
		return "degraded"
	case d.Installed:
		return "installed"
	default:
		return "registered"
	}
}

// newAPIHandler serves the daemon's management API:
//
//	GET  /api/extensions               list known extensions and states
//	POST /api/extensions/{id}/enable   enable (installing if needed)
//	POST /api/extensions/{id}/disable  disable, cascading to dependents
//	POST /api/discover                 force a discovery pass
func newAPIHandler(manager *extension.Manager) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/extensions", func(w http.ResponseWriter, r *http.Request) {
		dtos := make([]extensionDTO, 0)
		for _, d := range manager.Descriptors() {
			dtos = append(dtos, toExtensionDTO(manager, d))
		}
		writeJSON(w, http.StatusOK, dtos)
	})

	mux.HandleFunc("POST /api/extensions/{id}/enable", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, err := manager.Enable(r.Context(), id); err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toExtensionDTO(manager, manager.Descriptor(id)))
	})

	mux.HandleFunc("POST /api/extensions/{id}/disable", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := manager.Disable(r.Context(), id); err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toExtensionDTO(manager, manager.Descriptor(id)))
	})

	mux.HandleFunc("POST /api/discover", func(w http.ResponseWriter, r *http.Request) {
		if err := manager.Discover(r.Context()); err != nil {
			writeAPIError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.ErrorErr(log.CatHost, "encoding API response", err)
	}
}

func writeAPIError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, extension.ErrUnknownExtension):
		status = http.StatusNotFound
	case errors.Is(err, extension.ErrDependencyCycle):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
