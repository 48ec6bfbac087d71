package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pixcelsafe/pixcelsafe/internal/enrichment"
	"github.com/pixcelsafe/pixcelsafe/internal/storage"
)

// DefaultMaxBodyBytes leaves room for data-URI encoded images
const DefaultMaxBodyBytes int64 = 50 * 1024 * 1024

type Handler struct {
	store        *storage.Catalog
	service      *enrichment.Service
	maxBodyBytes int64
}

// New returns a handler serving the enrichment endpoint and the catalog
// mirror held in store.
func New(store *storage.Catalog, service *enrichment.Service, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		store:        store,
		service:      service,
		maxBodyBytes: maxBodyBytes,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Debug(message, "code", code)
	}
	h.writeJSONStatus(w, code, map[string]string{"error": message})
}

// decodeJSON reads a JSON body, answering 413 or 400 itself on failure
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
