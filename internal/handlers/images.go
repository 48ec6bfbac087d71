package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/pixcelsafe/pixcelsafe/internal/models"
)

func (h *Handler) HandleUploadImages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Images []models.Item `json:"images"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if request.Images == nil {
		h.writeError(w, "Invalid images data", http.StatusBadRequest)
		return
	}

	inserted := h.store.Insert(request.Images)

	h.writeJSON(w, map[string]any{
		"success": true,
		"count":   len(inserted),
		"skipped": len(request.Images) - len(inserted),
	})
}

func (h *Handler) HandleImages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, h.store.Snapshot())
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleImageDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/images/")
	if id == "" || strings.Contains(id, "/") {
		h.writeError(w, "Image not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		item, ok := h.store.Get(id)
		if !ok {
			h.writeError(w, "Image not found", http.StatusNotFound)
			return
		}
		h.writeJSON(w, item)
	case http.MethodDelete:
		if !h.store.Delete(id) {
			h.writeError(w, "Image not found", http.StatusNotFound)
			return
		}
		h.writeJSON(w, map[string]bool{"success": true})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
