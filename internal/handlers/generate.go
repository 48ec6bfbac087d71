package handlers

import (
	"errors"
	"net/http"

	"github.com/pixcelsafe/pixcelsafe/internal/enrichment"
)

func (h *Handler) HandleGenerateMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request enrichment.GenerateRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}

	metadata, err := h.service.Generate(r.Context(), request.ImageID, request.APIKey)
	if err != nil {
		if errors.Is(err, enrichment.ErrRejected) {
			h.writeError(w, "Missing imageId or apiKey", http.StatusBadRequest)
			return
		}
		h.writeError(w, "Failed to generate metadata: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, metadata)
}
