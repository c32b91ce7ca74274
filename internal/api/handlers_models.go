package api

import (
	"net/http"

	"github.com/steveyegge/slogan-gen/internal/generator"
)

type ModelsHandler struct {
	svc *generator.Service
}

func NewModelsHandler(svc *generator.Service) *ModelsHandler {
	return &ModelsHandler{svc: svc}
}

// List handles GET /api/v1/models
func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	models, err := h.svc.Client().Models(r.Context())
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "service_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ModelsResponse{
		Models:       models,
		DefaultModel: h.svc.DefaultModel(),
		Count:        len(models),
	})
}
