package handlers

import (
	"docportal/internal/services"
	helpers "docportal/internal/utils/helpers"
	"net/http"
)

type SeedHandler struct{ svc *services.SeedService }

func NewSeedHandler(s *services.SeedService) *SeedHandler { return &SeedHandler{svc: s} }

// Seed godoc
// @Summary Начальное заполнение категорий и примеров документов (admin)
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} map[string]bool "seeded=false, если данные уже были"
// @Router /api/admin/seed [post]
func (h *SeedHandler) Seed(w http.ResponseWriter, r *http.Request) {
	userID, _ := caller(r)
	seeded, err := h.svc.Seed(r.Context(), userID)
	if err != nil {
		writeError(w, r, "seed", err)
		return
	}
	helpers.JSON(w, http.StatusOK, map[string]bool{"seeded": seeded})
}
