package handlers

import (
	"encoding/json"
	"net/http"

	"docportal/internal/logger"
	"docportal/internal/models"
	"docportal/internal/services"
	helpers "docportal/internal/utils/helpers"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type CategoryHandler struct{ svc *services.CategoryService }

func NewCategoryHandler(s *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: s}
}

// ListCategories
// @Summary      Категории с количеством документов
// @Tags         categories
// @Security     ApiKeyAuth
// @Produce      json
// @Success      200 {array} models.CategoryWithCount
// @Failure      500 {object} helpers.Response
// @Router       /api/categories [get]
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, "list_categories", err)
		return
	}
	if list == nil {
		list = []*models.CategoryWithCount{}
	}
	logger.WithCtx(r.Context()).Debug("categories: список получен", zap.Int("count", len(list)))
	helpers.JSON(w, http.StatusOK, list)
}

// CreateCategory
// @Summary      Создать категорию
// @Description  Доступно только администратору
// @Tags         categories
// @Security     ApiKeyAuth
// @Accept       json
// @Produce      json
// @Param        body  body  models.CategoryRequest  true  "Данные категории"
// @Success      201   {object} models.Category
// @Failure      400   {object} helpers.Response
// @Router       /api/admin/categories [post]
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req models.CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WithCtx(r.Context()).Warn("categories: невалидный JSON при создании", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "bad json")
		return
	}

	c, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, "create_category", err)
		return
	}
	helpers.JSON(w, http.StatusCreated, c)
}

// UpdateCategory
// @Summary      Обновить категорию
// @Description  Доступно только администратору
// @Tags         categories
// @Security     ApiKeyAuth
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID категории"
// @Param        body  body  models.CategoryRequest true  "Обновлённые данные"
// @Success      200   {object} models.Category
// @Failure      400   {object} helpers.Response
// @Failure      404   {object} helpers.Response
// @Router       /api/admin/categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req models.CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "bad json")
		return
	}

	c, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, "update_category", err)
		return
	}
	helpers.JSON(w, http.StatusOK, c)
}

// DeleteCategory
// @Summary      Удалить категорию
// @Description  Документы категории остаются без категории
// @Tags         categories
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "ID категории"
// @Success      204 {string} string "No Content"
// @Failure      404 {object} helpers.Response
// @Router       /api/admin/categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, "delete_category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
