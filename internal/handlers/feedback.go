package handlers

import (
	"docportal/internal/models"
	"docportal/internal/services"
	helpers "docportal/internal/utils/helpers"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

type FeedbackHandler struct {
	svc *services.FeedbackService
}

func NewFeedbackHandler(s *services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: s}
}

// SubmitFeedback godoc
// @Summary Оставить отзыв о документе
// @Description Оценка 1..5 и необязательный комментарий.
// @Tags feedback
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path string true "ID документа"
// @Param input body models.FeedbackRequest true "Отзыв"
// @Success 201 {object} models.DocumentFeedback
// @Failure 400 {object} helpers.Response
// @Failure 404 {object} helpers.Response
// @Failure 409 {object} helpers.Response "Отзыв уже оставлен"
// @Router /api/documents/{id}/feedback [post]
func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req models.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return
	}
	userID, role := caller(r)

	fb, err := h.svc.Submit(r.Context(), models.SubmitFeedbackInput{
		DocumentID: mux.Vars(r)["id"],
		UserID:     userID,
		Role:       role,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		writeError(w, r, "submit_feedback", err)
		return
	}
	helpers.JSON(w, http.StatusCreated, fb)
}

// DocumentFeedback godoc
// @Summary Отзывы о документе и средняя оценка
// @Tags feedback
// @Security ApiKeyAuth
// @Produce json
// @Param id path string true "ID документа"
// @Success 200 {object} models.DocumentFeedbackSummary
// @Failure 404 {object} helpers.Response
// @Router /api/documents/{id}/feedback [get]
func (h *FeedbackHandler) DocumentFeedback(w http.ResponseWriter, r *http.Request) {
	_, role := caller(r)
	sum, err := h.svc.ForDocument(r.Context(), mux.Vars(r)["id"], role)
	if err != nil {
		writeError(w, r, "document_feedback", err)
		return
	}
	helpers.JSON(w, http.StatusOK, sum)
}

// Dashboard godoc
// @Summary Панель отзывов (admin)
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Param rating query int false "Оценка 1..5"
// @Param category_id query string false "ID категории"
// @Param q query string false "Поиск по документу, комментарию, имени и e-mail"
// @Success 200 {array} models.FeedbackEntry
// @Failure 400 {object} helpers.Response
// @Router /api/admin/feedback [get]
func (h *FeedbackHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.FeedbackFilter{CategoryID: q.Get("category_id"), Term: q.Get("q")}
	if s := q.Get("rating"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			helpers.Error(w, http.StatusBadRequest, "rating: ожидается число")
			return
		}
		f.Rating = n
	}

	list, err := h.svc.Dashboard(r.Context(), f)
	if err != nil {
		writeError(w, r, "feedback_dashboard", err)
		return
	}
	if list == nil {
		list = []*models.FeedbackEntry{}
	}
	helpers.JSON(w, http.StatusOK, list)
}
