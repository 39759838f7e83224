package handlers

import (
	"docportal/internal/logger"
	"docportal/internal/models"
	"docportal/internal/reqctx"
	"docportal/internal/services"
	helpers "docportal/internal/utils/helpers"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type DocumentHandler struct {
	service *services.DocumentService
	uploads *services.UploadService
}

func NewDocumentHandler(docService *services.DocumentService, uploads *services.UploadService) *DocumentHandler {
	return &DocumentHandler{service: docService, uploads: uploads}
}

func caller(r *http.Request) (userID, role string) {
	userID, _ = reqctx.GetUserID(r.Context())
	role, ok := reqctx.GetRole(r.Context())
	if !ok {
		role = models.RoleViewer
	}
	return userID, role
}

// ListDocuments godoc
// @Summary Список документов с поиском
// @Description Сортировка по дате изменения. Скрытые документы видят только editor и admin.
// @Tags documents
// @Security ApiKeyAuth
// @Produce json
// @Param q query string false "Поиск по заголовку и тексту"
// @Param category_id query string false "ID категории"
// @Param limit query int false "Размер страницы (по умолч. 20, макс. 100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} models.DocumentPage
// @Failure 400 {object} helpers.Response
// @Router /api/documents [get]
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	_, role := caller(r)

	page, err := h.service.List(r.Context(), models.DocumentFilter{
		Query:      q.Get("q"),
		CategoryID: q.Get("category_id"),
		Limit:      limit,
		Offset:     offset,
	}, role)
	if err != nil {
		writeError(w, r, "list_documents", err)
		return
	}
	if page.Items == nil {
		page.Items = []*models.Document{}
	}
	helpers.JSON(w, http.StatusOK, page)
}

// GetDocument godoc
// @Summary Документ по ID
// @Description Просмотр фиксируется в истории пользователя.
// @Tags documents
// @Security ApiKeyAuth
// @Produce json
// @Param id path string true "ID документа"
// @Success 200 {object} models.DocumentDetails
// @Failure 404 {object} helpers.Response
// @Router /api/documents/{id} [get]
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID, role := caller(r)
	doc, err := h.service.Get(r.Context(), mux.Vars(r)["id"], userID, role)
	if err != nil {
		writeError(w, r, "get_document", err)
		return
	}
	helpers.JSON(w, http.StatusOK, doc)
}

// RecentDocuments godoc
// @Summary Недавно просмотренные документы
// @Tags documents
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {array} models.Document
// @Router /api/documents/recent [get]
func (h *DocumentHandler) RecentDocuments(w http.ResponseWriter, r *http.Request) {
	userID, role := caller(r)
	docs, err := h.service.Recent(r.Context(), userID, role)
	if err != nil {
		writeError(w, r, "recent_documents", err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	helpers.JSON(w, http.StatusOK, docs)
}

// CreateDocument godoc
// @Summary Создать документ (editor, admin)
// @Tags documents
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body models.DocumentRequest true "Документ"
// @Success 201 {object} models.Document
// @Failure 400 {object} helpers.Response
// @Router /api/documents [post]
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req models.DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WithCtx(r.Context()).Warn("Ошибка декодирования JSON в CreateDocument", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return
	}
	userID, _ := caller(r)
	doc, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, "create_document", err)
		return
	}
	helpers.JSON(w, http.StatusCreated, doc)
}

// UpdateDocument godoc
// @Summary Изменить документ (editor, admin)
// @Tags documents
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path string true "ID документа"
// @Param input body models.DocumentRequest true "Документ"
// @Success 200 {object} models.Document
// @Failure 400 {object} helpers.Response
// @Failure 404 {object} helpers.Response
// @Router /api/documents/{id} [put]
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req models.DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return
	}
	userID, _ := caller(r)
	doc, err := h.service.Update(r.Context(), mux.Vars(r)["id"], userID, req)
	if err != nil {
		writeError(w, r, "update_document", err)
		return
	}
	helpers.JSON(w, http.StatusOK, doc)
}

// DeleteDocument godoc
// @Summary Удалить документ (admin)
// @Tags documents
// @Security ApiKeyAuth
// @Param id path string true "ID документа"
// @Success 204 {string} string "No Content"
// @Failure 404 {object} helpers.Response
// @Router /api/documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, "delete_document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage godoc
// @Summary Загрузка изображения для документа (editor, admin)
// @Tags documents
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Изображение до 5 МБ"
// @Success 201 {object} map[string]string
// @Failure 400 {object} helpers.Response
// @Failure 503 {object} helpers.Response "Хранилище не настроено"
// @Router /api/uploads/images [post]
func (h *DocumentHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(services.MaxImageSize); err != nil {
		log.Warn("Ошибка разбора формы при загрузке изображения", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "Ошибка разбора формы или файл больше 5 МБ")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		log.Warn("Файл не найден при загрузке", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "Файл не найден")
		return
	}
	defer file.Close()

	url, err := h.uploads.UploadImage(r.Context(), header.Filename, header.Size, file)
	if err != nil {
		writeError(w, r, "upload_image", err)
		return
	}
	helpers.JSON(w, http.StatusCreated, map[string]string{"url": url})
}
