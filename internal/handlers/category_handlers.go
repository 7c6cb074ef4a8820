package handlers

import (
	"net/http"
	"time"

	"todoTracker/internal/handlers/dto"
	"todoTracker/internal/logger"

	"go.uber.org/zap"
)

type CategoryHandler struct {
	CategoryService CategoryService
}

func NewCategoryHandler(categoryService CategoryService) *CategoryHandler {
	return &CategoryHandler{
		CategoryService: categoryService,
	}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	categories, err := h.CategoryService.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, "list_categories")
		return
	}
	responseWithData(w, http.StatusOK, dto.FromCategoryList(categories))
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request dto.CategoryRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	c, err := h.CategoryService.Create(r.Context(), userID, request.Name, request.Color)
	if err != nil {
		handleServiceError(w, r, err, "create_category")
		return
	}

	logger.Info("HTTP_OUT: Категория создана",
		zap.Int64("category_id", c.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithData(w, http.StatusCreated, dto.FromCategory(c))
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.CategoryService.Get(r.Context(), userID, id)
	if err != nil {
		handleServiceError(w, r, err, "get_category")
		return
	}
	responseWithData(w, http.StatusOK, dto.FromCategory(c))
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request dto.CategoryRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	c, err := h.CategoryService.Update(r.Context(), userID, id, request.Name, request.Color)
	if err != nil {
		handleServiceError(w, r, err, "update_category")
		return
	}

	logger.Info("HTTP_OUT: Категория обновлена",
		zap.Int64("category_id", c.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, dto.FromCategory(c))
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.CategoryService.Delete(r.Context(), userID, id); err != nil {
		handleServiceError(w, r, err, "delete_category")
		return
	}

	logger.Info("HTTP_OUT: Категория удалена",
		zap.Int64("category_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}
