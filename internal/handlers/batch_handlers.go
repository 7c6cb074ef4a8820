package handlers

import (
	"net/http"
	"time"

	"todoTracker/internal/handlers/dto"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"

	"go.uber.org/zap"
)

type BatchHandler struct {
	BatchService BatchService
}

func NewBatchHandler(batchService BatchService) *BatchHandler {
	return &BatchHandler{
		BatchService: batchService,
	}
}

func (h *BatchHandler) run(w http.ResponseWriter, r *http.Request, action task.BatchAction,
	call func(r *http.Request, userID int64, ids []int64) (*task.BatchResult, error)) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request dto.BatchRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	result, err := call(r, userID, request.TaskIDs)
	if err != nil {
		handleServiceError(w, r, err, "batch_"+string(action))
		return
	}

	logger.Info("HTTP_OUT: Пакетная операция выполнена",
		zap.String("action", string(action)),
		zap.Int("updated", result.Updated),
		zap.Int("total_requested", result.TotalRequested),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, result)
}

func (h *BatchHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, task.BatchComplete, func(r *http.Request, userID int64, ids []int64) (*task.BatchResult, error) {
		return h.BatchService.Complete(r.Context(), userID, ids)
	})
}

func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, task.BatchDelete, func(r *http.Request, userID int64, ids []int64) (*task.BatchResult, error) {
		return h.BatchService.Delete(r.Context(), userID, ids)
	})
}

func (h *BatchHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, task.BatchRestore, func(r *http.Request, userID int64, ids []int64) (*task.BatchResult, error) {
		return h.BatchService.Restore(r.Context(), userID, ids)
	})
}

func (h *BatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request dto.BatchUpdateRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	result, err := h.BatchService.Update(r.Context(), userID, request.TaskIDs, request.Status, request.Priority)
	if err != nil {
		handleServiceError(w, r, err, "batch_update")
		return
	}

	logger.Info("HTTP_OUT: Пакетное обновление выполнено",
		zap.Int("updated", result.Updated),
		zap.Strings("fields", result.FieldsUpdated),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, result)
}
