package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"todoTracker/internal/handlers/dto"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"

	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService TaskService
}

func NewTaskHandler(taskService TaskService) *TaskHandler {
	return &TaskHandler{
		TaskService: taskService,
	}
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	filter, ok := parseTaskFilter(w, r)
	if !ok {
		return
	}

	page, err := h.TaskService.List(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, r, err, "list_tasks")
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(page.Tasks)),
		zap.Int("total", page.Total),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, dto.TaskListResponse{
		Tasks:  dto.FromTaskList(page.Tasks),
		Total:  page.Total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

func parseTaskFilter(w http.ResponseWriter, r *http.Request) (task.Filter, bool) {
	q := r.URL.Query()
	var filter task.Filter

	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return filter, false
	}
	offset, ok := queryInt(w, r, "offset")
	if !ok {
		return filter, false
	}
	filter.Limit, filter.Offset = limit, offset

	if v := q.Get("status"); v != "" {
		status := task.Status(v)
		filter.Status = &status
	}
	if v := q.Get("priority"); v != "" {
		priority := task.Priority(v)
		filter.Priority = &priority
	}
	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			responseWithError(w, http.StatusBadRequest, codeBadRequest, "неверное значение category_id")
			return filter, false
		}
		filter.CategoryID = &id
	}
	if v := q.Get("category_ids"); v != "" {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || id <= 0 {
				responseWithError(w, http.StatusBadRequest, codeBadRequest, "неверное значение category_ids")
				return filter, false
			}
			filter.CategoryIDs = append(filter.CategoryIDs, id)
		}
	}
	for name, dst := range map[string]**time.Time{
		"deadline_from": &filter.DeadlineFrom,
		"deadline_to":   &filter.DeadlineTo,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		d, err := dto.ParseDate(&v)
		if err != nil {
			responseWithError(w, http.StatusBadRequest, codeBadRequest, name+": "+err.Error())
			return filter, false
		}
		*dst = d
	}
	filter.Search = q.Get("search")
	if v := q.Get("include_deleted"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			responseWithError(w, http.StatusBadRequest, codeBadRequest, "неверное значение include_deleted")
			return filter, false
		}
		filter.IncludeDeleted = include
	}

	filter.Normalize()
	return filter, true
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	nt, err := request.ToNewTask()
	if err != nil {
		responseWithError(w, http.StatusBadRequest, codeBadRequest, "deadline: "+err.Error())
		return
	}

	t, err := h.TaskService.Create(r.Context(), userID, nt)
	if err != nil {
		handleServiceError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.Int64("task_id", t.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithData(w, http.StatusCreated, dto.FromTask(t))
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
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

	t, err := h.TaskService.Get(r.Context(), userID, id)
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}

	logger.Info("HTTP_OUT: Задача получена",
		zap.Int64("task_id", t.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, dto.FromTask(t))
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
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

	var request dto.UpdateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	changes, err := request.ToChanges()
	if err != nil {
		responseWithError(w, http.StatusBadRequest, codeBadRequest, "deadline: "+err.Error())
		return
	}

	t, err := h.TaskService.Update(r.Context(), userID, id, changes, request.Version)
	if err != nil {
		handleServiceError(w, r, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.Int64("task_id", t.ID),
		zap.Int("version", t.Version),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, dto.FromTask(t))
}

// transition обслуживает delete/restore/complete: id из пути и один вызов сервиса
func (h *TaskHandler) transition(w http.ResponseWriter, r *http.Request, operation, done string,
	call func(r *http.Request, userID, id int64) (*task.Task, error)) {
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

	t, err := call(r, userID, id)
	if err != nil {
		handleServiceError(w, r, err, operation)
		return
	}

	logger.Info("HTTP_OUT: "+done,
		zap.Int64("task_id", t.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, dto.FromTask(t))
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "delete_task", "Задача удалена", func(r *http.Request, userID, id int64) (*task.Task, error) {
		return h.TaskService.Delete(r.Context(), userID, id)
	})
}

func (h *TaskHandler) RestoreTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "restore_task", "Задача восстановлена", func(r *http.Request, userID, id int64) (*task.Task, error) {
		return h.TaskService.Restore(r.Context(), userID, id)
	})
}

func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "complete_task", "Задача завершена", func(r *http.Request, userID, id int64) (*task.Task, error) {
		return h.TaskService.Complete(r.Context(), userID, id)
	})
}

func (h *TaskHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
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
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset")
	if !ok {
		return
	}
	if limit == 0 {
		limit = task.DefaultEventsLimit
	}
	limit = min(limit, task.MaxEventsLimit)

	page, err := h.TaskService.ListEvents(r.Context(), userID, id, limit, offset)
	if err != nil {
		handleServiceError(w, r, err, "list_events")
		return
	}

	logger.Info("HTTP_OUT: История задачи получена",
		zap.Int64("task_id", id),
		zap.Int("count", len(page.Events)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, dto.EventListResponse{
		Events: page.Events,
		Total:  page.Total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *TaskHandler) ListTaskCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ids, err := h.TaskService.TaskCategories(r.Context(), userID, id)
	if err != nil {
		handleServiceError(w, r, err, "task_categories")
		return
	}
	responseWithData(w, http.StatusOK, map[string]any{"task_id": id, "category_ids": ids})
}

func (h *TaskHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
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

	var request dto.TaskCategoryRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	link, err := h.TaskService.AddCategory(r.Context(), userID, id, request.CategoryID)
	if err != nil {
		handleServiceError(w, r, err, "add_category")
		return
	}

	logger.Info("HTTP_OUT: Категория привязана",
		zap.Int64("task_id", id),
		zap.Int64("category_id", request.CategoryID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, link)
}

func (h *TaskHandler) RemoveCategory(w http.ResponseWriter, r *http.Request) {
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
	categoryID, ok := pathID(w, r, "categoryId")
	if !ok {
		return
	}

	removed, err := h.TaskService.RemoveCategory(r.Context(), userID, id, categoryID)
	if err != nil {
		handleServiceError(w, r, err, "remove_category")
		return
	}

	logger.Info("HTTP_OUT: Категория отвязана",
		zap.Int64("task_id", id),
		zap.Int64("category_id", categoryID),
		zap.Bool("removed", removed),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, map[string]any{"removed": removed})
}

func (h *TaskHandler) SyncCategories(w http.ResponseWriter, r *http.Request) {
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

	var request dto.SyncCategoriesRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	ids, err := h.TaskService.SyncCategories(r.Context(), userID, id, request.CategoryIDs)
	if err != nil {
		handleServiceError(w, r, err, "sync_categories")
		return
	}

	logger.Info("HTTP_OUT: Категории задачи заменены",
		zap.Int64("task_id", id),
		zap.Int("count", len(ids)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, map[string]any{"task_id": id, "category_ids": ids})
}
