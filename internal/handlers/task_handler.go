package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Vanaiyalini/TaskTrail/internal/models"
	"github.com/Vanaiyalini/TaskTrail/internal/services"
)

// TaskHandler はTask関連のハンドラーを管理します。
type TaskHandler struct {
	taskService *services.TaskService
	errs        *ErrorWriter
}

// NewTaskHandler は新しいTaskHandlerを作成します。
func NewTaskHandler(taskService *services.TaskService, errs *ErrorWriter) *TaskHandler {
	return &TaskHandler{taskService: taskService, errs: errs}
}

// parseTaskFilter はクエリパラメータ urgency と completed を解釈します。空の値は無視します。
func parseTaskFilter(c *gin.Context) (models.TaskFilter, error) {
	var filter models.TaskFilter

	if raw := strings.TrimSpace(c.Query("urgency")); raw != "" {
		u, ok := models.ParseUrgency(raw)
		if !ok {
			return filter, fmt.Errorf("%w: urgency must be one of low, medium, high", services.ErrValidation)
		}
		filter.Urgency = &u
	}

	if raw := strings.TrimSpace(c.Query("completed")); raw != "" {
		var completed bool
		switch strings.ToLower(raw) {
		case "true":
			completed = true
		case "false":
			completed = false
		default:
			return filter, fmt.Errorf("%w: completed must be true or false", services.ErrValidation)
		}
		filter.Completed = &completed
	}
	return filter, nil
}

// GetTasksHandler は認証ユーザーのタスク一覧を返します。
func (h *TaskHandler) GetTasksHandler(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		h.errs.Write(c, services.ErrMissingToken)
		return
	}

	filter, err := parseTaskFilter(c)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), identity, filter)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

// GetTaskByIDHandler は指定IDのタスクを返します。
func (h *TaskHandler) GetTaskByIDHandler(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		h.errs.Write(c, services.ErrMissingToken)
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// CreateTaskHandler は新しいタスクを作成します。
func (h *TaskHandler) CreateTaskHandler(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		h.errs.Write(c, services.ErrMissingToken)
		return
	}

	var req models.TaskCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.Write(c, bindError(err))
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), identity, req)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "task": task})
}

// UpdateTaskHandler はタスクを部分更新します。
func (h *TaskHandler) UpdateTaskHandler(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		h.errs.Write(c, services.ErrMissingToken)
		return
	}

	// 型が合わないフィールドを無視するため、構造体ではなくmapで受け取る
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		h.errs.Write(c, bindError(err))
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), identity, c.Param("id"), models.ParseTaskPatch(body))
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// DeleteTaskHandler はタスクを削除します。
func (h *TaskHandler) DeleteTaskHandler(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		h.errs.Write(c, services.ErrMissingToken)
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), identity, c.Param("id")); err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task removed"})
}
