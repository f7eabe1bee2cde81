package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/planhub/go-tasks/internal/models"
	"github.com/planhub/go-tasks/internal/services"
)

const deadlineLayout = "2006-01-02"

type taskResponse struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       *string    `json:"description,omitempty"`
	Urgency           string     `json:"urgency"`
	Status            string     `json:"status"`
	Department        string     `json:"department"`
	ProjectID         *string    `json:"projectId,omitempty"`
	ProjectName       *string    `json:"projectName,omitempty"`
	AssigneeID        *string    `json:"assigneeId,omitempty"`
	CreatedBy         string     `json:"createdBy"`
	Deadline          string     `json:"deadline"`
	DaysUntilDeadline int        `json:"daysUntilDeadline"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	IsCompleted       bool       `json:"isCompleted"`
}

func newTaskResponse(task *models.Task) taskResponse {
	year, month, day := time.Now().Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, task.Deadline.Location())
	return taskResponse{
		ID:                task.ID,
		Title:             task.Title,
		Description:       task.Description,
		Urgency:           string(task.Urgency),
		Status:            string(task.Status),
		Department:        task.Department,
		ProjectID:         task.ProjectID,
		ProjectName:       task.ProjectName,
		AssigneeID:        task.AssigneeID,
		CreatedBy:         task.CreatedBy,
		Deadline:          task.Deadline.Format(deadlineLayout),
		DaysUntilDeadline: int(task.Deadline.Sub(today).Hours() / 24),
		CompletedAt:       task.CompletedAt,
		CreatedAt:         task.CreatedAt,
		UpdatedAt:         task.UpdatedAt,
		IsCompleted:       task.Completed(),
	}
}

func newTaskResponses(tasks []*models.Task) []taskResponse {
	responses := make([]taskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, newTaskResponse(task))
	}
	return responses
}

type createTaskRequest struct {
	Title       string   `json:"title" binding:"required,max=255"`
	Description *string  `json:"description,omitempty"`
	Urgency     string   `json:"urgency,omitempty"`
	Department  string   `json:"department,omitempty"`
	ProjectID   *string  `json:"projectId,omitempty"`
	AssigneeID  *string  `json:"assigneeId,omitempty"`
	AssigneeIDs []string `json:"assigneeIds,omitempty"`
	Deadline    string   `json:"deadline" binding:"required"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		return
	}

	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		respondError(c, http.StatusBadRequest, codeInvalidRequest, "Invalid request body")
		return
	}

	deadline, err := time.Parse(deadlineLayout, req.Deadline)
	if err != nil {
		respondError(c, http.StatusBadRequest, codeInvalidRequest, "Deadline must be a YYYY-MM-DD date")
		return
	}

	task, assigneeIDs, err := h.lifecycle.CreateTask(c.Request.Context(), services.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		Urgency:     req.Urgency,
		Department:  req.Department,
		ProjectID:   req.ProjectID,
		AssigneeID:  req.AssigneeID,
		AssigneeIDs: req.AssigneeIDs,
		Deadline:    deadline,
		CreatedBy:   userID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusCreated, gin.H{
		"task":        newTaskResponse(task),
		"assigneeIds": assigneeIDs,
	})
}

func (h *handlerImpl) HandleGetTasks(c *gin.Context) {
	filter := services.TaskFilter{
		Status:     c.Query("status"),
		Urgency:    c.Query("urgency"),
		Department: c.Query("department"),
		ProjectID:  c.Query("projectId"),
		AssigneeID: c.Query("assigneeId"),
	}
	if raw := c.Query("isCompleted"); raw != "" {
		isCompleted, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, codeInvalidRequest, "isCompleted must be a boolean")
			return
		}
		filter.IsCompleted = &isCompleted
	}
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	tasks, total, err := h.lifecycle.GetTasks(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	respondData(c, http.StatusOK, gin.H{
		"tasks": newTaskResponses(tasks),
		"pagination": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": filter.Offset,
		},
	})
}

func (h *handlerImpl) HandleGetUrgentTasks(c *gin.Context) {
	tasks, err := h.lifecycle.GetUrgentTasks(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	responses := newTaskResponses(tasks)
	respondData(c, http.StatusOK, gin.H{
		"tasks": responses,
		"count": len(responses),
	})
}

func (h *handlerImpl) HandleGetTasksDueToday(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		return
	}

	tasks, err := h.lifecycle.GetTasksDueToday(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"tasks": newTaskResponses(tasks),
	})
}

func (h *handlerImpl) HandleGetTask(c *gin.Context) {
	task, err := h.lifecycle.GetTask(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"task": newTaskResponse(task),
	})
}

type updateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Urgency     *string `json:"urgency,omitempty"`
	Department  *string `json:"department,omitempty"`
	ProjectID   *string `json:"projectId,omitempty"`
	AssigneeID  *string `json:"assigneeId,omitempty"`
	Deadline    *string `json:"deadline,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		respondError(c, http.StatusBadRequest, codeInvalidRequest, "Invalid request body")
		return
	}

	params := services.UpdateTaskParams{
		TaskID:      c.Param("task_id"),
		ActorID:     userID,
		Title:       req.Title,
		Description: req.Description,
		Urgency:     req.Urgency,
		Department:  req.Department,
		ProjectID:   req.ProjectID,
		AssigneeID:  req.AssigneeID,
		Status:      req.Status,
	}
	if req.Deadline != nil {
		deadline, err := time.Parse(deadlineLayout, *req.Deadline)
		if err != nil {
			respondError(c, http.StatusBadRequest, codeInvalidRequest, "Deadline must be a YYYY-MM-DD date")
			return
		}
		params.Deadline = &deadline
	}

	task, err := h.lifecycle.UpdateTask(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"task": newTaskResponse(task),
	})
}

type updateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *handlerImpl) HandleUpdateTaskStatus(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		return
	}

	var req updateTaskStatusRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		respondError(c, http.StatusBadRequest, codeInvalidRequest, "Invalid request body")
		return
	}

	task, err := h.lifecycle.ChangeTaskStatus(c.Request.Context(), services.ChangeTaskStatusParams{
		TaskID:  c.Param("task_id"),
		ActorID: userID,
		Status:  req.Status,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"task": newTaskResponse(task),
	})
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		return
	}

	err := h.lifecycle.DeleteTask(c.Request.Context(), c.Param("task_id"), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task deleted successfully",
	})
}
