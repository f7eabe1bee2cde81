package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/planhub/go-tasks/internal/models"
)

type assigneeResponse struct {
	UserID     string    `json:"userId"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	AssignedAt time.Time `json:"assignedAt"`
	AssignedBy string    `json:"assignedBy"`
}

func newAssigneeResponses(assignees []*models.Assignee) []assigneeResponse {
	responses := make([]assigneeResponse, 0, len(assignees))
	for _, assignee := range assignees {
		responses = append(responses, assigneeResponse{
			UserID:     assignee.UserID,
			FirstName:  assignee.FirstName,
			LastName:   assignee.LastName,
			AssignedAt: assignee.AssignedAt,
			AssignedBy: assignee.AssignedBy,
		})
	}
	return responses
}

func (h *handlerImpl) HandleGetTaskAssignees(c *gin.Context) {
	assignees, err := h.lifecycle.GetTaskAssignees(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"assignees": newAssigneeResponses(assignees),
	})
}

type addAssigneesRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
}

func (h *handlerImpl) HandleAddTaskAssignees(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		return
	}

	var req addAssigneesRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		respondError(c, http.StatusBadRequest, codeInvalidRequest, "Invalid request body")
		return
	}

	added, err := h.lifecycle.AddAssignees(c.Request.Context(), c.Param("task_id"), req.UserIDs, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"added": added,
	})
}

func (h *handlerImpl) HandleRemoveTaskAssignee(c *gin.Context) {
	err := h.lifecycle.RemoveAssignee(c.Request.Context(), c.Param("task_id"), c.Param("user_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Assignee removed successfully",
	})
}
