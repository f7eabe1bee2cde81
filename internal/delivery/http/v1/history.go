package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/planhub/go-tasks/internal/models"
)

type historyEntryResponse struct {
	ID           string    `json:"id"`
	Action       string    `json:"action"`
	FieldChanged *string   `json:"fieldChanged,omitempty"`
	OldValue     *string   `json:"oldValue,omitempty"`
	NewValue     *string   `json:"newValue,omitempty"`
	ChangedBy    gin.H     `json:"changedBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newHistoryEntryResponses(entries []*models.HistoryEntry) []historyEntryResponse {
	responses := make([]historyEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, historyEntryResponse{
			ID:           entry.ID,
			Action:       entry.Action,
			FieldChanged: entry.FieldChanged,
			OldValue:     entry.OldValue,
			NewValue:     entry.NewValue,
			ChangedBy:    gin.H{"id": entry.UserID},
			CreatedAt:    entry.CreatedAt,
		})
	}
	return responses
}

func (h *handlerImpl) HandleGetTaskHistory(c *gin.Context) {
	entries, err := h.lifecycle.GetTaskHistory(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"history": newHistoryEntryResponses(entries),
	})
}
