package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/planhub/go-tasks/internal/services"
)

type Handler interface {
	HandleAuthMiddleware(c *gin.Context)

	HandleCreateTask(c *gin.Context)
	HandleGetTasks(c *gin.Context)
	HandleGetUrgentTasks(c *gin.Context)
	HandleGetTasksDueToday(c *gin.Context)
	HandleGetTask(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleUpdateTaskStatus(c *gin.Context)
	HandleDeleteTask(c *gin.Context)
	HandleGetTaskHistory(c *gin.Context)
	HandleGetTaskAssignees(c *gin.Context)
	HandleAddTaskAssignees(c *gin.Context)
	HandleRemoveTaskAssignee(c *gin.Context)
}

type handlerImpl struct {
	logger     zerolog.Logger
	lifecycle  services.LifecycleService
	jwtIssuer  string
	signingKey string
}

func New(
	logger zerolog.Logger,
	lifecycle services.LifecycleService,
	jwtIssuer string,
	signingKey string,
) Handler {
	return &handlerImpl{
		logger:     logger,
		lifecycle:  lifecycle,
		jwtIssuer:  jwtIssuer,
		signingKey: signingKey,
	}
}
