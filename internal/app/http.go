package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/planhub/go-tasks/internal/config"
	v1 "github.com/planhub/go-tasks/internal/delivery/http/v1"
	"github.com/planhub/go-tasks/internal/services"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	registerRoutes(router)

	server := &http.Server{
		Addr:    net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler: router,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// Wait for the interrupt signal to gracefully
	// shut down the server with a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	// kill (no params) by default sends syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need to add it
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func registerRoutes(router gin.IRouter) {
	cfg := config.Global()

	taskService := services.NewTaskService(globalLogger, globalPostgresPool)
	directoryService := services.NewDirectoryService(globalLogger, globalPostgresPool)
	assigneeService := services.NewAssigneeService(globalLogger, globalPostgresPool, directoryService)
	historyService := services.NewHistoryService(globalLogger, globalPostgresPool)

	lifecycle := services.NewLifecycleService(
		globalLogger,
		taskService,
		assigneeService,
		historyService,
		directoryService,
		cfg.Tasks.EnforceStatusGraph,
	)

	v1Handler := v1.New(
		globalLogger,
		lifecycle,
		cfg.JWT.Issuer,
		cfg.JWT.SigningKey,
	)
	router = router.Group("/api/v1")

	tasksRouter := router.Group("/tasks", v1Handler.HandleAuthMiddleware)
	tasksRouter.GET("", v1Handler.HandleGetTasks)
	tasksRouter.POST("", v1Handler.HandleCreateTask)
	tasksRouter.GET("/urgent", v1Handler.HandleGetUrgentTasks)
	tasksRouter.GET("/today", v1Handler.HandleGetTasksDueToday)
	tasksRouter.GET("/:task_id", v1Handler.HandleGetTask)
	tasksRouter.PUT("/:task_id", v1Handler.HandleUpdateTask)
	tasksRouter.DELETE("/:task_id", v1Handler.HandleDeleteTask)
	tasksRouter.PATCH("/:task_id/status", v1Handler.HandleUpdateTaskStatus)
	tasksRouter.GET("/:task_id/history", v1Handler.HandleGetTaskHistory)
	tasksRouter.GET("/:task_id/assignees", v1Handler.HandleGetTaskAssignees)
	tasksRouter.POST("/:task_id/assignees", v1Handler.HandleAddTaskAssignees)
	tasksRouter.DELETE("/:task_id/assignees/:user_id", v1Handler.HandleRemoveTaskAssignee)
}
