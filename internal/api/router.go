package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/mstepanenko/sprintdesk/internal/app"
	iauth "github.com/mstepanenko/sprintdesk/internal/auth"
	"github.com/mstepanenko/sprintdesk/internal/handlers"
	"github.com/mstepanenko/sprintdesk/internal/middleware"
	"github.com/mstepanenko/sprintdesk/internal/permissions"
	"github.com/mstepanenko/sprintdesk/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, credentials *iauth.CredentialService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if credentials == nil {
		return nil, fmt.Errorf("credential service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	eval, err := permissions.NewEvaluator(db)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	projects, err := services.NewProjectService(db, eval)
	if err != nil {
		return nil, err
	}
	invitations, err := services.NewInvitationService(db, eval, services.InvitationConfig{
		CodeTTL:    cfg.Invitation.TTL,
		CodeLength: cfg.Invitation.CodeLength,
	})
	if err != nil {
		return nil, err
	}
	sprints, err := services.NewSprintService(db, eval)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.Auth(credentials, cfg.Server.PublicRoutes))

	// Health endpoint (public)
	r.GET("/health", handlers.Health())

	authHandler := handlers.NewAuthHandler(users, credentials)
	userHandler := handlers.NewUserHandler(users)
	projectHandler := handlers.NewProjectHandler(projects, invitations)
	sprintHandler := handlers.NewSprintHandler(sprints)

	// Credential issuance and rotation. The whole group is public: logout
	// and refresh authenticate by the token pair in the body instead of
	// the Authorization header.
	authorization := r.Group("/authorization")
	{
		authorization.POST("/register", authHandler.Register)
		authorization.POST("/login", authHandler.Login)
		authorization.DELETE("/logout", authHandler.Logout)
		authorization.PATCH("/refresh", authHandler.Refresh)
	}

	user := r.Group("/user")
	{
		user.GET("", userHandler.Profile)
		user.POST("", userHandler.UpdateProfile)
		user.PATCH("/password", userHandler.UpdatePassword)
	}

	project := r.Group("/project")
	{
		project.GET("/list", projectHandler.List)
		project.POST("/create", projectHandler.Create)
		project.POST("/connect/:code", projectHandler.Connect)
		project.POST("/member/:member_id/descriptive-role", projectHandler.SetDescriptiveRole)
		project.PATCH("/member/:member_id/system-role", projectHandler.SetSystemRole)
		project.DELETE("/member/:member_id/delete", projectHandler.RemoveMember)
		project.DELETE("/leave/:project_id", projectHandler.Leave)
		project.DELETE("/delete/:project_id", projectHandler.Delete)

		project.GET("/:project_id", projectHandler.Details)
		project.POST("/:project_id/code/create", projectHandler.CreateCode)

		project.GET("/:project_id/sprints", sprintHandler.List)
		project.POST("/:project_id/sprint", sprintHandler.Create)
		project.GET("/:project_id/sprint/:sprint_id", sprintHandler.Get)
		project.DELETE("/:project_id/sprint/:sprint_id", sprintHandler.Delete)
		project.PATCH("/:project_id/sprint/:sprint_id/:task_id", sprintHandler.UpdateTaskStatus)
	}

	if cfg.Monitoring.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
