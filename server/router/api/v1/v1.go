package v1

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/idea2prd/idea2prd/internal/profile"
	"github.com/idea2prd/idea2prd/plugin/ai"
	"github.com/idea2prd/idea2prd/server/middleware"
	"github.com/idea2prd/idea2prd/store"
)

// APIV1Service wires the REST handlers for projects, versions, blueprint
// export, and the AI gateway.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Gateway *ai.Gateway

	aiRateLimiter *middleware.RateLimiter
}

// NewAPIV1Service creates the service. The AI gateway is only constructed
// when the profile enables it; the AI routes return 503 otherwise.
func NewAPIV1Service(profile *profile.Profile, store *store.Store) *APIV1Service {
	service := &APIV1Service{
		Profile: profile,
		Store:   store,
		// One LLM call per second per user, small burst for the
		// analyze-then-generate flow.
		aiRateLimiter: middleware.NewRateLimiter(1, 5),
	}

	if profile.IsAIEnabled() {
		cfg := ai.NewConfigFromProfile(profile)
		gateway, err := ai.NewGateway(cfg)
		if err != nil {
			slog.Warn("AI gateway disabled", "error", err)
		} else {
			service.Gateway = gateway
		}
	}

	return service
}

// StartBackgroundRunners starts the periodic jobs owned by the service. They
// stop when ctx is canceled.
func (s *APIV1Service) StartBackgroundRunners(ctx context.Context) {
	s.aiRateLimiter.StartCleanup(ctx, 5*time.Minute)
}

// Register registers all v1 routes on the echo instance.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	apiGroup := echoServer.Group("/api/v1")
	apiGroup.Use(echomw.CORS())

	// Projects.
	apiGroup.POST("/projects", s.CreateProject)
	apiGroup.GET("/projects", s.ListProjects)
	apiGroup.GET("/projects/default", s.GetDefaultProject)
	apiGroup.GET("/projects/:uid", s.GetProject)
	apiGroup.PATCH("/projects/:uid", s.UpdateProject)
	apiGroup.DELETE("/projects/:uid", s.DeleteProject)

	// Workflow versions.
	apiGroup.POST("/projects/:uid/versions", s.SaveVersion)
	apiGroup.GET("/projects/:uid/versions", s.ListVersions)
	apiGroup.GET("/projects/:uid/versions/latest", s.GetLatestVersion)
	apiGroup.GET("/projects/:uid/diff", s.DiffVersions)
	apiGroup.PATCH("/versions/:uid", s.UpdateVersion)
	apiGroup.DELETE("/versions/:uid", s.DeleteVersion)

	// User stories.
	apiGroup.GET("/projects/:uid/stories", s.ListUserStories)
	apiGroup.DELETE("/stories/:uid", s.DeleteUserStory)

	// Blueprint export (pure, no persistence).
	apiGroup.POST("/blueprint/export", s.ExportBlueprint)
	apiGroup.POST("/blueprint/preview", s.PreviewExport)

	// AI gateway, rate limited per user.
	aiGroup := apiGroup.Group("/ai", s.aiRateLimiter.Middleware(func(c echo.Context) string {
		return c.RealIP() + ":" + userKey(c)
	}))
	aiGroup.POST("/workflow", s.GenerateWorkflow)
	aiGroup.POST("/chat", s.Chat)
	aiGroup.POST("/analyze", s.AnalyzeRequirement)
	aiGroup.POST("/stories", s.GenerateUserStories)
	aiGroup.POST("/image", s.GenerateSceneImage)
}
