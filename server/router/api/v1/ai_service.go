package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/idea2prd/idea2prd/blueprint"
	"github.com/idea2prd/idea2prd/plugin/ai"
	apperrors "github.com/idea2prd/idea2prd/internal/errors"
	"github.com/idea2prd/idea2prd/server/internal/observability"
	"github.com/idea2prd/idea2prd/store"
)

// reqCtx builds the structured logging context for one gateway operation.
func (s *APIV1Service) reqCtx(c echo.Context, operation string) *observability.RequestContext {
	return observability.NewRequestContext(slog.Default(), operation, currentUserID(c))
}

type generateWorkflowRequest struct {
	Description string `json:"description"`
	Context     string `json:"context"`
}

// GenerateWorkflow turns a natural language description into a workflow graph.
func (s *APIV1Service) GenerateWorkflow(c echo.Context) error {
	if err := s.requireGateway(); err != nil {
		return err
	}

	var req generateWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}

	reqCtx := s.reqCtx(c, "generate_workflow")
	result, err := s.Gateway.GenerateWorkflow(c.Request().Context(), req.Description, req.Context)
	if err != nil {
		reqCtx.Error("workflow generation failed", err,
			slog.String(observability.LogFieldErrorCode, string(apperrors.GetCodeFromError(err, apperrors.ErrCodeLLMUnavailable))))
		return gatewayHTTPError(err)
	}
	reqCtx.Info("workflow generated",
		slog.Int("node_count", len(result.Workflow.Nodes)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))

	return c.JSON(http.StatusOK, result)
}

type chatRequest struct {
	Message  string              `json:"message"`
	Workflow *blueprint.Workflow `json:"workflow"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// Chat answers a question about the current workflow.
func (s *APIV1Service) Chat(c echo.Context) error {
	if err := s.requireGateway(); err != nil {
		return err
	}

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}

	reqCtx := s.reqCtx(c, "chat")
	reply, err := s.Gateway.Chat(c.Request().Context(), req.Message, req.Workflow)
	if err != nil {
		reqCtx.Error("chat failed", err)
		return gatewayHTTPError(err)
	}
	reqCtx.Info("chat completed", slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))

	return c.JSON(http.StatusOK, &chatResponse{Reply: reply})
}

type analyzeRequest struct {
	Description string `json:"description"`
}

// AnalyzeRequirement extracts roles and features from a product description.
func (s *APIV1Service) AnalyzeRequirement(c echo.Context) error {
	if err := s.requireGateway(); err != nil {
		return err
	}

	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}

	reqCtx := s.reqCtx(c, "analyze_requirement")
	analysis, err := s.Gateway.AnalyzeRequirement(c.Request().Context(), req.Description)
	if err != nil {
		reqCtx.Error("requirement analysis failed", err)
		return gatewayHTTPError(err)
	}
	reqCtx.Info("requirement analyzed",
		slog.Int("roles", len(analysis.Roles)),
		slog.Int("features", len(analysis.Features)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))

	return c.JSON(http.StatusOK, analysis)
}

type generateStoriesRequest struct {
	Roles    []string `json:"roles"`
	Features []string `json:"features"`
	// Project optionally names a project uid; when set the generated
	// stories are persisted to it.
	Project string `json:"project"`
}

type generateStoriesResponse struct {
	Stories   []ai.StoryDraft `json:"stories"`
	Formatted []string        `json:"formatted"`
}

// GenerateUserStories produces user stories for the selected roles and
// features, optionally persisting them to a project.
func (s *APIV1Service) GenerateUserStories(c echo.Context) error {
	if err := s.requireGateway(); err != nil {
		return err
	}

	var req generateStoriesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}

	reqCtx := s.reqCtx(c, "generate_user_stories")
	stories, err := s.Gateway.GenerateUserStories(c.Request().Context(), req.Roles, req.Features)
	if err != nil {
		reqCtx.Error("story generation failed", err)
		return gatewayHTTPError(err)
	}

	if req.Project != "" {
		project, err := s.findProjectByUID(c, req.Project)
		if err != nil {
			return err
		}
		for _, story := range stories {
			if _, err := s.Store.CreateUserStory(c.Request().Context(), &store.UserStory{
				ProjectID: project.ID,
				Role:      story.Role,
				Action:    story.Action,
				Benefit:   story.Benefit,
				Priority:  story.Priority,
			}); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to persist stories").SetInternal(err)
			}
		}
	}

	formatted := make([]string, len(stories))
	for i, story := range stories {
		formatted[i] = story.Formatted()
	}
	reqCtx.Info("stories generated",
		slog.Int("count", len(stories)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))

	return c.JSON(http.StatusOK, &generateStoriesResponse{Stories: stories, Formatted: formatted})
}

type generateImageRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateSceneImage produces a scenario illustration for the PRD document.
func (s *APIV1Service) GenerateSceneImage(c echo.Context) error {
	if err := s.requireGateway(); err != nil {
		return err
	}

	var req generateImageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}

	reqCtx := s.reqCtx(c, "generate_scene_image")
	image, err := s.Gateway.GenerateSceneImage(c.Request().Context(), req.Prompt)
	if err != nil {
		reqCtx.Error("image generation failed", err)
		return gatewayHTTPError(err)
	}
	reqCtx.Info("scene image generated", slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))

	return c.JSON(http.StatusOK, image)
}
