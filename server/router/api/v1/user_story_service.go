package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/idea2prd/idea2prd/store"
)

type userStoryResponse struct {
	UID       string `json:"uid"`
	Role      string `json:"role"`
	Action    string `json:"action"`
	Benefit   string `json:"benefit"`
	Priority  string `json:"priority"`
	CreatedTs int64  `json:"createdTs"`
}

func convertUserStory(story *store.UserStory) *userStoryResponse {
	return &userStoryResponse{
		UID:       story.UID,
		Role:      story.Role,
		Action:    story.Action,
		Benefit:   story.Benefit,
		Priority:  story.Priority,
		CreatedTs: story.CreatedTs,
	}
}

// ListUserStories lists the stories persisted for a project.
func (s *APIV1Service) ListUserStories(c echo.Context) error {
	project, err := s.findProjectByUID(c, c.Param("uid"))
	if err != nil {
		return err
	}

	stories, err := s.Store.ListUserStories(c.Request().Context(), &store.FindUserStory{ProjectID: &project.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list stories").SetInternal(err)
	}

	list := make([]*userStoryResponse, 0, len(stories))
	for _, story := range stories {
		list = append(list, convertUserStory(story))
	}
	return c.JSON(http.StatusOK, list)
}

// DeleteUserStory removes one story.
func (s *APIV1Service) DeleteUserStory(c echo.Context) error {
	uid := c.Param("uid")
	stories, err := s.Store.ListUserStories(c.Request().Context(), &store.FindUserStory{UID: &uid})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load story").SetInternal(err)
	}
	if len(stories) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "story not found")
	}
	story := stories[0]

	// Ownership check through the parent project.
	userID := currentUserID(c)
	project, err := s.Store.GetProject(c.Request().Context(), &store.FindProject{ID: &story.ProjectID, UserID: &userID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load project").SetInternal(err)
	}
	if project == nil {
		return echo.NewHTTPError(http.StatusNotFound, "story not found")
	}

	if err := s.Store.DeleteUserStory(c.Request().Context(), &store.DeleteUserStory{ID: story.ID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete story").SetInternal(err)
	}
	return c.NoContent(http.StatusNoContent)
}
