package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/idea2prd/idea2prd/store"
)

type projectResponse struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedTs   int64  `json:"createdTs"`
	UpdatedTs   int64  `json:"updatedTs"`
}

func convertProject(project *store.Project) *projectResponse {
	return &projectResponse{
		UID:         project.UID,
		Name:        project.Name,
		Description: project.Description,
		CreatedTs:   project.CreatedTs,
		UpdatedTs:   project.UpdatedTs,
	}
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateProject creates a new project for the caller.
func (s *APIV1Service) CreateProject(c echo.Context) error {
	var req createProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "project name is required")
	}

	project, err := s.Store.CreateProject(c.Request().Context(), &store.Project{
		UserID:      currentUserID(c),
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create project").SetInternal(err)
	}

	return c.JSON(http.StatusCreated, convertProject(project))
}

// ListProjects lists the caller's projects, newest first.
func (s *APIV1Service) ListProjects(c echo.Context) error {
	userID := currentUserID(c)
	projects, err := s.Store.ListProjects(c.Request().Context(), &store.FindProject{UserID: &userID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list projects").SetInternal(err)
	}

	list := make([]*projectResponse, 0, len(projects))
	for _, project := range projects {
		list = append(list, convertProject(project))
	}
	return c.JSON(http.StatusOK, list)
}

// GetDefaultProject returns the caller's first project, creating one when
// none exists yet. The workspace opens against this project.
func (s *APIV1Service) GetDefaultProject(c echo.Context) error {
	project, err := s.Store.GetOrCreateDefaultProject(c.Request().Context(), currentUserID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve default project").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertProject(project))
}

// GetProject returns one project by uid.
func (s *APIV1Service) GetProject(c echo.Context) error {
	project, err := s.findProjectByUID(c, c.Param("uid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertProject(project))
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// UpdateProject updates the project's name or description.
func (s *APIV1Service) UpdateProject(c echo.Context) error {
	project, err := s.findProjectByUID(c, c.Param("uid"))
	if err != nil {
		return err
	}

	var req updateProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if req.Name == nil && req.Description == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}
	if req.Name != nil && *req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "project name cannot be empty")
	}

	updated, err := s.Store.UpdateProject(c.Request().Context(), &store.UpdateProject{
		ID:          project.ID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update project").SetInternal(err)
	}

	return c.JSON(http.StatusOK, convertProject(updated))
}

// DeleteProject deletes a project along with its versions and stories.
func (s *APIV1Service) DeleteProject(c echo.Context) error {
	project, err := s.findProjectByUID(c, c.Param("uid"))
	if err != nil {
		return err
	}

	if err := s.Store.DeleteProject(c.Request().Context(), &store.DeleteProject{ID: project.ID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete project").SetInternal(err)
	}

	return c.NoContent(http.StatusNoContent)
}
