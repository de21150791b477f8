package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/idea2prd/idea2prd/blueprint"
	"github.com/idea2prd/idea2prd/store"
)

type versionResponse struct {
	UID             string              `json:"uid"`
	VersionNumber   int32               `json:"versionNumber"`
	Workflow        *blueprint.Workflow `json:"workflow,omitempty"`
	Description     string              `json:"description"`
	NodeCount       int32               `json:"nodeCount"`
	ConnectionCount int32               `json:"connectionCount"`
	Images          []string            `json:"images"`
	CreatedTs       int64               `json:"createdTs"`
}

func convertVersion(version *store.WorkflowVersion, includeWorkflow bool) (*versionResponse, error) {
	resp := &versionResponse{
		UID:             version.UID,
		VersionNumber:   version.VersionNumber,
		Description:     version.Description,
		NodeCount:       version.NodeCount,
		ConnectionCount: version.ConnectionCount,
		Images:          version.Images,
		CreatedTs:       version.CreatedTs,
	}
	if includeWorkflow {
		workflow, err := version.Workflow()
		if err != nil {
			return nil, err
		}
		resp.Workflow = workflow
	}
	return resp, nil
}

type saveVersionRequest struct {
	Workflow    *blueprint.Workflow `json:"workflow"`
	Description string              `json:"description"`
	Images      []string            `json:"images"`
}

// SaveVersion appends a new workflow version to the project.
func (s *APIV1Service) SaveVersion(c echo.Context) error {
	project, err := s.findProjectByUID(c, c.Param("uid"))
	if err != nil {
		return err
	}

	var req saveVersionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if req.Workflow == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "workflow is required")
	}

	version, err := s.Store.SaveVersion(c.Request().Context(), project.ID, req.Workflow, req.Description, req.Images)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to save version").SetInternal(err)
	}

	resp, err := convertVersion(version, false)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render version").SetInternal(err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// ListVersions lists the project's version history, newest first. The graph
// payloads are omitted; clients fetch individual versions when they need one.
func (s *APIV1Service) ListVersions(c echo.Context) error {
	project, err := s.findProjectByUID(c, c.Param("uid"))
	if err != nil {
		return err
	}

	versions, err := s.Store.ListWorkflowVersions(c.Request().Context(), &store.FindWorkflowVersion{ProjectID: &project.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list versions").SetInternal(err)
	}

	list := make([]*versionResponse, 0, len(versions))
	for _, version := range versions {
		resp, err := convertVersion(version, false)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to render version").SetInternal(err)
		}
		list = append(list, resp)
	}
	return c.JSON(http.StatusOK, list)
}

// GetLatestVersion returns the newest version including its workflow payload.
func (s *APIV1Service) GetLatestVersion(c echo.Context) error {
	project, err := s.findProjectByUID(c, c.Param("uid"))
	if err != nil {
		return err
	}

	version, err := s.Store.GetLatestWorkflowVersion(c.Request().Context(), project.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load latest version").SetInternal(err)
	}
	if version == nil {
		return echo.NewHTTPError(http.StatusNotFound, "project has no versions yet")
	}

	resp, err := convertVersion(version, true)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to decode version").SetInternal(err)
	}
	return c.JSON(http.StatusOK, resp)
}

type diffResponse struct {
	FromVersion int32           `json:"fromVersion"`
	ToVersion   int32           `json:"toVersion"`
	Diff        *blueprint.Diff `json:"diff"`
	Summary     string          `json:"summary"`
}

// DiffVersions computes the structural diff between two stored versions.
// Without query parameters it compares the latest version against its
// predecessor; ?from=N&to=M selects explicit version numbers. A from of 0
// compares against the empty baseline, reporting everything as added.
func (s *APIV1Service) DiffVersions(c echo.Context) error {
	project, err := s.findProjectByUID(c, c.Param("uid"))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	versions, err := s.Store.ListWorkflowVersions(ctx, &store.FindWorkflowVersion{ProjectID: &project.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list versions").SetInternal(err)
	}
	if len(versions) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "project has no versions yet")
	}

	byNumber := make(map[int32]*store.WorkflowVersion, len(versions))
	for _, version := range versions {
		byNumber[version.VersionNumber] = version
	}

	// Defaults: latest against its predecessor.
	toNumber := versions[0].VersionNumber
	fromNumber := toNumber - 1

	if raw := c.QueryParam("to"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to version")
		}
		toNumber = int32(n)
	}
	if raw := c.QueryParam("from"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from version")
		}
		fromNumber = int32(n)
	}

	toVersion, ok := byNumber[toNumber]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "to version not found")
	}
	newWorkflow, err := toVersion.Workflow()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to decode version").SetInternal(err)
	}

	var oldWorkflow *blueprint.Workflow
	if fromNumber > 0 {
		fromVersion, ok := byNumber[fromNumber]
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "from version not found")
		}
		oldWorkflow, err = fromVersion.Workflow()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to decode version").SetInternal(err)
		}
	}

	diff := blueprint.Compare(oldWorkflow, newWorkflow)
	return c.JSON(http.StatusOK, &diffResponse{
		FromVersion: fromNumber,
		ToVersion:   toNumber,
		Diff:        diff,
		Summary:     diff.Summary(),
	})
}

// findVersionByUID loads a version owned by the caller or fails with 404.
func (s *APIV1Service) findVersionByUID(c echo.Context, uid string) (*store.WorkflowVersion, error) {
	version, err := s.Store.GetWorkflowVersion(c.Request().Context(), &store.FindWorkflowVersion{UID: &uid})
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load version").SetInternal(err)
	}
	if version == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "version not found")
	}

	// Ownership check through the parent project.
	userID := currentUserID(c)
	project, err := s.Store.GetProject(c.Request().Context(), &store.FindProject{ID: &version.ProjectID, UserID: &userID})
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load project").SetInternal(err)
	}
	if project == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "version not found")
	}
	return version, nil
}

type updateVersionRequest struct {
	Description *string  `json:"description"`
	Images      []string `json:"images"`
}

// UpdateVersion updates a version's description or images. The workflow
// payload is immutable.
func (s *APIV1Service) UpdateVersion(c echo.Context) error {
	version, err := s.findVersionByUID(c, c.Param("uid"))
	if err != nil {
		return err
	}

	var req updateVersionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if req.Description == nil && req.Images == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	updated, err := s.Store.UpdateWorkflowVersion(c.Request().Context(), &store.UpdateWorkflowVersion{
		ID:          version.ID,
		Description: req.Description,
		Images:      req.Images,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update version").SetInternal(err)
	}

	resp, err := convertVersion(updated, false)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render version").SetInternal(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// DeleteVersion removes a version from the history.
func (s *APIV1Service) DeleteVersion(c echo.Context) error {
	version, err := s.findVersionByUID(c, c.Param("uid"))
	if err != nil {
		return err
	}

	if err := s.Store.DeleteWorkflowVersion(c.Request().Context(), &store.DeleteWorkflowVersion{ID: version.ID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete version").SetInternal(err)
	}

	return c.NoContent(http.StatusNoContent)
}
