package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/idea2prd/idea2prd/blueprint"
)

type exportRequest struct {
	Blueprint *blueprint.Blueprint   `json:"blueprint"`
	Config    blueprint.ExportConfig `json:"config"`
	Name      string                 `json:"name"`
}

func bindExportRequest(c echo.Context) (*exportRequest, error) {
	var req exportRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if req.Blueprint == nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "blueprint is required")
	}
	if err := req.Blueprint.Validate(); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return &req, nil
}

// ExportBlueprint serializes the blueprint in the requested format and
// returns it as a file download.
func (s *APIV1Service) ExportBlueprint(c echo.Context) error {
	req, err := bindExportRequest(c)
	if err != nil {
		return err
	}

	artifact, err := blueprint.Export(req.Blueprint, req.Config, req.Name)
	if err != nil {
		if errors.Is(err, blueprint.ErrUnsupportedFormat) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "export failed").SetInternal(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	return c.Blob(http.StatusOK, artifact.MIME, artifact.Content)
}

type previewResponse struct {
	NodeCount int    `json:"nodeCount"`
	Summary   string `json:"summary"`
	// HTML is the rendered document preview, only present for the markdown
	// format.
	HTML string `json:"html,omitempty"`
}

// PreviewExport describes what an export would produce without downloading
// it. For the markdown format the response includes the rendered HTML so the
// export dialog can show the document.
func (s *APIV1Service) PreviewExport(c echo.Context) error {
	req, err := bindExportRequest(c)
	if err != nil {
		return err
	}

	preview, err := blueprint.GetPreview(req.Blueprint, req.Config)
	if err != nil {
		if errors.Is(err, blueprint.ErrUnsupportedFormat) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "preview failed").SetInternal(err)
	}

	resp := &previewResponse{NodeCount: preview.NodeCount, Summary: preview.Summary}

	if req.Config.Format == blueprint.FormatMarkdown {
		artifact, err := blueprint.Export(req.Blueprint, req.Config, req.Name)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "preview failed").SetInternal(err)
		}
		html, err := blueprint.RenderDocumentHTML(artifact.Content)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to render document").SetInternal(err)
		}
		resp.HTML = string(html)
	}

	return c.JSON(http.StatusOK, resp)
}
