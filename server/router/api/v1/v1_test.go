package v1

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idea2prd/idea2prd/blueprint"
	"github.com/idea2prd/idea2prd/internal/profile"
	"github.com/idea2prd/idea2prd/store"
)

// fakeDriver is an in-memory Driver for handler tests.
type fakeDriver struct {
	nextID   int32
	projects []*store.Project
	versions []*store.WorkflowVersion
	stories  []*store.UserStory
}

func (f *fakeDriver) GetDB() *sql.DB { return nil }
func (f *fakeDriver) Close() error   { return nil }

func (f *fakeDriver) IsInitialized(_ context.Context) (bool, error) { return true, nil }

func (f *fakeDriver) allocID() int32 {
	f.nextID++
	return f.nextID
}

func (f *fakeDriver) CreateProject(_ context.Context, create *store.Project) (*store.Project, error) {
	create.ID = f.allocID()
	f.projects = append(f.projects, create)
	return create, nil
}

func (f *fakeDriver) ListProjects(_ context.Context, find *store.FindProject) ([]*store.Project, error) {
	result := make([]*store.Project, 0)
	for _, p := range f.projects {
		if find.ID != nil && p.ID != *find.ID {
			continue
		}
		if find.UID != nil && p.UID != *find.UID {
			continue
		}
		if find.UserID != nil && p.UserID != *find.UserID {
			continue
		}
		result = append(result, p)
	}
	if find.Limit != nil && len(result) > *find.Limit {
		result = result[:*find.Limit]
	}
	return result, nil
}

func (f *fakeDriver) UpdateProject(_ context.Context, update *store.UpdateProject) (*store.Project, error) {
	for _, p := range f.projects {
		if p.ID == update.ID {
			if update.Name != nil {
				p.Name = *update.Name
			}
			if update.Description != nil {
				p.Description = *update.Description
			}
			return p, nil
		}
	}
	return nil, errors.New("project not found")
}

func (f *fakeDriver) DeleteProject(_ context.Context, delete *store.DeleteProject) error {
	for i, p := range f.projects {
		if p.ID == delete.ID {
			f.projects = append(f.projects[:i], f.projects[i+1:]...)
			return nil
		}
	}
	return errors.New("project not found")
}

func (f *fakeDriver) CreateWorkflowVersion(_ context.Context, create *store.WorkflowVersion) (*store.WorkflowVersion, error) {
	create.ID = f.allocID()
	var max int32
	for _, v := range f.versions {
		if v.ProjectID == create.ProjectID && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	create.VersionNumber = max + 1
	f.versions = append(f.versions, create)
	return create, nil
}

func (f *fakeDriver) ListWorkflowVersions(_ context.Context, find *store.FindWorkflowVersion) ([]*store.WorkflowVersion, error) {
	result := make([]*store.WorkflowVersion, 0)
	for _, v := range f.versions {
		if find.ID != nil && v.ID != *find.ID {
			continue
		}
		if find.UID != nil && v.UID != *find.UID {
			continue
		}
		if find.ProjectID != nil && v.ProjectID != *find.ProjectID {
			continue
		}
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].VersionNumber > result[j].VersionNumber
	})
	if find.Limit != nil && len(result) > *find.Limit {
		result = result[:*find.Limit]
	}
	return result, nil
}

func (f *fakeDriver) UpdateWorkflowVersion(_ context.Context, update *store.UpdateWorkflowVersion) (*store.WorkflowVersion, error) {
	for _, v := range f.versions {
		if v.ID == update.ID {
			if update.Description != nil {
				v.Description = *update.Description
			}
			if update.Images != nil {
				v.Images = update.Images
			}
			return v, nil
		}
	}
	return nil, errors.New("workflow version not found")
}

func (f *fakeDriver) DeleteWorkflowVersion(_ context.Context, delete *store.DeleteWorkflowVersion) error {
	for i, v := range f.versions {
		if v.ID == delete.ID {
			f.versions = append(f.versions[:i], f.versions[i+1:]...)
			return nil
		}
	}
	return errors.New("workflow version not found")
}

func (f *fakeDriver) CreateUserStory(_ context.Context, create *store.UserStory) (*store.UserStory, error) {
	create.ID = f.allocID()
	f.stories = append(f.stories, create)
	return create, nil
}

func (f *fakeDriver) ListUserStories(_ context.Context, find *store.FindUserStory) ([]*store.UserStory, error) {
	result := make([]*store.UserStory, 0)
	for _, s := range f.stories {
		if find.ID != nil && s.ID != *find.ID {
			continue
		}
		if find.UID != nil && s.UID != *find.UID {
			continue
		}
		if find.ProjectID != nil && s.ProjectID != *find.ProjectID {
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

func (f *fakeDriver) DeleteUserStory(_ context.Context, delete *store.DeleteUserStory) error {
	for i, s := range f.stories {
		if s.ID == delete.ID {
			f.stories = append(f.stories[:i], f.stories[i+1:]...)
			return nil
		}
	}
	return errors.New("user story not found")
}

func newTestService() (*APIV1Service, *echo.Echo) {
	p := &profile.Profile{Mode: "dev", Driver: "sqlite"}
	service := NewAPIV1Service(p, store.New(&fakeDriver{}, p))
	e := echo.New()
	service.Register(e)
	return service, e
}

func doJSON(e *echo.Echo, method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestProjectLifecycle(t *testing.T) {
	_, e := newTestService()

	rec := doJSON(e, http.MethodPost, "/api/v1/projects", `{"name": "Checkout Flow", "description": "payment redesign"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created projectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.UID)
	assert.Equal(t, "Checkout Flow", created.Name)

	rec = doJSON(e, http.MethodGet, "/api/v1/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []projectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = doJSON(e, http.MethodPatch, "/api/v1/projects/"+created.UID, `{"description": "v2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/api/v1/projects/"+created.UID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/projects/"+created.UID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDefaultProject_CreatesOnce(t *testing.T) {
	_, e := newTestService()

	rec := doJSON(e, http.MethodGet, "/api/v1/projects/default", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var first projectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, "My Workflow Project", first.Name)

	rec = doJSON(e, http.MethodGet, "/api/v1/projects/default", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var second projectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.UID, second.UID)
}

const saveBody = `{
	"workflow": {
		"nodes": [
			{"id": "n1", "type": "n8n-nodes-base.webhook", "name": "Webhook"},
			{"id": "n2", "type": "n8n-nodes-base.set", "name": "Set"}
		],
		"connections": {
			"n1": {"main": [[{"node": "n2", "type": "main", "index": 0}]]}
		}
	},
	"description": "initial"
}`

func createProjectForTest(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/api/v1/projects", `{"name": "p"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created projectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created.UID
}

func TestVersionEndpoints(t *testing.T) {
	_, e := newTestService()
	uid := createProjectForTest(t, e)

	rec := doJSON(e, http.MethodGet, "/api/v1/projects/"+uid+"/versions/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/projects/"+uid+"/versions", saveBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var saved versionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, int32(1), saved.VersionNumber)
	assert.Equal(t, int32(2), saved.NodeCount)
	assert.Equal(t, int32(1), saved.ConnectionCount)

	rec = doJSON(e, http.MethodGet, "/api/v1/projects/"+uid+"/versions/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var latest versionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	require.NotNil(t, latest.Workflow)
	assert.Len(t, latest.Workflow.Nodes, 2)

	rec = doJSON(e, http.MethodGet, "/api/v1/projects/"+uid+"/versions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var versions []versionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &versions))
	require.Len(t, versions, 1)
	assert.Nil(t, versions[0].Workflow)

	rec = doJSON(e, http.MethodPatch, "/api/v1/versions/"+saved.UID, `{"description": "renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/api/v1/versions/"+saved.UID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDiffVersions(t *testing.T) {
	_, e := newTestService()
	uid := createProjectForTest(t, e)

	rec := doJSON(e, http.MethodPost, "/api/v1/projects/"+uid+"/versions", saveBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	// First version against the empty baseline: everything is added.
	rec = doJSON(e, http.MethodGet, "/api/v1/projects/"+uid+"/diff", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var diff diffResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diff))
	assert.Equal(t, int32(0), diff.FromVersion)
	assert.Equal(t, int32(1), diff.ToVersion)
	assert.Len(t, diff.Diff.AddedNodes, 2)
	assert.Equal(t, "+2 added", diff.Summary)

	// Save a second version with one more node.
	second := strings.Replace(saveBody,
		`{"id": "n2", "type": "n8n-nodes-base.set", "name": "Set"}`,
		`{"id": "n2", "type": "n8n-nodes-base.set", "name": "Set"},
			{"id": "n3", "type": "n8n-nodes-base.if", "name": "If"}`, 1)
	rec = doJSON(e, http.MethodPost, "/api/v1/projects/"+uid+"/versions", second)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/projects/"+uid+"/diff", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diff))
	assert.Equal(t, int32(1), diff.FromVersion)
	assert.Equal(t, int32(2), diff.ToVersion)
	assert.Len(t, diff.Diff.AddedNodes, 1)
	assert.Empty(t, diff.Diff.DeletedNodes)

	// Explicit version selection.
	rec = doJSON(e, http.MethodGet, "/api/v1/projects/"+uid+"/diff?from=2&to=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diff))
	assert.Len(t, diff.Diff.DeletedNodes, 1)

	rec = doJSON(e, http.MethodGet, "/api/v1/projects/"+uid+"/diff?to=9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

const exportBody = `{
	"blueprint": {
		"nodes": [
			{"id": "n1", "type": "t", "name": "A", "priority": "P0"},
			{"id": "n2", "type": "t", "name": "B", "priority": "P2"}
		],
		"connections": {
			"n1": {"main": [[{"node": "n2", "type": "main", "index": 0}]]}
		}
	},
	"config": {"format": "%s", "priorityFilter": %s},
	"name": "demo"
}`

func TestExportBlueprint(t *testing.T) {
	_, e := newTestService()

	body := strings.Replace(strings.Replace(exportBody, "%s", "n8n", 1), "%s", `["P0"]`, 1)
	rec := doJSON(e, http.MethodPost, "/api/v1/blueprint/export", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `demo.json`)

	var exported blueprint.Workflow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exported))
	require.Len(t, exported.Nodes, 1)
	assert.Equal(t, "n1", exported.Nodes[0].ID)
	// The only edge pointed at a filtered-out node, so no connections remain.
	assert.Empty(t, exported.Connections)
}

func TestExportBlueprint_UnsupportedFormat(t *testing.T) {
	_, e := newTestService()

	body := strings.Replace(strings.Replace(exportBody, "%s", "yaml", 1), "%s", `[]`, 1)
	rec := doJSON(e, http.MethodPost, "/api/v1/blueprint/export", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewExport_MarkdownIncludesHTML(t *testing.T) {
	_, e := newTestService()

	body := strings.Replace(strings.Replace(exportBody, "%s", "markdown", 1), "%s", `[]`, 1)
	rec := doJSON(e, http.MethodPost, "/api/v1/blueprint/preview", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var preview previewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, 2, preview.NodeCount)
	assert.Contains(t, preview.Summary, "Markdown document")
	assert.Contains(t, preview.HTML, "<h1")
}

func TestAIEndpointsUnavailableWithoutGateway(t *testing.T) {
	_, e := newTestService()

	rec := doJSON(e, http.MethodPost, "/api/v1/ai/workflow", `{"description": "notify on signup"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
