package store_test

import (
	"context"
	"database/sql"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idea2prd/idea2prd/blueprint"
	"github.com/idea2prd/idea2prd/internal/profile"
	"github.com/idea2prd/idea2prd/store"
)

// mockDriver is an in-memory Driver implementation for testing the store
// facade logic without a database.
type mockDriver struct {
	nextID   int32
	projects []*store.Project
	versions []*store.WorkflowVersion
	stories  []*store.UserStory
}

func newMockDriver() *mockDriver {
	return &mockDriver{nextID: 1}
}

func (m *mockDriver) GetDB() *sql.DB { return nil }
func (m *mockDriver) Close() error   { return nil }

func (m *mockDriver) IsInitialized(_ context.Context) (bool, error) { return true, nil }

func (m *mockDriver) allocID() int32 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *mockDriver) CreateProject(_ context.Context, create *store.Project) (*store.Project, error) {
	create.ID = m.allocID()
	m.projects = append(m.projects, create)
	return create, nil
}

func (m *mockDriver) ListProjects(_ context.Context, find *store.FindProject) ([]*store.Project, error) {
	result := make([]*store.Project, 0)
	for _, project := range m.projects {
		if find.ID != nil && project.ID != *find.ID {
			continue
		}
		if find.UID != nil && project.UID != *find.UID {
			continue
		}
		if find.UserID != nil && project.UserID != *find.UserID {
			continue
		}
		result = append(result, project)
	}
	if find.Limit != nil && len(result) > *find.Limit {
		result = result[:*find.Limit]
	}
	return result, nil
}

func (m *mockDriver) UpdateProject(_ context.Context, update *store.UpdateProject) (*store.Project, error) {
	for _, project := range m.projects {
		if project.ID == update.ID {
			if update.Name != nil {
				project.Name = *update.Name
			}
			if update.Description != nil {
				project.Description = *update.Description
			}
			return project, nil
		}
	}
	return nil, errors.New("project not found")
}

func (m *mockDriver) DeleteProject(_ context.Context, delete *store.DeleteProject) error {
	for i, project := range m.projects {
		if project.ID == delete.ID {
			m.projects = append(m.projects[:i], m.projects[i+1:]...)
			return nil
		}
	}
	return errors.New("project not found")
}

func (m *mockDriver) CreateWorkflowVersion(_ context.Context, create *store.WorkflowVersion) (*store.WorkflowVersion, error) {
	create.ID = m.allocID()
	var max int32
	for _, version := range m.versions {
		if version.ProjectID == create.ProjectID && version.VersionNumber > max {
			max = version.VersionNumber
		}
	}
	create.VersionNumber = max + 1
	m.versions = append(m.versions, create)
	return create, nil
}

func (m *mockDriver) ListWorkflowVersions(_ context.Context, find *store.FindWorkflowVersion) ([]*store.WorkflowVersion, error) {
	result := make([]*store.WorkflowVersion, 0)
	for _, version := range m.versions {
		if find.ID != nil && version.ID != *find.ID {
			continue
		}
		if find.UID != nil && version.UID != *find.UID {
			continue
		}
		if find.ProjectID != nil && version.ProjectID != *find.ProjectID {
			continue
		}
		result = append(result, version)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].VersionNumber > result[j].VersionNumber
	})
	if find.Limit != nil && len(result) > *find.Limit {
		result = result[:*find.Limit]
	}
	return result, nil
}

func (m *mockDriver) UpdateWorkflowVersion(_ context.Context, update *store.UpdateWorkflowVersion) (*store.WorkflowVersion, error) {
	for _, version := range m.versions {
		if version.ID == update.ID {
			if update.Description != nil {
				version.Description = *update.Description
			}
			if update.Images != nil {
				version.Images = update.Images
			}
			return version, nil
		}
	}
	return nil, errors.New("workflow version not found")
}

func (m *mockDriver) DeleteWorkflowVersion(_ context.Context, delete *store.DeleteWorkflowVersion) error {
	for i, version := range m.versions {
		if version.ID == delete.ID {
			m.versions = append(m.versions[:i], m.versions[i+1:]...)
			return nil
		}
	}
	return errors.New("workflow version not found")
}

func (m *mockDriver) CreateUserStory(_ context.Context, create *store.UserStory) (*store.UserStory, error) {
	create.ID = m.allocID()
	m.stories = append(m.stories, create)
	return create, nil
}

func (m *mockDriver) ListUserStories(_ context.Context, find *store.FindUserStory) ([]*store.UserStory, error) {
	result := make([]*store.UserStory, 0)
	for _, story := range m.stories {
		if find.ID != nil && story.ID != *find.ID {
			continue
		}
		if find.UID != nil && story.UID != *find.UID {
			continue
		}
		if find.ProjectID != nil && story.ProjectID != *find.ProjectID {
			continue
		}
		result = append(result, story)
	}
	return result, nil
}

func (m *mockDriver) DeleteUserStory(_ context.Context, delete *store.DeleteUserStory) error {
	for i, story := range m.stories {
		if story.ID == delete.ID {
			m.stories = append(m.stories[:i], m.stories[i+1:]...)
			return nil
		}
	}
	return errors.New("user story not found")
}

func newTestStore() *store.Store {
	return store.New(newMockDriver(), &profile.Profile{Mode: "dev", Driver: "sqlite"})
}

func testWorkflow(ids ...string) *blueprint.Workflow {
	nodes := make([]blueprint.Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, blueprint.Node{ID: id, Type: "n8n-nodes-base.set", Name: id})
	}
	w := &blueprint.Workflow{Nodes: nodes, Connections: map[string]blueprint.NodeOutputs{}}
	for i := 0; i+1 < len(ids); i++ {
		w.Connections[ids[i]] = blueprint.NodeOutputs{
			Main: [][]blueprint.Connection{{{Node: ids[i+1], Type: "main", Index: 0}}},
		}
	}
	return w
}

func TestSaveVersion_SequentialNumbering(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	project, err := ts.CreateProject(ctx, &store.Project{UserID: 1, Name: "p"})
	require.NoError(t, err)

	v1, err := ts.SaveVersion(ctx, project.ID, testWorkflow("a"), "first", nil)
	require.NoError(t, err)
	v2, err := ts.SaveVersion(ctx, project.ID, testWorkflow("a", "b"), "second", nil)
	require.NoError(t, err)
	v3, err := ts.SaveVersion(ctx, project.ID, testWorkflow("a", "b", "c"), "third", nil)
	require.NoError(t, err)

	assert.Equal(t, int32(1), v1.VersionNumber)
	assert.Equal(t, int32(2), v2.VersionNumber)
	assert.Equal(t, int32(3), v3.VersionNumber)
	assert.NotEmpty(t, v1.UID)

	// Numbering is per project.
	other, err := ts.CreateProject(ctx, &store.Project{UserID: 1, Name: "q"})
	require.NoError(t, err)
	ov1, err := ts.SaveVersion(ctx, other.ID, testWorkflow("x"), "", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), ov1.VersionNumber)
}

func TestSaveVersion_ComputesStats(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	project, err := ts.CreateProject(ctx, &store.Project{UserID: 1, Name: "p"})
	require.NoError(t, err)

	version, err := ts.SaveVersion(ctx, project.ID, testWorkflow("a", "b", "c"), "", nil)
	require.NoError(t, err)

	assert.Equal(t, int32(3), version.NodeCount)
	assert.Equal(t, int32(2), version.ConnectionCount)
	assert.Equal(t, []string{}, version.Images)

	decoded, err := version.Workflow()
	require.NoError(t, err)
	assert.Len(t, decoded.Nodes, 3)
}

func TestSaveVersion_RejectsInvalidWorkflow(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	project, err := ts.CreateProject(ctx, &store.Project{UserID: 1, Name: "p"})
	require.NoError(t, err)

	duplicate := testWorkflow("a")
	duplicate.Nodes = append(duplicate.Nodes, blueprint.Node{ID: "a", Type: "t", Name: "dup"})
	_, err = ts.SaveVersion(ctx, project.ID, duplicate, "", nil)
	assert.Error(t, err)

	versions, err := ts.ListWorkflowVersions(ctx, &store.FindWorkflowVersion{ProjectID: &project.ID})
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestGetLatestWorkflowVersion(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	project, err := ts.CreateProject(ctx, &store.Project{UserID: 1, Name: "p"})
	require.NoError(t, err)

	latest, err := ts.GetLatestWorkflowVersion(ctx, project.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	_, err = ts.SaveVersion(ctx, project.ID, testWorkflow("a"), "first", nil)
	require.NoError(t, err)
	_, err = ts.SaveVersion(ctx, project.ID, testWorkflow("a", "b"), "second", nil)
	require.NoError(t, err)

	latest, err = ts.GetLatestWorkflowVersion(ctx, project.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int32(2), latest.VersionNumber)
	assert.Equal(t, "second", latest.Description)
}

func TestUpdateWorkflowVersion_AuxiliaryFieldsOnly(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	project, err := ts.CreateProject(ctx, &store.Project{UserID: 1, Name: "p"})
	require.NoError(t, err)
	version, err := ts.SaveVersion(ctx, project.ID, testWorkflow("a", "b"), "before", nil)
	require.NoError(t, err)

	desc := "after"
	updated, err := ts.UpdateWorkflowVersion(ctx, &store.UpdateWorkflowVersion{
		ID:          version.ID,
		Description: &desc,
		Images:      []string{"https://example.com/scene.png"},
	})
	require.NoError(t, err)

	assert.Equal(t, "after", updated.Description)
	assert.Equal(t, []string{"https://example.com/scene.png"}, updated.Images)
	// The graph payload is untouched.
	assert.Equal(t, version.WorkflowJSON, updated.WorkflowJSON)
	assert.Equal(t, version.VersionNumber, updated.VersionNumber)
}

func TestGetOrCreateDefaultProject(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	project, err := ts.GetOrCreateDefaultProject(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "My Workflow Project", project.Name)
	assert.Equal(t, int32(7), project.UserID)
	assert.NotEmpty(t, project.UID)

	// Second call returns the same project instead of creating another.
	again, err := ts.GetOrCreateDefaultProject(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, project.ID, again.ID)

	// A different user gets their own project.
	other, err := ts.GetOrCreateDefaultProject(ctx, 8)
	require.NoError(t, err)
	assert.NotEqual(t, project.ID, other.ID)
}

func TestUserStoryLifecycle(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	project, err := ts.CreateProject(ctx, &store.Project{UserID: 1, Name: "p"})
	require.NoError(t, err)

	story, err := ts.CreateUserStory(ctx, &store.UserStory{
		ProjectID: project.ID,
		Role:      "operator",
		Action:    "review the workflow diff",
		Benefit:   "I can approve changes confidently",
		Priority:  "P1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, story.UID)

	stories, err := ts.ListUserStories(ctx, &store.FindUserStory{ProjectID: &project.ID})
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "operator", stories[0].Role)

	require.NoError(t, ts.DeleteUserStory(ctx, &store.DeleteUserStory{ID: story.ID}))
	stories, err = ts.ListUserStories(ctx, &store.FindUserStory{ProjectID: &project.ID})
	require.NoError(t, err)
	assert.Empty(t, stories)
}
