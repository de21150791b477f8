package store

import (
	"context"
	"encoding/json"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/idea2prd/idea2prd/blueprint"
)

// WorkflowVersion is one immutable, sequentially numbered snapshot of a
// project's workflow graph. Version numbers start at 1 and are scoped to the
// project; the driver assigns max+1 at insert time. The workflow payload is
// never updated after creation — only the auxiliary description and images
// are mutable.
type WorkflowVersion struct {
	ID              int32
	UID             string
	ProjectID       int32
	VersionNumber   int32
	WorkflowJSON    string
	Description     string
	NodeCount       int32
	ConnectionCount int32
	Images          []string
	CreatedTs       int64
}

// Workflow decodes the stored graph snapshot.
func (v *WorkflowVersion) Workflow() (*blueprint.Workflow, error) {
	var w blueprint.Workflow
	if err := json.Unmarshal([]byte(v.WorkflowJSON), &w); err != nil {
		return nil, errors.Wrapf(err, "failed to decode workflow of version %d", v.VersionNumber)
	}
	return &w, nil
}

// FindWorkflowVersion is the find condition for workflow version. Results
// are always ordered by version_number descending.
type FindWorkflowVersion struct {
	ID        *int32
	UID       *string
	ProjectID *int32

	// Pagination
	Limit  *int
	Offset *int
}

// UpdateWorkflowVersion is the update request for workflow version.
// The graph payload itself has no update path.
type UpdateWorkflowVersion struct {
	ID          int32
	Description *string
	Images      []string
}

// DeleteWorkflowVersion is the delete request for workflow version.
type DeleteWorkflowVersion struct {
	ID int32
}

// SaveVersion appends a new version of the project's workflow. The snapshot
// is serialized and stored together with its node and connection counts so
// the version history can render stats without decoding every payload.
func (s *Store) SaveVersion(ctx context.Context, projectID int32, w *blueprint.Workflow, description string, images []string) (*WorkflowVersion, error) {
	if err := w.Validate(); err != nil {
		return nil, errors.Wrap(err, "refusing to save invalid workflow")
	}

	raw, err := json.Marshal(w)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode workflow")
	}

	stats := blueprint.Stats(w)
	if images == nil {
		images = []string{}
	}

	return s.driver.CreateWorkflowVersion(ctx, &WorkflowVersion{
		UID:             shortuuid.New(),
		ProjectID:       projectID,
		WorkflowJSON:    string(raw),
		Description:     description,
		NodeCount:       int32(stats.NodeCount),
		ConnectionCount: int32(stats.ConnectionCount),
		Images:          images,
	})
}

// ListWorkflowVersions lists versions with filter, newest first.
func (s *Store) ListWorkflowVersions(ctx context.Context, find *FindWorkflowVersion) ([]*WorkflowVersion, error) {
	return s.driver.ListWorkflowVersions(ctx, find)
}

// GetWorkflowVersion gets a single version matching the filter.
func (s *Store) GetWorkflowVersion(ctx context.Context, find *FindWorkflowVersion) (*WorkflowVersion, error) {
	list, err := s.driver.ListWorkflowVersions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// GetLatestWorkflowVersion returns the newest version of a project, or nil
// when the project has no versions yet.
func (s *Store) GetLatestWorkflowVersion(ctx context.Context, projectID int32) (*WorkflowVersion, error) {
	limit := 1
	return s.GetWorkflowVersion(ctx, &FindWorkflowVersion{ProjectID: &projectID, Limit: &limit})
}

// UpdateWorkflowVersion updates the auxiliary fields of a version.
func (s *Store) UpdateWorkflowVersion(ctx context.Context, update *UpdateWorkflowVersion) (*WorkflowVersion, error) {
	return s.driver.UpdateWorkflowVersion(ctx, update)
}

// DeleteWorkflowVersion deletes a version.
func (s *Store) DeleteWorkflowVersion(ctx context.Context, delete *DeleteWorkflowVersion) error {
	return s.driver.DeleteWorkflowVersion(ctx, delete)
}
