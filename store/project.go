package store

import (
	"context"

	"github.com/lithammer/shortuuid/v4"
)

// Project is the object representing a blueprint project. All workflow
// versions hang off a project.
type Project struct {
	ID          int32
	UID         string
	UserID      int32
	Name        string
	Description string
	CreatedTs   int64
	UpdatedTs   int64
}

// FindProject is the find condition for project.
type FindProject struct {
	ID     *int32
	UID    *string
	UserID *int32

	// Pagination
	Limit  *int
	Offset *int
}

// UpdateProject is the update request for project.
type UpdateProject struct {
	ID          int32
	Name        *string
	Description *string
}

// DeleteProject is the delete request for project. Deleting a project
// cascades to its versions and stories.
type DeleteProject struct {
	ID int32
}

// CreateProject creates a new project.
func (s *Store) CreateProject(ctx context.Context, create *Project) (*Project, error) {
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	return s.driver.CreateProject(ctx, create)
}

// ListProjects lists projects with filter.
func (s *Store) ListProjects(ctx context.Context, find *FindProject) ([]*Project, error) {
	return s.driver.ListProjects(ctx, find)
}

// GetProject gets a single project matching the filter.
func (s *Store) GetProject(ctx context.Context, find *FindProject) (*Project, error) {
	list, err := s.driver.ListProjects(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// GetOrCreateDefaultProject returns the user's first project, creating one
// when the user has none yet.
func (s *Store) GetOrCreateDefaultProject(ctx context.Context, userID int32) (*Project, error) {
	limit := 1
	existing, err := s.driver.ListProjects(ctx, &FindProject{UserID: &userID, Limit: &limit})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}
	return s.CreateProject(ctx, &Project{
		UserID:      userID,
		Name:        "My Workflow Project",
		Description: "Auto-created workflow project",
	})
}

// UpdateProject updates a project.
func (s *Store) UpdateProject(ctx context.Context, update *UpdateProject) (*Project, error) {
	return s.driver.UpdateProject(ctx, update)
}

// DeleteProject deletes a project.
func (s *Store) DeleteProject(ctx context.Context, delete *DeleteProject) error {
	return s.driver.DeleteProject(ctx, delete)
}
