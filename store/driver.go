package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Project model related methods.
	CreateProject(ctx context.Context, create *Project) (*Project, error)
	ListProjects(ctx context.Context, find *FindProject) ([]*Project, error)
	UpdateProject(ctx context.Context, update *UpdateProject) (*Project, error)
	DeleteProject(ctx context.Context, delete *DeleteProject) error

	// WorkflowVersion model related methods. CreateWorkflowVersion assigns
	// the next sequential version number for the project; versions are
	// append-only and the workflow payload is immutable once written.
	CreateWorkflowVersion(ctx context.Context, create *WorkflowVersion) (*WorkflowVersion, error)
	ListWorkflowVersions(ctx context.Context, find *FindWorkflowVersion) ([]*WorkflowVersion, error)
	UpdateWorkflowVersion(ctx context.Context, update *UpdateWorkflowVersion) (*WorkflowVersion, error)
	DeleteWorkflowVersion(ctx context.Context, delete *DeleteWorkflowVersion) error

	// UserStory model related methods.
	CreateUserStory(ctx context.Context, create *UserStory) (*UserStory, error)
	ListUserStories(ctx context.Context, find *FindUserStory) ([]*UserStory, error)
	DeleteUserStory(ctx context.Context, delete *DeleteUserStory) error
}
