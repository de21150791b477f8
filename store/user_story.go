package store

import (
	"context"

	"github.com/lithammer/shortuuid/v4"
)

// UserStory is a persisted user story generated during requirement
// clarification. Blueprint nodes reference stories by their UID through
// their userStoryIds field; the graph model treats those as opaque
// references.
type UserStory struct {
	ID        int32
	UID       string
	ProjectID int32
	Role      string
	Action    string
	Benefit   string
	Priority  string
	CreatedTs int64
}

// FindUserStory is the find condition for user story.
type FindUserStory struct {
	ID        *int32
	UID       *string
	ProjectID *int32
}

// DeleteUserStory is the delete request for user story.
type DeleteUserStory struct {
	ID int32
}

// CreateUserStory creates a new user story.
func (s *Store) CreateUserStory(ctx context.Context, create *UserStory) (*UserStory, error) {
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	return s.driver.CreateUserStory(ctx, create)
}

// ListUserStories lists user stories with filter.
func (s *Store) ListUserStories(ctx context.Context, find *FindUserStory) ([]*UserStory, error) {
	return s.driver.ListUserStories(ctx, find)
}

// DeleteUserStory deletes a user story.
func (s *Store) DeleteUserStory(ctx context.Context, delete *DeleteUserStory) error {
	return s.driver.DeleteUserStory(ctx, delete)
}
