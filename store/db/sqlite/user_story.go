package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/idea2prd/idea2prd/store"
)

func (d *DB) CreateUserStory(ctx context.Context, create *store.UserStory) (*store.UserStory, error) {
	fields := []string{"uid", "project_id", "role", "action", "benefit", "priority"}
	args := []any{create.UID, create.ProjectID, create.Role, create.Action, create.Benefit, create.Priority}

	stmt := `INSERT INTO user_story (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id, created_ts`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create user story: %w", err)
	}

	return create, nil
}

func (d *DB) ListUserStories(ctx context.Context, find *store.FindUserStory) ([]*store.UserStory, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "user_story.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "user_story.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ProjectID; v != nil {
		where, args = append(where, "user_story.project_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, uid, project_id, role, action, benefit, priority, created_ts
		FROM user_story
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user stories: %w", err)
	}
	defer rows.Close()

	list := make([]*store.UserStory, 0)
	for rows.Next() {
		var story store.UserStory
		if err := rows.Scan(
			&story.ID,
			&story.UID,
			&story.ProjectID,
			&story.Role,
			&story.Action,
			&story.Benefit,
			&story.Priority,
			&story.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user story: %w", err)
		}
		list = append(list, &story)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user stories: %w", err)
	}

	return list, nil
}

func (d *DB) DeleteUserStory(ctx context.Context, delete *store.DeleteUserStory) error {
	stmt := `DELETE FROM user_story WHERE id = ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete user story: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user story not found")
	}

	return nil
}
