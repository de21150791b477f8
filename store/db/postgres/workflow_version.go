package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/idea2prd/idea2prd/store"
)

func (d *DB) CreateWorkflowVersion(ctx context.Context, create *store.WorkflowVersion) (*store.WorkflowVersion, error) {
	images, err := json.Marshal(create.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to encode images: %w", err)
	}

	// The version number is assigned inside the insert so two concurrent
	// saves cannot both observe the same maximum; the unique constraint on
	// (project_id, version_number) backstops the race.
	stmt := `INSERT INTO workflow_version (
			uid, project_id, version_number, workflow_json, description,
			node_count, connection_count, images
		)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(version_number), 0) + 1 FROM workflow_version WHERE project_id = $2),
			$3, $4, $5, $6, $7)
		RETURNING id, version_number, created_ts`

	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.ProjectID,
		create.WorkflowJSON, create.Description,
		create.NodeCount, create.ConnectionCount, string(images),
	).Scan(
		&create.ID,
		&create.VersionNumber,
		&create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create workflow version: %w", err)
	}

	return create, nil
}

func (d *DB) ListWorkflowVersions(ctx context.Context, find *store.FindWorkflowVersion) ([]*store.WorkflowVersion, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "workflow_version.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "workflow_version.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ProjectID; v != nil {
		where, args = append(where, "workflow_version.project_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, uid, project_id, version_number, workflow_json, description,
			node_count, connection_count, images, created_ts
		FROM workflow_version
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY version_number DESC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow versions: %w", err)
	}
	defer rows.Close()

	list := make([]*store.WorkflowVersion, 0)
	for rows.Next() {
		version, err := scanWorkflowVersion(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, version)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workflow versions: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateWorkflowVersion(ctx context.Context, update *store.UpdateWorkflowVersion) (*store.WorkflowVersion, error) {
	set, args := []string{}, []any{}

	if v := update.Description; v != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *v)
	}
	if update.Images != nil {
		images, err := json.Marshal(update.Images)
		if err != nil {
			return nil, fmt.Errorf("failed to encode images: %w", err)
		}
		set, args = append(set, "images = "+placeholder(len(args)+1)), append(args, string(images))
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)

	stmt := `UPDATE workflow_version SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, uid, project_id, version_number, workflow_json, description,
			node_count, connection_count, images, created_ts`

	version, err := scanWorkflowVersion(d.db.QueryRowContext(ctx, stmt, args...).Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow version: %w", err)
	}

	return version, nil
}

func (d *DB) DeleteWorkflowVersion(ctx context.Context, delete *store.DeleteWorkflowVersion) error {
	stmt := `DELETE FROM workflow_version WHERE id = ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow version: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("workflow version not found")
	}

	return nil
}

func scanWorkflowVersion(scan func(dest ...any) error) (*store.WorkflowVersion, error) {
	var version store.WorkflowVersion
	var images string

	if err := scan(
		&version.ID,
		&version.UID,
		&version.ProjectID,
		&version.VersionNumber,
		&version.WorkflowJSON,
		&version.Description,
		&version.NodeCount,
		&version.ConnectionCount,
		&images,
		&version.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to scan workflow version: %w", err)
	}

	if images == "" {
		images = "[]"
	}
	if err := json.Unmarshal([]byte(images), &version.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}

	return &version, nil
}
