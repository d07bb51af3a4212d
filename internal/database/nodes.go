package database

import (
	"context"
	"errors"
	"filezone/internal/models"
	"filezone/internal/tree"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	// Recursive walks stop here even if parent links were ever corrupted
	// into a cycle.
	maxTreeDepth = 4096
)

const nodeColumns = `id, owner_id, parent_id, name, kind, size_bytes, modified_at, state`

func scanNode(row pgx.Row) (*models.Node, error) {
	var node models.Node
	err := row.Scan(
		&node.ID,
		&node.OwnerID,
		&node.ParentID,
		&node.Name,
		&node.Kind,
		&node.SizeBytes,
		&node.ModifiedAt,
		&node.State,
	)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func collectNodes(rows pgx.Rows) ([]models.Node, error) {
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return nodes, nil
}

func (q *Queries) CreateRoot(ctx context.Context, node *models.Node) error {
	if node.ParentID != nil {
		return fmt.Errorf("%w: root cannot have a parent", tree.ErrInvalidParent)
	}

	query := `
		INSERT INTO nodes (id, owner_id, parent_id, name, kind, size_bytes, modified_at, state)
		VALUES ($1, $2, NULL, $3, $4, NULL, $5, 'pending')
	`
	_, err := q.db.Exec(ctx, query, node.ID, node.OwnerID, node.Name, node.Kind, node.ModifiedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "nodes_one_root_per_owner" {
			return tree.ErrDuplicateRoot
		}
		return err
	}

	node.State = models.StatePending
	return nil
}

// Insert copies owner_id from the parent row and only succeeds when that
// parent is an active container.
func (q *Queries) Insert(ctx context.Context, node *models.Node) error {
	if node.ParentID == nil {
		return tree.ErrInvalidParent
	}

	query := `
		INSERT INTO nodes (id, owner_id, parent_id, name, kind, size_bytes, modified_at, state)
		SELECT $1::text, p.owner_id, p.id, $3::text, $4::text, $5::bigint, $6::timestamptz, 'pending'
		FROM nodes p
		WHERE p.id = $2::text AND p.kind = 'container' AND p.state = 'active'
		RETURNING owner_id
	`
	var ownerID string
	err := q.db.QueryRow(ctx, query,
		node.ID,
		*node.ParentID,
		node.Name,
		node.Kind,
		node.SizeBytes,
		node.ModifiedAt,
	).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tree.ErrInvalidParent
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch {
			case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "nodes_unique_sibling_name":
				return tree.ErrNameConflict
			case pgErr.Code == pgForeignKeyViolation:
				return tree.ErrInvalidParent
			}
		}
		return err
	}

	node.OwnerID = ownerID
	node.State = models.StatePending
	return nil
}

func (q *Queries) Commit(ctx context.Context, id string) error {
	query := `UPDATE nodes SET state = 'active' WHERE id = $1 AND state = 'pending'`
	res, err := q.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return tree.ErrNotFound
	}
	return nil
}

func (q *Queries) Discard(ctx context.Context, id string) error {
	query := `DELETE FROM nodes WHERE id = $1 AND state = 'pending'`
	_, err := q.db.Exec(ctx, query, id)
	return err
}

func (q *Queries) Lookup(ctx context.Context, id string) (*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = $1 AND state = 'active'`

	node, err := scanNode(q.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tree.ErrNotFound
		}
		return nil, err
	}
	return node, nil
}

func (q *Queries) Ancestors(ctx context.Context, id string) ([]models.Node, error) {
	query := `
		WITH RECURSIVE chain AS (
			SELECT ` + nodeColumns + `, 0 AS depth
			FROM nodes
			WHERE id = $1 AND state = 'active'

			UNION ALL

			SELECT n.id, n.owner_id, n.parent_id, n.name, n.kind, n.size_bytes, n.modified_at, n.state, c.depth + 1
			FROM nodes n
			INNER JOIN chain c ON n.id = c.parent_id
			WHERE c.depth < $2
		)
		SELECT ` + nodeColumns + ` FROM chain ORDER BY depth ASC
	`
	rows, err := q.db.Query(ctx, query, id, maxTreeDepth)
	if err != nil {
		return nil, err
	}
	nodes, err := collectNodes(rows)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, tree.ErrNotFound
	}
	return nodes, nil
}

func (q *Queries) Subtree(ctx context.Context, id string) ([]models.Node, error) {
	query := `
		WITH RECURSIVE sub AS (
			SELECT ` + nodeColumns + `, 0 AS depth
			FROM nodes
			WHERE id = $1 AND state = 'active'

			UNION ALL

			SELECT n.id, n.owner_id, n.parent_id, n.name, n.kind, n.size_bytes, n.modified_at, n.state, s.depth + 1
			FROM nodes n
			INNER JOIN sub s ON n.parent_id = s.id
			WHERE n.state = 'active' AND s.depth < $2
		)
		SELECT ` + nodeColumns + ` FROM sub
	`
	rows, err := q.db.Query(ctx, query, id, maxTreeDepth)
	if err != nil {
		return nil, err
	}
	nodes, err := collectNodes(rows)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, tree.ErrNotFound
	}
	return nodes, nil
}

func (q *Queries) RootOf(ctx context.Context, ownerID string) (*models.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE owner_id = $1 AND parent_id IS NULL AND state = 'active'
	`
	node, err := scanNode(q.db.QueryRow(ctx, query, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tree.ErrNotFound
		}
		return nil, err
	}
	return node, nil
}

func (q *Queries) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM nodes WHERE id = $1)"
	err := q.db.QueryRow(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// deleteSubtree removes the node and all descendants in one statement so
// the parent_id foreign key is checked only once every row is gone.
func (q *Queries) deleteSubtree(ctx context.Context, id string) ([]models.Node, error) {
	query := `
		WITH RECURSIVE nodes_to_delete AS (
			SELECT n.id, 0 AS depth
			FROM nodes n
			WHERE n.id = $1 AND n.state = 'active'

			UNION ALL

			SELECT n.id, ntd.depth + 1
			FROM nodes n
			INNER JOIN nodes_to_delete ntd ON n.parent_id = ntd.id
			WHERE ntd.depth < $2
		)
		DELETE FROM nodes
		WHERE id IN (SELECT id FROM nodes_to_delete)
		RETURNING ` + nodeColumns
	rows, err := q.db.Query(ctx, query, id, maxTreeDepth)
	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

// RemoveSubtree locks the start row first so a concurrent Insert under it
// either finishes before the delete or fails its parent check.
func (s *Store) RemoveSubtree(ctx context.Context, id string) ([]models.Node, error) {
	var removed []models.Node

	err := s.ExecTx(ctx, func(q *Queries) error {
		var locked string
		err := q.db.QueryRow(ctx, `SELECT id FROM nodes WHERE id = $1 AND state = 'active' FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return tree.ErrNotFound
			}
			return err
		}

		removed, err = q.deleteSubtree(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

var _ tree.Index = (*Store)(nil)
