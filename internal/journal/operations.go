package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BeginOperation inserts a new running operation and returns it.
func (s *SQLiteStore) BeginOperation(ctx context.Context, kind, name string) (*Operation, error) {
	op := &Operation{
		ID:        uuid.NewString(),
		Kind:      kind,
		Name:      name,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operations (id, kind, name, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, op.ID, op.Kind, op.Name, op.Status, op.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert operation: %w", err)
	}

	return op, nil
}

// FinishOperation records the final status and detail of an operation.
func (s *SQLiteStore) FinishOperation(ctx context.Context, id, status, detail string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE operations
		SET status = ?, detail = ?, finished_at = ?
		WHERE id = ?
	`, status, detail, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish operation: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("operation not found: %s", id)
	}

	return nil
}

// SaveMember upserts the current state of one member within an operation.
// Uses ON CONFLICT so repeated saves during polling are idempotent.
func (s *SQLiteStore) SaveMember(ctx context.Context, operationID, member, state, detail string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operation_members (operation_id, member, state, detail, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(operation_id, member) DO UPDATE SET
			state = excluded.state,
			detail = excluded.detail,
			updated_at = excluded.updated_at
	`, operationID, member, state, detail, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save member: %w", err)
	}
	return nil
}

// GetOperation retrieves an operation by ID.
func (s *SQLiteStore) GetOperation(ctx context.Context, id string) (*Operation, error) {
	op := &Operation{}
	var detail sql.NullString
	var finished sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, name, status, detail, started_at, finished_at
		FROM operations
		WHERE id = ?
	`, id).Scan(&op.ID, &op.Kind, &op.Name, &op.Status, &detail, &op.StartedAt, &finished)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("operation not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query operation: %w", err)
	}

	op.Detail = detail.String
	if finished.Valid {
		t := finished.Time
		op.FinishedAt = &t
	}

	return op, nil
}

// ListOperations returns the most recent operations, newest first.
// A limit of zero or less returns all operations.
func (s *SQLiteStore) ListOperations(ctx context.Context, limit int) ([]*Operation, error) {
	query := `
		SELECT id, kind, name, status, detail, started_at, finished_at
		FROM operations
		ORDER BY started_at DESC, id
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op := &Operation{}
		var detail sql.NullString
		var finished sql.NullTime

		if err := rows.Scan(&op.ID, &op.Kind, &op.Name, &op.Status, &detail, &op.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}

		op.Detail = detail.String
		if finished.Valid {
			t := finished.Time
			op.FinishedAt = &t
		}

		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operations: %w", err)
	}

	return ops, nil
}

// Members returns the member records of an operation in insertion order.
func (s *SQLiteStore) Members(ctx context.Context, operationID string) ([]MemberRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT operation_id, member, state, detail, updated_at
		FROM operation_members
		WHERE operation_id = ?
		ORDER BY rowid
	`, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []MemberRecord
	for rows.Next() {
		var rec MemberRecord
		var detail sql.NullString

		if err := rows.Scan(&rec.OperationID, &rec.Member, &rec.State, &detail, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		rec.Detail = detail.String
		members = append(members, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}
