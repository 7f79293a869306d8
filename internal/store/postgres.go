package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNoRow is returned when a lookup finds nothing; callers translate it
// into their own not-found errors.
var ErrNoRow = errors.New("no matching row")

const docColumns = `"workspaceId", _id, _class, space, "modifiedBy", "createdBy", "modifiedOn", "createdOn", COALESCE("attachedTo", ''), "%hash%", data`

type PostgresStore struct {
	db *sql.DB
}

func Open(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(10)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InsertDoc writes one primary/activity/tags row. Table names are checked
// against the known set; they are interpolated, never parameterized.
func (s *PostgresStore) InsertDoc(ctx context.Context, table Table, row DocRow) error {
	if !table.valid() {
		return fmt.Errorf("insert: unknown table %q", table)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s ("workspaceId", _id, _class, space, "modifiedBy", "createdBy", "modifiedOn", "createdOn", "attachedTo", "%%hash%%", data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11::jsonb)
	`, table)
	_, err := s.db.ExecContext(ctx, query,
		row.WorkspaceID, row.ID, row.Class, row.Space,
		row.ModifiedBy, row.CreatedBy, row.ModifiedOn, row.CreatedOn,
		row.AttachedTo, row.Hash, string(row.Data),
	)
	if err != nil {
		return fmt.Errorf("insert %s row: %w", table, err)
	}
	return nil
}

// InsertTx appends one transaction-log record. The tx table is append-only;
// nothing in this codebase updates or deletes from it.
func (s *PostgresStore) InsertTx(ctx context.Context, row TxRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tx ("workspaceId", _id, _class, space, "modifiedBy", "createdBy", "modifiedOn", "createdOn", "objectSpace", "objectId", "%hash%", data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb)
	`,
		row.WorkspaceID, row.ID, row.Class, row.Space,
		row.ModifiedBy, row.CreatedBy, row.ModifiedOn, row.CreatedOn,
		row.ObjectSpace, row.ObjectID, row.Hash, string(row.Data),
	)
	if err != nil {
		return fmt.Errorf("insert tx row: %w", err)
	}
	return nil
}

// UpdateDocData replaces a row's data payload, hash, and modification
// stamp in place.
func (s *PostgresStore) UpdateDocData(ctx context.Context, table Table, workspaceID, id string, data []byte, hash, modifiedBy string, modifiedOn int64) error {
	if !table.valid() {
		return fmt.Errorf("update: unknown table %q", table)
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET data=$3::jsonb, "%%hash%%"=$4, "modifiedBy"=$5, "modifiedOn"=$6
		WHERE "workspaceId"=$1 AND _id=$2
	`, table)
	result, err := s.db.ExecContext(ctx, query,
		workspaceID, id, string(data), hash, modifiedBy, modifiedOn)
	if err != nil {
		return fmt.Errorf("update %s row: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s rows: %w", table, err)
	}
	if affected == 0 {
		return ErrNoRow
	}
	return nil
}

// DeleteDoc hard-deletes a primary record. Its tx/activity history is
// retained; deletion of those tables never happens here.
func (s *PostgresStore) DeleteDoc(ctx context.Context, table Table, workspaceID, id string) error {
	if !table.valid() {
		return fmt.Errorf("delete: unknown table %q", table)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE "workspaceId"=$1 AND _id=$2`, table)
	result, err := s.db.ExecContext(ctx, query, workspaceID, id)
	if err != nil {
		return fmt.Errorf("delete %s row: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s rows: %w", table, err)
	}
	if affected == 0 {
		return ErrNoRow
	}
	return nil
}

// GetDoc fetches one row by id.
func (s *PostgresStore) GetDoc(ctx context.Context, table Table, workspaceID, id string) (DocRow, error) {
	if !table.valid() {
		return DocRow{}, fmt.Errorf("get: unknown table %q", table)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE "workspaceId"=$1 AND _id=$2`, docColumns, table)
	return s.scanOne(s.db.QueryRowContext(ctx, query, workspaceID, id))
}

// FindIssueByIdentifier looks up the primary task record by its
// human-facing identifier. When soft-deleted duplicates share an
// identifier, the highest numeric sequence wins.
func (s *PostgresStore) FindIssueByIdentifier(ctx context.Context, workspaceID, identifier string) (DocRow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM task
		WHERE "workspaceId"=$1 AND data->>'identifier'=$2
		ORDER BY COALESCE((data->>'number')::bigint, 0) DESC
		LIMIT 1
	`, docColumns)
	return s.scanOne(s.db.QueryRowContext(ctx, query, workspaceID, identifier))
}

// ListIssueIdentifiers returns the identifier field of every issue in a
// space; the caller derives the next sequence from them.
func (s *PostgresStore) ListIssueIdentifiers(ctx context.Context, workspaceID, space string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(data->>'identifier', '')
		FROM task
		WHERE "workspaceId"=$1 AND space=$2
	`, workspaceID, space)
	if err != nil {
		return nil, fmt.Errorf("list issue identifiers: %w", err)
	}
	defer rows.Close()

	identifiers := make([]string, 0)
	for rows.Next() {
		var identifier string
		if err := rows.Scan(&identifier); err != nil {
			return nil, fmt.Errorf("scan issue identifier: %w", err)
		}
		identifiers = append(identifiers, identifier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issue identifiers: %w", err)
	}
	return identifiers, nil
}

// ListIssuesBySpace returns issues in a space, newest first.
func (s *PostgresStore) ListIssuesBySpace(ctx context.Context, workspaceID, space string, limit int) ([]DocRow, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s FROM task
		WHERE "workspaceId"=$1 AND space=$2
		ORDER BY "modifiedOn" DESC
		LIMIT $3
	`, docColumns)
	return s.scanMany(ctx, query, workspaceID, space, limit)
}

// SampleDocInSpace fetches any one row belonging to a space, used to probe
// workspace scoping and task kinds from sibling records.
func (s *PostgresStore) SampleDocInSpace(ctx context.Context, table Table, space string) (DocRow, error) {
	if !table.valid() {
		return DocRow{}, fmt.Errorf("sample: unknown table %q", table)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE space=$1 LIMIT 1`, docColumns, table)
	return s.scanOne(s.db.QueryRowContext(ctx, query, space))
}

// SampleAnyDoc fetches any one row from a table regardless of space, the
// last resort of the workspace-resolution probe chain.
func (s *PostgresStore) SampleAnyDoc(ctx context.Context, table Table) (DocRow, error) {
	if !table.valid() {
		return DocRow{}, fmt.Errorf("sample: unknown table %q", table)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s LIMIT 1`, docColumns, table)
	return s.scanOne(s.db.QueryRowContext(ctx, query))
}

// ListActivity returns activity rows attached to an object, restricted to
// the given classes, oldest first.
func (s *PostgresStore) ListActivity(ctx context.Context, workspaceID, attachedTo string, classes []string) ([]DocRow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM activity
		WHERE "workspaceId"=$1 AND "attachedTo"=$2 AND _class = ANY($3)
		ORDER BY "createdOn" ASC
	`, docColumns)
	rows, err := s.db.QueryContext(ctx, query, workspaceID, attachedTo, classes)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()
	return collectRows(rows)
}

// ListStatuses returns every status row visible in the workspace so callers
// can match a human status name to its id.
func (s *PostgresStore) ListStatuses(ctx context.Context, workspaceID string) ([]DocRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM status WHERE "workspaceId"=$1`, docColumns)
	return s.scanMany(ctx, query, workspaceID)
}

func (s *PostgresStore) scanMany(ctx context.Context, query string, args ...any) ([]DocRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()
	return collectRows(rows)
}

func (s *PostgresStore) scanOne(row *sql.Row) (DocRow, error) {
	var item DocRow
	var data []byte
	err := row.Scan(
		&item.WorkspaceID, &item.ID, &item.Class, &item.Space,
		&item.ModifiedBy, &item.CreatedBy, &item.ModifiedOn, &item.CreatedOn,
		&item.AttachedTo, &item.Hash, &data,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return DocRow{}, ErrNoRow
	}
	if err != nil {
		return DocRow{}, fmt.Errorf("scan row: %w", err)
	}
	item.Data = data
	return item, nil
}

func collectRows(rows *sql.Rows) ([]DocRow, error) {
	items := make([]DocRow, 0)
	for rows.Next() {
		var item DocRow
		var data []byte
		if err := rows.Scan(
			&item.WorkspaceID, &item.ID, &item.Class, &item.Space,
			&item.ModifiedBy, &item.CreatedBy, &item.ModifiedOn, &item.CreatedOn,
			&item.AttachedTo, &item.Hash, &data,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		item.Data = data
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return items, nil
}
