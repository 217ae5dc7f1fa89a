/*
Package sqlite provides a SQLite-backed implementation of the seating store.

PURPOSE:
  Implements seating.TxStore (guests, tables, assignments, constraints and
  the audit log) on SQLite via database/sql and mattn/go-sqlite3.

KEY TABLES:
  guests:            Roster entries (tags stored as a JSON array)
  dining_tables:     Seating units with capacity and layout position
  assignments:       Guest -> table, at most one row per guest
  guest_constraints: Unordered guest pairs with MUST_TOGETHER / MUST_APART
  audit_log:         Append-only record of seating mutations

INVARIANTS ENFORCED BY THE SCHEMA:
  - guest and table ids are primary keys; a second insert under the same
    id fails with seating.ErrAlreadyExists and never updates the row
  - assignments.guest_id is UNIQUE: one seat per guest
  - guest_constraints has UNIQUE(project_id, pair_low, pair_high) where
    pair_low/pair_high are the sorted guest ids: one constraint per pair,
    regardless of order
  - deleting a guest cascades to its assignment and constraints
  - deleting a table with assignments is refused (ON DELETE RESTRICT)

ORDERING:
  Lists are returned in insertion order (rowid), which the engine uses to
  break score ties.

CONCURRENCY:
  The pool is capped at one connection. Writers are serialized by SQLite and
  everything inside WithTx runs on the transaction's connection.

USAGE:
  store, err := sqlite.New("./data/seating.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - seating/store.go: Interface definitions
  - seating/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/seating-engine/seating"
)

// Store implements seating.TxStore using SQLite.
type Store struct {
	queries
	db *sql.DB
}

var _ seating.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)

	store := &Store{queries: queries{q: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS guests (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		head_count INTEGER NOT NULL CHECK (head_count > 0),
		tags_json TEXT NOT NULL DEFAULT '[]',
		area_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_guests_project
		ON guests(project_id);

	CREATE TABLE IF NOT EXISTS dining_tables (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		capacity INTEGER NOT NULL CHECK (capacity > 0),
		area_id TEXT,
		pos_x REAL NOT NULL DEFAULT 0,
		pos_y REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tables_project
		ON dining_tables(project_id);

	-- One seat per guest
	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		guest_id TEXT NOT NULL UNIQUE REFERENCES guests(id) ON DELETE CASCADE,
		table_id TEXT NOT NULL REFERENCES dining_tables(id) ON DELETE RESTRICT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_table
		ON assignments(table_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_project
		ON assignments(project_id);

	-- One constraint per unordered guest pair
	CREATE TABLE IF NOT EXISTS guest_constraints (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		guest1_id TEXT NOT NULL REFERENCES guests(id) ON DELETE CASCADE,
		guest2_id TEXT NOT NULL REFERENCES guests(id) ON DELETE CASCADE,
		pair_low TEXT NOT NULL,
		pair_high TEXT NOT NULL,
		constraint_type TEXT NOT NULL CHECK (constraint_type IN ('MUST_TOGETHER', 'MUST_APART')),
		created_at TEXT NOT NULL,
		UNIQUE (project_id, pair_low, pair_high)
	);

	CREATE INDEX IF NOT EXISTS idx_constraints_guest1
		ON guest_constraints(guest1_id);
	CREATE INDEX IF NOT EXISTS idx_constraints_guest2
		ON guest_constraints(guest2_id);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		ts TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		guest_id TEXT,
		table_id TEXT,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_project_ts
		ON audit_log(project_id, ts DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (seating.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store seating.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(queries{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements seating.Store on top of a querier.
type queries struct {
	q querier
}

// =============================================================================
// GUESTS
// =============================================================================

const guestColumns = `id, project_id, name, head_count, tags_json, area_id, created_at`

func (qs queries) CreateGuest(ctx context.Context, g seating.Guest) error {
	tags := g.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	createdAt := g.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO guests (` + guestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = qs.q.ExecContext(ctx, query,
		g.ID, g.ProjectID, g.Name, g.HeadCount, string(tagsJSON),
		nullString(string(g.AreaID)), formatTime(createdAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: guest %q", seating.ErrAlreadyExists, g.ID)
		}
		return fmt.Errorf("failed to create guest: %w", err)
	}
	return nil
}

func (qs queries) GetGuest(ctx context.Context, id seating.GuestID) (seating.Guest, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = ?`, id)
	g, err := scanGuest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return seating.Guest{}, &seating.NotFoundError{Kind: "guest", ID: string(id)}
	}
	return g, err
}

func (qs queries) ListGuests(ctx context.Context, projectID seating.ProjectID) ([]seating.Guest, error) {
	rows, err := qs.q.QueryContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE project_id = ? ORDER BY rowid`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query guests: %w", err)
	}
	defer rows.Close()

	var guests []seating.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

func (qs queries) DeleteGuest(ctx context.Context, id seating.GuestID) error {
	res, err := qs.q.ExecContext(ctx, `DELETE FROM guests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}
	return requireAffected(res, "guest", string(id))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGuest(row scanner) (seating.Guest, error) {
	var (
		g         seating.Guest
		tagsJSON  string
		areaID    sql.NullString
		createdAt string
	)
	if err := row.Scan(&g.ID, &g.ProjectID, &g.Name, &g.HeadCount, &tagsJSON, &areaID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, err
		}
		return g, fmt.Errorf("failed to scan guest: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &g.Tags); err != nil {
		return g, fmt.Errorf("failed to decode tags of guest %s: %w", g.ID, err)
	}
	g.AreaID = seating.AreaID(areaID.String)
	g.CreatedAt = parseTime(createdAt)
	return g, nil
}

// =============================================================================
// TABLES
// =============================================================================

const tableColumns = `id, project_id, name, capacity, area_id, pos_x, pos_y, created_at`

func (qs queries) CreateTable(ctx context.Context, t seating.Table) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query := `
		INSERT INTO dining_tables (` + tableColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := qs.q.ExecContext(ctx, query,
		t.ID, t.ProjectID, t.Name, t.Capacity, nullString(string(t.AreaID)),
		t.X, t.Y, formatTime(createdAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: table %q", seating.ErrAlreadyExists, t.ID)
		}
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (qs queries) GetTable(ctx context.Context, id seating.TableID) (seating.Table, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+tableColumns+` FROM dining_tables WHERE id = ?`, id)
	t, err := scanTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return seating.Table{}, &seating.NotFoundError{Kind: "table", ID: string(id)}
	}
	return t, err
}

func (qs queries) ListTables(ctx context.Context, projectID seating.ProjectID) ([]seating.Table, error) {
	rows, err := qs.q.QueryContext(ctx,
		`SELECT `+tableColumns+` FROM dining_tables WHERE project_id = ? ORDER BY rowid`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []seating.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (qs queries) DeleteTable(ctx context.Context, id seating.TableID) error {
	var seated int
	err := qs.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM assignments WHERE table_id = ?`, id).Scan(&seated)
	if err != nil {
		return fmt.Errorf("failed to count assignments: %w", err)
	}
	if seated > 0 {
		return seating.ErrTableOccupied
	}
	res, err := qs.q.ExecContext(ctx, `DELETE FROM dining_tables WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}
	return requireAffected(res, "table", string(id))
}

func scanTable(row scanner) (seating.Table, error) {
	var (
		t         seating.Table
		areaID    sql.NullString
		createdAt string
	)
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Capacity, &areaID, &t.X, &t.Y, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("failed to scan table: %w", err)
	}
	t.AreaID = seating.AreaID(areaID.String)
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

const assignmentColumns = `id, project_id, guest_id, table_id, created_at, updated_at`

func (qs queries) GetAssignmentByGuest(ctx context.Context, guestID seating.GuestID) (*seating.Assignment, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE guest_id = ?`, guestID)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (qs queries) ListAssignments(ctx context.Context, projectID seating.ProjectID) ([]seating.Assignment, error) {
	return qs.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE project_id = ? ORDER BY rowid`, projectID)
}

func (qs queries) ListAssignmentsByTable(ctx context.Context, tableID seating.TableID) ([]seating.Assignment, error) {
	return qs.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE table_id = ? ORDER BY rowid`, tableID)
}

func (qs queries) queryAssignments(ctx context.Context, query string, args ...any) ([]seating.Assignment, error) {
	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []seating.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (qs queries) CreateAssignment(ctx context.Context, a seating.Assignment) error {
	_, err := qs.q.ExecContext(ctx,
		`INSERT INTO assignments (`+assignmentColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.ProjectID, a.GuestID, a.TableID, formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) && strings.Contains(err.Error(), "assignments.guest_id") {
			return seating.ErrAlreadyAssigned
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (qs queries) MoveAssignment(ctx context.Context, guestID seating.GuestID, tableID seating.TableID, at time.Time) error {
	res, err := qs.q.ExecContext(ctx,
		`UPDATE assignments SET table_id = ?, updated_at = ? WHERE guest_id = ?`,
		tableID, formatTime(at), guestID,
	)
	if err != nil {
		return fmt.Errorf("failed to move assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return seating.ErrNotAssigned
	}
	return nil
}

func (qs queries) DeleteAssignment(ctx context.Context, guestID seating.GuestID) error {
	res, err := qs.q.ExecContext(ctx, `DELETE FROM assignments WHERE guest_id = ?`, guestID)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return seating.ErrNotAssigned
	}
	return nil
}

func scanAssignment(row scanner) (seating.Assignment, error) {
	var (
		a                    seating.Assignment
		createdAt, updatedAt string
	)
	if err := row.Scan(&a.ID, &a.ProjectID, &a.GuestID, &a.TableID, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("failed to scan assignment: %w", err)
	}
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}

// =============================================================================
// CONSTRAINTS
// =============================================================================

const constraintColumns = `id, project_id, guest1_id, guest2_id, constraint_type, created_at`

func (qs queries) CreateConstraint(ctx context.Context, c seating.Constraint) error {
	low, high := c.Guest1ID, c.Guest2ID
	if high < low {
		low, high = high, low
	}
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO guest_constraints
		(id, project_id, guest1_id, guest2_id, pair_low, pair_high, constraint_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.Guest1ID, c.Guest2ID, low, high, c.Type, formatTime(c.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) && strings.Contains(err.Error(), "guest_constraints.project_id") {
			return seating.ErrDuplicateConstraint
		}
		return fmt.Errorf("failed to create constraint: %w", err)
	}
	return nil
}

func (qs queries) GetConstraint(ctx context.Context, id seating.ConstraintID) (seating.Constraint, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+constraintColumns+` FROM guest_constraints WHERE id = ?`, id)
	c, err := scanConstraint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return seating.Constraint{}, &seating.NotFoundError{Kind: "constraint", ID: string(id)}
	}
	return c, err
}

func (qs queries) ListConstraints(ctx context.Context, projectID seating.ProjectID) ([]seating.Constraint, error) {
	return qs.queryConstraints(ctx,
		`SELECT `+constraintColumns+` FROM guest_constraints WHERE project_id = ? ORDER BY rowid`, projectID)
}

func (qs queries) ListConstraintsForGuest(ctx context.Context, guestID seating.GuestID) ([]seating.Constraint, error) {
	return qs.queryConstraints(ctx,
		`SELECT `+constraintColumns+` FROM guest_constraints
		 WHERE guest1_id = ? OR guest2_id = ? ORDER BY rowid`, guestID, guestID)
}

func (qs queries) queryConstraints(ctx context.Context, query string, args ...any) ([]seating.Constraint, error) {
	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query constraints: %w", err)
	}
	defer rows.Close()

	var out []seating.Constraint
	for rows.Next() {
		c, err := scanConstraint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (qs queries) DeleteConstraint(ctx context.Context, id seating.ConstraintID) error {
	res, err := qs.q.ExecContext(ctx, `DELETE FROM guest_constraints WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete constraint: %w", err)
	}
	return requireAffected(res, "constraint", string(id))
}

func scanConstraint(row scanner) (seating.Constraint, error) {
	var (
		c         seating.Constraint
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.ProjectID, &c.Guest1ID, &c.Guest2ID, &c.Type, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("failed to scan constraint: %w", err)
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// =============================================================================
// PROJECTS
// =============================================================================

// DeleteProject removes every row the project owns. Children go first so
// the RESTRICT on dining_tables never fires.
func (qs queries) DeleteProject(ctx context.Context, projectID seating.ProjectID) error {
	for _, table := range []string{"assignments", "guest_constraints", "guests", "dining_tables", "audit_log"} {
		if _, err := qs.q.ExecContext(ctx, `DELETE FROM `+table+` WHERE project_id = ?`, projectID); err != nil {
			return fmt.Errorf("failed to delete %s of project %s: %w", table, projectID, err)
		}
	}
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (qs queries) AppendAudit(ctx context.Context, e seating.AuditEntry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}
	_, err = qs.q.ExecContext(ctx, `
		INSERT INTO audit_log (id, project_id, ts, actor_id, action, guest_id, table_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProjectID, formatTime(e.Timestamp), e.ActorID, e.Action,
		nullString(string(e.GuestID)), nullString(string(e.TableID)), string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// QueryAudit returns matching entries, newest first.
func (qs queries) QueryAudit(ctx context.Context, filter seating.AuditFilter) ([]seating.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.GuestID != nil {
		where = append(where, "guest_id = ?")
		args = append(args, *filter.GuestID)
	}
	if len(filter.Actions) > 0 {
		marks := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			marks[i] = "?"
			args = append(args, a)
		}
		where = append(where, "action IN ("+strings.Join(marks, ", ")+")")
	}

	query := `SELECT id, project_id, ts, actor_id, action, guest_id, table_id, payload_json FROM audit_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, rowid DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var out []seating.AuditEntry
	for rows.Next() {
		var (
			e                       seating.AuditEntry
			ts                      string
			actorID, guestID, table sql.NullString
			payload                 sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &ts, &actorID, &e.Action, &guestID, &table, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Timestamp = parseTime(ts)
		e.ActorID = actorID.String
		e.GuestID = seating.GuestID(guestID.String)
		e.TableID = seating.TableID(table.String)
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode audit payload %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &seating.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
