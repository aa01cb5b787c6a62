package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

/* ─── Database helpers ────────────────────────────────────────────────── */

// getDBPool creates a connection pool. We use a pool (not a single conn)
// because hosted Postgres closes idle connections after a few minutes.
func getDBPool() *pgxpool.Pool {
	config, err := pgxpool.ParseConfig(os.Getenv("DB_URL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to parse DB URL: %v\n", err)
		os.Exit(1)
	}
	// Simple query protocol avoids "cached plan must not change result type"
	// errors from server-side prepared statement caches after schema changes.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	return pool
}

// queryOne runs a query and scans the first row into T using RowToStructByName.
func queryOne[T any](pool *pgxpool.Pool, ctx context.Context, sql string, args pgx.NamedArgs) (T, error) {
	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("query: %w", err)
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
}

// queryMany runs a query and scans all rows into []T using RowToStructByName.
func queryMany[T any](pool *pgxpool.Pool, ctx context.Context, sql string, args pgx.NamedArgs) ([]T, error) {
	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}

/* ─── Assignment store ────────────────────────────────────────────────── */

// pgAssignmentStore implements assignmentStore on the minuta_assignments
// table. This service is the table's only writer.
type pgAssignmentStore struct {
	db *pgxpool.Pool
}

func newPGAssignmentStore(db *pgxpool.Pool) *pgAssignmentStore {
	return &pgAssignmentStore{db: db}
}

// ActiveAssignment returns the persona's active assignment, or (nil, nil)
// when none exists. The partial unique index on (persona_id) WHERE
// status='active' guarantees at most one row.
func (s *pgAssignmentStore) ActiveAssignment(ctx context.Context, personaID string) (*planAssignment, error) {
	a, err := queryOne[planAssignment](s.db, ctx,
		`SELECT * FROM minuta_assignments
		 WHERE persona_id = @personaID AND status = 'active'
		 ORDER BY created_date DESC
		 LIMIT 1`,
		pgx.NamedArgs{"personaID": personaID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// AssignmentHistory returns every assignment for the persona, newest first.
func (s *pgAssignmentStore) AssignmentHistory(ctx context.Context, personaID string) ([]planAssignment, error) {
	return queryMany[planAssignment](s.db, ctx,
		`SELECT * FROM minuta_assignments
		 WHERE persona_id = @personaID
		 ORDER BY created_date DESC`,
		pgx.NamedArgs{"personaID": personaID})
}

// CreateAssignment persists a fully-selected assignment as a single atomic
// insert. No partial records are ever written.
func (s *pgAssignmentStore) CreateAssignment(ctx context.Context, a planAssignment) (*planAssignment, error) {
	created, err := queryOne[planAssignment](s.db, ctx,
		`INSERT INTO minuta_assignments (id, plan_id, persona_id, plan_name, created_date, valid_until, status)
		 VALUES (@id, @planID, @personaID, @planName, @createdDate, @validUntil, @status)
		 RETURNING *`,
		pgx.NamedArgs{
			"id":          a.ID,
			"planID":      a.PlanID,
			"personaID":   a.PersonaID,
			"planName":    a.PlanName,
			"createdDate": a.CreatedDate.Time,
			"validUntil":  a.ValidUntil.Time,
			"status":      string(a.Status),
		})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateAssignmentStatus performs the status transition (the only mutation an
// assignment supports).
func (s *pgAssignmentStore) UpdateAssignmentStatus(ctx context.Context, id string, status assignmentStatus) error {
	result, err := s.db.Exec(ctx,
		"UPDATE minuta_assignments SET status = @status WHERE id = @id",
		pgx.NamedArgs{"id": id, "status": string(status)})
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("assignment %s not found", id)
	}
	return nil
}
