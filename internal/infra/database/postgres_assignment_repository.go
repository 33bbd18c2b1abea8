// internal/infra/database/postgres_assignment_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ForWorkCodes/learn-en-bot/internal/domain/assignment"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors specific to assignment repository
var ErrAssignmentNotFound = fmt.Errorf("assignment not found")
var ErrDuplicateAssignment = fmt.Errorf("duplicate assignment (user_id, date_assigned)")

const assignmentColumns = `id, user_id, date_assigned, phrasal_verb, translation, explanation, examples_json,
               status, followup1_sent, followup2_sent, delivered_at, created_at, updated_at`

type PostgresAssignmentRepository struct {
	db *sql.DB
}

func NewPostgresAssignmentRepository(db *sql.DB) *PostgresAssignmentRepository {
	return &PostgresAssignmentRepository{db: db}
}

func scanAssignment(row interface{ Scan(dest ...any) error }) (*assignment.Assignment, error) {
	a := &assignment.Assignment{}
	err := row.Scan(&a.ID, &a.UserID, &a.DateAssigned, &a.PhrasalVerb, &a.Translation,
		&a.Explanation, &a.ExamplesJSON, &a.Status, &a.Followup1Sent, &a.Followup2Sent,
		&a.DeliveredAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// formatDate renders the calendar date for a DATE column, sidestepping
// session-timezone casts of timestamp parameters.
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func (r *PostgresAssignmentRepository) GetToday(ctx context.Context, userID int64, day time.Time) (*assignment.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE user_id = $1 AND date_assigned = $2`
	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, userID, formatDate(day)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("error getting assignment for day: %w", err)
	}
	return a, nil
}

func (r *PostgresAssignmentRepository) GetByID(ctx context.Context, id int64) (*assignment.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("error getting assignment by ID: %w", err)
	}
	return a, nil
}

// Ensure inserts the day's row or, when forceNew is set, overwrites the
// existing row in place (same id) resetting status, follow-up flags and
// delivered_at. Without forceNew a concurrent duplicate insert surfaces as
// ErrDuplicateAssignment via the assignments_user_date_key constraint; the
// caller retries the read.
func (r *PostgresAssignmentRepository) Ensure(ctx context.Context, userID int64, day time.Time, p assignment.Payload, forceNew bool) (*assignment.Assignment, error) {
	if forceNew {
		query := `INSERT INTO assignments (user_id, date_assigned, phrasal_verb, translation, explanation, examples_json)
               VALUES ($1, $2, $3, $4, $5, $6)
               ON CONFLICT ON CONSTRAINT assignments_user_date_key
               DO UPDATE SET phrasal_verb = EXCLUDED.phrasal_verb,
                             translation = EXCLUDED.translation,
                             explanation = EXCLUDED.explanation,
                             examples_json = EXCLUDED.examples_json,
                             status = 'assigned',
                             followup1_sent = FALSE,
                             followup2_sent = FALSE,
                             delivered_at = NULL,
                             updated_at = NOW()
               RETURNING ` + assignmentColumns
		a, err := scanAssignment(r.db.QueryRowContext(ctx, query, userID, formatDate(day),
			p.PhrasalVerb, p.Translation, p.Explanation, p.ExamplesJSON))
		if err != nil {
			return nil, fmt.Errorf("error force-replacing assignment: %w", err)
		}
		return a, nil
	}

	query := `INSERT INTO assignments (user_id, date_assigned, phrasal_verb, translation, explanation, examples_json)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING ` + assignmentColumns
	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, userID, formatDate(day),
		p.PhrasalVerb, p.Translation, p.Explanation, p.ExamplesJSON))
	if err != nil {
		if strings.Contains(err.Error(), "assignments_user_date_key") {
			return nil, ErrDuplicateAssignment
		}
		return nil, fmt.Errorf("error creating assignment: %w", err)
	}
	return a, nil
}

// MarkDelivered sets delivered_at once; a second call leaves the original
// timestamp untouched.
func (r *PostgresAssignmentRepository) MarkDelivered(ctx context.Context, id int64, ts time.Time) error {
	query := `UPDATE assignments
               SET delivered_at = COALESCE(delivered_at, $1), updated_at = NOW()
               WHERE id = $2`
	return r.execOnAssignment(ctx, query, ts, id)
}

func (r *PostgresAssignmentRepository) MarkFollowupSent(ctx context.Context, id int64, slot int) error {
	var query string
	switch slot {
	case 1:
		query = `UPDATE assignments SET followup1_sent = TRUE, updated_at = NOW() WHERE id = $1`
	case 2:
		query = `UPDATE assignments SET followup2_sent = TRUE, updated_at = NOW() WHERE id = $1`
	default:
		return fmt.Errorf("invalid follow-up slot: %d", slot)
	}
	return r.execOnAssignment(ctx, query, id)
}

// MarkMastered is monotonic: a mastered row stays mastered.
func (r *PostgresAssignmentRepository) MarkMastered(ctx context.Context, id int64) error {
	query := `UPDATE assignments SET status = 'mastered', updated_at = NOW() WHERE id = $1`
	return r.execOnAssignment(ctx, query, id)
}

func (r *PostgresAssignmentRepository) execOnAssignment(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking affected rows: %w", err)
	}
	if affected == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

func (r *PostgresAssignmentRepository) ListUndelivered(ctx context.Context) ([]*assignment.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments
               WHERE delivered_at IS NULL
               ORDER BY date_assigned, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying undelivered assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]*assignment.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning assignment row: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignment rows: %w", err)
	}
	return assignments, nil
}
