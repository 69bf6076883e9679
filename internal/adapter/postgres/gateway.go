package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/signboard/internal/domain"
)

const foreignKeyViolation = "23503"

const selectEmployees = `
SELECT id, first_name, last_name, extension, status, location_id, comment, expected_return, updated_at
FROM employees
ORDER BY last_name, first_name, id`

// A location id of 0 keeps the employee's current location.
const updateEmployee = `
UPDATE employees
SET status          = $2,
    location_id     = COALESCE(NULLIF($3, 0), location_id),
    comment         = $4,
    expected_return = $5,
    updated_at      = now()
WHERE id = $1`

const selectLocations = `SELECT id, name FROM locations ORDER BY id`

// Gateway is the PostgreSQL implementation of domain.Gateway.
type Gateway struct {
	pool *pgxpool.Pool
}

func NewGateway(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool}
}

// LoadAll returns every employee ordered by name.
func (g *Gateway) LoadAll(ctx context.Context) ([]domain.Employee, error) {
	rows, err := g.pool.Query(ctx, selectEmployees)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}

	employees, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Employee, error) {
		var e domain.Employee
		var status string
		err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Extension, &status, &e.LocationID, &e.Comment, &e.ExpectedReturn, &e.UpdatedAt)
		e.Status = domain.EmployeeStatus(status)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan employees: %w", err)
	}
	return employees, nil
}

// ApplyUpdates writes all updates in one transaction. Any unknown employee,
// unknown location or invalid status rolls back the whole batch.
func (g *Gateway) ApplyUpdates(ctx context.Context, updates []domain.EmployeeStatusUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, u := range updates {
		status, ok := domain.ParseEmployeeStatus(string(u.Status))
		if !ok {
			return fmt.Errorf("%w: employee %d has unknown status %q", domain.ErrInvalidUpdate, u.EmployeeID, u.Status)
		}
		batch.Queue(updateEmployee, u.EmployeeID, string(status), u.LocationID, u.Comment, expectedReturn(u.ExpectedReturn))
	}

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := execUpdates(tx.SendBatch(ctx, batch), updates); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit updates: %w", err)
	}
	return nil
}

func execUpdates(br pgx.BatchResults, updates []domain.EmployeeStatusUpdate) error {
	defer br.Close()

	for _, u := range updates {
		tag, err := br.Exec()
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return fmt.Errorf("%w: location %d for employee %d", domain.ErrLocationNotFound, u.LocationID, u.EmployeeID)
		}
		if err != nil {
			return fmt.Errorf("failed to update employee %d: %w", u.EmployeeID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %d", domain.ErrEmployeeNotFound, u.EmployeeID)
		}
	}

	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close update batch: %w", err)
	}
	return nil
}

func expectedReturn(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// LoadLocations returns all location names by id.
func (g *Gateway) LoadLocations(ctx context.Context) (domain.LocationMap, error) {
	rows, err := g.pool.Query(ctx, selectLocations)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	locations := make(domain.LocationMap)
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read locations: %w", err)
	}
	return locations, nil
}

// Ping reports whether the database answers.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.pool.Ping(ctx)
}
