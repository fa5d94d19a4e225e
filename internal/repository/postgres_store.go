package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iliyamo/screen-seat-reservation/internal/model"
)

// pgUniqueViolation is the SQLSTATE for a unique constraint violation.
const pgUniqueViolation = "23505"

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// CreateScreen inserts the screen and its rows in one transaction.
func (p *PostgresStore) CreateScreen(ctx context.Context, name string, rows []RowSpec) (uint64, error) {
	if label, dup := duplicateLabel(rows); dup {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateRow, label)
	}
	var id int64
	err := pgx.BeginTxFunc(ctx, p.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `INSERT INTO screens (name) VALUES ($1) RETURNING id`, name).Scan(&id); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateScreen
			}
			return err
		}
		batch := &pgx.Batch{}
		for _, r := range rows {
			batch.Queue(`INSERT INTO screen_rows (screen_id, label, capacity, occupied) VALUES ($1, $2, $3, $4)`,
				id, r.Label, r.Capacity, []byte{})
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateRow
			}
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ScreenIDByName resolves a screen name.
func (p *PostgresStore) ScreenIDByName(ctx context.Context, name string) (uint64, error) {
	var id int64
	if err := p.Pool.QueryRow(ctx, `SELECT id FROM screens WHERE name = $1`, name).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrScreenNotFound
		}
		return 0, err
	}
	return uint64(id), nil
}

// GetRow loads one row by composite key.
func (p *PostgresStore) GetRow(ctx context.Context, key model.RowKey) (model.Row, error) {
	row, err := scanPgRow(p.Pool.QueryRow(ctx,
		`SELECT screen_id, label, capacity, occupied FROM screen_rows WHERE screen_id = $1 AND label = $2`,
		int64(key.ScreenID), key.Label))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Row{}, ErrRowNotFound
		}
		return model.Row{}, err
	}
	return row, nil
}

// ListRows returns every row of the screen from one statement snapshot.
func (p *PostgresStore) ListRows(ctx context.Context, screenID uint64) ([]model.Row, error) {
	rows, err := p.Pool.Query(ctx,
		`SELECT screen_id, label, capacity, occupied FROM screen_rows WHERE screen_id = $1 ORDER BY label`,
		int64(screenID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		row, err := scanPgRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrScreenNotFound
	}
	return out, nil
}

// UpdateRows locks the screen row FOR UPDATE and runs fn inside the
// same transaction.
func (p *PostgresStore) UpdateRows(ctx context.Context, screenID uint64, labels []string, fn RowUpdateFunc) error {
	return pgx.BeginTxFunc(ctx, p.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var locked int64
		if err := tx.QueryRow(ctx, `SELECT id FROM screens WHERE id = $1 FOR UPDATE`, int64(screenID)).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrScreenNotFound
			}
			return err
		}

		rows, err := tx.Query(ctx,
			`SELECT screen_id, label, capacity, occupied FROM screen_rows WHERE screen_id = $1 AND label = ANY($2)`,
			int64(screenID), labels)
		if err != nil {
			return err
		}
		current := make(map[string]model.Row, len(labels))
		for rows.Next() {
			row, err := scanPgRow(rows)
			if err != nil {
				rows.Close()
				return err
			}
			current[row.Label] = row
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		updated, err := fn(current)
		if err != nil {
			return err
		}
		for _, row := range updated {
			if _, ok := current[row.Label]; !ok {
				return fmt.Errorf("%w: %q", ErrRowNotFound, row.Label)
			}
			data, err := row.Occupied.MarshalBinary()
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`UPDATE screen_rows SET occupied = $1, updated_at = now() WHERE screen_id = $2 AND label = $3`,
				data, int64(screenID), row.Label); err != nil {
				return err
			}
		}
		return nil
	})
}

// Migrate executes the embedded Postgres schema.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range splitStatements(postgresSchema) {
		if _, err := p.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement: %q: %w", stmt, err)
		}
	}
	return nil
}

// Close closes the pool.
func (p *PostgresStore) Close() error {
	p.Pool.Close()
	return nil
}

func scanPgRow(s pgx.Row) (model.Row, error) {
	var (
		row      model.Row
		screenID int64
		capacity int32
		occupied []byte
	)
	if err := s.Scan(&screenID, &row.Label, &capacity, &occupied); err != nil {
		return model.Row{}, err
	}
	row.ScreenID = uint64(screenID)
	row.Capacity = int(capacity)
	if err := row.Occupied.UnmarshalBinary(occupied); err != nil {
		return model.Row{}, err
	}
	return checkOccupied(row)
}
