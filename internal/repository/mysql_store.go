package repository // MySQL implementation of Store

import (
	"context"      // context carries deadlines into every query
	"database/sql" // sql provides DB and Tx primitives
	"errors"       // errors for sentinel comparisons
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/screen-seat-reservation/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// MySQLStore persists screens in the screens and screen_rows tables.
// Reservations lock the parent screens row with SELECT ... FOR UPDATE so
// that all writers of one screen are serialised by InnoDB while other
// screens stay independent.
type MySQLStore struct {
	db *sql.DB // db is the underlying connection pool
}

// NewMySQLStore constructs a MySQLStore with the given DB handle.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}


func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// CreateScreen inserts the screen and its rows inside one transaction.
// A duplicate name or row label rolls everything back.
func (r *MySQLStore) CreateScreen(ctx context.Context, name string, rows []RowSpec) (uint64, error) {
	if label, dup := duplicateLabel(rows); dup {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateRow, label)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO screens (name) VALUES (?)`, name)
	if err != nil {
		if isDuplicateEntry(err) {
			return 0, ErrDuplicateScreen
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	// Build one multi-row INSERT for all rows of the screen.
	query := `INSERT INTO screen_rows (screen_id, label, capacity, occupied) VALUES `
	args := make([]interface{}, 0, len(rows)*4)
	for i, row := range rows {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, uint64(id), row.Label, row.Capacity, []byte{})
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateEntry(err) {
			return 0, ErrDuplicateRow
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(id), nil
}

// ScreenIDByName returns the id of the named screen or ErrScreenNotFound.
func (r *MySQLStore) ScreenIDByName(ctx context.Context, name string) (uint64, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM screens WHERE name = ?`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrScreenNotFound
		}
		return 0, err
	}
	return id, nil
}

// GetRow loads one row by its composite key.
func (r *MySQLStore) GetRow(ctx context.Context, key model.RowKey) (model.Row, error) {
	const q = `SELECT screen_id, label, capacity, occupied FROM screen_rows WHERE screen_id = ? AND label = ?`
	row, err := scanRow(r.db.QueryRowContext(ctx, q, key.ScreenID, key.Label))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Row{}, ErrRowNotFound
		}
		return model.Row{}, err
	}
	return row, nil
}

// ListRows reads all rows of a screen with a single statement, which
// InnoDB serves from one consistent snapshot.  Every registered screen
// has at least one row, so an empty result means the screen is unknown.
func (r *MySQLStore) ListRows(ctx context.Context, screenID uint64) ([]model.Row, error) {
	const q = `SELECT screen_id, label, capacity, occupied FROM screen_rows WHERE screen_id = ? ORDER BY label`
	rows, err := r.db.QueryContext(ctx, q, screenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		row, err := scanRow(rows)
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

// UpdateRows locks the screen, loads the requested rows, lets fn decide
// the new state and writes it back before committing.
func (r *MySQLStore) UpdateRows(ctx context.Context, screenID uint64, labels []string, fn RowUpdateFunc) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM screens WHERE id = ? FOR UPDATE`, screenID).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrScreenNotFound
		}
		return err
	}

	current := make(map[string]model.Row, len(labels))
	if len(labels) > 0 {
		placeholders := make([]string, 0, len(labels))
		args := make([]interface{}, 0, len(labels)+1)
		args = append(args, screenID)
		for _, l := range labels {
			placeholders = append(placeholders, "?")
			args = append(args, l)
		}
		q := `SELECT screen_id, label, capacity, occupied FROM screen_rows
		      WHERE screen_id = ? AND label IN (` + strings.Join(placeholders, ",") + `)`
		rows, err := tx.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		for rows.Next() {
			row, err := scanRow(rows)
			if err != nil {
				rows.Close()
				return err
			}
			current[row.Label] = row
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}
	}

	updated, err := fn(current)
	if err != nil {
		return err
	}
	const upd = `UPDATE screen_rows SET occupied = ? WHERE screen_id = ? AND label = ?`
	for _, row := range updated {
		data, err := row.Occupied.MarshalBinary()
		if err != nil {
			return err
		}
		if _, ok := current[row.Label]; !ok {
			return fmt.Errorf("%w: %q", ErrRowNotFound, row.Label)
		}
		if _, err := tx.ExecContext(ctx, upd, data, screenID, row.Label); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Migrate executes the embedded MySQL schema one statement at a time.
func (r *MySQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range splitStatements(mysqlSchema) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close closes the connection pool.
func (r *MySQLStore) Close() error { return r.db.Close() }

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRow(s rowScanner) (model.Row, error) {
	var (
		row      model.Row
		occupied []byte
	)
	if err := s.Scan(&row.ScreenID, &row.Label, &row.Capacity, &occupied); err != nil {
		return model.Row{}, err
	}
	if err := row.Occupied.UnmarshalBinary(occupied); err != nil {
		return model.Row{}, err
	}
	return checkOccupied(row)
}

// checkOccupied rejects a stored bitmap that marks seats past the row's
// capacity.
func checkOccupied(row model.Row) (model.Row, error) {
	if m := row.Occupied.Max(); m >= row.Capacity {
		return model.Row{}, fmt.Errorf("%w: row %q seat %d beyond capacity %d", model.ErrCorruptSeatSet, row.Label, m, row.Capacity)
	}
	return row, nil
}
