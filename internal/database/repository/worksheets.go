package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jask/notebook/internal/database"
	"github.com/jask/notebook/internal/worksheet"
)

// ErrWorksheetNotFound is returned when no worksheet is stored under a name.
var ErrWorksheetNotFound = errors.New("repository: worksheet not found")

// WorksheetInfo describes a stored worksheet.
type WorksheetInfo struct {
	Name      string    `json:"name"`
	Cells     int       `json:"cells"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorksheetRepo handles worksheets and their cells.
type WorksheetRepo struct {
	db *sql.DB
}

func NewWorksheetRepo(db *sql.DB) *WorksheetRepo { return &WorksheetRepo{db: db} }

// Save replaces the stored cells of name with the current contents of ws.
// Busy cells are stored without output.
func (r *WorksheetRepo) Save(ctx context.Context, name string, ws *worksheet.Worksheet) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		now := database.Now()
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO worksheets(name, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at=excluded.updated_at;
		`, name, now, now); err != nil {
			return fmt.Errorf("upsert worksheet %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cells WHERE worksheet = ?`, name); err != nil {
			return fmt.Errorf("clear cells of %s: %w", name, err)
		}
		pos := 0
		for c := range ws.All() {
			s := c.Snapshot()
			if c.Busy() {
				s.Index, s.Stdout, s.Stderr = nil, "", ""
			}
			if _, err := tx.ExecContext(ctx, `
			INSERT INTO cells(id, worksheet, position, input, exec_index, stdout, stderr)
			VALUES (?, ?, ?, ?, ?, ?, ?);
			`, s.ID, name, pos, s.Input, s.Index, s.Stdout, s.Stderr); err != nil {
				return fmt.Errorf("insert cell %s: %w", s.ID, err)
			}
			pos++
		}
		return nil
	})
}

// Load rebuilds the worksheet stored under name.
func (r *WorksheetRepo) Load(ctx context.Context, name string) (*worksheet.Worksheet, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM worksheets WHERE name = ?`, name).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrWorksheetNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
	SELECT id, input, exec_index, stdout, stderr FROM cells WHERE worksheet = ? ORDER BY position
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cells []*worksheet.Cell
	for rows.Next() {
		var s worksheet.Snapshot
		var index sql.NullInt64
		if err := rows.Scan(&s.ID, &s.Input, &index, &s.Stdout, &s.Stderr); err != nil {
			return nil, err
		}
		if index.Valid {
			n := int(index.Int64)
			s.Index = &n
		}
		cells = append(cells, worksheet.FromSnapshot(s))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return worksheet.FromCells(cells...)
}

func (r *WorksheetRepo) List(ctx context.Context) ([]WorksheetInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT w.name, COUNT(c.id), w.created_at, w.updated_at
	FROM worksheets w LEFT JOIN cells c ON c.worksheet = w.name
	GROUP BY w.name ORDER BY w.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WorksheetInfo
	for rows.Next() {
		var w WorksheetInfo
		if err := rows.Scan(&w.Name, &w.Cells, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WorksheetRepo) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM worksheets WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrWorksheetNotFound, name)
	}
	return nil
}
