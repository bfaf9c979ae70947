package catalog

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snyder18/mixcoatl/internal/sourcegrid"
)

// SourcesTable is the table name catalogs are read from.
const SourcesTable = "sources"

// ReadSQLite loads a source catalog from a SQLite database, mapping
// the configured column names onto the capability fields. NULL
// measurements come back as NaN (missing).
func ReadSQLite(path string, fields FieldMap) (*Table, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer db.Close()

	query := fmt.Sprintf(`SELECT "%s", "%s", "%s", "%s", "%s" FROM %s`,
		fields.Y, fields.X, fields.XX, fields.YY, fields.Flux, SourcesTable)
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query catalog %s: %w", path, err)
	}
	defer rows.Close()

	t := &Table{}
	for rows.Next() {
		var y, x, xx, yy, flux sql.NullFloat64
		if err := rows.Scan(&y, &x, &xx, &yy, &flux); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		t.ys = append(t.ys, nullToNaN(y))
		t.xs = append(t.xs, nullToNaN(x))
		t.xxs = append(t.xxs, nullToNaN(xx))
		t.yys = append(t.yys, nullToNaN(yy))
		t.fluxes = append(t.fluxes, nullToNaN(flux))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return t, nil
}

// WriteSQLite persists a source catalog, creating the sources table
// with the configured column names. Intended for fixtures and tools.
func WriteSQLite(path string, t *Table, fields FieldMap) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer db.Close()

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		"%s" REAL, "%s" REAL, "%s" REAL, "%s" REAL, "%s" REAL
	)`, SourcesTable, fields.Y, fields.X, fields.XX, fields.YY, fields.Flux)
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create sources table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	insert := fmt.Sprintf(`INSERT INTO %s ("%s", "%s", "%s", "%s", "%s") VALUES (?, ?, ?, ?, ?)`,
		SourcesTable, fields.Y, fields.X, fields.XX, fields.YY, fields.Flux)
	stmt, err := tx.Prepare(insert)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for i := 0; i < t.NumSources(); i++ {
		y, x := t.Position(i)
		xx, yy := t.Moments(i)
		if _, err := stmt.Exec(naNToNull(y), naNToNull(x), naNToNull(xx),
			naNToNull(yy), naNToNull(t.Flux(i))); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert source %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// WriteDistortedGrid persists a fitted grid to a SQLite database: the
// scalar fit parameters into grid_params and one row per lattice node
// into grid_nodes, with NULL residuals for unmatched nodes. The node
// table uses the same backing-store format family as the input
// catalog, organized by lattice node rather than by detection.
func WriteDistortedGrid(path string, grid *sourcegrid.DistortedGrid, runID string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open grid store %s: %w", path, err)
	}
	defer db.Close()

	const schema = `
	CREATE TABLE IF NOT EXISTS grid_params (
		run_id TEXT PRIMARY KEY,
		row_spacing REAL NOT NULL,
		col_spacing REAL NOT NULL,
		theta REAL NOT NULL,
		y0 REAL NOT NULL,
		x0 REAL NOT NULL,
		rows INTEGER NOT NULL,
		cols INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS grid_nodes (
		node INTEGER PRIMARY KEY,
		"Y" REAL NOT NULL,
		"X" REAL NOT NULL,
		"DY" REAL,
		"DX" REAL,
		"XX" REAL NOT NULL,
		"YY" REAL NOT NULL,
		"DXX" REAL,
		"DYY" REAL,
		"FLUX" REAL NOT NULL,
		"DFLUX" REAL
	);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create grid tables: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	p := grid.Params
	if _, err := tx.Exec(
		`INSERT INTO grid_params (run_id, row_spacing, col_spacing, theta, y0, x0, rows, cols, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, p.RowSpacing, p.ColSpacing, p.Theta, p.Y0, p.X0, p.Rows, p.Cols, time.Now().UTC(),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert grid params: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO grid_nodes (node, "Y", "X", "DY", "DX", "XX", "YY", "DXX", "DYY", "FLUX", "DFLUX")
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for i, n := range grid.Nodes {
		if _, err := stmt.Exec(i, n.Y, n.X,
			matchedValue(n, n.DY), matchedValue(n, n.DX),
			n.XX, n.YY,
			matchedValue(n, n.DXX), matchedValue(n, n.DYY),
			n.Flux, matchedValue(n, n.DFlux)); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert grid node %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// ReadDistortedGrid loads a persisted grid back, returning the grid
// and its run identifier. Unmatched nodes come back with Matched set
// to false and zeroed residual fields.
func ReadDistortedGrid(path string) (*sourcegrid.DistortedGrid, string, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, "", fmt.Errorf("open grid store %s: %w", path, err)
	}
	defer db.Close()

	var runID string
	grid := &sourcegrid.DistortedGrid{}
	p := &grid.Params
	err = db.QueryRow(
		`SELECT run_id, row_spacing, col_spacing, theta, y0, x0, rows, cols FROM grid_params`).
		Scan(&runID, &p.RowSpacing, &p.ColSpacing, &p.Theta, &p.Y0, &p.X0, &p.Rows, &p.Cols)
	if err != nil {
		return nil, "", fmt.Errorf("read grid params: %w", err)
	}

	rows, err := db.Query(
		`SELECT "Y", "X", "DY", "DX", "XX", "YY", "DXX", "DYY", "FLUX", "DFLUX"
		 FROM grid_nodes ORDER BY node`)
	if err != nil {
		return nil, "", fmt.Errorf("read grid nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n sourcegrid.Node
		var dy, dx, dxx, dyy, dflux sql.NullFloat64
		if err := rows.Scan(&n.Y, &n.X, &dy, &dx, &n.XX, &n.YY, &dxx, &dyy, &n.Flux, &dflux); err != nil {
			return nil, "", fmt.Errorf("scan grid node: %w", err)
		}
		if dy.Valid && dx.Valid {
			n.Matched = true
			n.DY, n.DX = dy.Float64, dx.Float64
			n.DXX, n.DYY = dxx.Float64, dyy.Float64
			n.DFlux = dflux.Float64
		}
		grid.Nodes = append(grid.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	return grid, runID, nil
}

func matchedValue(n sourcegrid.Node, v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: n.Matched}
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func naNToNull(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
