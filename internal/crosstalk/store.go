package crosstalk

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// WriteSQLite persists a completed matrix to a SQLite database, one
// row per measured (aggressor, victim) pair. Written once, after all
// aggressor rows have been collected.
func WriteSQLite(path string, m *Matrix) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open crosstalk store %s: %w", path, err)
	}
	defer db.Close()

	const schema = `
	CREATE TABLE IF NOT EXISTS crosstalk (
		aggressor_sensor TEXT NOT NULL,
		victim_sensor TEXT NOT NULL,
		aggressor_amp INTEGER NOT NULL,
		victim_amp INTEGER NOT NULL,
		coefficient REAL NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (aggressor_sensor, victim_sensor, aggressor_amp, victim_amp)
	)`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create crosstalk table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO crosstalk
		 (aggressor_sensor, victim_sensor, aggressor_amp, victim_amp, coefficient, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, aggressor := range m.Rows() {
		for victim := 1; victim <= m.NumAmps; victim++ {
			c := m.Coefficient(aggressor, victim)
			if _, err := stmt.Exec(m.AggressorSensor, m.VictimSensor, aggressor, victim, c, now); err != nil {
				tx.Rollback()
				return fmt.Errorf("insert coefficient (%d, %d): %w", aggressor, victim, err)
			}
		}
	}
	return tx.Commit()
}

// ReadSQLite loads a persisted matrix for the given sensor pair.
func ReadSQLite(path, aggressorSensor, victimSensor string, numAmps int) (*Matrix, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open crosstalk store %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT aggressor_amp, victim_amp, coefficient FROM crosstalk
		 WHERE aggressor_sensor = ? AND victim_sensor = ?`,
		aggressorSensor, victimSensor)
	if err != nil {
		return nil, fmt.Errorf("read crosstalk matrix: %w", err)
	}
	defer rows.Close()

	m := NewMatrix(aggressorSensor, victimSensor, numAmps)
	byAggressor := make(map[int]map[int]float64)
	for rows.Next() {
		var aggressor, victim int
		var c float64
		if err := rows.Scan(&aggressor, &victim, &c); err != nil {
			return nil, fmt.Errorf("scan crosstalk row: %w", err)
		}
		if byAggressor[aggressor] == nil {
			byAggressor[aggressor] = make(map[int]float64)
		}
		byAggressor[aggressor][victim] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for aggressor, row := range byAggressor {
		m.SetRow(aggressor, row)
	}
	return m, nil
}
