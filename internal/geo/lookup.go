// Package geo resolves the geographic hierarchy: which output areas make up
// a given MSOA. The lookup table ships as a gzipped CSV; it is queried
// through DuckDB, whose read_csv_auto handles the compression and the
// filtering in one place.
package geo

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"spenser.io/synthpop/internal/logging"
	"spenser.io/synthpop/internal/model"
)

// Lookup answers MSOA-to-OA queries over the national geography table.
type Lookup struct {
	db *sql.DB
}

// Open starts an in-memory DuckDB session with a view over the lookup table
// at path, exposing it under the renamed columns oa, msoa, la, lsoa. The
// view reads the file on each query.
func Open(path string) (*Lookup, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("geography lookup: %w", err)
	}
	logging.Info("Opening geography lookup at %s", path)
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	// read_csv_auto does not take bound parameters; the path comes from our
	// own path construction, quoting is only about literal quotes in paths.
	quoted := strings.ReplaceAll(path, "'", "''")
	view := fmt.Sprintf(
		`CREATE VIEW geog AS
		 SELECT OA AS oa, MSOA AS msoa, LAD AS la, LSOA AS lsoa
		 FROM read_csv_auto('%s')`, quoted)
	if _, err := db.Exec(view); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading geography lookup %s: %w", path, err)
	}
	// Fail on a malformed table now rather than mid-assignment.
	if _, err := db.Exec(`SELECT oa, msoa FROM geog LIMIT 1`); err != nil {
		db.Close()
		return nil, fmt.Errorf("validating geography lookup %s: %w", path, err)
	}
	return &Lookup{db: db}, nil
}

// OAs returns the set of output areas contained in the MSOA.
func (l *Lookup) OAs(msoa model.MSOA) (map[model.OA]struct{}, error) {
	rows, err := l.db.Query(`SELECT DISTINCT oa FROM geog WHERE msoa = ?`, string(msoa))
	if err != nil {
		return nil, fmt.Errorf("querying OAs for %s: %w", msoa, err)
	}
	defer rows.Close()

	oas := make(map[model.OA]struct{})
	for rows.Next() {
		var oa string
		if err := rows.Scan(&oa); err != nil {
			return nil, fmt.Errorf("scanning OA for %s: %w", msoa, err)
		}
		oas[model.OA(oa)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading OAs for %s: %w", msoa, err)
	}
	return oas, nil
}

// Close releases the DuckDB session.
func (l *Lookup) Close() error {
	logging.Info("Closing geography lookup")
	return l.db.Close()
}
