package trace

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT    NOT NULL,
	elapsed     INTEGER NOT NULL,
	fired       INTEGER NOT NULL,
	periods     INTEGER NOT NULL,
	reprograms  INTEGER NOT NULL,
	retries     INTEGER NOT NULL,
	spin_limit  INTEGER NOT NULL,
	set_errors  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS fires (
	run_id      INTEGER NOT NULL REFERENCES runs(id),
	seq         INTEGER NOT NULL,
	name        TEXT    NOT NULL,
	deadline    INTEGER NOT NULL,
	fired_at    INTEGER NOT NULL,
	lateness    INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Store persists runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and its fires and returns the run id.
func (s *Store) SaveRun(run *Run) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	st := run.Stats
	res, err := tx.Exec(
		`INSERT INTO runs (name, elapsed, fired, periods, reprograms, retries, spin_limit, set_errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Name, int64(run.Elapsed), int64(st.Fired), int64(st.Periods),
		int64(st.Reprograms), int64(st.Retries), int64(st.SpinLimit), int64(st.SetErrors))
	if err != nil {
		return 0, errors.Wrap(err, "failed to insert run")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read run id")
	}

	stmt, err := tx.Prepare(
		`INSERT INTO fires (run_id, seq, name, deadline, fired_at, lateness) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prepare fire insert")
	}
	defer stmt.Close()

	for _, f := range run.Fires {
		if _, err := stmt.Exec(id, f.Seq, f.Name, int64(f.Deadline), int64(f.FiredAt), f.Lateness); err != nil {
			return 0, errors.Wrapf(err, "failed to insert fire %d", f.Seq)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit run")
	}
	return id, nil
}

// LoadRun reads a stored run and recomputes its summary.
func (s *Store) LoadRun(id int64) (*Run, error) {
	run := &Run{}
	var elapsed, fired, periods, reprograms, retries, spinLimit, setErrors int64
	err := s.db.QueryRow(
		`SELECT name, elapsed, fired, periods, reprograms, retries, spin_limit, set_errors
		 FROM runs WHERE id = ?`, id).
		Scan(&run.Name, &elapsed, &fired, &periods, &reprograms, &retries, &spinLimit, &setErrors)
	if err == sql.ErrNoRows {
		return nil, errors.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load run %d", id)
	}
	run.Elapsed = uint64(elapsed)
	run.Stats.Fired = uint64(fired)
	run.Stats.Periods = uint64(periods)
	run.Stats.Reprograms = uint64(reprograms)
	run.Stats.Retries = uint64(retries)
	run.Stats.SpinLimit = uint64(spinLimit)
	run.Stats.SetErrors = uint64(setErrors)

	rows, err := s.db.Query(
		`SELECT seq, name, deadline, fired_at, lateness FROM fires WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query fires of run %d", id)
	}
	defer rows.Close()

	for rows.Next() {
		var f Fire
		var deadline, firedAt int64
		if err := rows.Scan(&f.Seq, &f.Name, &deadline, &firedAt, &f.Lateness); err != nil {
			return nil, errors.Wrap(err, "failed to scan fire")
		}
		f.Deadline = uint64(deadline)
		f.FiredAt = uint64(firedAt)
		run.Fires = append(run.Fires, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read fires")
	}

	run.Summary = Summarize(run.Fires)
	return run, nil
}

// Runs lists the stored run ids and names, oldest first.
func (s *Store) Runs() (map[int64]string, error) {
	rows, err := s.db.Query(`SELECT id, name FROM runs ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	runs := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		runs[id] = name
	}
	return runs, rows.Err()
}
