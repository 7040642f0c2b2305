// Package sqlite provides a cuttle.Backend that keeps the collections of a
// repository in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dekarrin/cuttle"
	"github.com/dekarrin/cuttle/backend/dbconv"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed cuttle.Backend. Records are kept as JSON text, one
// row per record, in the order they were saved.
//
// Its zero-value should not be used; call Open or New to get a Store ready for
// use.
type Store struct {
	db         *sql.DB
	dbFilename string
}

// Open opens the SQLite database in file, creating it if needed, and returns a
// Store that uses it.
func Open(file string) (*Store, error) {
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, cuttle.WrapDBError(err)
	}

	st, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	st.dbFilename = file
	return st, nil
}

// New returns a Store that uses the already-open db. The tables the Store
// needs are created if they do not exist. Closing the Store closes db.
func New(db *sql.DB) (*Store, error) {
	st := &Store{db: db, dbFilename: "(db)"}
	if err := st.init(); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *Store) init() error {
	_, err := st.db.Exec(`CREATE TABLE IF NOT EXISTS collections (
		name TEXT NOT NULL PRIMARY KEY
	);`)
	if err != nil {
		return cuttle.WrapDBError(err, "create collections table")
	}

	_, err = st.db.Exec(`CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL,
		position INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, position)
	);`)
	if err != nil {
		return cuttle.WrapDBError(err, "create records table")
	}

	return nil
}

// Load reads every collection from the database.
func (st *Store) Load(ctx context.Context) (map[string][]cuttle.Record, error) {
	loaded := map[string][]cuttle.Record{}

	nameRows, err := st.db.QueryContext(ctx, `SELECT name FROM collections;`)
	if err != nil {
		return nil, cuttle.WrapDBError(err)
	}
	defer nameRows.Close()

	for nameRows.Next() {
		var name string
		if err := nameRows.Scan(&name); err != nil {
			return nil, cuttle.WrapDBError(err)
		}
		loaded[name] = []cuttle.Record{}
	}
	if err := nameRows.Err(); err != nil {
		return nil, cuttle.WrapDBError(err)
	}

	rows, err := st.db.QueryContext(ctx, `SELECT collection, data FROM records ORDER BY collection, position;`)
	if err != nil {
		return nil, cuttle.WrapDBError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, cuttle.WrapDBError(err)
		}

		rec, err := dbconv.Record.FromDB(data)
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", name, err)
		}
		loaded[name] = append(loaded[name], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, cuttle.WrapDBError(err)
	}

	return loaded, nil
}

// Save replaces the contents of the database with collections in a single
// transaction. If any part fails, the database is left as it was.
func (st *Store) Save(ctx context.Context, collections map[string][]cuttle.Record) error {
	encoded := make(map[string][]string, len(collections))
	for name, recs := range collections {
		enc, err := dbconv.Records.ToDB(recs)
		if err != nil {
			return fmt.Errorf("collection %q: %w", name, err)
		}
		encoded[name] = enc
	}

	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return cuttle.WrapDBError(err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records;`); err != nil {
		return cuttle.WrapDBError(err, "clear records")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections;`); err != nil {
		return cuttle.WrapDBError(err, "clear collections")
	}

	for name, recs := range encoded {
		if _, err := tx.ExecContext(ctx, `INSERT INTO collections (name) VALUES (?);`, name); err != nil {
			return cuttle.WrapDBErrorf(err, "insert collection %q", name)
		}

		for pos, data := range recs {
			_, err := tx.ExecContext(ctx, `INSERT INTO records (collection, position, data) VALUES (?, ?, ?);`, name, pos, data)
			if err != nil {
				return cuttle.WrapDBErrorf(err, "insert %s record %d", name, pos)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return cuttle.WrapDBError(err, "commit")
	}
	return nil
}

// Close closes the underlying database.
func (st *Store) Close() error {
	if err := st.db.Close(); err != nil {
		return fmt.Errorf("%s: %w", st.dbFilename, err)
	}
	return nil
}

var _ cuttle.Backend = (*Store)(nil)
