// Package filestore provides a cuttle.Backend that keeps every collection of a
// repository in a single REZI-encoded data file.
//
// Each Save rewrites the whole file. The previous file is copied to a backup
// alongside it first, and the backup is removed once the new data has been
// written, so a failed write leaves the last good snapshot on disk.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/dekarrin/cuttle"
	"github.com/dekarrin/cuttle/backend/dbconv"
	"github.com/dekarrin/rezi/v2"
)

// formatVersion is written at the start of every data file.
const formatVersion = 1

// snapshot is the on-disk form of a repository. Each record is held as its
// JSON text.
type snapshot struct {
	version     int
	collections map[string][]string
}

func (s snapshot) MarshalBinary() ([]byte, error) {
	var enc []byte

	enc = append(enc, rezi.MustEnc(s.version)...)
	enc = append(enc, rezi.MustEnc(s.collections)...)

	return enc, nil
}

func (s *snapshot) UnmarshalBinary(data []byte) error {
	if s == nil {
		return fmt.Errorf("cannot unmarshal to nil snapshot")
	}

	rr, err := rezi.NewReader(bytes.NewBuffer(data), nil)
	if err != nil {
		return err
	}

	err = rr.Dec(&s.version)
	if err != nil {
		return rezi.Wrapf(0, "version: %s", err)
	}
	if s.version != formatVersion {
		return fmt.Errorf("unsupported data file version %d", s.version)
	}

	err = rr.Dec(&s.collections)
	if err != nil {
		return rezi.Wrapf(0, "collections: %s", err)
	}

	return nil
}

// Store is a file-backed cuttle.Backend. Its zero value is not ready for use;
// call Open to get one.
type Store struct {
	// DataFile is the path to the file the Store reads from and writes to.
	DataFile string

	mtx    sync.Mutex
	closed bool
}

// Open creates a new Store that persists to the given data file. If the file
// does not exist, it is created with an empty snapshot so that permission
// problems are found before any data is handed to the Store.
func Open(file string) (*Store, error) {
	if file == "" {
		return nil, cuttle.NewError("data file path cannot be empty", cuttle.ErrBadArgument)
	}

	s := &Store{DataFile: file}

	_, err := os.Stat(file)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if os.IsNotExist(err) {
		data, err := rezi.Enc(snapshot{version: formatVersion, collections: map[string][]string{}})
		if err != nil {
			return nil, fmt.Errorf("encode empty snapshot: %w", err)
		}
		if err := writeFile(file, data); err != nil {
			return nil, fmt.Errorf("create new: %w", err)
		}
	}

	return s, nil
}

// Load reads every collection from the data file. A data file that does not
// exist holds no collections.
func (s *Store) Load(ctx context.Context) (map[string][]cuttle.Record, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return nil, fmt.Errorf("operation called on closed *Store")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.DataFile)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]cuttle.Record{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}

	var snap snapshot
	if _, err := rezi.Dec(data, &snap); err != nil {
		return nil, cuttle.NewError("load data", err, cuttle.ErrDecodingFailure)
	}

	loaded := make(map[string][]cuttle.Record, len(snap.collections))
	for name, encoded := range snap.collections {
		recs, err := dbconv.Records.FromDB(encoded)
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", name, err)
		}
		loaded[name] = recs
	}

	return loaded, nil
}

// Save replaces the contents of the data file with collections.
func (s *Store) Save(ctx context.Context, collections map[string][]cuttle.Record) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return fmt.Errorf("operation called on closed *Store")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := snapshot{version: formatVersion, collections: make(map[string][]string, len(collections))}
	for name, recs := range collections {
		encoded, err := dbconv.Records.ToDB(recs)
		if err != nil {
			return fmt.Errorf("collection %q: %w", name, err)
		}
		snap.collections[name] = encoded
	}

	dataBytes, err := rezi.Enc(snap)
	if err != nil {
		return fmt.Errorf("get data bytes: %w", err)
	}

	// copy the old file first so we have a backup in case the write fails
	buFile, err := createFileBackup(s.DataFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			buFile = ""
		} else {
			return fmt.Errorf("create backup: %w", err)
		}
	}

	if err := writeFile(s.DataFile, dataBytes); err != nil {
		return err
	}

	if buFile != "" {
		os.Remove(buFile)
	}

	return nil
}

// Close releases the Store. It does not write anything; callers persist with
// Save first. After Close returns, the Store cannot be used again. Calling
// Close on a closed Store has no effect.
func (s *Store) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.closed = true
	return nil
}

var _ cuttle.Backend = (*Store)(nil)
