package cuttle

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DBType is the type of persistence backend a repository uses.
type DBType string

func (dbt DBType) String() string {
	return string(dbt)
}

const (
	DatabaseNone     DBType = "none"
	DatabaseInMemory DBType = "inmem"
	DatabaseFile     DBType = "file"
	DatabaseSQLite   DBType = "sqlite"
)

const (
	DefaultDataFile   = "cuttle.rz"
	DefaultSQLiteFile = "cuttle.db"
)

// ParseDBType parses a string found in a connection string into a DBType.
func ParseDBType(s string) (DBType, error) {
	sLower := strings.ToLower(s)

	switch sLower {
	case DatabaseSQLite.String():
		return DatabaseSQLite, nil
	case DatabaseInMemory.String():
		return DatabaseInMemory, nil
	case DatabaseFile.String():
		return DatabaseFile, nil
	default:
		return DatabaseNone, fmt.Errorf("DB type not one of 'sqlite', 'file', or 'inmem': %q", s)
	}
}

// Database contains configuration settings for connecting to a persistence
// backend.
type Database struct {
	// Type is the type of database the config refers to. It also determines
	// which of its other fields are valid.
	Type DBType

	// DataDir is the path on disk to a directory to use to store data in. This
	// is only applicable for DatabaseFile and DatabaseSQLite.
	DataDir string

	// DataFile is the name of the file within DataDir that data is kept in.
	// If not set, DefaultDataFile is used for DatabaseFile and
	// DefaultSQLiteFile is used for DatabaseSQLite.
	DataFile string
}

// Path returns the full path to the data file of db.
func (db Database) Path() string {
	return filepath.Join(db.DataDir, db.DataFile)
}

// Validate returns an error if the Database does not have the correct fields
// set. Its type will be checked to ensure that it is a valid type to use and
// any fields necessary for connecting to that type of DB are also checked.
func (db Database) Validate() error {
	switch db.Type {
	case DatabaseInMemory:
		return nil
	case DatabaseSQLite, DatabaseFile:
		if db.DataDir == "" {
			return fmt.Errorf("DataDir not set to path")
		}
		return nil
	case DatabaseNone:
		return fmt.Errorf("'none' DB is not valid")
	default:
		return fmt.Errorf("unknown database type: %q", db.Type.String())
	}
}

// ParseDBConnString parses a connection string of the form "engine" or
// "engine:key=value[,key=value...]" into a Database. Keys are
// case-insensitive.
//
//   - In-memory repository: "inmem"
//   - rezi snapshot file: "file:dir=<path/to/db/dir>[,file=<data-file-name>]"
//   - SQLite3 DB file: "sqlite:dir=<path/to/db/dir>[,file=<db-file-name>]"
func ParseDBConnString(s string) (Database, error) {
	engStr, paramStr, _ := strings.Cut(s, ":")
	paramStr = strings.TrimSpace(paramStr)

	eng, err := ParseDBType(strings.TrimSpace(engStr))
	if err != nil {
		return Database{}, fmt.Errorf("unsupported DB engine: %w", err)
	}

	if eng == DatabaseInMemory {
		if paramStr != "" {
			return Database{}, fmt.Errorf("unsupported param(s) for in-memory DB engine: %s", paramStr)
		}
		return Database{Type: DatabaseInMemory}, nil
	}

	if paramStr == "" {
		return Database{}, fmt.Errorf("%s DB engine requires params after ':'", eng)
	}
	params, err := parseParamsMap(paramStr)
	if err != nil {
		return Database{}, err
	}

	dir, ok := params["dir"]
	if !ok {
		return Database{}, fmt.Errorf("%s DB engine params missing data directory in key 'dir'", eng)
	}

	db := Database{
		Type:     eng,
		DataDir:  filepath.FromSlash(dir),
		DataFile: params["file"],
	}
	return db.FillDefaults(), nil
}

// FillDefaults returns a copy of db with an unset DataFile given the default
// for its type.
func (db Database) FillDefaults() Database {
	newDB := db
	if newDB.Type == DatabaseNone || newDB.Type == "" {
		newDB.Type = DatabaseInMemory
	}
	if newDB.DataFile == "" {
		switch newDB.Type {
		case DatabaseFile:
			newDB.DataFile = DefaultDataFile
		case DatabaseSQLite:
			newDB.DataFile = DefaultSQLiteFile
		}
	}
	return newDB
}

func parseParamsMap(paramStr string) (map[string]string, error) {
	params := map[string]string{}
	for idx, kv := range strings.Split(paramStr, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("param %d: not a kv-pair: %q", idx, kv)
		}
		params[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return params, nil
}

// Format is a serialization format of a config file.
type Format int

const (
	NoFormat Format = iota
	YAML
	JSON
)

func (f Format) String() string {
	switch f {
	case NoFormat:
		return "none"
	case YAML:
		return "yaml"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Extensions returns the file extensions that files in format f are expected
// to have. The first one returned is the canonical one.
func (f Format) Extensions() []string {
	switch f {
	case YAML:
		return []string{"yaml", "yml"}
	case JSON:
		return []string{"json", "jsn"}
	default:
		return nil
	}
}

// Log holds settings for the logger.
type Log struct {
	// Enabled is whether logging is enabled at all.
	Enabled bool

	// Provider is the library backing the logger.
	Provider LogProvider

	// File is a path to a file to log to in addition to stderr. If blank, only
	// stderr is written to.
	File string
}

// CollectionConfig holds settings for a single collection.
type CollectionConfig struct {
	// PrimaryKey is the name of the field records are identified by. If
	// blank, the collection has no primary key and cannot be updated or
	// deleted from by ID.
	PrimaryKey string

	// PrimaryKeyType is the name of the type of the primary key, one of
	// "string", "int", "uuid", or "any".
	PrimaryKeyType string

	// GenerateKeys is whether a missing primary key is generated on insert.
	// Only valid for "uuid" keys.
	GenerateKeys bool
}

// ContractConfig declares the constraints of a contract. It maps a property to
// the constraint options applied to it, as accepted by the Constrain method of
// a constraint.Contract.
type ContractConfig map[string]map[string]any

// Config is a complete configuration of a repository and the collections and
// contracts in it.
type Config struct {
	// Format is the format the config was loaded from.
	Format Format

	// DB is the persistence backend to use. If not provided, it will be set to
	// an in-memory repository with no persistence.
	DB Database

	// Log is the logging configuration.
	Log Log

	// Collections holds per-collection settings, keyed by collection name.
	Collections map[string]CollectionConfig

	// Contracts holds contracts keyed by the name of the collection whose
	// records they validate.
	Contracts map[string]ContractConfig
}

// FillDefaults returns a new Config identical to cfg but with unset values
// set to their defaults.
func (cfg Config) FillDefaults() Config {
	newCFG := cfg

	newCFG.DB = newCFG.DB.FillDefaults()
	if newCFG.Log.Enabled && newCFG.Log.Provider == NoLog {
		newCFG.Log.Provider = Jellog
	}
	if newCFG.Contracts == nil {
		newCFG.Contracts = map[string]ContractConfig{}
	}

	newCFG.Collections = make(map[string]CollectionConfig, len(cfg.Collections))
	for name, col := range cfg.Collections {
		if col.PrimaryKey != "" && col.PrimaryKeyType == "" {
			col.PrimaryKeyType = "any"
		}
		newCFG.Collections[name] = col
	}

	return newCFG
}

// Validate returns an error if the Config has invalid field values set. Empty
// and unset values are considered invalid; if defaults are intended to be used,
// call Validate on the return value of FillDefaults.
func (cfg Config) Validate() error {
	if err := cfg.DB.Validate(); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if cfg.Log.Enabled && cfg.Log.Provider == NoLog {
		return fmt.Errorf("logging: enabled but provider is %q", NoLog.String())
	}

	for name, col := range cfg.Collections {
		if col.PrimaryKey == "" {
			if col.GenerateKeys {
				return fmt.Errorf("collections: %s: generate_keys requires primary_key", name)
			}
			continue
		}
		switch strings.ToLower(col.PrimaryKeyType) {
		case "string", "int", "any":
			if col.GenerateKeys {
				return fmt.Errorf("collections: %s: generate_keys requires primary_key_type uuid", name)
			}
		case "uuid":
		default:
			return fmt.Errorf("collections: %s: unknown primary_key_type %q", name, col.PrimaryKeyType)
		}
	}

	return nil
}
