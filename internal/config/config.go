// Package config loads cuttle configuration files and turns their contents
// into the backends, collection options and contracts they describe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dekarrin/cuttle"
	"github.com/dekarrin/cuttle/backend/filestore"
	"github.com/dekarrin/cuttle/backend/sqlite"
	"gopkg.in/yaml.v3"
)

// Connector opens the backend described by a Database config. A nil Backend
// with a nil error means the repository is not persisted.
type Connector func(cuttle.Database) (cuttle.Backend, error)

// ConnectorRegistry holds registered connector functions for opening backends
// from database configs.
//
// The zero value can be immediately used and will have the built-in connectors
// for "inmem", "file" and "sqlite" available. This can be disabled by setting
// DisableDefaults to true before attempting to use it.
type ConnectorRegistry struct {
	DisableDefaults bool
	reg             map[cuttle.DBType]Connector
}

func (cr *ConnectorRegistry) initDefaults() {
	if cr.reg != nil {
		return
	}

	cr.reg = map[cuttle.DBType]Connector{}
	if cr.DisableDefaults {
		return
	}

	cr.reg[cuttle.DatabaseInMemory] = func(cuttle.Database) (cuttle.Backend, error) {
		return nil, nil
	}
	cr.reg[cuttle.DatabaseFile] = func(db cuttle.Database) (cuttle.Backend, error) {
		err := os.MkdirAll(db.DataDir, 0770)
		if err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}

		store, err := filestore.Open(db.Path())
		if err != nil {
			return nil, fmt.Errorf("initialize file store: %w", err)
		}

		return store, nil
	}
	cr.reg[cuttle.DatabaseSQLite] = func(db cuttle.Database) (cuttle.Backend, error) {
		err := os.MkdirAll(db.DataDir, 0770)
		if err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}

		store, err := sqlite.Open(db.Path())
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite: %w", err)
		}

		return store, nil
	}
}

// Register sets the connector for an engine. It is an error to register an
// engine that already has a connector.
func (cr *ConnectorRegistry) Register(engine cuttle.DBType, connector Connector) error {
	if connector == nil {
		return fmt.Errorf("connector function cannot be nil")
	}

	cr.initDefaults()

	switch engine {
	case cuttle.DatabaseInMemory, cuttle.DatabaseFile, cuttle.DatabaseSQLite:
	default:
		return fmt.Errorf("%q is not a supported DB type", engine)
	}

	if _, ok := cr.reg[engine]; ok {
		return fmt.Errorf("duplicate connector registration; %q already has a registered connector", engine)
	}

	cr.reg[engine] = connector
	return nil
}

// List returns an alphabetized list of all engines with a registered
// connector.
func (cr *ConnectorRegistry) List() []cuttle.DBType {
	cr.initDefaults()

	engines := make([]cuttle.DBType, 0, len(cr.reg))
	for k := range cr.reg {
		engines = append(engines, k)
	}

	sort.Slice(engines, func(i, j int) bool {
		return engines[i] < engines[j]
	})
	return engines
}

// Connect opens the configured backend.
func (cr *ConnectorRegistry) Connect(db cuttle.Database) (cuttle.Backend, error) {
	cr.initDefaults()

	connector, ok := cr.reg[db.Type]
	if !ok {
		return nil, fmt.Errorf("%q has no registered connector", db.Type)
	}

	return connector(db)
}

type marshaledDatabase struct {
	Type string `yaml:"type" json:"type"`
	Dir  string `yaml:"dir,omitempty" json:"dir,omitempty"`
	File string `yaml:"file,omitempty" json:"file,omitempty"`
}

type marshaledLog struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Provider string `yaml:"provider" json:"provider"`
	File     string `yaml:"file,omitempty" json:"file,omitempty"`
}

type marshaledCollection struct {
	PrimaryKey     string `yaml:"primary_key" json:"primary_key"`
	PrimaryKeyType string `yaml:"primary_key_type,omitempty" json:"primary_key_type,omitempty"`
	GenerateKeys   bool   `yaml:"generate_keys,omitempty" json:"generate_keys,omitempty"`
}

type marshaledConfig struct {
	Database    marshaledDatabase                    `yaml:"database" json:"database"`
	Logging     marshaledLog                         `yaml:"logging" json:"logging"`
	Collections map[string]marshaledCollection       `yaml:"collections,omitempty" json:"collections,omitempty"`
	Contracts   map[string]map[string]map[string]any `yaml:"contracts,omitempty" json:"contracts,omitempty"`
}

// Decode decodes a Config from data in format f. No defaults are filled and no
// validation is done beyond what is needed to parse it.
func Decode(f cuttle.Format, data []byte) (cuttle.Config, error) {
	var cfg cuttle.Config
	var mc marshaledConfig
	var err error

	switch f {
	case cuttle.JSON:
		err = json.Unmarshal(data, &mc)
	case cuttle.YAML:
		err = yaml.Unmarshal(data, &mc)
	default:
		return cfg, fmt.Errorf("cannot unmarshal data in format %q", f.String())
	}

	if err != nil {
		return cfg, err
	}

	cfg.Format = f
	err = unmarshalConfig(&cfg, mc)
	return cfg, err
}

func encode(f cuttle.Format, c cuttle.Config) ([]byte, error) {
	mc := marshalConfig(c)
	var err error
	var data []byte

	switch f {
	case cuttle.JSON:
		data, err = json.Marshal(mc)
	case cuttle.YAML:
		data, err = yaml.Marshal(mc)
	default:
		return nil, fmt.Errorf("cannot marshal data in format %q", f.String())
	}

	return data, err
}

// SupportedFormats returns a list of formats that the config module supports
// decoding. Includes all but NoFormat.
func SupportedFormats() []cuttle.Format {
	return []cuttle.Format{cuttle.JSON, cuttle.YAML}
}

// DetectFormat detects the format of a given configuration file and returns the
// Format that can decode it. Returns NoFormat if the format could not be
// detected.
func DetectFormat(file string) cuttle.Format {
	ext := strings.ToLower(filepath.Ext(file))
	ext = strings.TrimPrefix(ext, ".")

	for _, f := range SupportedFormats() {
		for _, checkedExt := range f.Extensions() {
			if ext == strings.ToLower(checkedExt) {
				return f
			}
		}
	}

	return cuttle.NoFormat
}

// Dump dumps the configuration into the bytes in a formatted file. If parsed
// by Decode, the result would be an equivalent config.
//
// The config will be dumped in the same format it was loaded with, or will
// default to YAML if the cfg was created without loading from a data stream.
//
// This function will cause a panic if there is a problem marshaling the config
// data in its format.
func Dump(cfg cuttle.Config) []byte {
	f := cfg.Format
	if f == cuttle.NoFormat {
		f = cuttle.YAML
	}
	b, err := encode(f, cfg)
	if err != nil {
		panic(fmt.Sprintf("format encoding failed: %v", err))
	}
	return b
}

// Load loads a configuration from a JSON or YAML file. The format of the file
// is determined by examining its extension; files ending in .json or .jsn are
// parsed as JSON files, and files ending in .yaml or .yml are parsed as YAML
// files. Other extensions are not supported. The extension is not
// case-sensitive.
func Load(file string) (cuttle.Config, error) {
	f := DetectFormat(file)
	if f == cuttle.NoFormat {
		var exts []string
		for _, f := range SupportedFormats() {
			for _, ext := range f.Extensions() {
				exts = append(exts, "."+ext)
			}
		}
		last := len(exts) - 1
		exts[last] = "or " + exts[last]

		return cuttle.Config{}, fmt.Errorf("%s: incompatible format; must be a %s file", file, strings.Join(exts, ", "))
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return cuttle.Config{}, fmt.Errorf("%s: %w", file, err)
	}

	cfg, err := Decode(f, data)
	if err != nil {
		return cuttle.Config{}, fmt.Errorf("%s: %w", file, err)
	}
	return cfg, nil
}

// unmarshal completely replaces all attributes with the values or missing
// values in the marshaledConfig.
//
// does no validation except that which is required for parsing.
func unmarshalConfig(cfg *cuttle.Config, m marshaledConfig) error {
	if err := unmarshalDatabase(&cfg.DB, m.Database); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := unmarshalLog(&cfg.Log, m.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	cfg.Collections = map[string]cuttle.CollectionConfig{}
	for name, mCol := range m.Collections {
		cfg.Collections[name] = cuttle.CollectionConfig{
			PrimaryKey:     mCol.PrimaryKey,
			PrimaryKeyType: mCol.PrimaryKeyType,
			GenerateKeys:   mCol.GenerateKeys,
		}
	}

	cfg.Contracts = map[string]cuttle.ContractConfig{}
	for name, props := range m.Contracts {
		ct := cuttle.ContractConfig{}
		for prop, opts := range props {
			if len(opts) == 0 {
				return fmt.Errorf("contracts: %s: %q: no constraints given", name, prop)
			}
			ct[prop] = opts
		}
		cfg.Contracts[name] = ct
	}

	return nil
}

// marshal converts a config to the marshaledConfig that would recreate it if
// passed to unmarshal.
func marshalConfig(cfg cuttle.Config) marshaledConfig {
	mc := marshaledConfig{
		Database: marshalDatabase(cfg.DB),
		Logging:  marshalLog(cfg.Log),
	}

	if len(cfg.Collections) > 0 {
		mc.Collections = map[string]marshaledCollection{}
		for name, col := range cfg.Collections {
			mc.Collections[name] = marshaledCollection{
				PrimaryKey:     col.PrimaryKey,
				PrimaryKeyType: col.PrimaryKeyType,
				GenerateKeys:   col.GenerateKeys,
			}
		}
	}

	if len(cfg.Contracts) > 0 {
		mc.Contracts = map[string]map[string]map[string]any{}
		for name, ct := range cfg.Contracts {
			mc.Contracts[name] = ct
		}
	}

	return mc
}

func unmarshalDatabase(db *cuttle.Database, m marshaledDatabase) error {
	db.Type = cuttle.DatabaseNone
	if m.Type != "" {
		var err error
		db.Type, err = cuttle.ParseDBType(m.Type)
		if err != nil {
			return fmt.Errorf("type: %w", err)
		}
	}

	db.DataDir = m.Dir
	db.DataFile = m.File

	return nil
}

func marshalDatabase(db cuttle.Database) marshaledDatabase {
	var dbType string
	if db.Type != cuttle.DatabaseNone {
		dbType = db.Type.String()
	}

	return marshaledDatabase{
		Type: dbType,
		Dir:  db.DataDir,
		File: db.DataFile,
	}
}

func unmarshalLog(log *cuttle.Log, m marshaledLog) error {
	var err error

	log.Enabled = m.Enabled
	log.Provider, err = cuttle.ParseLogProvider(m.Provider)
	if err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	log.File = m.File

	return nil
}

func marshalLog(log cuttle.Log) marshaledLog {
	return marshaledLog{
		Enabled:  log.Enabled,
		Provider: log.Provider.String(),
		File:     log.File,
	}
}
