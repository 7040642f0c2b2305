/*
Cuttle loads records into a cuttle repository, queries them, and validates
them against the contracts declared in its configuration.

Usage:

	cuttle [flags]

The repository is opened as configured, and any existing records are loaded
from its backend. Fixture records given with --load are then inserted; any that
are rejected are reported with the errors that rejected them. If --collection
is given, the records of that collection are queried and printed as YAML.
Finally the repository is persisted to its backend.

The flags are:

	-c, --config PATH
		Use the given file for the configuration. The file must be in JSON or
		YAML format. If not given, an in-memory repository with no contracts is
		used.

	-l, --load FILE
		Insert the records in FILE, a YAML or JSON document that maps
		collection names to lists of records.

	-n, --collection NAME
		Query the collection with the given name.

	-m, --match KEY=VALUE
		Only select records whose KEY field equals VALUE. VALUE is parsed as a
		YAML scalar or flow sequence, so "rank=2" matches the int 2 and
		"rank__in=[1, 2]" matches either 1 or 2. May be given more than once.

	-o, --order ATTR
		Sort selected records by ATTR, descending if it starts with '-'. May be
		given more than once; later attributes break ties in earlier ones.

	--offset N
		Skip the first N selected records.

	--limit N
		Select at most N records.

	-p, --pluck ATTR
		Print only the ATTR field of each selected record.

	--count
		Print only the number of selected records.

	--validate
		Check every selected record against the contract configured for the
		collection and report the ones that do not satisfy it.

The exit code is 0 on success, 1 if the flags, the configuration, or a backend
operation failed, and 2 if a fixture record was rejected or a selected record
failed validation.
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/dekarrin/cuttle"
	"github.com/dekarrin/cuttle/collection"
	"github.com/dekarrin/cuttle/constraint"
	"github.com/dekarrin/cuttle/internal/config"
	"github.com/dekarrin/cuttle/logging"
	"github.com/dekarrin/cuttle/query"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	exitSuccess = 0
	exitError   = 1
	exitInvalid = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	conf       string
	load       string
	collection string
	match      []string
	order      []string
	offset     int
	limit      int
	pluck      string
	count      bool
	validate   bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	flags := pflag.NewFlagSet("cuttle", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.conf, "config", "c", "", "Path to configuration file")
	flags.StringVarP(&opts.load, "load", "l", "", "Insert the fixture records in the given file")
	flags.StringVarP(&opts.collection, "collection", "n", "", "Query the named collection")
	flags.StringArrayVarP(&opts.match, "match", "m", nil, "Select records with field KEY equal to VALUE")
	flags.StringArrayVarP(&opts.order, "order", "o", nil, "Sort by attribute; prefix with '-' for descending")
	flags.IntVar(&opts.offset, "offset", 0, "Skip the first N selected records")
	flags.IntVar(&opts.limit, "limit", -1, "Select at most N records")
	flags.StringVarP(&opts.pluck, "pluck", "p", "", "Print only the given attribute of each record")
	flags.BoolVar(&opts.count, "count", false, "Print only the number of selected records")
	flags.BoolVar(&opts.validate, "validate", false, "Validate selected records against the collection contract")

	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	if flags.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument %q", flags.Arg(0))
	}
	if opts.offset < 0 {
		return opts, fmt.Errorf("--offset must be at least 0")
	}
	if opts.count && opts.pluck != "" {
		return opts, fmt.Errorf("--count and --pluck cannot be used together")
	}
	if opts.collection == "" {
		if len(opts.match) > 0 || len(opts.order) > 0 || opts.offset > 0 || opts.limit >= 0 || opts.pluck != "" || opts.count || opts.validate {
			return opts, fmt.Errorf("query flags require --collection")
		}
	}

	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %s\n", err.Error())
		return exitError
	}

	fail := func(err error) int {
		fmt.Fprintf(stderr, "ERROR: %s\n", err.Error())
		return exitError
	}

	var cfg cuttle.Config
	if opts.conf != "" {
		cfg, err = config.Load(opts.conf)
		if err != nil {
			return fail(err)
		}
	}
	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return fail(fmt.Errorf("config: %w", err))
	}

	log := cuttle.Logger(logging.NoOpLogger{})
	if cfg.Log.Enabled {
		log, err = logging.New(cfg.Log.Provider, cfg.Log.File)
		if err != nil {
			return fail(fmt.Errorf("logging: %w", err))
		}
		defer logging.Close(log)
	}

	contracts, err := config.Contracts(cfg, nil)
	if err != nil {
		return fail(err)
	}

	backend, err := (&config.ConnectorRegistry{}).Connect(cfg.DB)
	if err != nil {
		return fail(fmt.Errorf("connect: %w", err))
	}

	repo := collection.NewRepository(backend, log)
	defer func() {
		if err := repo.Close(); err != nil {
			log.Warnf("close repository: %v", err)
		}
	}()

	if err := repo.Load(ctx); err != nil {
		return fail(err)
	}

	open := func(name string) (*collection.Collection[cuttle.Record], error) {
		colOpts := []collection.Option{collection.WithLogger(log)}
		if colCfg, ok := cfg.Collections[name]; ok {
			more, err := config.CollectionOptions(colCfg)
			if err != nil {
				return nil, fmt.Errorf("collections: %s: %w", name, err)
			}
			colOpts = append(colOpts, more...)
		}
		return repo.Collection(name, colOpts...), nil
	}

	code := exitSuccess

	if opts.load != "" {
		rejected, err := loadFixtures(opts.load, open, stderr)
		if err != nil {
			return fail(err)
		}
		if rejected > 0 {
			code = exitInvalid
		}
	}

	if opts.collection != "" {
		col, err := open(opts.collection)
		if err != nil {
			return fail(err)
		}

		q, err := buildQuery(col, opts)
		if err != nil {
			return fail(err)
		}

		if opts.validate {
			ct, ok := contracts[opts.collection]
			if !ok {
				return fail(fmt.Errorf("no contract is configured for %q", opts.collection))
			}
			if failed := validate(q, ct, col.PrimaryKey(), stderr); failed > 0 {
				code = exitInvalid
			}
		}

		if err := printResults(q, opts, stdout); err != nil {
			return fail(err)
		}
	}

	if err := repo.Persist(ctx); err != nil {
		return fail(err)
	}

	return code
}

// loadFixtures inserts every record in file and returns the number that were
// rejected.
func loadFixtures(file string, open func(string) (*collection.Collection[cuttle.Record], error), stderr io.Writer) (int, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return 0, fmt.Errorf("load: %w", err)
	}

	var fixtures map[string][]map[string]any
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return 0, fmt.Errorf("load: %s: %w", file, err)
	}

	names := make([]string, 0, len(fixtures))
	for name := range fixtures {
		names = append(names, name)
	}
	sort.Strings(names)

	rejected := 0
	for _, name := range names {
		col, err := open(name)
		if err != nil {
			return rejected, err
		}
		for i, rec := range fixtures[name] {
			if ok, errs := col.Insert(cuttle.Record(rec)); !ok {
				fmt.Fprintf(stderr, "%s[%d]: rejected: %s\n", name, i, errs.String())
				rejected++
			}
		}
	}

	return rejected, nil
}

func buildQuery(col *collection.Collection[cuttle.Record], opts options) (query.Query[cuttle.Record], error) {
	sel := query.Selector{}
	for _, m := range opts.match {
		key, raw, ok := strings.Cut(m, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return query.Query[cuttle.Record]{}, fmt.Errorf("--match: not in KEY=VALUE format: %q", m)
		}

		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return query.Query[cuttle.Record]{}, fmt.Errorf("--match: %s: %w", key, err)
		}
		sel[key] = v
	}

	q := col.Query()
	if len(sel) > 0 {
		q = q.Matching(sel)
	}
	if len(opts.order) > 0 {
		q = q.OrderBy(opts.order...)
	}
	if opts.offset > 0 {
		q = q.Offset(opts.offset)
	}
	if opts.limit >= 0 {
		q = q.Limit(opts.limit)
	}
	return q, nil
}

// validate matches every record selected by q against ct and reports the ones
// that fail. It returns the number of failures.
func validate(q query.Query[cuttle.Record], ct *constraint.Contract, pk string, stderr io.Writer) int {
	failed := 0
	i := 0
	q.Each(func(rec cuttle.Record) bool {
		if ok, errs := ct.Match(map[string]any(rec)); !ok {
			label := fmt.Sprintf("record %d", i)
			if pk != "" {
				label = fmt.Sprintf("record %s=%v", pk, rec[pk])
			}
			fmt.Fprintf(stderr, "%s: invalid: %s\n", label, errs.String())
			failed++
		}
		i++
		return true
	})
	return failed
}

func printResults(q query.Query[cuttle.Record], opts options, stdout io.Writer) error {
	var out any
	switch {
	case opts.count:
		out = q.Count()
	case opts.pluck != "":
		out = q.Pluck(opts.pluck)
	default:
		recs := q.ToSlice()
		asMaps := make([]map[string]any, len(recs))
		for i := range recs {
			asMaps[i] = recs[i]
		}
		out = asMaps
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	_, err = stdout.Write(data)
	return err
}
