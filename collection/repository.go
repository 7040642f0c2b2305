package collection

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/dekarrin/cuttle"
	"github.com/dekarrin/cuttle/internal/inflect"
	"github.com/dekarrin/cuttle/internal/values"
	"github.com/dekarrin/cuttle/logging"
)

// Repository owns the Datasets of a set of named collections. A Dataset is
// created empty the first time its name is referenced and every Collection
// built over that name afterwards shares it.
//
// A Repository may be given a cuttle.Backend, in which case its contents can
// be loaded from and persisted to the backend as a whole. The zero value is
// not ready for use; call NewRepository to create one.
type Repository struct {
	mu       sync.Mutex
	datasets map[string]*Dataset
	backend  cuttle.Backend
	log      cuttle.Logger
}

// NewRepository creates a new empty Repository. backend and log may both be
// nil; a Repository without a backend keeps its data only in memory.
func NewRepository(backend cuttle.Backend, log cuttle.Logger) *Repository {
	return &Repository{
		datasets: map[string]*Dataset{},
		backend:  backend,
		log:      logging.OrNoOp(log),
	}
}

func (repo *Repository) mustInit() {
	if repo == nil || repo.datasets == nil {
		panic(cuttle.Uninitialized("collection.Repository"))
	}
}

// Dataset returns the Dataset with the given name, creating it if it does not
// yet exist.
func (repo *Repository) Dataset(name string) *Dataset {
	repo.mustInit()
	if name == "" {
		panic(cuttle.NewError("collection: empty collection name", cuttle.ErrBadArgument))
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	ds, ok := repo.datasets[name]
	if !ok {
		ds = NewDataset(name)
		repo.datasets[name] = ds
	}
	return ds
}

// Collection returns a Collection of raw records over the Dataset with the
// given name. A name given with WithName in opts is ignored.
func (repo *Repository) Collection(name string, opts ...Option) *Collection[cuttle.Record] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = repo.log
	}
	return newCollection[cuttle.Record](repo.Dataset(name), o)
}

// For returns a Collection of entities of type E from repo. Unless a name is
// given with WithName, the collection is named after E: the type name in
// snake_case, pluralized, so that BlogPost is stored in "blog_posts".
func For[E any](repo *Repository, opts ...Option) *Collection[E] {
	repo.mustInit()

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = repo.log
	}

	name := o.name
	if name == "" {
		name = NameOf[E]()
	}
	return newCollection[E](repo.Dataset(name), o)
}

// NameOf returns the default collection name for entities of type E. It
// panics if E is not a named type.
func NameOf[E any]() string {
	var zero E
	rt := reflect.TypeOf(&zero).Elem()
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Name() == "" {
		panic(cuttle.NewError(fmt.Sprintf("collection: cannot derive a collection name for unnamed type %T; use WithName", zero), cuttle.ErrBadArgument))
	}
	return inflect.CollectionName(rt.Name())
}

// Names returns the name of every collection referenced so far, sorted.
func (repo *Repository) Names() []string {
	repo.mustInit()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	return values.SortedKeys(repo.datasets)
}

// Load replaces the contents of each collection stored in the backend with the
// stored records. Collections that are not in the backend are left as they
// are. If the Repository has no backend, Load does nothing.
func (repo *Repository) Load(ctx context.Context) error {
	repo.mustInit()
	if repo.backend == nil {
		return nil
	}

	stored, err := repo.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load repository: %w", err)
	}

	total := 0
	for _, name := range values.SortedKeys(stored) {
		repo.Dataset(name).Replace(stored[name])
		repo.log.Debugf("loaded %d record(s) into %s", len(stored[name]), name)
		total += len(stored[name])
	}
	repo.log.Infof("loaded %d collection(s) with %d record(s)", len(stored), total)
	return nil
}

// Persist saves the contents of every collection to the backend. If the
// Repository has no backend, Persist does nothing.
func (repo *Repository) Persist(ctx context.Context) error {
	repo.mustInit()
	if repo.backend == nil {
		return nil
	}

	repo.mu.Lock()
	snapshot := make(map[string][]cuttle.Record, len(repo.datasets))
	for name, ds := range repo.datasets {
		snapshot[name] = ds.Snapshot()
	}
	repo.mu.Unlock()

	if err := repo.backend.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("persist repository: %w", err)
	}
	repo.log.Infof("persisted %d collection(s)", len(snapshot))
	return nil
}

// Close closes the backend of the Repository, if it has one.
func (repo *Repository) Close() error {
	repo.mustInit()
	if repo.backend == nil {
		return nil
	}
	return repo.backend.Close()
}
