package collection

import (
	"sync"

	"github.com/dekarrin/cuttle"
)

// Dataset is the backing store of raw records for a single named collection.
// It is owned by a Repository and shared by every Collection built over the
// same name. It is safe for concurrent use.
//
// The record slice held by a Dataset is never modified in place. Every
// mutation installs a new slice, and updated records are replaced by new
// Records rather than changed, so a slice returned by Records stays valid and
// unchanged for as long as the caller holds it.
type Dataset struct {
	mu      sync.RWMutex
	name    string
	records []cuttle.Record
}

// NewDataset creates an empty Dataset with the given name.
func NewDataset(name string) *Dataset {
	return &Dataset{name: name}
}

// Name returns the name of the collection the Dataset backs.
func (ds *Dataset) Name() string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.name
}

// Records returns a point-in-time snapshot of the records. The returned
// records must not be modified.
func (ds *Dataset) Records() []cuttle.Record {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.records
}

// Len returns the number of records.
func (ds *Dataset) Len() int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return len(ds.records)
}

// Replace sets the records of the Dataset to copies of recs.
func (ds *Dataset) Replace(recs []cuttle.Record) {
	newRecs := make([]cuttle.Record, len(recs))
	for i := range recs {
		newRecs[i] = recs[i].Copy()
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.records = newRecs
}

// Snapshot returns copies of the records, suitable for handing to code that
// may modify them.
func (ds *Dataset) Snapshot() []cuttle.Record {
	recs := ds.Records()
	out := make([]cuttle.Record, len(recs))
	for i := range recs {
		out[i] = recs[i].Copy()
	}
	return out
}

// nameOnce sets the name of the Dataset if it has none. It returns the name
// the Dataset has after the call and whether it was set by this call.
func (ds *Dataset) nameOnce(name string) (string, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.name != "" {
		return ds.name, false
	}
	ds.name = name
	return name, true
}

// mutate runs fn under the write lock. fn receives the current records and
// returns the records to install, or nil and false to leave the Dataset
// unchanged. fn must not modify the slice it is given.
func (ds *Dataset) mutate(fn func(cur []cuttle.Record) ([]cuttle.Record, bool)) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if next, ok := fn(ds.records); ok {
		ds.records = next
	}
}
