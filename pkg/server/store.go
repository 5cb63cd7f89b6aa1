package server

import "sync"

// DataStore is the generic string-keyed value store shared by handlers and
// plugins. It is scoped to one server instance and never expires entries.
// It is safe for concurrent use; daemonized mode handles requests on
// multiple goroutines.
type DataStore struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewDataStore returns an empty DataStore.
func NewDataStore() *DataStore {
	return &DataStore{data: make(map[string]any)}
}

// Set stores value under name, replacing any previous value.
func (d *DataStore) Set(name string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data[name] = value
}

// Get returns the value stored under name, or nil when absent.
func (d *DataStore) Get(name string) any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.data[name]
}

// Lookup returns the value stored under name and whether it was present.
func (d *DataStore) Lookup(name string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.data[name]
	return v, ok
}

// Delete removes the value stored under name.
func (d *DataStore) Delete(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.data, name)
}

// Keys returns the currently stored keys in unspecified order.
func (d *DataStore) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.data))
	for k := range d.data {
		out = append(out, k)
	}
	return out
}

// Len returns the number of stored entries.
func (d *DataStore) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.data)
}
