package deploy

import (
	"sort"
	"sync"
)

// UI is the reporting sink handed to hooks. The pipeline itself never writes to it.
type UI interface {
	WriteLine(msg string)
	WriteError(err error)
}

// ConfigView is a read-only view over one environment of a configuration file.
type ConfigView interface {
	Get(key string) (any, bool)
	String(key string) string
	Environment() string
}

// Project describes the application being deployed and the extension units
// installed in it.
type Project struct {
	Name   string
	Root   string
	Addons []Contributor
}

// Context is the single mutable object shared by every hook of a run. The
// fixed fields are set before the pipeline starts and are never replaced.
type Context struct {
	UI           UI
	Project      *Project
	DeployConfig ConfigView
	AppConfig    ConfigView
	Data         *Data
}

// NewContext returns a context with an empty data namespace.
func NewContext() *Context {
	return &Context{Data: NewData()}
}

// Data is the general-purpose namespace hooks use to talk to each other.
// Individual operations are safe for concurrent use; ordering between hooks of
// the same stage is not.
type Data struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewData returns an empty namespace.
func NewData() *Data {
	return &Data{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (d *Data) Get(key string) (any, bool) {
	if d == nil {
		return nil, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	value, ok := d.values[key]
	return value, ok
}

// String returns the value under key when it is a string.
func (d *Data) String(key string) string {
	value, _ := d.Get(key)
	s, _ := value.(string)
	return s
}

// Set stores value under key, replacing any previous value. Unlike the read
// accessors it requires a non-nil namespace.
func (d *Data) Set(key string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.values == nil {
		d.values = make(map[string]any)
	}
	d.values[key] = value
}

// Delete removes key from the namespace.
func (d *Data) Delete(key string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.values, key)
}

// Keys returns the stored keys in sorted order.
func (d *Data) Keys() []string {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.values))
	for key := range d.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of stored keys.
func (d *Data) Len() int {
	if d == nil {
		return 0
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.values)
}
