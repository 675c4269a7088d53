package endpoint

import (
	"sort"
	"strings"
	"sync"

	"github.com/getmockd/mqfacade/pkg/mqerr"
)

// Directory maps configured pool names to keys and back, and remembers the
// descriptor each name was configured with.
type Directory struct {
	mu     sync.RWMutex
	byName map[string]Descriptor
	byKey  map[*Key]string
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		byName: make(map[string]Descriptor),
		byKey:  make(map[*Key]string),
	}
}

// Bind records desc under its pool name. Rebinding a name to the same key
// is a no-op; binding it to a different key fails.
func (d *Directory) Bind(desc Descriptor) error {
	name := strings.TrimSpace(desc.PoolName)
	if name == "" {
		return mqerr.Errorf(mqerr.InvalidArgument, "directory.bind", "pool name is empty")
	}
	if desc.Key == nil {
		return mqerr.Errorf(mqerr.InvalidArgument, "directory.bind", "pool %q has no key", name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.byName[name]; ok {
		if existing.Key != desc.Key {
			return mqerr.Errorf(mqerr.InvalidArgument, "directory.bind",
				"pool %q is already bound to %s", name, existing.Key)
		}
		return nil
	}
	d.byName[name] = desc
	if _, ok := d.byKey[desc.Key]; !ok {
		d.byKey[desc.Key] = name
	}
	return nil
}

// Lookup returns the key bound to name.
func (d *Directory) Lookup(name string) (*Key, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	desc, ok := d.byName[strings.TrimSpace(name)]
	return desc.Key, ok
}

// Descriptor returns the configured descriptor for key.
func (d *Directory) Descriptor(key *Key) (Descriptor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.byKey[key]
	if !ok {
		return Descriptor{}, false
	}
	return d.byName[name], true
}

// NameOf returns the first name bound to key.
func (d *Directory) NameOf(key *Key) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.byKey[key]
	return name, ok
}

// Names returns all bound names, sorted.
func (d *Directory) Names() []string {
	d.mu.RLock()
	names := make([]string, 0, len(d.byName))
	for n := range d.byName {
		names = append(names, n)
	}
	d.mu.RUnlock()
	sort.Strings(names)
	return names
}
