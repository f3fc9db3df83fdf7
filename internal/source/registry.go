package source

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Driver)
)

// Register makes an engine driver available by its name and aliases.
// It panics if a name is registered twice, which indicates a programming
// error in an engine package's init.
func Register(d Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()

	names := append([]string{d.Name()}, d.Aliases()...)
	for _, name := range names {
		key := strings.ToLower(name)
		if _, dup := registry[key]; dup {
			panic(fmt.Sprintf("source: driver %q registered twice", key))
		}
		registry[key] = d
	}
}

// lookup finds a registered driver by name or alias.
func lookup(name string) (Driver, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	d, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown source type %q (available: %s)",
			name, strings.Join(engineNames(), ", "))
	}
	return d, nil
}

// Supported reports whether name is a registered engine name or alias.
func Supported(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[strings.ToLower(name)]
	return ok
}

// engineNames returns the sorted primary names of all registered drivers.
// Callers must hold registryMu.
func engineNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range registry {
		if !seen[d.Name()] {
			seen[d.Name()] = true
			names = append(names, d.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Engines returns the sorted primary names of all registered drivers.
func Engines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return engineNames()
}
