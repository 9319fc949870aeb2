package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]TableInfo)
	registryMu sync.RWMutex
)

// Register adds a table to the registry.
// Panics if a table with the same key is already registered.
func Register[T Entity](schema *Schema[T]) {
	registryMu.Lock()
	defer registryMu.Unlock()

	info := schema.Info
	if _, exists := registry[info.Key]; exists {
		panic(fmt.Sprintf("table already registered: %s", info.Key))
	}

	// Populate Columns from the schema fields if not set
	if len(info.Columns) == 0 {
		info.Columns = make([]string, len(schema.Fields))
		for i, f := range schema.Fields {
			info.Columns[i] = f.Name
		}
	}

	registry[info.Key] = info
}

// Lookup returns a table by key.
func Lookup(key string) (TableInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	info, ok := registry[key]
	return info, ok
}

// Tables returns all registered tables sorted by key.
func Tables() []TableInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]TableInfo, 0, len(registry))
	for _, info := range registry {
		result = append(result, info)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// ClearRegistry removes all registered tables.
// Primarily useful for testing.
func ClearRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]TableInfo)
}
