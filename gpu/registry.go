// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// BackendSoftware is the name of the CPU backend registered by this package.
const BackendSoftware = "software"

// ErrBackendNotAvailable is returned when a named backend is not registered.
var ErrBackendNotAvailable = errors.New("gpu: backend not available")

// BackendFactory creates a new backend instance.
type BackendFactory func() Backend

var (
	registryMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
)

func init() {
	Register(BackendSoftware, func() Backend { return NewSoftwareBackend() })
}

// Register registers a backend factory under name. Host applications call
// it from init to make a hardware backend selectable by name. An existing
// registration with the same name is replaced.
func Register(name string, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open returns a new instance of the named backend.
func Open(name string) (Backend, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	b := factory()
	if b == nil {
		return nil, fmt.Errorf("%w: %q returned no backend", ErrBackendNotAvailable, name)
	}
	return b, nil
}
