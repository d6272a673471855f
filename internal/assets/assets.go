// Package assets resolves mesh asset names against search directories and
// caches pipeline results per resolved path.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/instancemesh/internal/instancemesh"
	"github.com/Faultbox/instancemesh/internal/logger"
)

// ErrNotFound is returned when no search directory holds an asset.
var ErrNotFound = errors.New("asset not found")

// Manager resolves and loads instance mesh assets.
type Manager struct {
	roots []string
	opts  instancemesh.Options
	cache *Cache
	mu    sync.RWMutex
}

// NewManager creates a manager that builds meshes with opts.
func NewManager(opts instancemesh.Options) *Manager {
	return &Manager{
		opts:  opts,
		cache: NewCache(),
	}
}

// AddSearchPath adds a directory to search.
// Directories are searched in reverse order (last added = highest priority).
func (m *Manager) AddSearchPath(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("adding search path %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding search path %s: not a directory", dir)
	}

	m.mu.Lock()
	m.roots = append(m.roots, dir)
	m.mu.Unlock()
	return nil
}

// Resolve returns the path of name. Absolute paths and paths that exist
// relative to the working directory are returned unchanged.
func (m *Manager) Resolve(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.roots) - 1; i >= 0; i-- {
		p := filepath.Join(m.roots[i], name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Load resolves name and runs the instance mesh pipeline on it. Results are
// cached per resolved path; failures are not cached.
func (m *Manager) Load(name string) ([]*instancemesh.InstanceMesh, error) {
	path, err := m.Resolve(name)
	if err != nil {
		return nil, err
	}
	if meshes, ok := m.cache.Get(path); ok {
		return meshes, nil
	}

	meshes, err := instancemesh.Load(path, m.opts)
	if err != nil {
		return nil, err
	}
	m.cache.Set(path, meshes)
	logger.Debug("asset cached", zap.String("path", path), zap.Int("meshes", len(meshes)))
	return meshes, nil
}

// Evict drops the cached result for name so the next Load rebuilds it.
func (m *Manager) Evict(name string) {
	if path, err := m.Resolve(name); err == nil {
		m.cache.Delete(path)
	}
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses, entries int) {
	return m.cache.Stats()
}

// Close releases GPU copies of cached meshes and clears the cache.
func (m *Manager) Close() {
	m.mu.Lock()
	m.roots = nil
	m.mu.Unlock()

	m.cache.Clear()
}

// Cache holds pipeline results keyed by asset path.
type Cache struct {
	data map[string][]*instancemesh.InstanceMesh
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]*instancemesh.InstanceMesh),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]*instancemesh.InstanceMesh, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	meshes, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return meshes, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, meshes []*instancemesh.InstanceMesh) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = meshes
}

// Delete removes an item, releasing any GPU copies it holds.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.data[key] {
		m.Release()
	}
	delete(c.data, key)
}

// Clear clears the cache, releasing any GPU copies.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, meshes := range c.data {
		for _, m := range meshes {
			m.Release()
		}
	}
	c.data = make(map[string][]*instancemesh.InstanceMesh)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses, entries int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.data)
}
