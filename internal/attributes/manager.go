package attributes

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/Faultbox/instancemesh/internal/logger"
)

// Manager errors.
var (
	ErrNotFound         = errors.New("no attributes with handle")
	ErrDefaultProtected = errors.New("attributes are protected from removal")
	ErrEmptyHandle      = errors.New("empty handle")
)

// Manager is a library of semantic asset configurations keyed by handle.
// Handles of file-backed entries are their paths without FileSuffix.
type Manager struct {
	mu        sync.RWMutex
	objects   map[string]*SemanticAssetAttributes
	protected map[string]bool
	nextID    int
}

// NewManager creates a library holding the protected default template.
func NewManager() *Manager {
	m := &Manager{
		objects:   make(map[string]*SemanticAssetAttributes),
		protected: make(map[string]bool),
	}
	m.Register(Default(), true)
	return m
}

// Register stores a copy of attrs under attrs.Handle, replacing any entry
// with the same handle. Protected entries cannot be removed.
func (m *Manager) Register(attrs *SemanticAssetAttributes, protected bool) (int, error) {
	if attrs.Handle == "" {
		return 0, ErrEmptyHandle
	}
	c := attrs.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.objects[c.Handle]; ok {
		c.ID = old.ID
	} else {
		c.ID = m.nextID
		m.nextID++
	}
	m.objects[c.Handle] = c
	if protected {
		m.protected[c.Handle] = true
	}
	return c.ID, nil
}

// Get returns a copy of the entry for handle.
func (m *Manager) Get(handle string) (*SemanticAssetAttributes, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.objects[handle]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Remove deletes the entry for handle.
func (m *Manager) Remove(handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[handle]; !ok {
		return fmt.Errorf("%w %q", ErrNotFound, handle)
	}
	if m.protected[handle] {
		return fmt.Errorf("%q: %w", handle, ErrDefaultProtected)
	}
	delete(m.objects, handle)
	return nil
}

// Len returns the number of entries.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Handles returns the sorted handles matching a glob pattern. An empty
// pattern matches everything.
func (m *Manager) Handles(pattern string) ([]string, error) {
	var g glob.Glob
	if pattern != "" {
		var err error
		g, err = glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	handles := make([]string, 0, len(m.objects))
	for h := range m.objects {
		if g == nil || g.Match(h) {
			handles = append(handles, h)
		}
	}
	sort.Strings(handles)
	return handles, nil
}

// LoadByPath reads a configuration file and registers it. Fields missing
// from the file keep their default template values.
func (m *Manager) LoadByPath(path string) (*SemanticAssetAttributes, error) {
	if !strings.HasSuffix(path, FileSuffix) {
		path += FileSuffix
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading attributes: %w", err)
	}

	base, ok := m.Get(DefaultHandle)
	if !ok {
		base = Default()
	}
	if err := json.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	base.Handle = strings.TrimSuffix(path, FileSuffix)
	base.FileDirectory = filepath.Dir(path)

	id, err := m.Register(base, false)
	if err != nil {
		return nil, err
	}
	base.ID = id
	logger.Debug("attributes loaded", zap.String("handle", base.Handle), zap.Int("id", id))
	return base, nil
}

// LoadDirectory loads every configuration file directly inside dir and
// returns how many were registered. Files that fail to parse are logged and
// skipped.
func (m *Manager) LoadDirectory(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading attributes directory: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), FileSuffix) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := m.LoadByPath(path); err != nil {
			logger.Warn("skipping attributes file", zap.String("path", path), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}

// SaveByHandle writes the entry for handle as JSON in its file directory and
// returns the path written. Without overwrite an existing file is kept and
// the first free "name (copy NNNN)" variant is used instead.
func (m *Manager) SaveByHandle(handle string, overwrite bool) (string, error) {
	attrs, ok := m.Get(handle)
	if !ok {
		return "", fmt.Errorf("%w %q", ErrNotFound, handle)
	}

	dir := attrs.FileDirectory
	if dir == "" {
		dir = "."
	}
	base := filepath.Base(strings.TrimSuffix(handle, FileSuffix))
	path := filepath.Join(dir, base+FileSuffix)
	if !overwrite {
		for count := 0; fileExists(path); count++ {
			path = filepath.Join(dir, fmt.Sprintf("%s (copy %04d)%s", base, count, FileSuffix))
		}
	}

	data, err := json.MarshalIndent(attrs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding attributes: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating attributes directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing attributes: %w", err)
	}
	logger.Info("attributes saved", zap.String("handle", handle), zap.String("path", path))
	return path, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
