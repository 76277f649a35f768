package agents

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Registry resolves agent names to profiles. It is an explicit instance so
// tests and servers can each hold their own catalog.
type Registry struct {
	mu       sync.RWMutex
	base     map[string]Profile
	profiles map[string]Profile
	logger   *slog.Logger
}

// catalogFile is the on-disk shape of agents.yaml.
type catalogFile struct {
	Agents []Profile `yaml:"agents"`
}

// NewRegistry builds a registry from the given profiles. Every profile must
// validate and names must be unique (case-insensitively).
func NewRegistry(profiles ...Profile) (*Registry, error) {
	m := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		key := normalize(p.Name)
		if _, dup := m[key]; dup {
			return nil, fmt.Errorf("duplicate agent %q", p.Name)
		}
		p.Name = key
		m[key] = p
	}
	return &Registry{
		base:     m,
		profiles: m,
		logger:   slog.Default().With("component", "agents"),
	}, nil
}

// Default returns a registry holding the built-in catalog.
func Default() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		panic(fmt.Sprintf("builtin agent catalog is invalid: %v", err))
	}
	return r
}

// Resolve looks up an agent by name, ignoring case and surrounding space.
func (r *Registry) Resolve(name string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.profiles[normalize(name)]; ok {
		return p, nil
	}
	return Profile{}, &UnknownAgentError{Name: name, Known: r.namesLocked()}
}

// Names returns the registered agent names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// Profiles returns every registered profile sorted by name.
func (r *Registry) Profiles() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Profile, 0, len(r.profiles))
	for _, name := range r.namesLocked() {
		out = append(out, r.profiles[name])
	}
	return out
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFile overlays the catalog in path on top of the base profiles.
// Entries naming a known agent replace only the lists they set; new entries
// must be complete. A missing file is not an error.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read agent catalog: %w", err)
	}
	return r.Load(data)
}

// Load overlays a YAML catalog. The swap is all-or-nothing: one invalid entry
// leaves the current catalog untouched.
func (r *Registry) Load(data []byte) error {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse agent catalog: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]Profile, len(r.base)+len(file.Agents))
	for k, v := range r.base {
		next[k] = v
	}
	for _, entry := range file.Agents {
		key := normalize(entry.Name)
		p := entry
		if existing, ok := next[key]; ok {
			p = existing.merge(entry)
		}
		p.Name = key
		if err := p.Validate(); err != nil {
			return err
		}
		next[key] = p
	}
	r.profiles = next
	return nil
}

// Watch reloads path whenever it changes until ctx is cancelled.
// The parent directory is watched so editors that replace the file on save
// keep triggering reloads.
func (r *Registry) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	r.logger.Info("watching agent catalog", "path", path)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounce = time.After(200 * time.Millisecond)
			}

		case <-debounce:
			debounce = nil
			if err := r.LoadFile(path); err != nil {
				r.logger.Warn("agent catalog reload failed", "path", path, "error", err)
				continue
			}
			r.logger.Info("agent catalog reloaded", "path", path, "agents", strings.Join(r.Names(), ","))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("agent catalog watcher error", "error", err)
		}
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
