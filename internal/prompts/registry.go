package prompts

import (
	"sort"
	"strings"
	"sync"
)

// Registry holds the built-in presets plus those loaded from disk. A file
// preset replaces a built-in one of the same name.
type Registry struct {
	mu      sync.RWMutex
	presets map[string]*Preset
	loader  *Loader
}

// NewRegistry creates a registry loading files from paths
func NewRegistry(paths []string) *Registry {
	r := &Registry{loader: NewLoader(paths)}
	r.reset()
	return r
}

func (r *Registry) reset() {
	r.presets = make(map[string]*Preset, len(Builtin))
	for _, p := range Builtin {
		r.presets[p.Name] = p
	}
}

// Refresh reloads preset files from disk
func (r *Registry) Refresh() error {
	loaded, err := r.loader.LoadAll()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
	for _, p := range loaded {
		r.presets[strings.ToLower(p.Name)] = p
	}
	return nil
}

// Get returns a preset by name (case-insensitive)
func (r *Registry) Get(name string) (*Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.presets[strings.ToLower(name)]
	if !ok {
		return nil, ErrPresetNotFound
	}
	return p, nil
}

// Register adds or replaces a preset
func (r *Registry) Register(p *Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets[strings.ToLower(p.Name)] = p
	return nil
}

// List returns every preset sorted by name
func (r *Registry) List() []*Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Preset, 0, len(r.presets))
	for _, p := range r.presets {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Names returns the sorted preset names
func (r *Registry) Names() []string {
	list := r.List()
	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Name
	}
	return names
}
