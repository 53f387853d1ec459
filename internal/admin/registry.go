// Package admin holds the directory of types editable through the
// operator interface.
//
// Resources are registered explicitly at startup, in the server's wiring
// code — there is no ambient global registry. The registered schema
// (columns, filters, fieldsets) is what the admin UI renders; the data
// itself flows through the resource's own handlers.
package admin

import (
	"fmt"
	"sort"
	"sync"
)

// Fieldset is a labeled group of fields on an admin form, e.g. the base
// identity fields and an "Additional Info" profile group.
type Fieldset struct {
	Label  string   `json:"label"`
	Fields []string `json:"fields"`
}

// Resource describes one editable type in the admin directory.
type Resource struct {
	// Name is the URL slug of the resource, e.g. "accounts".
	Name string `json:"name"`
	// ListColumns are the columns shown in the directory listing.
	ListColumns []string `json:"listColumns"`
	// Filters are the attributes the listing can be narrowed by.
	Filters []string `json:"filters"`
	// Fieldsets group the fields of the edit form.
	Fieldsets []Fieldset `json:"fieldsets"`
	// AddFieldsets group the fields of the creation form, which may
	// differ from the edit form (e.g. password fields only on creation).
	AddFieldsets []Fieldset `json:"addFieldsets"`
}

// Registry maps resource names to their descriptors.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]Resource
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{resources: make(map[string]Resource)}
}

// Register adds a resource to the directory. Registering the same name
// twice is a wiring bug and returns an error rather than silently
// replacing the earlier schema.
func (r *Registry) Register(res Resource) error {
	if res.Name == "" {
		return fmt.Errorf("admin: resource name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.resources[res.Name]; exists {
		return fmt.Errorf("admin: resource %q already registered", res.Name)
	}
	r.resources[res.Name] = res
	return nil
}

// Get returns the resource registered under name.
func (r *Registry) Get(name string) (Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[name]
	return res, ok
}

// List returns all registered resources, sorted by name.
func (r *Registry) List() []Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Resource, 0, len(r.resources))
	for _, res := range r.resources {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
