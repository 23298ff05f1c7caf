package tools

import "fmt"

// Spec is a tool's JSON-schema-like parameter description, used for router
// prompting and argument validation.
type Spec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Registry is a process-wide, push-only map of tool name to implementation.
// Registration must complete before engine construction; Lock prevents
// further registration once the engine starts dispatching.
type Registry struct {
	specs  map[string]Spec
	tools  map[string]Tool
	locked bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]Spec),
		tools: make(map[string]Tool),
	}
}

// Register adds a tool under spec.Name. Panics if called after Lock, since
// registration is a build-time concern, not a runtime one.
func (r *Registry) Register(spec Spec, tool Tool) {
	if r.locked {
		panic(fmt.Sprintf("tools.Registry.Register: registry locked, cannot register %q", spec.Name))
	}
	r.specs[spec.Name] = spec
	r.tools[spec.Name] = tool
}

// Lock freezes the registry against further registration.
func (r *Registry) Lock() {
	r.locked = true
}

// Lookup returns the tool implementation for name, if registered.
func (r *Registry) Lookup(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Spec returns the registered Spec for name, if any.
func (r *Registry) Spec(name string) (Spec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Specs returns every registered Spec, for router prompting.
func (r *Registry) Specs() []Spec {
	specs := make([]Spec, 0, len(r.specs))
	for _, s := range r.specs {
		specs = append(specs, s)
	}
	return specs
}
