package trigger

import "strings"

// Registry maps framework labels to triggers. Bindings are fixed at
// configuration time; Resolve never fails because every registry carries a
// fallback.
type Registry struct {
	byFramework map[string]Trigger
	fallback    Trigger
}

// NewRegistry builds a registry around the fallback trigger.
func NewRegistry(fallback Trigger) *Registry {
	return &Registry{byFramework: make(map[string]Trigger), fallback: fallback}
}

// Bind routes a framework label to a trigger. Labels match
// case-insensitively.
func (r *Registry) Bind(framework string, t Trigger) {
	r.byFramework[normalize(framework)] = t
}

// Resolve picks the trigger for a project's framework label.
func (r *Registry) Resolve(framework string) Trigger {
	if t, ok := r.byFramework[normalize(framework)]; ok {
		return t
	}
	return r.fallback
}

func normalize(framework string) string {
	return strings.ToLower(strings.TrimSpace(framework))
}
