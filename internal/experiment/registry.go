package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/batchreactor/internal/dynamo"
	"github.com/san-kum/batchreactor/internal/integrators"
)

// Registry maps integrator names to constructors. Every lookup returns a new
// instance since integrators keep scratch buffers.
type Registry struct {
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }
	r.integrators["rosenbrock"] = func() dynamo.Integrator { return integrators.NewRosenbrock() }

	return r
}

func (r *Registry) Register(name string, fn func() dynamo.Integrator) {
	r.integrators[name] = fn
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
