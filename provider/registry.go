package provider

import (
	"fmt"
	"sort"
)

// Registry is the fixed set of providers known to the program.
type Registry struct {
	clients map[string]Client
}

func NewRegistry(clients ...Client) (*Registry, error) {
	r := &Registry{clients: make(map[string]Client)}

	for _, c := range clients {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Registry) Register(c Client) error {
	name := c.Capabilities().Name
	if _, exists := r.clients[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, name)
	}

	r.clients[name] = c

	return nil
}

func (r *Registry) Get(name string) (Client, error) {
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	return c, nil
}

// Names of registered providers in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
