package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/premia/internal/core"
)

// Registry holds named adapters. An adapter may implement any subset of the
// role interfaces; lookups check the capability at resolution time.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]any
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]any),
	}
}

// Register adds an adapter under name, replacing any previous one
func (r *Registry) Register(name string, p any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Names returns registered adapter names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) get(name string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, core.WrapError(core.ErrUnknownProvider, fmt.Errorf("%q is not registered", name))
	}
	return p, nil
}

// Chain returns the named adapter as a ChainProvider
func (r *Registry) Chain(name string) (ChainProvider, error) {
	p, err := r.get(name)
	if err != nil {
		return nil, err
	}
	c, ok := p.(ChainProvider)
	if !ok {
		return nil, core.WrapError(core.ErrUnknownProvider, fmt.Errorf("%q cannot serve the %s role", name, RoleChain))
	}
	return c, nil
}

// Market returns the named adapter as a MarketProvider
func (r *Registry) Market(name string) (MarketProvider, error) {
	p, err := r.get(name)
	if err != nil {
		return nil, err
	}
	m, ok := p.(MarketProvider)
	if !ok {
		return nil, core.WrapError(core.ErrUnknownProvider, fmt.Errorf("%q cannot serve the %s role", name, RoleMarket))
	}
	return m, nil
}

// Fundamentals returns the named adapter as a FundamentalsProvider
func (r *Registry) Fundamentals(name string) (FundamentalsProvider, error) {
	p, err := r.get(name)
	if err != nil {
		return nil, err
	}
	f, ok := p.(FundamentalsProvider)
	if !ok {
		return nil, core.WrapError(core.ErrUnknownProvider, fmt.Errorf("%q cannot serve the %s role", name, RoleFundamentals))
	}
	return f, nil
}

// Resolve builds a Set from one adapter name per role
func (r *Registry) Resolve(chain, market, fundamentals string) (Set, error) {
	var set Set
	var err error
	if set.Chain, err = r.Chain(chain); err != nil {
		return Set{}, err
	}
	if set.Market, err = r.Market(market); err != nil {
		return Set{}, err
	}
	if set.Fundamentals, err = r.Fundamentals(fundamentals); err != nil {
		return Set{}, err
	}
	return set, nil
}
