package domaintest

import (
	"context"
	"sync"

	"github.com/pscheid92/signboard/internal/domain"
)

// Gateway is a function-field fake of domain.Gateway that counts calls. Test use only.
type Gateway struct {
	LoadAllFn       func(ctx context.Context) ([]domain.Employee, error)
	ApplyUpdatesFn  func(ctx context.Context, updates []domain.EmployeeStatusUpdate) error
	LoadLocationsFn func(ctx context.Context) (domain.LocationMap, error)

	mu                 sync.Mutex
	loadAllCalls       int
	applyUpdatesCalls  int
	loadLocationsCalls int
}

func (g *Gateway) LoadAll(ctx context.Context) ([]domain.Employee, error) {
	g.mu.Lock()
	g.loadAllCalls++
	g.mu.Unlock()
	if g.LoadAllFn != nil {
		return g.LoadAllFn(ctx)
	}
	return nil, nil
}

func (g *Gateway) ApplyUpdates(ctx context.Context, updates []domain.EmployeeStatusUpdate) error {
	g.mu.Lock()
	g.applyUpdatesCalls++
	g.mu.Unlock()
	if g.ApplyUpdatesFn != nil {
		return g.ApplyUpdatesFn(ctx, updates)
	}
	return nil
}

func (g *Gateway) LoadLocations(ctx context.Context) (domain.LocationMap, error) {
	g.mu.Lock()
	g.loadLocationsCalls++
	g.mu.Unlock()
	if g.LoadLocationsFn != nil {
		return g.LoadLocationsFn(ctx)
	}
	return domain.LocationMap{}, nil
}

func (g *Gateway) LoadAllCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadAllCalls
}

func (g *Gateway) ApplyUpdatesCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.applyUpdatesCalls
}

func (g *Gateway) LoadLocationsCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadLocationsCalls
}
