package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/premia/internal/core"
)

type chainOnly struct{}

func (chainOnly) Name() string { return "chain-only" }
func (chainOnly) FetchExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	return nil, nil
}
func (chainOnly) FetchChain(ctx context.Context, symbol string, exp time.Time) ([]core.RawOptionQuote, error) {
	return nil, nil
}

type allRoles struct{ chainOnly }

func (allRoles) Name() string { return "all" }
func (allRoles) FetchTechnicals(ctx context.Context, symbol string) (*core.TechnicalsSnapshot, error) {
	return &core.TechnicalsSnapshot{Symbol: symbol}, nil
}
func (allRoles) FetchEarnings(ctx context.Context, symbol string) (*core.EarningsInfo, error) {
	return &core.EarningsInfo{Symbol: symbol}, nil
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	r.Register("chain-only", chainOnly{})
	r.Register("all", allRoles{})

	set, err := r.Resolve("chain-only", "all", "all")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if set.Chain.Name() != "chain-only" || set.Market.Name() != "all" || set.Fundamentals.Name() != "all" {
		t.Errorf("unexpected set: %+v", set)
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "all" || names[1] != "chain-only" {
		t.Errorf("Names() = %v", names)
	}
}

func TestRegistry_MissingCapability(t *testing.T) {
	r := NewRegistry()
	r.Register("chain-only", chainOnly{})

	_, err := r.Resolve("chain-only", "chain-only", "chain-only")
	if !errors.Is(err, core.ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestRegistry_Unregistered(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Chain("nope"); !errors.Is(err, core.ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}
