// Package scenario defines the weighted units of work executed by virtual
// users, and the dispatcher that assigns them deterministically.
package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/dsr-ph/dsr-loadtest/pkg/errors"
)

// ErrorKind classifies a failed scenario outcome
type ErrorKind string

const (
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindNetwork   ErrorKind = "network"
	ErrorKindServer5xx ErrorKind = "server_5xx"
	ErrorKindAssertion ErrorKind = "assertion_failed"
)

// Outcome is the result of one scenario iteration
type Outcome struct {
	Success    bool
	Duration   time.Duration
	StatusCode int
	ErrorKind  ErrorKind
}

// ExecuteFunc performs one iteration of a scenario. A returned error is
// converted by the executor into a failed Outcome; it never stops the loop.
type ExecuteFunc func(ctx context.Context) (Outcome, error)

// Definition is a named, weighted executable scenario
type Definition struct {
	Name    string
	Weight  float64
	Execute ExecuteFunc
}

// Registry holds the ordered, immutable scenario set for one run. Weights
// need not sum to 1; they are normalized by cumulative ranges.
type Registry struct {
	defs       []Definition
	cumulative []float64
	total      float64
}

// NewRegistry builds a registry from an ordered scenario list
func NewRegistry(defs []Definition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, errors.NewConfigurationError("at least one scenario is required")
	}

	seen := make(map[string]bool, len(defs))
	cumulative := make([]float64, len(defs))
	total := 0.0

	for i, def := range defs {
		if def.Name == "" {
			return nil, errors.NewConfigurationError(fmt.Sprintf("scenario %d has no name", i))
		}
		if seen[def.Name] {
			return nil, errors.NewConfigurationError(fmt.Sprintf("duplicate scenario name %q", def.Name))
		}
		if def.Weight <= 0 {
			return nil, errors.NewConfigurationError(fmt.Sprintf("scenario %q has non-positive weight", def.Name))
		}
		if def.Execute == nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("scenario %q has no execute function", def.Name))
		}

		seen[def.Name] = true
		total += def.Weight
		cumulative[i] = total
	}

	return &Registry{
		defs:       append([]Definition(nil), defs...),
		cumulative: cumulative,
		total:      total,
	}, nil
}

// Definitions returns the ordered scenario list
func (r *Registry) Definitions() []Definition {
	return r.defs
}

// Len returns the number of scenarios
func (r *Registry) Len() int {
	return len(r.defs)
}

// TotalWeight returns the sum of all scenario weights
func (r *Registry) TotalWeight() float64 {
	return r.total
}

// atSelector returns the first scenario whose cumulative weight range
// contains the selector, which must be in [0, total).
func (r *Registry) atSelector(selector float64) Definition {
	for i, bound := range r.cumulative {
		if selector < bound {
			return r.defs[i]
		}
	}
	return r.defs[len(r.defs)-1]
}
