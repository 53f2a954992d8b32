package sequence

import (
	"github.com/dgallion1/taxguide/internal/content"
	"github.com/dgallion1/taxguide/internal/registry"
	"github.com/dgallion1/taxguide/internal/router"
)

// Location answers "which sequence, if any, governs this route, and where
// am I in it". When Sequenced is false the caller shows Path on its own.
type Location struct {
	registry.Resolution
	Path      string
	Sequenced bool
}

// Resolver is a stateless view of a registry. Safe to call on every route
// change.
type Resolver struct {
	reg *registry.Registry
}

func NewResolver(reg *registry.Registry) *Resolver {
	return &Resolver{reg: reg}
}

// Registry returns the underlying registry.
func (r *Resolver) Registry() *registry.Registry {
	return r.reg
}

// Locate resolves path against the registry.
func (r *Resolver) Locate(path string) Location {
	res := r.reg.Resolve(path)
	return Location{
		Resolution: res,
		Path:       content.NormalizePath(path),
		Sequenced:  res.Found(),
	}
}

// LocateCurrent resolves the router's current route.
func (r *Resolver) LocateCurrent(rt router.Reader) Location {
	return r.Locate(rt.Current())
}

// SameSequence reports whether both locations belong to one sequence.
func SameSequence(a, b Location) bool {
	return a.Sequenced && b.Sequenced && a.Sequence.ID == b.Sequence.ID
}
