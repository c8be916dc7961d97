// Package precondition implements the closed boolean algebra of predicates
// over items that actions use to declare what input they accept, and the
// matching engine that finds which actions/items satisfy a selection.
package precondition

import (
	"fmt"

	kasherrors "github.com/kashrun/kash/pkg/errors"
	"github.com/kashrun/kash/internal/item"
)

// Precondition is a named boolean predicate over an item. Check fails with
// a *PreconditionFailure on a miss; Test treats that failure as false and
// returns any other error to the caller rather than panicking — the Go
// translation of spec.md §8's "a precondition is a total function from the
// caller's perspective, except when something has gone genuinely wrong."
type Precondition struct {
	name string
	fn   func(item.Item) (bool, error)
}

// New wraps a raw predicate function under the given display name.
func New(name string, fn func(item.Item) (bool, error)) Precondition {
	return Precondition{name: name, fn: fn}
}

// Name returns the precondition's display name — a leaf name for atomic
// predicates, or an infix expression for composed ones.
func (p Precondition) Name() string {
	if p.name == "" {
		return "always"
	}
	return p.name
}

// IsZero reports whether p is the zero Precondition (no predicate set).
func (p Precondition) IsZero() bool { return p.fn == nil }

// Check evaluates the precondition against it, returning a
// *PreconditionFailure if it does not hold (or if the underlying function
// itself reports failure), and propagating any other error unchanged.
func (p Precondition) Check(it item.Item) error {
	if p.IsZero() {
		return nil
	}
	ok, err := p.fn(it)
	if err != nil {
		if _, isFailure := err.(*PreconditionFailure); isFailure {
			return err
		}
		return err
	}
	if !ok {
		return &PreconditionFailure{Precondition: p.Name(), Item: itemLocation(it)}
	}
	return nil
}

// Test reports whether the precondition holds for it. A *PreconditionFailure
// is treated as false; any other error propagates to the caller by being
// returned through the ok=false, bypassing panics entirely — Go callers
// inspect the error rather than relying on a thrown exception, but the
// semantics (miss => false, other error => surfaced) match spec.md §8.
func (p Precondition) Test(it item.Item) (bool, error) {
	if p.IsZero() {
		return true, nil
	}
	ok, err := p.fn(it)
	if err != nil {
		if _, isFailure := err.(*PreconditionFailure); isFailure {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

func itemLocation(it item.Item) string {
	if it.StorePath != "" {
		return it.StorePath
	}
	if it.URL != "" {
		return it.URL
	}
	return it.AbbrevTitle(60, false)
}

// PreconditionFailure is raised by Check when an item does not satisfy a
// precondition. It is an alias of the shared typed-error struct so callers
// across packages can match it with a single errors.As.
type PreconditionFailure = kasherrors.PreconditionFailure

// And returns a Precondition satisfied only when both p and q hold; its
// Name is the infix expression "(p & q)".
func (p Precondition) And(q Precondition) Precondition {
	return Precondition{
		name: fmt.Sprintf("(%s & %s)", p.Name(), q.Name()),
		fn: func(it item.Item) (bool, error) {
			ok, err := p.Test(it)
			if err != nil || !ok {
				return ok, err
			}
			return q.Test(it)
		},
	}
}

// Or returns a Precondition satisfied when either p or q holds.
func (p Precondition) Or(q Precondition) Precondition {
	return Precondition{
		name: fmt.Sprintf("(%s | %s)", p.Name(), q.Name()),
		fn: func(it item.Item) (bool, error) {
			ok, err := p.Test(it)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
			return q.Test(it)
		},
	}
}

// Not returns a Precondition satisfied exactly when p is not.
func (p Precondition) Not() Precondition {
	return Precondition{
		name: fmt.Sprintf("~%s", p.Name()),
		fn: func(it item.Item) (bool, error) {
			ok, err := p.Test(it)
			if err != nil {
				return false, err
			}
			return !ok, nil
		},
	}
}

// Always is the identity element of And: a precondition every item
// satisfies.
var Always = Precondition{name: "always", fn: func(item.Item) (bool, error) { return true, nil }}

// Never is the identity element of Or: a precondition no item satisfies.
var Never = Precondition{name: "never", fn: func(item.Item) (bool, error) { return false, nil }}

// AndAll folds a list of preconditions with And, returning Always for an
// empty list.
func AndAll(ps ...Precondition) Precondition {
	if len(ps) == 0 {
		return Always
	}
	out := ps[0]
	for _, p := range ps[1:] {
		out = out.And(p)
	}
	return out
}

// OrAll folds a list of preconditions with Or, returning Never for an empty
// list.
func OrAll(ps ...Precondition) Precondition {
	if len(ps) == 0 {
		return Never
	}
	out := ps[0]
	for _, p := range ps[1:] {
		out = out.Or(p)
	}
	return out
}

// HasPrecondition reports whether an action declares a non-trivial
// precondition — used by the matching engine's includeNoPrecondition flag.
type HasPrecondition interface {
	ActionPrecondition() Precondition
	ActionName() string
}

// ActionsMatchingPaths returns the subset of actions whose precondition is
// satisfied by every one of the loaded items at paths. Actions with a zero
// (unset) precondition are excluded unless includeNoPrecondition is true.
func ActionsMatchingPaths[A HasPrecondition](actions []A, items []item.Item, includeNoPrecondition bool) ([]A, error) {
	var out []A
	for _, a := range actions {
		p := a.ActionPrecondition()
		if p.IsZero() {
			if includeNoPrecondition {
				out = append(out, a)
			}
			continue
		}
		allMatch := true
		for _, it := range items {
			ok, err := p.Test(it)
			if err != nil {
				return nil, kasherrors.Wrapf(err, "evaluating precondition %q for action %q", p.Name(), a.ActionName())
			}
			if !ok {
				allMatch = false
				break
			}
		}
		if allMatch {
			out = append(out, a)
		}
	}
	return out, nil
}

// ItemLoader loads the item at a store path, used by
// ItemsMatchingPrecondition to walk the workspace without a direct
// dependency on internal/store (avoiding an import cycle).
type ItemLoader interface {
	WalkPaths(maxResults int) ([]string, error)
	Load(path string) (item.Item, error)
}

// ItemsMatchingPrecondition walks the workspace via loader, returning the
// store paths of every item satisfying p, up to maxResults (0 = unlimited).
// Items that fail to load with a skippable error are skipped, not fatal.
func ItemsMatchingPrecondition(loader ItemLoader, p Precondition, maxResults int) ([]string, error) {
	paths, err := loader.WalkPaths(0)
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, sp := range paths {
		it, err := loader.Load(sp)
		if err != nil {
			var skippable *kasherrors.SkippableError
			if kasherrors.As(err, &skippable) {
				continue
			}
			return nil, err
		}
		ok, err := p.Test(it)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, sp)
			if maxResults > 0 && len(matched) >= maxResults {
				break
			}
		}
	}
	return matched, nil
}
