// Package operation implements the Operation/Source/Input model: the
// fingerprint an action invocation leaves on its outputs, used both to
// describe provenance and to decide whether a rerun can be skipped.
package operation

import (
	"fmt"
	"sort"
	"strings"

	kasherrors "github.com/kashrun/kash/pkg/errors"
	"github.com/kashrun/kash/internal/store/storepath"
)

// Input is one positional argument to an operation: the store path it was
// read from and the content hash it had at invocation time. Equal compares
// only Hash, so an input re-read from a different path with identical
// content still counts as the same input for rerun-avoidance purposes.
type Input struct {
	Path storepath.Path
	Hash string
}

// Equal reports whether two inputs carry the same content hash.
func (in Input) Equal(other Input) bool {
	return in.Hash == other.Hash
}

// Operation is the canonical record of "this action, given these inputs and
// options, produced this output" — the unit SPEC_FULL.md's rerun-avoidance
// logic compares against an item's current inputs.
type Operation struct {
	Action  string
	Args    []Input
	Options map[string]string
}

// AsStr renders the operation's canonical form:
// action(arg@hash,...;opt=val,...), with options sorted by key so two
// Operations with the same content always format identically.
func (o Operation) AsStr() string {
	var b strings.Builder
	b.WriteString(o.Action)
	b.WriteByte('(')

	for i, a := range o.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.Path.String())
		b.WriteByte('@')
		b.WriteString(a.Hash)
	}

	if len(o.Options) > 0 {
		if len(o.Args) > 0 {
			b.WriteByte(';')
		}
		keys := make([]string, 0, len(o.Options))
		for k := range o.Options {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(o.Options[k])
		}
	}

	b.WriteByte(')')
	return b.String()
}

// String satisfies fmt.Stringer with the same canonical form as AsStr.
func (o Operation) String() string { return o.AsStr() }

var opRe = `^([a-zA-Z_][a-zA-Z0-9_]*)\(([^)]*)\)$`

// Parse is the exact inverse of AsStr: Parse(o.AsStr()) == o for any
// Operation o produced by this package.
func Parse(s string) (Operation, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Operation{}, invalidOperation(s, "missing action(...) form")
	}
	action := s[:open]
	if !isIdentifier(action) {
		return Operation{}, invalidOperation(s, "invalid action name")
	}
	body := s[open+1 : len(s)-1]

	op := Operation{Action: action}
	if strings.TrimSpace(body) == "" {
		return op, nil
	}

	argsPart, optsPart, hasOpts := strings.Cut(body, ";")

	if strings.TrimSpace(argsPart) != "" {
		for _, raw := range strings.Split(argsPart, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			pathStr, hash, ok := strings.Cut(raw, "@")
			if !ok {
				return Operation{}, invalidOperation(s, "argument missing @hash: "+raw)
			}
			p, err := storepath.Parse(pathStr)
			if err != nil {
				return Operation{}, invalidOperation(s, "bad argument path: "+err.Error())
			}
			op.Args = append(op.Args, Input{Path: p, Hash: hash})
		}
	}

	if hasOpts && strings.TrimSpace(optsPart) != "" {
		op.Options = map[string]string{}
		for _, raw := range strings.Split(optsPart, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			key, val, ok := strings.Cut(raw, "=")
			if !ok {
				return Operation{}, invalidOperation(s, "option missing =value: "+raw)
			}
			op.Options[key] = val
		}
	}

	return op, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func invalidOperation(raw, reason string) error {
	return &kasherrors.InvalidOperationError{
		Message: fmt.Sprintf("cannot parse operation %q: %s", raw, reason),
	}
}

// Source records provenance on a saved item: which operation produced it,
// at which output index, and whether that output is safe to reuse as a
// rerun-avoidance key.
type Source struct {
	Operation   Operation
	OutputIndex int
	Cacheable   bool
}

// Matches reports whether the given operation, reduced to canonical form,
// is identical to this source's recorded operation — the comparison the
// execution pipeline uses to decide whether an existing output can be
// reused instead of re-running the action.
func (s Source) Matches(op Operation) bool {
	return s.Operation.AsStr() == op.AsStr()
}
