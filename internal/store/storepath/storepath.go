// Package storepath implements the workspace-relative path grammar used to
// address items inside a kash file store: plain relative paths, the
// `@relative/path` and `@/absolute-within-store/path` mention forms, the
// `~store_name/path` cross-store form, and single-quoted segments containing
// spaces.
package storepath

import (
	"fmt"
	"path"
	"strings"

	kasherrors "github.com/kashrun/kash/pkg/errors"
)

// storeNameCharset is the allowed charset for a `~store_name` prefix.
const storeNameCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_."

// Path is a workspace-relative path, optionally scoped to a named store.
// The zero value is not a valid Path; construct with Parse.
type Path struct {
	storeName string
	rel       string
}

// Parse parses the syntactic forms described in spec.md §4.A / §3.
func Parse(s string) (Path, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Path{}, invalidStorePath(orig, "empty store path")
	}

	storeName := ""
	if strings.HasPrefix(s, "@") {
		s = s[1:]
		if strings.HasPrefix(s, "~") {
			name, rest, err := splitStoreName(s[1:])
			if err != nil {
				return Path{}, invalidStorePath(orig, err.Error())
			}
			storeName, s = name, rest
		}
	} else if strings.HasPrefix(s, "~") {
		name, rest, err := splitStoreName(s[1:])
		if err != nil {
			return Path{}, invalidStorePath(orig, err.Error())
		}
		storeName, s = name, rest
	}

	s = unquote(s)

	if s == "" || s == "." {
		return Path{}, invalidStorePath(orig, fmt.Sprintf("invalid store path: %q", orig))
	}
	if strings.Contains(s, "://") {
		return Path{}, invalidStorePath(orig, fmt.Sprintf("expected a store path but got a URL: %q", orig))
	}
	if path.IsAbs(s) || strings.HasPrefix(s, "/") {
		return Path{}, invalidStorePath(orig, fmt.Sprintf("absolute store paths are not allowed: %q", orig))
	}

	clean := path.Clean(s)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return Path{}, invalidStorePath(orig, fmt.Sprintf("store path escapes the workspace root: %q", orig))
	}
	if clean == "." {
		return Path{}, invalidStorePath(orig, fmt.Sprintf("invalid store path: %q", orig))
	}

	return Path{storeName: storeName, rel: clean}, nil
}

func splitStoreName(s string) (name string, rest string, err error) {
	idx := strings.IndexByte(s, '/')
	if idx < 0 {
		return "", "", fmt.Errorf("missing path after store name in %q", s)
	}
	name, rest = s[:idx], s[idx+1:]
	if name == "" {
		return "", "", fmt.Errorf("empty store name")
	}
	for _, r := range name {
		if !strings.ContainsRune(storeNameCharset, r) {
			return "", "", fmt.Errorf("invalid character %q in store name %q", r, name)
		}
	}
	return name, rest, nil
}

// unquote strips a single matching pair of single quotes around the whole
// remaining path, as in `@'/folder 1/f.txt'`. An unmatched opening quote is
// left for the caller to reject via the generic invalid-path path.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' {
		if end := strings.IndexByte(s[1:], '\''); end >= 0 {
			return s[1 : end+1]
		}
	}
	return s
}

func invalidStorePath(orig, reason string) error {
	return &kasherrors.InvalidInputError{Field: "store_path", Message: reason}
}

// MustParse is Parse but panics on error; for use with compile-time literals.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// StoreName returns the `~name` prefix, or "" for the default store.
func (p Path) StoreName() string { return p.storeName }

// Rel returns the workspace-relative path, always slash-separated.
func (p Path) Rel() string { return p.rel }

// IsZero reports whether p is the unconstructed zero value.
func (p Path) IsZero() bool { return p.rel == "" }

// String emits the bare relative path (no `@`/`~` decoration), matching the
// original `__str__` behavior.
func (p Path) String() string { return p.rel }

// DisplayString emits the `@`/`~`-prefixed display form.
func (p Path) DisplayString() string {
	if p.storeName != "" {
		return "@~" + p.storeName + "/" + p.rel
	}
	return "@" + p.rel
}

// Equal compares both the relative path and the store name.
func (p Path) Equal(other Path) bool {
	return p.storeName == other.storeName && p.rel == other.rel
}

// Join joins p with a relative path component, yielding a new StorePath in
// the same store. Joining with an absolute path, or with another StorePath
// naming a different store, is an error.
func (p Path) Join(relPath string) (Path, error) {
	if path.IsAbs(relPath) || strings.HasPrefix(relPath, "/") {
		return Path{}, &kasherrors.InvalidInputError{
			Field:   "store_path",
			Message: fmt.Sprintf("cannot join store path with absolute path: %q", relPath),
		}
	}
	joined := path.Clean(path.Join(p.rel, relPath))
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return Path{}, &kasherrors.InvalidInputError{
			Field:   "store_path",
			Message: fmt.Sprintf("join escapes the workspace root: %q", relPath),
		}
	}
	return Path{storeName: p.storeName, rel: joined}, nil
}

// JoinStorePath joins two StorePaths; both must name the same store (or one
// must be the default store).
func (p Path) JoinStorePath(other Path) (Path, error) {
	if p.storeName != "" && other.storeName != "" && p.storeName != other.storeName {
		return Path{}, &kasherrors.InvalidInputError{
			Field:   "store_path",
			Message: fmt.Sprintf("cannot join store paths from different stores: %q, %q", p.storeName, other.storeName),
		}
	}
	name := p.storeName
	if name == "" {
		name = other.storeName
	}
	joined, err := p.Join(other.rel)
	if err != nil {
		return Path{}, err
	}
	joined.storeName = name
	return joined, nil
}

// Dir returns the parent directory, as a StorePath.
func (p Path) Dir() Path {
	return Path{storeName: p.storeName, rel: path.Dir(p.rel)}
}

// Base returns the final path element.
func (p Path) Base() string { return path.Base(p.rel) }
