// Package store implements the file store: the on-disk workspace layout,
// path selection for new items, atomic save/load with YAML frontmatter,
// content hashing, import, archive/unarchive, workspace walking, and
// selection history — the highest-weighted component of the system.
package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	kasherrors "github.com/kashrun/kash/pkg/errors"
	"github.com/kashrun/kash/internal/format"
	"github.com/kashrun/kash/internal/item"
	"github.com/kashrun/kash/internal/store/storepath"
	"github.com/kashrun/kash/internal/store/urlcanon"
)

// Store is a single file-backed workspace: a root directory, an in-memory
// id-index, a slug uniquifier, and a selection history, all guarded by one
// mutex. Go has no re-entrant mutex, so internal helpers shared between a
// locked public method and another locked public method are written as
// unexported *Locked variants that assume the caller already holds mu —
// the same split the teacher uses between its lock-acquiring public
// methods and lock-free private helpers.
type Store struct {
	root    string
	mu      sync.Mutex
	ids     *idIndex
	uniq    *Uniquifier
	history *SelectionHistory
	ignore  *ignoreFilter
}

// Open returns a Store rooted at dir, creating the workspace skeleton
// (.kash/) if absent, and loading any existing selection history.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, ".kash"), 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace directory: %w", err)
	}

	ig, err := loadIgnoreFilter(dir)
	if err != nil {
		return nil, err
	}

	hist, err := loadSelectionHistory(dir)
	if err != nil {
		return nil, err
	}

	return &Store{
		root:    dir,
		ids:     newIDIndex(),
		uniq:    NewUniquifier(),
		history: hist,
		ignore:  ig,
	}, nil
}

// Root returns the workspace root directory.
func (s *Store) Root() string { return s.root }

// History returns the store's selection history.
func (s *Store) History() *SelectionHistory { return s.history }

func (s *Store) absPath(sp storepath.Path) string {
	return filepath.Join(s.root, filepath.FromSlash(sp.Rel()))
}

func (s *Store) archivePath(sp storepath.Path) string {
	return filepath.Join(s.root, "archive", filepath.FromSlash(sp.Rel()))
}

// SaveOptions controls Save's behavior.
type SaveOptions struct {
	Overwrite      bool
	AsTmp          bool
	NoFormat       bool
	NoFrontmatter  bool
}

// Save implements the save sequence (spec.md §4.H steps 1-7), holding the
// store mutex across the entire archive→write→reload→compare→
// keep-or-reuse sequence — the Open Question resolution recorded in
// DESIGN.md.
func (s *Store) Save(ctx context.Context, it item.Item, opts SaveOptions) (storepath.Path, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if it.ExternalPath != "" && s.isInsideWorkspace(it.ExternalPath) {
		rel, err := filepath.Rel(s.root, it.ExternalPath)
		if err == nil {
			return storepath.Parse(filepath.ToSlash(rel))
		}
	}

	sp, priorSlugPath, err := s.pickPathLocked(it)
	if err != nil {
		return storepath.Path{}, err
	}

	absTarget := s.absPath(sp)
	existed := fileExists(absTarget)
	if existed && !opts.Overwrite {
		if err := s.archiveLocked(sp); err != nil {
			return storepath.Path{}, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(absTarget), 0o755); err != nil {
		return storepath.Path{}, fmt.Errorf("creating directory for %s: %w", sp, err)
	}

	f := format.Format(it.Format)
	var data []byte
	if opts.NoFrontmatter || f.IsBinary() || !f.SupportsFrontmatter() {
		data = []byte(it.Body)
	} else {
		data, err = encodeFrontmatter(it)
		if err != nil {
			return storepath.Path{}, err
		}
	}

	tmpPath := absTarget + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return storepath.Path{}, fmt.Errorf("writing %s: %w", sp, err)
	}
	if err := os.Rename(tmpPath, absTarget); err != nil {
		return storepath.Path{}, fmt.Errorf("renaming into place %s: %w", sp, err)
	}

	if !it.CreatedAt.IsZero() || !it.ModifiedAt.IsZero() {
		mtime := it.ModifiedAt
		if mtime.IsZero() {
			mtime = time.Now()
		}
		atime := it.CreatedAt
		if atime.IsZero() {
			atime = mtime
		}
		_ = os.Chtimes(absTarget, atime, mtime)
	}

	if priorSlugPath != nil {
		priorItem, err := s.loadLocked(*priorSlugPath)
		if err == nil && it.ContentEquals(priorItem) {
			_ = os.Remove(absTarget)
			sp = *priorSlugPath
			absTarget = s.absPath(sp)
		}
	}

	it.StorePath = sp.String()
	if id, ok := computeItemID(it); ok {
		s.ids.index(id, sp)
	}

	return sp, nil
}

func (s *Store) isInsideWorkspace(p string) bool {
	abs, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..")
}

// pickPathLocked implements the path-selection rule (spec.md §4.H).
// Caller must hold s.mu.
func (s *Store) pickPathLocked(it item.Item) (sp storepath.Path, priorSlugPath *storepath.Path, err error) {
	if it.StorePath != "" {
		p, err := storepath.Parse(it.StorePath)
		return p, nil, err
	}

	if id, ok := computeItemID(it); ok {
		if existing, found := s.ids.lookup(id); found && fileExists(s.absPath(existing)) {
			return existing, nil, nil
		}
	}

	folder := it.Type.PluralFolder()
	slug := it.SlugName(64)
	ext := extFor(it)
	suffix := "." + string(it.Type) + "." + ext

	unique, _ := s.uniq.UniquifyHistoric(slug, suffix)
	rel := filepath.ToSlash(filepath.Join(folder, unique+suffix))
	sp, perr := storepath.Parse(rel)
	if perr != nil {
		return storepath.Path{}, nil, perr
	}

	if unique != slug {
		priorRel := filepath.ToSlash(filepath.Join(folder, slug+suffix))
		if priorPath, perr2 := storepath.Parse(priorRel); perr2 == nil {
			priorSlugPath = &priorPath
		}
	}

	return sp, priorSlugPath, nil
}

func extFor(it item.Item) string {
	switch it.Type {
	case item.TypeExtension:
		return "py"
	case item.TypeScript:
		return "script.ksh"
	}
	if ext, ok := format.Format(it.Format).FileExt(); ok {
		return string(ext)
	}
	return "txt"
}

// Load reads and parses the item at sp.
func (s *Store) Load(ctx context.Context, sp storepath.Path) (item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(sp)
}

func (s *Store) loadLocked(sp storepath.Path) (item.Item, error) {
	abs := s.absPath(sp)
	raw, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return item.Item{}, &kasherrors.FileNotFoundError{Path: sp.String()}
		}
		return item.Item{}, &kasherrors.SkippableError{Path: sp.String(), Cause: err}
	}

	f := format.DetectFormat(sp.Base(), raw)
	if !f.SupportsFrontmatter() {
		return item.Item{
			Type:      item.TypeResource,
			Format:    string(f),
			Body:      string(raw),
			StorePath: sp.String(),
		}, nil
	}

	meta, body, err := decodeFrontmatter(raw)
	if err != nil {
		var skippable *kasherrors.SkippableError
		if kasherrors.As(err, &skippable) {
			skippable.Path = sp.String()
		}
		return item.Item{}, err
	}
	if meta == nil {
		return item.Item{
			Type:      item.TypeDoc,
			Format:    string(f),
			Body:      body,
			StorePath: sp.String(),
		}, nil
	}

	it := item.FromMetadata(meta, body)
	it.StorePath = sp.String()
	if it.Format == "" {
		it.Format = string(f)
	}
	return it, nil
}

// Hash returns "sha1:{hex}" over the raw bytes at sp.
func (s *Store) Hash(sp storepath.Path) (string, error) {
	abs := s.absPath(sp)
	raw, err := os.ReadFile(abs)
	if err != nil {
		return "", &kasherrors.FileNotFoundError{Path: sp.String()}
	}
	sum := sha1.Sum(raw)
	return "sha1:" + hex.EncodeToString(sum[:]), nil
}

// Import resolves a locator (URL or filesystem path) into an Item saved in
// the store. Identical re-imports are detected by hash and reuse the
// prior path unless reimport is true.
func (s *Store) Import(ctx context.Context, locator string, asType item.Type, reimport bool) (item.Item, error) {
	if isURL(locator) {
		canon, err := urlcanon.Canonicalize(locator)
		if err != nil {
			return item.Item{}, &kasherrors.InvalidInputError{Field: "locator", Message: err.Error()}
		}
		t := asType
		if t == "" {
			t = item.TypeResource
		}
		it := item.Item{
			Type:      t,
			URL:       canon,
			Format:    string(format.URL),
			CreatedAt: time.Now(),
		}
		sp, err := s.Save(ctx, it, SaveOptions{})
		if err != nil {
			return item.Item{}, err
		}
		it.StorePath = sp.String()
		return it, nil
	}

	raw, err := os.ReadFile(locator)
	if err != nil {
		return item.Item{}, &kasherrors.FileNotFoundError{Path: locator}
	}

	f := format.DetectFormat(locator, raw)
	t := asType
	if t == "" {
		t = item.TypeResource
	}

	it := item.Item{
		Type:      t,
		Format:    string(f),
		CreatedAt: time.Now(),
	}
	if f.SupportsFrontmatter() && !f.IsBinary() {
		it.Body = string(raw)
	} else {
		it.ExternalPath = locator
		it.Body = string(raw)
	}

	if !reimport {
		h := item.HashBody(it.Body)
		if id, ok := computeItemID(it); ok {
			if existing, found := s.ids.lookup(id); found {
				prior, loadErr := s.Load(ctx, existing)
				if loadErr == nil && item.HashBody(prior.Body) == h {
					return prior, nil
				}
			}
		}
	}

	sp, err := s.Save(ctx, it, SaveOptions{})
	if err != nil {
		return item.Item{}, err
	}
	it.StorePath = sp.String()
	it.ExternalPath = ""
	return it, nil
}

func isURL(s string) bool {
	return strings.Contains(s, "://")
}

// Archive moves the item at sp into archive/, preserving its sub-path.
func (s *Store) Archive(sp storepath.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archiveLocked(sp)
}

func (s *Store) archiveLocked(sp storepath.Path) error {
	src := s.absPath(sp)
	dst := s.archivePath(sp)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("archiving %s: %w", sp, err)
	}
	s.history.removePath(sp.String())
	return nil
}

// Unarchive reverses Archive: moves the item at sp back from archive/.
func (s *Store) Unarchive(sp storepath.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.archivePath(sp)
	dst := s.absPath(sp)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("unarchiving %s: %w", sp, err)
	}
	return nil
}

// WalkItems returns an iterator over every item's store path under base
// (or the whole workspace root if base is nil), honoring the ignore
// filter. Walk errors are yielded alongside a zero Path so the consumer
// can decide whether to abort; yielding false from the range body stops
// the walk early.
func (s *Store) WalkItems(ctx context.Context, base *storepath.Path) iter.Seq2[storepath.Path, error] {
	start := s.root
	if base != nil {
		start = s.absPath(*base)
	}

	return func(yield func(storepath.Path, error) bool) {
		_ = filepath.WalkDir(start, func(p string, d os.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				if !yield(storepath.Path{}, err) {
					return filepath.SkipAll
				}
				return nil
			}
			rel, relErr := filepath.Rel(s.root, p)
			if relErr != nil {
				if !yield(storepath.Path{}, relErr) {
					return filepath.SkipAll
				}
				return nil
			}
			relSlash := filepath.ToSlash(rel)

			if d.IsDir() {
				if s.ignore.matchesDir(relSlash) {
					return filepath.SkipDir
				}
				return nil
			}
			if s.ignore.matches(relSlash) {
				return nil
			}
			sp, perr := storepath.Parse(relSlash)
			if perr != nil {
				return nil
			}
			if !yield(sp, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// computeItemID derives an item's deduplication key, if it has one: a URL
// resource's id is its canonicalized URL, a concept's id is its title, and
// any item with a recorded source operation is keyed by that operation's
// canonical string.
func computeItemID(it item.Item) (item.ID, bool) {
	switch {
	case it.Type == item.TypeResource && it.URL != "":
		return item.ID{Type: it.Type, Kind: item.IDKindURL, Value: it.URL}, true
	case it.Type == item.TypeConcept && it.Title != "":
		return item.ID{Type: it.Type, Kind: item.IDKindConcept, Value: strings.ToLower(it.Title)}, true
	case it.Source != nil && it.Source.OperationStr != "":
		return item.ID{Type: it.Type, Kind: item.IDKindSource, Value: it.Source.OperationStr}, true
	default:
		return item.ID{}, false
	}
}

// ignoreFilter honors .kash/ and .kashignore glob patterns.
type ignoreFilter struct {
	patterns []string
}

func loadIgnoreFilter(root string) (*ignoreFilter, error) {
	ig := &ignoreFilter{patterns: []string{".kash/**", "archive/**"}}

	raw, err := os.ReadFile(filepath.Join(root, ".kashignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return ig, nil
		}
		slog.Warn("failed to read .kashignore, ignoring", "error", err)
		return ig, nil
	}

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ig.patterns = append(ig.patterns, line)
	}
	return ig, nil
}

func (ig *ignoreFilter) matches(relPath string) bool {
	for _, pat := range ig.patterns {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return true
		}
	}
	return false
}

func (ig *ignoreFilter) matchesDir(relPath string) bool {
	if relPath == "." {
		return false
	}
	return ig.matches(relPath) || ig.matches(relPath+"/**")
}
