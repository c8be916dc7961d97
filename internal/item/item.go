// Package item implements the central data record of kash: the Item, its
// identity (ItemId), its type/state/format taxonomy, and the derived-title
// and content-equality helpers the file store and execution pipeline rely
// on.
package item

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// Type is the closed set of item kinds.
type Type string

const (
	TypeDoc       Type = "doc"
	TypeConcept   Type = "concept"
	TypeResource  Type = "resource"
	TypeAsset     Type = "asset"
	TypeConfig    Type = "config"
	TypeExport    Type = "export"
	TypeChat      Type = "chat"
	TypeExtension Type = "extension"
	TypeScript    Type = "script"
	TypeLog       Type = "log"
	TypeTable     Type = "table"
)

// ExpectsBody reports whether items of this type must have a non-empty
// body when saved.
func (t Type) ExpectsBody() bool {
	switch t {
	case TypeResource, TypeAsset, TypeConfig:
		return false
	default:
		return true
	}
}

// AllowsOpSuffix reports whether AbbrevTitle should append a
// "(stepNN, last_op)" suffix for this type.
func (t Type) AllowsOpSuffix() bool {
	switch t {
	case TypeDoc, TypeExport, TypeTable:
		return true
	default:
		return false
	}
}

// PluralFolder returns the workspace subdirectory items of this type are
// stored under (spec.md §6 workspace layout).
func (t Type) PluralFolder() string {
	switch t {
	case TypeDoc:
		return "docs"
	case TypeConcept:
		return "concepts"
	case TypeResource:
		return "resources"
	case TypeAsset:
		return "assets"
	case TypeConfig:
		return "configs"
	case TypeExport:
		return "exports"
	case TypeChat:
		return "chats"
	case TypeExtension:
		return "extensions"
	case TypeScript:
		return "scripts"
	case TypeLog:
		return "logs"
	case TypeTable:
		return "tables"
	default:
		return string(t) + "s"
	}
}

// State is the item's editorial lifecycle state.
type State string

const (
	StateDraft    State = "draft"
	StateReviewed State = "reviewed"
	StateTransient State = "transient"
)

// IDKind classifies how an ItemId's value was derived.
type IDKind string

const (
	IDKindURL     IDKind = "url"
	IDKindConcept IDKind = "concept"
	IDKindSource  IDKind = "source"
)

// ID is the deduplication key of an item: a URL resource's id is its
// canonicalized URL, a concept's id is its canonicalized title, and any
// other item with a cacheable source has id = the serialized source.
type ID struct {
	Type  Type
	Kind  IDKind
	Value string
}

func (id ID) String() string {
	return fmt.Sprintf("%s:%s:%s", id.Type, id.Kind, id.Value)
}

// Relations holds the (possibly cyclic) references an item carries to
// other items, stored as store-path or URL strings rather than strong
// references (SPEC_FULL.md §9 "cycles in relations").
type Relations struct {
	DerivedFrom []string `yaml:"derived_from,omitempty"`
	DiffOf      []string `yaml:"diff_of,omitempty"`
	Cites       []string `yaml:"cites,omitempty"`
}

// Source describes provenance: which Operation produced this item, at
// which output index, and whether the result is safe to use for rerun
// avoidance (component D).
type Source struct {
	OperationStr string `yaml:"operation"`
	OutputIndex  int    `yaml:"output_index"`
	Cacheable    bool   `yaml:"cacheable"`
}

// Item is the unit of content kash operates on.
type Item struct {
	Type        Type      `yaml:"type"`
	State       State     `yaml:"state,omitempty"`
	Title       string    `yaml:"title,omitempty"`
	URL         string    `yaml:"url,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Format      string    `yaml:"format,omitempty"`
	CreatedAt   time.Time `yaml:"created_at,omitempty"`
	ModifiedAt  time.Time `yaml:"modified_at,omitempty"`
	Source      *Source   `yaml:"source,omitempty"`
	Relations   Relations `yaml:"relations,omitempty"`
	History     []string  `yaml:"history,omitempty"`
	ThumbnailURL string   `yaml:"thumbnail_url,omitempty"`
	Extra       map[string]any `yaml:"extra,omitempty"`

	// Body is the in-memory text body for text formats. Not part of
	// Metadata(); stored as the file's content, not its frontmatter.
	Body string `yaml:"-"`

	// FileExt is the file extension used for this item, when it has been
	// determined (from the filename or Format).
	FileExt string `yaml:"-"`

	// ExternalPath points at content not yet copied into the store.
	ExternalPath string `yaml:"-"`

	// StorePath is the item's path once saved; empty for unsaved items.
	// Stored as a plain string here to avoid an import cycle with
	// internal/store/storepath; callers parse/format as needed.
	StorePath string `yaml:"-"`
}

// slugRe matches characters not allowed in a slug.
var slugRe = regexp.MustCompile(`[^a-z0-9_]+`)
var wsRe = regexp.MustCompile(`\s+`)
var opSuffixRe = regexp.MustCompile(`\s*\(step\d+,\s*[^)]+\)\s*$`)

// AbbrevTitle derives a display title from title/URL/stem/description/body,
// in that precedence order, truncated to maxLen, optionally appending an
// "(stepNN, last_op)" suffix for types where AllowsOpSuffix is true.
func (it Item) AbbrevTitle(maxLen int, addOpsSuffix bool) string {
	base := it.titleSource()
	base = strings.TrimSpace(base)
	if maxLen > 0 && len(base) > maxLen {
		base = strings.TrimSpace(base[:maxLen])
	}

	if addOpsSuffix && it.Type.AllowsOpSuffix() && len(it.History) > 0 {
		step := fmt.Sprintf("step%02d", len(it.History))
		last := it.History[len(it.History)-1]
		base = fmt.Sprintf("%s (%s, %s)", base, step, last)
	}
	return base
}

func (it Item) titleSource() string {
	if it.Title != "" {
		return it.Title
	}
	if it.URL != "" {
		return it.URL
	}
	if it.ExternalPath != "" {
		return stemOf(it.ExternalPath)
	}
	if it.StorePath != "" {
		return stemOf(it.StorePath)
	}
	if it.Description != "" {
		return it.Description
	}
	if it.Body != "" {
		if nl := strings.IndexByte(it.Body, '\n'); nl >= 0 {
			return it.Body[:nl]
		}
		return it.Body
	}
	return "untitled"
}

func stemOf(p string) string {
	base := p
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

// SlugName slugifies the abbreviated title: lowercase, underscore
// separators, capped at maxLen characters (default 64 when maxLen <= 0).
func (it Item) SlugName(maxLen int) string {
	if maxLen <= 0 {
		maxLen = 64
	}
	title := it.AbbrevTitle(0, false)
	s := strings.ToLower(title)
	s = wsRe.ReplaceAllString(s, "_")
	s = slugRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	if s == "" {
		s = "untitled"
	}
	if len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "_")
	}
	return s
}

// Metadata emits an order-stable map suitable for YAML frontmatter,
// excluding body/external-path/store-path/context. Field order matches
// spec.md §6's item file format.
func (it Item) Metadata() []MetadataField {
	fields := []MetadataField{
		{"type", string(it.Type)},
	}
	if it.State != "" {
		fields = append(fields, MetadataField{"state", string(it.State)})
	}
	if it.Title != "" {
		fields = append(fields, MetadataField{"title", it.Title})
	}
	if it.URL != "" {
		fields = append(fields, MetadataField{"url", it.URL})
	}
	if it.Description != "" {
		fields = append(fields, MetadataField{"description", it.Description})
	}
	if it.Format != "" {
		fields = append(fields, MetadataField{"format", it.Format})
	}
	if !it.CreatedAt.IsZero() {
		fields = append(fields, MetadataField{"created_at", it.CreatedAt})
	}
	if !it.ModifiedAt.IsZero() {
		fields = append(fields, MetadataField{"modified_at", it.ModifiedAt})
	}
	if it.Source != nil {
		fields = append(fields, MetadataField{"source", it.Source})
	}
	if len(it.Relations.DerivedFrom)+len(it.Relations.DiffOf)+len(it.Relations.Cites) > 0 {
		fields = append(fields, MetadataField{"relations", it.Relations})
	}
	if len(it.History) > 0 {
		fields = append(fields, MetadataField{"history", it.History})
	}
	if it.ThumbnailURL != "" {
		fields = append(fields, MetadataField{"thumbnail_url", it.ThumbnailURL})
	}
	if len(it.Extra) > 0 {
		fields = append(fields, MetadataField{"extra", it.Extra})
	}
	return fields
}

// MetadataField is one key/value pair of Item.Metadata(), kept as an
// ordered slice (rather than a map) so frontmatter serialization preserves
// the stable key order spec.md §6 requires.
type MetadataField struct {
	Key   string
	Value any
}

// ContentEquals compares two items ignoring timestamps, store path, and
// trailing newlines on the body — the round-trip equality spec.md §8 tests
// against.
func (it Item) ContentEquals(other Item) bool {
	if it.Type != other.Type || it.Format != other.Format {
		return false
	}
	if it.Title != other.Title || it.URL != other.URL || it.Description != other.Description {
		return false
	}
	a := strings.TrimRight(it.Body, "\n")
	b := strings.TrimRight(other.Body, "\n")
	return a == b
}

// DerivedCopy produces a new item of newType whose Relations.DerivedFrom
// points at the current store path (or propagates the parent's
// DerivedFrom if this item is itself unsaved), clears StorePath/ModifiedAt,
// sets CreatedAt to now, and applies titleTemplate to the title unless
// overrideTitle is non-empty.
func (it Item) DerivedCopy(newType Type, overrideTitle, titleTemplate string, now time.Time) Item {
	out := it
	out.Type = newType
	out.StorePath = ""
	out.ModifiedAt = time.Time{}
	out.CreatedAt = now

	if it.StorePath != "" {
		out.Relations.DerivedFrom = []string{it.StorePath}
	} else {
		out.Relations.DerivedFrom = append([]string(nil), it.Relations.DerivedFrom...)
	}

	switch {
	case overrideTitle != "":
		out.Title = overrideTitle
	case titleTemplate != "":
		out.Title = strings.ReplaceAll(titleTemplate, "{title}", it.Title)
	}
	return out
}

// HashBody returns "sha1:{hex}" over the item's body bytes, matching the
// file store's content hash format (component H).
func HashBody(body string) string {
	sum := sha1.Sum([]byte(body))
	return "sha1:" + hex.EncodeToString(sum[:])
}

// FromMetadata reconstructs an Item from a decoded frontmatter map and a
// body string, the tolerant counterpart to Metadata(): an unrecognized
// ItemType or Format value falls back to a default and logs a warning
// rather than failing, and unrecognized map keys land in Extra instead of
// being rejected.
func FromMetadata(meta map[string]any, body string) Item {
	it := Item{Body: body}

	known := map[string]bool{
		"type": true, "state": true, "title": true, "url": true,
		"description": true, "format": true, "created_at": true,
		"modified_at": true, "source": true, "relations": true,
		"history": true, "thumbnail_url": true,
	}

	if v, ok := stringField(meta, "type"); ok {
		t := Type(v)
		if !validType(t) {
			slog.Warn("unrecognized item type, defaulting", "type", v)
			t = TypeDoc
		}
		it.Type = t
	} else {
		it.Type = TypeDoc
	}

	if v, ok := stringField(meta, "state"); ok {
		it.State = State(v)
	}
	if v, ok := stringField(meta, "title"); ok {
		it.Title = v
	}
	if v, ok := stringField(meta, "url"); ok {
		it.URL = v
	}
	if v, ok := stringField(meta, "description"); ok {
		it.Description = v
	}
	if v, ok := stringField(meta, "format"); ok {
		it.Format = v
	}
	if v, ok := stringField(meta, "created_at"); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			it.CreatedAt = ts
		}
	}
	if v, ok := stringField(meta, "modified_at"); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			it.ModifiedAt = ts
		}
	}
	if v, ok := stringField(meta, "thumbnail_url"); ok {
		it.ThumbnailURL = v
	}
	if rawHistory, ok := meta["history"]; ok {
		it.History = toStringSlice(rawHistory)
	}
	if rawRel, ok := meta["relations"].(map[string]any); ok {
		it.Relations.DerivedFrom = toStringSlice(rawRel["derived_from"])
		it.Relations.DiffOf = toStringSlice(rawRel["diff_of"])
		it.Relations.Cites = toStringSlice(rawRel["cites"])
	}
	if rawSrc, ok := meta["source"].(map[string]any); ok {
		src := &Source{}
		if op, ok := stringField(rawSrc, "operation"); ok {
			src.OperationStr = op
		}
		if idx, ok := rawSrc["output_index"].(int); ok {
			src.OutputIndex = idx
		}
		if c, ok := rawSrc["cacheable"].(bool); ok {
			src.Cacheable = c
		}
		it.Source = src
	}

	var extra map[string]any
	for k, v := range meta {
		if known[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}
	it.Extra = extra

	return it
}

func validType(t Type) bool {
	switch t {
	case TypeDoc, TypeConcept, TypeResource, TypeAsset, TypeConfig, TypeExport,
		TypeChat, TypeExtension, TypeScript, TypeLog, TypeTable:
		return true
	default:
		return false
	}
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func toStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
