package store

import (
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const defaultMaxHistory = 20

// Selection is a list of store paths that act as implicit arguments to
// the next action invocation.
type Selection []string

// SelectionHistory is a bounded deque of Selections, persisted to
// .kash/selections.yml. The current selection is the last entry.
type SelectionHistory struct {
	mu         sync.Mutex
	path       string
	MaxHistory int          `yaml:"-"`
	Entries    []Selection  `yaml:"entries"`
}

func loadSelectionHistory(root string) (*SelectionHistory, error) {
	p := filepath.Join(root, ".kash", "selections.yml")
	h := &SelectionHistory{path: p, MaxHistory: defaultMaxHistory}

	raw, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return h, nil
		}
		return h, nil
	}

	var onDisk SelectionHistory
	if err := yaml.Unmarshal(raw, &onDisk); err != nil {
		return h, nil
	}
	h.Entries = onDisk.Entries
	return h, nil
}

// Current returns the most recent selection, or nil if history is empty.
func (h *SelectionHistory) Current() Selection {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.Entries) == 0 {
		return nil
	}
	return h.Entries[len(h.Entries)-1]
}

// Push appends sel to the history unless it is empty or identical to the
// current top entry, truncating to MaxHistory and persisting to disk.
func (h *SelectionHistory) Push(sel Selection) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(sel) == 0 {
		return nil
	}
	if len(h.Entries) > 0 && selectionEqual(h.Entries[len(h.Entries)-1], sel) {
		return nil
	}

	h.Entries = append(h.Entries, sel)
	max := h.MaxHistory
	if max <= 0 {
		max = defaultMaxHistory
	}
	if len(h.Entries) > max {
		h.Entries = h.Entries[len(h.Entries)-max:]
	}
	return h.saveLocked()
}

// Refresh drops paths from every entry that no longer exist on disk
// (relative to root), dropping any entry left empty.
func (h *SelectionHistory) Refresh(root string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var kept []Selection
	for _, sel := range h.Entries {
		var survivors Selection
		for _, rel := range sel {
			if fileExists(filepath.Join(root, filepath.FromSlash(rel))) {
				survivors = append(survivors, rel)
			}
		}
		if len(survivors) > 0 {
			kept = append(kept, survivors)
		}
	}
	h.Entries = kept
	return h.saveLocked()
}

// removePath strips rel from every entry in the history, dropping
// entries left empty; called when an item is archived.
func (h *SelectionHistory) removePath(rel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var kept []Selection
	for _, sel := range h.Entries {
		var survivors Selection
		for _, p := range sel {
			if p != rel {
				survivors = append(survivors, p)
			}
		}
		if len(survivors) > 0 {
			kept = append(kept, survivors)
		}
	}
	h.Entries = kept
	_ = h.saveLocked()
}

func (h *SelectionHistory) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(h)
	if err != nil {
		return err
	}
	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, h.path)
}

func selectionEqual(a, b Selection) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
