package object

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	apperrors "treediff/internal/errors"
)

// treeRecord is the persisted form of one directory object. The ID is the
// sha256 of the canonical entries encoding, so it never participates in the
// hash itself.
type treeRecord struct {
	ID      string      `json:"id"`
	Entries []TreeEntry `json:"entries"`
}

func (r *treeRecord) GetID() string {
	return r.ID
}

func treeID(entries []TreeEntry) (string, error) {
	if entries == nil {
		entries = []TreeEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling tree entries: %w", err)
	}
	return hashBytes(data), nil
}

var (
	emptyTreeOnce sync.Once
	emptyTreeRef  TreeRef
)

// EmptyTreeRef is the well-known sentinel naming the tree with no entries.
// It resolves without ever being stored.
func EmptyTreeRef() TreeRef {
	emptyTreeOnce.Do(func() {
		id, err := treeID(nil)
		if err != nil {
			panic(err)
		}
		emptyTreeRef = TreeRef(id)
	})
	return emptyTreeRef
}

// PutTree stores one directory object and returns its content-derived ref.
// Entries are canonicalized by name before hashing.
func (s *Store) PutTree(entries []TreeEntry) (TreeRef, error) {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	seen := make(map[string]bool, len(sorted))
	for _, e := range sorted {
		if e.Name == "" || strings.Contains(e.Name, "/") {
			return "", apperrors.Validation("invalid tree entry name %q", e.Name)
		}
		if e.Kind != KindBlob && e.Kind != KindTree {
			return "", apperrors.Validation("invalid tree entry kind %q for %s", e.Kind, e.Name)
		}
		if e.ID == "" {
			return "", apperrors.Validation("tree entry %s has no content id", e.Name)
		}
		if seen[e.Name] {
			return "", apperrors.Validation("duplicate tree entry name %q", e.Name)
		}
		seen[e.Name] = true
	}

	id, err := treeID(sorted)
	if err != nil {
		return "", err
	}
	if TreeRef(id) == EmptyTreeRef() {
		return EmptyTreeRef(), nil
	}

	record := &treeRecord{ID: id, Entries: sorted}
	if err := s.trees.Save(record); err != nil {
		return "", fmt.Errorf("storing tree object: %w", err)
	}
	return TreeRef(id), nil
}

// ResolveTree returns a read view over the snapshot named by ref. The empty
// sentinel always resolves; any other ref must exist in the store.
func (s *Store) ResolveTree(ref TreeRef) (*Tree, error) {
	if ref == "" {
		return nil, apperrors.Validation("tree ref cannot be empty")
	}
	if ref != EmptyTreeRef() {
		if _, err := s.loadTree(string(ref)); err != nil {
			return nil, err
		}
	}
	return &Tree{ref: ref, store: s}, nil
}

func (s *Store) loadTree(id string) (*treeRecord, error) {
	if TreeRef(id) == EmptyTreeRef() {
		return &treeRecord{ID: id, Entries: []TreeEntry{}}, nil
	}
	var record treeRecord
	if err := s.trees.Get(id, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Tree is an immutable view of one snapshot. Safe for concurrent reads.
type Tree struct {
	ref   TreeRef
	store *Store
}

func (t *Tree) Ref() TreeRef {
	return t.ref
}

// dirEntries resolves the directory object at dir ("." is the root). Returns
// nil with no error when the path does not name a directory on this side.
func (t *Tree) dirEntries(dir string) ([]TreeEntry, error) {
	id := string(t.ref)
	if dir != "." && dir != "" {
		for _, name := range strings.Split(dir, "/") {
			record, err := t.store.loadTree(id)
			if err != nil {
				return nil, err
			}
			next := ""
			for _, e := range record.Entries {
				if e.Name == name && e.Kind == KindTree {
					next = e.ID
					break
				}
			}
			if next == "" {
				return nil, nil
			}
			id = next
		}
	}
	record, err := t.store.loadTree(id)
	if err != nil {
		return nil, err
	}
	return record.Entries, nil
}

// Children lists the (name, kind) pairs directly under dir in lexicographic
// order. An absent directory lists as empty.
func (t *Tree) Children(dir string) ([]Child, error) {
	entries, err := t.dirEntries(dir)
	if err != nil {
		return nil, err
	}
	children := make([]Child, 0, len(entries))
	for _, e := range entries {
		children = append(children, Child{Name: e.Name, Kind: e.Kind})
	}
	return children, nil
}

// EntryAt returns the entry for a path, or nil when the path does not exist
// in this snapshot. The synthetic root "." has no entry.
func (t *Tree) EntryAt(p string) (*Entry, error) {
	if p == "." || p == "" {
		return nil, nil
	}
	dir, name := path.Split(p)
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		dir = "."
	}

	entries, err := t.dirEntries(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Name == name {
			return &Entry{TreeEntry: e, store: t.store}, nil
		}
	}
	return nil, nil
}
