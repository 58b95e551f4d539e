// internal/snapshot/snapshot.go
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"treediff/internal/object"
	"treediff/internal/storage"
)

// Snapshot is the registry record for one captured tree: a stable UUID plus
// the content-derived root ref the walker consumes.
type Snapshot struct {
	ID        string         `json:"id"`
	Root      object.TreeRef `json:"root"`
	Label     string         `json:"label"`
	Dir       string         `json:"dir"`
	CreatedAt time.Time      `json:"created_at"`
}

func (s *Snapshot) GetID() string {
	return s.ID
}

// Manager captures directory states into the object store and keeps the
// snapshot registry.
type Manager struct {
	store      *object.Store
	snaps      *storage.BadgerStore
	logger     *zap.Logger
	ignoreDirs map[string]bool
}

func NewManager(store *object.Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  store,
		snaps:  storage.NewBadgerStore(store.DB(), "snapshot"),
		logger: logger,
		ignoreDirs: map[string]bool{
			".git":         true,
			".treediff":    true,
			"node_modules": true,
			"vendor":       true,
			"dist":         true,
			"build":        true,
		},
	}
}

// Take captures dir into the object store and records the snapshot.
func (m *Manager) Take(dir, label string) (*Snapshot, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving snapshot directory: %w", err)
	}

	root, err := m.buildTree(abs)
	if err != nil {
		return nil, fmt.Errorf("building tree for %s: %w", abs, err)
	}

	snap := &Snapshot{
		ID:        uuid.New().String(),
		Root:      root,
		Label:     label,
		Dir:       abs,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.snaps.Save(snap); err != nil {
		return nil, fmt.Errorf("recording snapshot: %w", err)
	}

	m.logger.Info("snapshot taken",
		zap.String("id", snap.ID),
		zap.String("root", root.String()),
		zap.String("label", label))
	return snap, nil
}

// buildTree stores every file under dir as a blob and assembles directory
// objects bottom-up, returning the root ref.
func (m *Manager) buildTree(dir string) (object.TreeRef, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading directory: %w", err)
	}

	var entries []object.TreeEntry
	for _, de := range dirents {
		name := de.Name()

		if de.IsDir() {
			if m.ignoreDirs[name] {
				continue
			}
			sub, err := m.buildTree(filepath.Join(dir, name))
			if err != nil {
				return "", err
			}
			entries = append(entries, object.TreeEntry{
				Name: name,
				Kind: object.KindTree,
				Mode: 0o040000,
				ID:   string(sub),
			})
			continue
		}

		info, err := de.Info()
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", name, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", name, err)
		}
		id, err := m.store.Blobs().Put(content)
		if err != nil {
			return "", fmt.Errorf("storing %s: %w", name, err)
		}

		mode := uint32(0o100644)
		if info.Mode().Perm()&0o111 != 0 {
			mode = 0o100755
		}
		entries = append(entries, object.TreeEntry{
			Name: name,
			Kind: object.KindBlob,
			Mode: mode,
			ID:   id,
		})
	}

	return m.store.PutTree(entries)
}

// List returns all recorded snapshots, oldest first.
func (m *Manager) List() ([]Snapshot, error) {
	var snaps []Snapshot
	if err := m.snaps.List(&snaps); err != nil {
		return nil, err
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].CreatedAt.Before(snaps[j].CreatedAt) })
	return snaps, nil
}

// Resolve maps a user-supplied name to a tree ref: the literal "empty", a
// snapshot label, a snapshot ID or ID prefix, or a raw tree ref.
func (m *Manager) Resolve(arg string) (object.TreeRef, error) {
	if arg == "empty" {
		return object.EmptyTreeRef(), nil
	}

	snaps, err := m.List()
	if err != nil {
		return "", err
	}
	for _, s := range snaps {
		if s.Label != "" && s.Label == arg {
			return s.Root, nil
		}
	}
	for _, s := range snaps {
		if strings.HasPrefix(s.ID, arg) || strings.HasPrefix(string(s.Root), arg) {
			return s.Root, nil
		}
	}

	return object.TreeRef(arg), nil
}

// FindRoot walks up from startDir looking for an existing store directory.
func FindRoot(startDir, storeDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, storeDir)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s store found above %s", storeDir, startDir)
		}
		dir = parent
	}
}
