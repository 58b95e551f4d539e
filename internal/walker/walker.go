// internal/walker/walker.go
package walker

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"

	"go.uber.org/zap"

	"treediff/internal/changeset"
	"treediff/internal/object"
)

// Walker drives a synchronized traversal of two tree snapshots and classifies
// every leaf path that exists in either. A Walker holds no per-walk state, so
// one instance may serve concurrent Walk calls as long as the store tolerates
// concurrent reads.
type Walker struct {
	store  *object.Store
	logger *zap.Logger

	// Workers bounds concurrent content fetches during classification.
	Workers int
}

func New(store *object.Store, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{
		store:   store,
		logger:  logger,
		Workers: 4,
	}
}

// pair is one leaf path with both sides' entries; a nil side means the path
// is absent from that snapshot.
type pair struct {
	path string
	a, b *object.Entry
}

// Walk enumerates the union of paths in refA and refB depth-first,
// lexicographic within each directory, and returns the change records in that
// traversal order. Repeated runs over identical inputs produce identical
// output. Errors abort the whole invocation; no partial result is returned.
func (w *Walker) Walk(ctx context.Context, refA, refB object.TreeRef) ([]changeset.Record, error) {
	treeA, err := w.store.ResolveTree(refA)
	if err != nil {
		return nil, fmt.Errorf("resolving tree %s: %w", refA, err)
	}
	treeB, err := w.store.ResolveTree(refB)
	if err != nil {
		return nil, fmt.Errorf("resolving tree %s: %w", refB, err)
	}

	var pairs []pair
	if err := w.collect(ctx, treeA, treeB, ".", &pairs); err != nil {
		return nil, err
	}

	w.logger.Debug("collected leaf pairs",
		zap.String("tree_a", refA.String()),
		zap.String("tree_b", refB.String()),
		zap.Int("pairs", len(pairs)))

	return w.classifyAll(ctx, pairs)
}

// collect walks one directory level on both sides, recursing wherever either
// side has a subtree and queueing every leaf pair in traversal order. The
// synthetic root "." is structural and never queued itself.
func (w *Walker) collect(ctx context.Context, treeA, treeB *object.Tree, dir string, pairs *[]pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	childrenA, err := treeA.Children(dir)
	if err != nil {
		return fmt.Errorf("listing %s in old tree: %w", dir, err)
	}
	childrenB, err := treeB.Children(dir)
	if err != nil {
		return fmt.Errorf("listing %s in new tree: %w", dir, err)
	}

	kindA := make(map[string]object.Kind, len(childrenA))
	for _, c := range childrenA {
		kindA[c.Name] = c.Kind
	}
	kindB := make(map[string]object.Kind, len(childrenB))
	for _, c := range childrenB {
		kindB[c.Name] = c.Kind
	}

	names := make([]string, 0, len(kindA)+len(kindB))
	for name := range kindA {
		names = append(names, name)
	}
	for name := range kindB {
		if _, ok := kindA[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		childPath := path.Join(dir, name)

		// A directory on either side is structural, never a change of its
		// own; recurse with the non-directory side listing as empty.
		if kindA[name] == object.KindTree || kindB[name] == object.KindTree {
			if err := w.collect(ctx, treeA, treeB, childPath, pairs); err != nil {
				return err
			}
			continue
		}

		var p pair
		p.path = childPath
		if kindA[name] == object.KindBlob {
			if p.a, err = treeA.EntryAt(childPath); err != nil {
				return fmt.Errorf("reading %s from old tree: %w", childPath, err)
			}
		}
		if kindB[name] == object.KindBlob {
			if p.b, err = treeB.EntryAt(childPath); err != nil {
				return fmt.Errorf("reading %s from new tree: %w", childPath, err)
			}
		}
		*pairs = append(*pairs, p)
	}

	return nil
}

// classifyAll runs classification over the collected pairs. Content fetches
// are I/O-bound and independent, so they run concurrently under a bounded
// pool, but results land in a slice indexed by traversal position so output
// order never depends on fetch completion order.
func (w *Walker) classifyAll(ctx context.Context, pairs []pair) ([]changeset.Record, error) {
	workers := w.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]*changeset.Record, len(pairs))
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := range pairs {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			p := pairs[i]
			var a, b changeset.Entry
			if p.a != nil {
				a = p.a
			}
			if p.b != nil {
				b = p.b
			}

			record, err := changeset.Classify(p.path, a, b)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			results[i] = record
		}(i)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	records := make([]changeset.Record, 0, len(results))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records, nil
}
