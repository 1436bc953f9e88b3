// Package graph implements the Content-Addressed Context Graph (C1): an
// append-only DAG of WllNode values keyed by their BLAKE3 content hash
// (spec §4.1).
package graph

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/accordant-systems/accord/pkg/canonical"
	"github.com/accordant-systems/accord/pkg/models"
)

// Store is the persistence port the Graph is built on.
type Store interface {
	Put(n models.WllNode) error
	Get(id models.ContentHash) (models.WllNode, bool, error)
	ByWorldline(w models.WorldlineId) ([]models.WllNode, error)
	Heads(w models.WorldlineId) ([]models.ContentHash, error)
	SetHead(w models.WorldlineId, id models.ContentHash) error
}

// Graph is the component C1 surface.
type Graph struct {
	mu    sync.Mutex
	store Store
}

func New(store Store) *Graph {
	return &Graph{store: store}
}

// Append validates and stores a new node, returning its content hash.
// See spec §4.1 "Append rules".
func (g *Graph) Append(worldline models.WorldlineId, content models.NodeContent, parentIDs []models.ContentHash, timestamp time.Time, tier models.GovernanceTier) (models.ContentHash, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := models.WllNode{
		ParentIDs:      parentIDs,
		Content:        content,
		WorldlineID:    worldline,
		Timestamp:      timestamp,
		GovernanceTier: tier,
	}

	if content.Kind != models.NodeIntent && len(parentIDs) == 0 {
		return models.ContentHash{}, models.NewRuntimeError(models.KindValidationFailure, "non-Intent node requires at least one parent")
	}

	parents := make([]models.WllNode, 0, len(parentIDs))
	for _, pid := range parentIDs {
		p, ok, err := g.store.Get(pid)
		if err != nil {
			return models.ContentHash{}, fmt.Errorf("graph: lookup parent: %w", err)
		}
		if !ok {
			return models.ContentHash{}, models.NewRuntimeError(models.KindValidationFailure, fmt.Sprintf("parent %s does not resolve", pid))
		}
		parents = append(parents, p)
	}

	for _, p := range parents {
		if timestamp.Before(p.Timestamp) {
			return models.ContentHash{}, models.NewRuntimeError(models.KindValidationFailure, "node timestamp precedes a parent timestamp")
		}
		if tier < p.GovernanceTier {
			return models.ContentHash{}, models.NewRuntimeError(models.KindValidationFailure, "governance tier must be monotonic non-decreasing along a chain")
		}
	}

	if content.Kind != models.NodeIntent {
		heads, err := g.store.Heads(worldline)
		if err != nil {
			return models.ContentHash{}, fmt.Errorf("graph: read heads: %w", err)
		}
		if !extendsAHead(parentIDs, heads) {
			return models.ContentHash{}, models.NewRuntimeError(models.KindValidationFailure, "node does not extend any current chain head")
		}
	}

	n.ID = canonical.HashNode(n)

	if err := g.store.Put(n); err != nil {
		return models.ContentHash{}, fmt.Errorf("graph: put: %w", err)
	}
	if err := g.store.SetHead(worldline, n.ID); err != nil {
		return models.ContentHash{}, fmt.Errorf("graph: set head: %w", err)
	}
	return n.ID, nil
}

func extendsAHead(parents, heads []models.ContentHash) bool {
	headSet := make(map[models.ContentHash]bool, len(heads))
	for _, h := range heads {
		headSet[h] = true
	}
	for _, p := range parents {
		if headSet[p] {
			return true
		}
	}
	return false
}

func (g *Graph) Get(id models.ContentHash) (models.WllNode, bool, error) {
	return g.store.Get(id)
}

// ChainsFor returns every head (leaf with no known child yet) for a
// worldline.
func (g *Graph) ChainsFor(worldline models.WorldlineId) ([]models.ContentHash, error) {
	return g.store.Heads(worldline)
}

// QueryTimeRange returns all nodes for a worldline with timestamp in
// [t0, t1], sorted ascending by timestamp.
func (g *Graph) QueryTimeRange(worldline models.WorldlineId, t0, t1 time.Time) ([]models.WllNode, error) {
	nodes, err := g.store.ByWorldline(worldline)
	if err != nil {
		return nil, err
	}
	var out []models.WllNode
	for _, n := range nodes {
		if !n.Timestamp.Before(t0) && !n.Timestamp.After(t1) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// LatestStable returns the most recent node on any chain for worldline
// whose content type has reached at least Commitment — i.e. the furthest
// the evolution has been adjudicated.
func (g *Graph) LatestStable(worldline models.WorldlineId) (models.WllNode, bool, error) {
	nodes, err := g.store.ByWorldline(worldline)
	if err != nil {
		return models.WllNode{}, false, err
	}
	var best models.WllNode
	found := false
	commitStage, _ := models.StageIndex(models.NodeCommitment)
	for _, n := range nodes {
		idx, ok := models.StageIndex(n.Content.Kind)
		if !ok || idx < commitStage {
			continue
		}
		if !found || n.Timestamp.After(best.Timestamp) {
			best = n
			found = true
		}
	}
	return best, found, nil
}

// ValidateChain walks parents from leaf to an Intent root, verifying
// content-hash integrity and monotonic, non-backward stage sequencing
// (spec §4.1 "Validation of a chain").
func (g *Graph) ValidateChain(leaf models.ContentHash) error {
	id := leaf
	lastStage := -1
	seenIntent := false
	for {
		n, ok, err := g.store.Get(id)
		if err != nil {
			return fmt.Errorf("graph: lookup %s: %w", id, err)
		}
		if !ok {
			return models.NewRuntimeError(models.KindIntegrityFailure, fmt.Sprintf("node %s not found during chain walk", id))
		}

		recomputed := canonical.HashNode(n)
		if recomputed != n.ID {
			return models.NewRuntimeError(models.KindIntegrityFailure, fmt.Sprintf("node %s: stored id does not match recomputed hash", id))
		}

		stage, ok := models.StageIndex(n.Content.Kind)
		if !ok {
			return models.NewRuntimeError(models.KindIntegrityFailure, fmt.Sprintf("node %s has unknown stage kind", id))
		}
		if lastStage != -1 && stage > lastStage {
			return models.NewRuntimeError(models.KindIntegrityFailure, fmt.Sprintf("node %s: stage sequence moves backward walking from leaf to root", id))
		}
		lastStage = stage
		if n.Content.Kind == models.NodeIntent {
			seenIntent = true
			break
		}
		if len(n.ParentIDs) == 0 {
			break
		}
		id = n.ParentIDs[0]
	}
	if !seenIntent {
		return models.NewRuntimeError(models.KindIntegrityFailure, "chain does not reach an Intent root")
	}
	return nil
}
