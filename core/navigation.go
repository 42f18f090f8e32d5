package core

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"pkt.systems/mongoui/internal/logx"
	"pkt.systems/mongoui/schema"
)

// CollectionLister lists the collections of a database.
type CollectionLister interface {
	ListCollections(ctx context.Context, req schema.ListCollectionsRequest) ([]schema.CollectionName, error)
}

// BufferOpener opens workspace buffers.
type BufferOpener interface {
	OpenBuffer(ctx context.Context, req schema.OpenBufferRequest) (schema.OpenBufferResponse, error)
}

// TreeNode is a read-only copy of a navigation node. Depth 0 nodes are
// databases, depth 1 nodes are collections.
type TreeNode struct {
	Name     string
	Children []TreeNode
	Fetched  bool
	Expanded bool
}

type dbNode struct {
	name        schema.TargetName
	collections []schema.CollectionName
	fetched     bool
	expanded    bool
}

// NavigationTree is the database and collection sidebar of one connection.
// Collections are fetched at most once per database; concurrent expansions
// share a single backend call.
type NavigationTree struct {
	lister CollectionLister
	opener BufferOpener
	conn   schema.ConnectionID
	group  singleflight.Group

	mu  sync.Mutex
	dbs []*dbNode
}

// NewNavigationTree builds the tree from the database names returned by a
// connect call.
func NewNavigationTree(conn schema.ConnectionID, databases []schema.TargetName, lister CollectionLister, opener BufferOpener) (*NavigationTree, error) {
	if lister == nil {
		return nil, schema.ErrBackendUnavailable
	}
	if opener == nil {
		return nil, errors.New("buffer opener is required")
	}
	dbs := make([]*dbNode, 0, len(databases))
	for _, name := range databases {
		dbs = append(dbs, &dbNode{name: name})
	}
	return &NavigationTree{lister: lister, opener: opener, conn: conn, dbs: dbs}, nil
}

// Expand fetches the collections of db once and marks it expanded.
func (t *NavigationTree) Expand(ctx context.Context, db schema.TargetName) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	t.mu.Lock()
	node := t.findLocked(db)
	if node == nil {
		t.mu.Unlock()
		return schema.ErrTargetNotFound
	}
	fetched := node.fetched
	t.mu.Unlock()

	if !fetched {
		if err := t.fetch(ctx, db); err != nil {
			return err
		}
	}

	t.mu.Lock()
	node.expanded = true
	t.mu.Unlock()
	return nil
}

// Collapse hides the children of db. Fetched collections are kept.
func (t *NavigationTree) Collapse(db schema.TargetName) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	node := t.findLocked(db)
	if node == nil {
		return schema.ErrTargetNotFound
	}
	node.expanded = false
	return nil
}

// Toggle expands a collapsed database or collapses an expanded one.
func (t *NavigationTree) Toggle(ctx context.Context, db schema.TargetName) error {
	t.mu.Lock()
	node := t.findLocked(db)
	if node == nil {
		t.mu.Unlock()
		return schema.ErrTargetNotFound
	}
	expanded := node.expanded
	t.mu.Unlock()
	if expanded {
		return t.Collapse(db)
	}
	return t.Expand(ctx, db)
}

// OpenCollection opens a buffer on db seeded with a find over collection.
func (t *NavigationTree) OpenCollection(ctx context.Context, db schema.TargetName, collection schema.CollectionName) (schema.BufferID, error) {
	if ctx == nil {
		return 0, errors.New("missing context")
	}
	if collection == "" {
		return 0, schema.ErrInvalidRequest
	}
	resp, err := t.opener.OpenBuffer(ctx, schema.OpenBufferRequest{Target: db, Collection: collection})
	if err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// Click activates the node at path. A database path toggles the database and
// returns zero; a collection path opens a buffer and returns its id.
func (t *NavigationTree) Click(ctx context.Context, path []int) (schema.BufferID, error) {
	if ctx == nil {
		return 0, errors.New("missing context")
	}
	t.mu.Lock()
	if len(path) == 0 || len(path) > 2 || path[0] < 0 || path[0] >= len(t.dbs) {
		t.mu.Unlock()
		return 0, schema.ErrInvalidRequest
	}
	node := t.dbs[path[0]]
	db := node.name
	if len(path) == 1 {
		t.mu.Unlock()
		return 0, t.Toggle(ctx, db)
	}
	if !node.fetched || path[1] < 0 || path[1] >= len(node.collections) {
		t.mu.Unlock()
		return 0, schema.ErrInvalidRequest
	}
	collection := node.collections[path[1]]
	t.mu.Unlock()
	return t.OpenCollection(ctx, db, collection)
}

// Nodes returns a copy of the tree.
func (t *NavigationTree) Nodes() []TreeNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TreeNode, 0, len(t.dbs))
	for _, node := range t.dbs {
		copyNode := TreeNode{Name: string(node.name), Fetched: node.fetched, Expanded: node.expanded}
		for _, coll := range node.collections {
			copyNode.Children = append(copyNode.Children, TreeNode{Name: string(coll)})
		}
		out = append(out, copyNode)
	}
	return out
}

// Connection returns the connection the tree was built from.
func (t *NavigationTree) Connection() schema.ConnectionID {
	return t.conn
}

func (t *NavigationTree) fetch(ctx context.Context, db schema.TargetName) error {
	_, err, shared := t.group.Do(string(db), func() (any, error) {
		t.mu.Lock()
		node := t.findLocked(db)
		if node != nil && node.fetched {
			t.mu.Unlock()
			return nil, nil
		}
		t.mu.Unlock()
		collections, err := t.lister.ListCollections(ctx, schema.ListCollectionsRequest{ConnectionID: t.conn, Database: db})
		if err != nil {
			return nil, err
		}
		t.mu.Lock()
		if node != nil {
			node.collections = append([]schema.CollectionName(nil), collections...)
			node.fetched = true
		}
		t.mu.Unlock()
		return nil, nil
	})
	log := logx.WithTarget(logx.WithConnection(ctx, t.conn), db)
	if err != nil {
		log.Warn("navigation fetch failed", "err", err, "shared", shared)
		var connErr *schema.ConnectionError
		if errors.As(err, &connErr) {
			return err
		}
		return schema.NewConnectionError("list collections", err)
	}
	log.Debug("navigation fetched", "shared", shared)
	return nil
}

func (t *NavigationTree) findLocked(db schema.TargetName) *dbNode {
	for _, node := range t.dbs {
		if node.name == db {
			return node
		}
	}
	return nil
}
