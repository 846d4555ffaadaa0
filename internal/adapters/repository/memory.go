package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/okian/shootsim/internal/domain/model"
)

// Treap-based, in-memory Store implementation.
//
// In-order traversal yields sessions from best to worst, so TopN walks the
// left spine and stops after n nodes.

type node struct {
	result model.SessionResult
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n, nn *node) *node {
	if n == nil {
		nn.size = 1
		return nn
	}
	if before(&nn.result, &n.result) {
		n.left = insert(n.left, nn)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, nn)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// deleteLast removes the worst ranked node.
func deleteLast(n *node) *node {
	if n == nil {
		return nil
	}
	if n.right == nil {
		return n.left
	}
	n.right = deleteLast(n.right)
	fix(n)
	return n
}

func collectTopN(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) >= limit {
		return
	}
	*out = append(*out, Entry{Rank: len(*out) + 1, SessionResult: n.result})
	collectTopN(n.right, limit, out)
}

// MemoryStore keeps sessions in a treap ordered by rank.
type MemoryStore struct {
	mu       sync.RWMutex
	root     *node
	ids      map[string]struct{}
	capacity int
	closed   bool
}

// NewMemoryStore creates an empty in-memory session log.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{ids: make(map[string]struct{})}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record inserts r. When a capacity is set the worst session is evicted
// once it is exceeded.
func (s *MemoryStore) Record(ctx context.Context, r model.SessionResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidSession)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.ids[r.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, r.ID)
	}

	s.root = insert(s.root, &node{result: r, prio: rand.Uint64()})
	s.ids[r.ID] = struct{}{}
	if s.capacity > 0 && nsize(s.root) > s.capacity {
		worst := s.last()
		s.root = deleteLast(s.root)
		delete(s.ids, worst)
	}
	return nil
}

func (s *MemoryStore) last() string {
	n := s.root
	for n.right != nil {
		n = n.right
	}
	return n.result.ID
}

// TopN returns the best n sessions.
func (s *MemoryStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]Entry, 0, min(n, nsize(s.root)))
	collectTopN(s.root, n, &out)
	return out, nil
}

// Count returns the number of sessions kept.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nsize(s.root)
}

// Close drops all sessions.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = nil
	s.ids = nil
	s.closed = true
	return nil
}

var _ Store = (*MemoryStore)(nil)
