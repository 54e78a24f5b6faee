package agents

import (
	"container/list"
	"context"
	"sync"
	"time"

	"trusio/internal/domain/budget"
	"trusio/internal/domain/conversation"
	"trusio/internal/domain/memory"
	"trusio/internal/metrics"
	"trusio/pkg/errors"
	"trusio/pkg/logger"
)

// AgentContext is the assembled working set one agent execution reasons
// over: the financial snapshot, recent conversation, and the memory profile.
type AgentContext struct {
	UserID    string
	SessionID string
	AgentName string

	Snapshot    *budget.Snapshot
	RecentTurns []conversation.Entry
	Profile     *memory.Profile

	BuiltAt time.Time
}

type cacheKey struct {
	userID    string
	sessionID string
	agentName string
}

type cacheEntry struct {
	key     cacheKey
	value   *AgentContext
	builtAt time.Time
}

// ContextCacheOptions bounds the cache.
type ContextCacheOptions struct {
	Size        int
	TTL         time.Duration
	HistorySize int
	Sweep       time.Duration
}

// ContextCache memoizes assembled agent contexts keyed by (user, session,
// agent) with a TTL and LRU eviction. Concurrent builds for the same key are
// collapsed so the persistence layer sees one read.
type ContextCache struct {
	budget    budget.Repository
	conv      *conversation.Service
	memorySvc *memory.Service
	opts      ContextCacheOptions
	log       *logger.Logger

	mu       sync.Mutex
	entries  map[cacheKey]*list.Element
	lru      *list.List
	building map[cacheKey]chan struct{}
	doomed   map[cacheKey]struct{}

	stopOnce sync.Once
	stop     chan struct{}
}

// NewContextCache constructs the cache. Call StartSweep to enable background
// expiry and Stop on shutdown.
func NewContextCache(budgetRepo budget.Repository, conv *conversation.Service, memorySvc *memory.Service, opts ContextCacheOptions) *ContextCache {
	if opts.Size <= 0 {
		opts.Size = 256
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 20
	}
	return &ContextCache{
		budget:    budgetRepo,
		conv:      conv,
		memorySvc: memorySvc,
		opts:      opts,
		log:       logger.Get().With("component", "context_cache"),
		entries:   make(map[cacheKey]*list.Element),
		lru:       list.New(),
		building:  make(map[cacheKey]chan struct{}),
		doomed:    make(map[cacheKey]struct{}),
		stop:      make(chan struct{}),
	}
}

// Get returns the cached context for the triple, building it on a miss.
// Within the TTL repeated calls reuse the cached copy without touching
// persistence.
func (c *ContextCache) Get(ctx context.Context, userID, sessionID, agentName string) (*AgentContext, error) {
	if userID == "" || sessionID == "" || agentName == "" {
		return nil, errors.ErrInvalidInput
	}
	key := cacheKey{userID: userID, sessionID: sessionID, agentName: agentName}

	for {
		c.mu.Lock()
		if elem, ok := c.entries[key]; ok {
			entry := elem.Value.(*cacheEntry)
			if time.Since(entry.builtAt) < c.opts.TTL {
				c.lru.MoveToFront(elem)
				c.mu.Unlock()
				metrics.ContextCacheHits.Inc()
				return entry.value, nil
			}
			c.removeLocked(elem)
		}

		// Another goroutine may already be building this key; wait for it
		// and re-check instead of issuing a duplicate persistence read.
		if inflight, ok := c.building[key]; ok {
			c.mu.Unlock()
			select {
			case <-inflight:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		done := make(chan struct{})
		c.building[key] = done
		c.mu.Unlock()

		value, err := c.build(ctx, key)

		c.mu.Lock()
		delete(c.building, key)
		close(done)
		_, stale := c.doomed[key]
		delete(c.doomed, key)
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		if stale {
			// An Invalidate landed while we were reading; the assembled
			// context predates it. Discard and rebuild.
			c.mu.Unlock()
			continue
		}
		c.insertLocked(key, value)
		c.mu.Unlock()

		metrics.ContextCacheMisses.Inc()
		return value, nil
	}
}

func (c *ContextCache) build(ctx context.Context, key cacheKey) (*AgentContext, error) {
	snapshot, err := c.budget.GetSnapshot(ctx, key.userID)
	if err != nil {
		return nil, errors.Wrap(err, "build context: snapshot")
	}

	turns, err := c.conv.Recent(ctx, key.userID, key.sessionID, c.opts.HistorySize)
	if err != nil {
		return nil, errors.Wrap(err, "build context: history")
	}

	profile, err := c.memorySvc.GetProfile(ctx, key.userID, false)
	if err != nil {
		return nil, errors.Wrap(err, "build context: profile")
	}

	return &AgentContext{
		UserID:      key.userID,
		SessionID:   key.sessionID,
		AgentName:   key.agentName,
		Snapshot:    snapshot,
		RecentTurns: turns,
		Profile:     profile,
		BuiltAt:     time.Now(),
	}, nil
}

func (c *ContextCache) insertLocked(key cacheKey, value *AgentContext) {
	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}
	elem := c.lru.PushFront(&cacheEntry{key: key, value: value, builtAt: value.BuiltAt})
	c.entries[key] = elem

	for c.lru.Len() > c.opts.Size {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
		metrics.ContextCacheEvictions.Inc()
	}
}

func (c *ContextCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.lru.Remove(elem)
}

// Invalidate drops every cached context for the user and session, across all
// agents. Call it after anything that changes what a context would contain.
func (c *ContextCache) Invalidate(userID, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, elem := range c.entries {
		if key.userID == userID && key.sessionID == sessionID {
			c.removeLocked(elem)
		}
	}
	// Builds in flight started before this invalidation; their results must
	// not be cached.
	for key := range c.building {
		if key.userID == userID && key.sessionID == sessionID {
			c.doomed[key] = struct{}{}
		}
	}
}

// Len reports the number of live entries.
func (c *ContextCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// StartSweep launches the background expiry loop.
func (c *ContextCache) StartSweep() {
	interval := c.opts.Sweep
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.stop:
				return
			}
		}
	}()
}

func (c *ContextCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*cacheEntry)
		if time.Since(entry.builtAt) >= c.opts.TTL {
			c.removeLocked(elem)
			removed++
		}
		elem = prev
	}
	if removed > 0 {
		c.log.Debugf("swept %d expired contexts", removed)
	}
}

// Stop terminates the sweep loop. Safe to call more than once.
func (c *ContextCache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
