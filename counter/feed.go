package counter

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	lru "github.com/hashicorp/golang-lru"
	"github.com/tos-network/starkcounter"
	"github.com/tos-network/starkcounter/params"
	"github.com/tos-network/starkcounter/starkclient"
)

var (
	eventsInMeter      = metrics.NewRegisteredMeter("feed/events/in", nil)
	eventsDupMeter     = metrics.NewRegisteredMeter("feed/events/duplicate", nil)
	eventsInvalidMeter = metrics.NewRegisteredMeter("feed/events/invalid", nil)
)

// EventSource serves the chain queries the feed needs. It is implemented by
// *starkclient.Client.
type EventSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	Events(ctx context.Context, q starkcounter.EventFilter) (*starkclient.EventsPage, error)
}

// EventStore persists the history of a feed between runs.
type EventStore interface {
	// Load returns the stored events of contract, oldest first, and the
	// block the next sync starts from.
	Load(contract *starkcounter.Felt) ([]*CounterChanged, uint64, error)

	// Append adds events to the history of contract and records the block
	// the next sync starts from.
	Append(contract *starkcounter.Felt, events []*CounterChanged, next uint64) error
}

// FeedConfig tunes a Feed.
type FeedConfig struct {
	FromBlock    uint64
	ChunkSize    int
	CacheSize    int
	PollInterval time.Duration
	Store        EventStore // optional
}

// Feed keeps the CounterChanged history of a contract.
type Feed struct {
	source   EventSource
	contract *starkcounter.Felt
	chunk    int
	interval time.Duration
	from     uint64
	store    EventStore

	syncMu  sync.Mutex // serializes Sync
	next    uint64
	unsaved []*CounterChanged // added but not yet in the store

	mu     sync.RWMutex
	events []*CounterChanged // oldest first
	seen   *lru.Cache

	feed event.Feed
}

// NewFeed creates a feed for the contract at address.
func NewFeed(source EventSource, address *starkcounter.Felt, cfg FeedConfig) *Feed {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = params.DefaultEventChunkSize
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = params.DefaultFeedCacheSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = params.DefaultPollingInterval
	}
	seen, _ := lru.New(cfg.CacheSize)
	return &Feed{
		source:   source,
		contract: address,
		chunk:    cfg.ChunkSize,
		interval: cfg.PollInterval,
		from:     cfg.FromBlock,
		store:    cfg.Store,
		next:     cfg.FromBlock,
		seen:     seen,
	}
}

// Restore loads the history kept by the event store, so the next Sync only
// scans blocks that were not seen before. Stored events older than the
// configured start block are dropped. It must be called before the first
// Sync.
func (f *Feed) Restore() (int, error) {
	if f.store == nil {
		return 0, nil
	}
	stored, next, err := f.store.Load(f.contract)
	if err != nil {
		return 0, err
	}
	f.syncMu.Lock()
	defer f.syncMu.Unlock()
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	for _, ev := range stored {
		if ev.BlockNumber < f.from {
			continue
		}
		if ok, _ := f.seen.ContainsOrAdd(ev.key(), struct{}{}); ok {
			continue
		}
		f.events = append(f.events, ev)
		n++
	}
	if next > f.next {
		f.next = next
	}
	log.Debug("Restored counter events", "contract", f.contract, "events", n, "next", f.next)
	return n, nil
}

// SubscribeEvents delivers every new event after it is added to the history.
func (f *Feed) SubscribeEvents(ch chan<- *CounterChanged) event.Subscription {
	return f.feed.Subscribe(ch)
}

// Sync fetches events up to the current head and returns how many new ones
// were added. The head block is scanned again on the next call, so events
// already seen are skipped. Pages are only added to the history once the
// whole range was fetched; a failed sync leaves the feed untouched.
func (f *Feed) Sync(ctx context.Context) (int, error) {
	f.syncMu.Lock()
	defer f.syncMu.Unlock()

	head, err := f.source.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	if head < f.next {
		return 0, nil
	}
	from, to := starkcounter.BlockNumber(f.next), starkcounter.BlockNumber(head)
	filter := starkcounter.EventFilter{
		FromBlock: &from,
		ToBlock:   &to,
		Address:   f.contract,
		Keys:      [][]*starkcounter.Felt{{CounterChangedSelector}},
		ChunkSize: f.chunk,
	}
	var staged []starkcounter.EmittedEvent
	for {
		page, err := f.source.Events(ctx, filter)
		if err != nil {
			return 0, err
		}
		staged = append(staged, page.Events...)
		if page.ContinuationToken == "" {
			break
		}
		filter.ContinuationToken = page.ContinuationToken
	}
	added := f.add(staged)
	f.next = head
	f.persist(added, head)
	f.publish(added)
	return len(added), nil
}

// persist appends added and any events left over from a failed append to the
// store. Leftovers are retried on the next sync.
func (f *Feed) persist(added []*CounterChanged, next uint64) {
	if f.store == nil {
		return
	}
	pending := append(f.unsaved, added...)
	if err := f.store.Append(f.contract, pending, next); err != nil {
		log.Warn("Failed to persist counter events", "contract", f.contract, "pending", len(pending), "err", err)
		f.unsaved = pending
		return
	}
	f.unsaved = nil
}

func (f *Feed) add(raw []starkcounter.EmittedEvent) []*CounterChanged {
	f.mu.Lock()
	defer f.mu.Unlock()

	var added []*CounterChanged
	for _, ev := range raw {
		decoded, err := DecodeCounterChanged(ev)
		if err != nil {
			eventsInvalidMeter.Mark(1)
			log.Warn("Skipping undecodable event", "tx", ev.TransactionHash, "block", ev.BlockNumber, "err", err)
			continue
		}
		if ok, _ := f.seen.ContainsOrAdd(decoded.key(), struct{}{}); ok {
			eventsDupMeter.Mark(1)
			continue
		}
		f.events = append(f.events, decoded)
		added = append(added, decoded)
	}
	eventsInMeter.Mark(int64(len(added)))
	return added
}

func (f *Feed) publish(added []*CounterChanged) {
	for _, ev := range added {
		f.feed.Send(ev)
	}
}

// Recent returns up to n events, newest first. A non-positive n selects the
// default feed length.
func (f *Feed) Recent(n int) []*CounterChanged {
	if n <= 0 {
		n = params.DefaultFeedLength
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	if n > len(f.events) {
		n = len(f.events)
	}
	out := make([]*CounterChanged, 0, n)
	for i := len(f.events) - 1; i >= len(f.events)-n; i-- {
		out = append(out, f.events[i])
	}
	return out
}

// Len returns the number of events in the history.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.events)
}

// Watch syncs the feed periodically until ctx is cancelled. Sync errors are
// logged and retried on the next tick.
func (f *Feed) Watch(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		if n, err := f.Sync(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("Failed to sync counter events", "contract", f.contract, "err", err)
		} else if n > 0 {
			log.Debug("Synced counter events", "new", n, "total", f.Len())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
