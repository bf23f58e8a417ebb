// Package storelist maintains an in-memory ordered list of stores
// mirroring the paged remote collection, growing monotonically as pages
// are requested, with optimistic visit toggling reflected locally before
// remote confirmation.
package storelist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/marcus/visita/internal/models"
)

// DefaultPageSize matches the remote's default page length.
const DefaultPageSize = 20

var (
	// ErrStaleLoad means a page response arrived after a reset
	// invalidated it; its records were discarded.
	ErrStaleLoad = errors.New("stale page load discarded")
	// ErrUnknownStore means the store is not in the accumulated list.
	ErrUnknownStore = errors.New("store not in list")
)

// Remote is the slice of the API client the list depends on.
type Remote interface {
	ListStores(ctx context.Context, page, pageSize int, filters models.StoreFilters) ([]models.Store, error)
	SearchStores(ctx context.Context, query string) ([]models.Store, error)
	LogVisit(ctx context.Context, storeID int64, visitType models.VisitType) (*models.VisitLog, error)
	ClearVisit(ctx context.Context, storeID int64, visitType models.VisitType) error
}

// ToggleState tracks a store's optimistic-update lifecycle.
type ToggleState int

const (
	ToggleClean ToggleState = iota
	ToggleOptimistic
	ToggleReverting
)

type entry struct {
	store  models.Store
	toggle ToggleState
}

// List accumulates store pages from the remote. All exported methods are
// safe for concurrent use; page loads are serialized so pages are always
// requested and applied in increasing order, and per-store toggles are
// serialized to avoid lost updates between the physical and phone
// channels.
type List struct {
	remote   Remote
	pageSize int

	// loadMu serializes page loads and searches: never two list-shaping
	// requests in flight at once.
	loadMu sync.Mutex

	mu         sync.Mutex
	page       int
	hasMore    bool
	searchMode bool
	epoch      uint64
	entries    []entry

	togglesMu sync.Mutex
	toggles   map[int64]*sync.Mutex
}

// New creates an empty list in paged browse mode.
func New(remote Remote, pageSize int) *List {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &List{
		remote:   remote,
		pageSize: pageSize,
		hasMore:  true,
		toggles:  make(map[int64]*sync.Mutex),
	}
}

// LoadNextPage fetches the next page with the given filters and appends
// it. Appending is all-or-nothing: on a remote error nothing is appended
// and the page cursor does not advance. Once a short page has been seen,
// further calls are no-ops. Returns the number of records appended.
func (l *List) LoadNextPage(ctx context.Context, filters models.StoreFilters) (int, error) {
	l.loadMu.Lock()
	defer l.loadMu.Unlock()

	l.mu.Lock()
	if !l.hasMore || l.searchMode {
		l.mu.Unlock()
		return 0, nil
	}
	page := l.page
	epoch := l.epoch
	l.mu.Unlock()

	stores, err := l.remote.ListStores(ctx, page, l.pageSize, filters)
	if err != nil {
		return 0, fmt.Errorf("load page %d: %w", page, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.epoch != epoch {
		// A reset raced this load; the response belongs to the old view.
		slog.Debug("storelist: discarding stale page", "page", page)
		return 0, ErrStaleLoad
	}

	for _, s := range stores {
		l.entries = append(l.entries, entry{store: s})
	}
	l.page++
	l.hasMore = len(stores) == l.pageSize
	return len(stores), nil
}

// ResetAndReload clears the accumulated state and loads page 0 with the
// given filters. Any in-flight page load's effect is invalidated.
func (l *List) ResetAndReload(ctx context.Context, filters models.StoreFilters) (int, error) {
	l.mu.Lock()
	l.epoch++
	l.page = 0
	l.hasMore = true
	l.searchMode = false
	l.entries = nil
	l.mu.Unlock()

	return l.LoadNextPage(ctx, filters)
}

// Search replaces the full list with a free-text lookup, leaving paged
// mode. A blank query restores paged browse from page 0.
func (l *List) Search(ctx context.Context, query string, filters models.StoreFilters) (int, error) {
	if strings.TrimSpace(query) == "" {
		return l.ResetAndReload(ctx, filters)
	}

	l.loadMu.Lock()
	defer l.loadMu.Unlock()

	stores, err := l.remote.SearchStores(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("search stores: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.epoch++
	l.page = 0
	l.hasMore = false
	l.searchMode = true
	l.entries = l.entries[:0]
	for _, s := range stores {
		l.entries = append(l.entries, entry{store: s})
	}
	return len(stores), nil
}

// ClearSearch leaves search mode and restores paged browsing from page 0.
func (l *List) ClearSearch(ctx context.Context, filters models.StoreFilters) (int, error) {
	return l.ResetAndReload(ctx, filters)
}

// ToggleVisit flips a store's visited state for the given channel, applying
// the change locally before the remote write and reverting it on failure.
// Toggles for the same store are serialized; a second toggle waits for the
// in-flight one to settle. Returns the confirmed visited state.
func (l *List) ToggleVisit(ctx context.Context, storeID int64, visitType models.VisitType) (bool, error) {
	lock := l.toggleLock(storeID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()

	// Apply the optimistic flip synchronously, before any await point,
	// so no reader ever observes a half-updated store.
	l.mu.Lock()
	e := l.findEntry(storeID)
	if e == nil {
		l.mu.Unlock()
		return false, ErrUnknownStore
	}
	prevVisited := e.store.Visited
	prevLastVisit := e.store.LastVisit
	prevLogs := append([]models.VisitLog(nil), e.store.VisitLogs...)

	turningOn := !e.store.Visited
	if turningOn {
		t := now
		e.store.Visited = true
		e.store.LastVisit = &t
		l.upsertLocalLog(e, visitType, now)
	} else {
		e.store.Visited = false
		e.store.LastVisit = nil
		l.dropLocalLogs(e, visitType, now)
	}
	e.toggle = ToggleOptimistic
	l.mu.Unlock()

	var remoteErr error
	var confirmed *models.VisitLog
	if turningOn {
		confirmed, remoteErr = l.remote.LogVisit(ctx, storeID, visitType)
	} else {
		remoteErr = l.remote.ClearVisit(ctx, storeID, visitType)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e = l.findEntry(storeID)
	if e == nil {
		// The list was reset or replaced while the write was in flight;
		// there is no local state left to confirm or revert.
		return turningOn && remoteErr == nil, remoteErr
	}

	if remoteErr != nil {
		e.toggle = ToggleReverting
		e.store.Visited = prevVisited
		e.store.LastVisit = prevLastVisit
		e.store.VisitLogs = prevLogs
		e.toggle = ToggleClean
		return prevVisited, remoteErr
	}

	if confirmed != nil {
		// Adopt the server-assigned log id for today's entry.
		for i := range e.store.VisitLogs {
			if sameLocalDay(e.store.VisitLogs[i].VisitedAt, confirmed.VisitedAt) &&
				e.store.VisitLogs[i].VisitType == confirmed.VisitType {
				e.store.VisitLogs[i] = *confirmed
				break
			}
		}
	}
	e.toggle = ToggleClean
	return e.store.Visited, nil
}

// Stores returns a copy of the accumulated records in display order.
// Nested slices are copied too, so a snapshot never changes under a
// later toggle.
func (l *List) Stores() []models.Store {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Store, len(l.entries))
	for i := range l.entries {
		out[i] = cloneStore(l.entries[i].store)
	}
	return out
}

// cloneStore copies a store deeply enough that the caller and the list
// share no backing arrays.
func cloneStore(s models.Store) models.Store {
	if s.VisitDays != nil {
		s.VisitDays = append([]int(nil), s.VisitDays...)
	}
	if s.VisitLogs != nil {
		s.VisitLogs = append([]models.VisitLog(nil), s.VisitLogs...)
	}
	if s.Orders != nil {
		orders := make([]models.Order, len(s.Orders))
		for i, o := range s.Orders {
			if o.Items != nil {
				o.Items = append([]models.OrderItem(nil), o.Items...)
			}
			orders[i] = o
		}
		s.Orders = orders
	}
	return s
}

// HasMore reports whether another page may exist.
func (l *List) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMore
}

// Page returns the next page cursor.
func (l *List) Page() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

// InSearchMode reports whether the list currently holds search results.
func (l *List) InSearchMode() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.searchMode
}

// Len returns the number of accumulated stores.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// State returns a store's toggle lifecycle state.
func (l *List) State(storeID int64) ToggleState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e := l.findEntry(storeID); e != nil {
		return e.toggle
	}
	return ToggleClean
}

// findEntry returns the entry for a store id. Caller holds l.mu.
func (l *List) findEntry(storeID int64) *entry {
	for i := range l.entries {
		if l.entries[i].store.ID == storeID {
			return &l.entries[i]
		}
	}
	return nil
}

// upsertLocalLog mirrors the server's find-or-create-for-today on the
// local copy: one log per type per local calendar day, repeat toggles
// update the timestamp. Caller holds l.mu.
func (l *List) upsertLocalLog(e *entry, visitType models.VisitType, now time.Time) {
	for i := range e.store.VisitLogs {
		log := &e.store.VisitLogs[i]
		if log.VisitType == visitType && sameLocalDay(log.VisitedAt, now) {
			log.VisitedAt = now
			return
		}
	}
	// Logs are kept newest first.
	e.store.VisitLogs = append([]models.VisitLog{{
		StoreID:   e.store.ID,
		VisitedAt: now,
		VisitType: visitType,
	}}, e.store.VisitLogs...)
}

// dropLocalLogs removes today's logs of the given type. Caller holds l.mu.
func (l *List) dropLocalLogs(e *entry, visitType models.VisitType, now time.Time) {
	kept := e.store.VisitLogs[:0]
	for _, log := range e.store.VisitLogs {
		if log.VisitType == visitType && sameLocalDay(log.VisitedAt, now) {
			continue
		}
		kept = append(kept, log)
	}
	e.store.VisitLogs = kept
}

// toggleLock returns the per-store serialization lock.
func (l *List) toggleLock(storeID int64) *sync.Mutex {
	l.togglesMu.Lock()
	defer l.togglesMu.Unlock()
	lock, ok := l.toggles[storeID]
	if !ok {
		lock = &sync.Mutex{}
		l.toggles[storeID] = lock
	}
	return lock
}

// sameLocalDay reports whether two instants fall on the same calendar day
// in local time.
func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
