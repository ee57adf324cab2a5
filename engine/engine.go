// Package engine is the per-unit background scheduler: it drives pull
// cycles for sources and push cycles for destinations, enforces at-most-one
// concurrent sync per unit, and records outcomes to the config store.
package engine

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RobbyV2/caldav-to-ics/caldav"
	"github.com/RobbyV2/caldav-to-ics/publish"
	"github.com/RobbyV2/caldav-to-ics/store"
)

const defaultContentType = "text/calendar; charset=utf-8"

// Config bounds the engine's HTTP behavior; every request made on behalf of
// a unit shares this timeout, per the per-request-timeout requirement.
type Config struct {
	HTTPTimeout time.Duration
}

// Engine owns the live set of scheduled units and the shared collaborators
// a cycle needs.
type Engine struct {
	db        *store.DB
	publisher *publish.Publisher
	logger    *zap.Logger
	cfg       Config
	client    *http.Client

	mu           sync.RWMutex
	sources      map[int64]*unit
	destinations map[int64]*unit
}

func New(db *store.DB, publisher *publish.Publisher, logger *zap.Logger, cfg Config) *Engine {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	return &Engine{
		db:           db,
		publisher:    publisher,
		logger:       logger,
		cfg:          cfg,
		client:       &http.Client{Timeout: cfg.HTTPTimeout},
		sources:      make(map[int64]*unit),
		destinations: make(map[int64]*unit),
	}
}

// LoadAll registers every persisted source and destination as a scheduled
// unit. Call once at startup after opening the store.
func (e *Engine) LoadAll() error {
	sources, err := e.db.ListSources()
	if err != nil {
		return err
	}
	for _, s := range sources {
		if len(s.CachedBody) > 0 {
			contentType := s.CachedType
			if contentType == "" {
				contentType = defaultContentType
			}
			lastMod := time.Now()
			if s.CachedAt != nil {
				lastMod = *s.CachedAt
			}
			e.publisher.Set(s.ICSPath, publish.Body{ContentType: contentType, Data: s.CachedBody, LastMod: lastMod})
		}
		e.RegisterSource(s)
	}

	dests, err := e.db.ListDestinations()
	if err != nil {
		return err
	}
	for _, d := range dests {
		e.RegisterDestination(d)
	}
	return nil
}

// RegisterSource schedules a newly created source, starting its ticker
// immediately.
func (e *Engine) RegisterSource(s *store.Source) {
	interval := time.Duration(s.SyncIntervalSecs) * time.Second
	id := s.ID
	u := newUnit("source", id, interval, func(ctx context.Context) {
		e.runSourceCycle(ctx, id)
	}, e.logger)

	e.mu.Lock()
	e.sources[id] = u
	e.mu.Unlock()
	u.start()
}

// RegisterDestination schedules a newly created destination.
func (e *Engine) RegisterDestination(d *store.Destination) {
	interval := time.Duration(d.SyncIntervalSecs) * time.Second
	id := d.ID
	u := newUnit("destination", id, interval, func(ctx context.Context) {
		e.runDestinationCycle(ctx, id)
	}, e.logger)

	e.mu.Lock()
	e.destinations[id] = u
	e.mu.Unlock()
	u.start()
}

// ReloadSource re-registers a source's timer with its current interval after
// an API update. Any in-flight cycle finishes under the old policy.
func (e *Engine) ReloadSource(id int64, intervalSecs int) {
	e.mu.RLock()
	u, ok := e.sources[id]
	e.mu.RUnlock()
	if ok {
		u.reload(time.Duration(intervalSecs) * time.Second)
	}
}

func (e *Engine) ReloadDestination(id int64, intervalSecs int) {
	e.mu.RLock()
	u, ok := e.destinations[id]
	e.mu.RUnlock()
	if ok {
		u.reload(time.Duration(intervalSecs) * time.Second)
	}
}

// RemoveSource stops a source's unit and waits for it to settle before the
// caller deletes the underlying record.
func (e *Engine) RemoveSource(id int64) {
	e.mu.Lock()
	u, ok := e.sources[id]
	delete(e.sources, id)
	e.mu.Unlock()
	if ok {
		u.remove()
	}
}

func (e *Engine) RemoveDestination(id int64) {
	e.mu.Lock()
	u, ok := e.destinations[id]
	delete(e.destinations, id)
	e.mu.Unlock()
	if ok {
		u.remove()
	}
}

// TriggerSource asks a source's unit to run immediately.
func (e *Engine) TriggerSource(id int64) (TriggerResult, bool) {
	e.mu.RLock()
	u, ok := e.sources[id]
	e.mu.RUnlock()
	if !ok {
		return AlreadyRunning, false
	}
	return u.tryTrigger(), true
}

func (e *Engine) TriggerDestination(id int64) (TriggerResult, bool) {
	e.mu.RLock()
	u, ok := e.destinations[id]
	e.mu.RUnlock()
	if !ok {
		return AlreadyRunning, false
	}
	return u.tryTrigger(), true
}

// TestSourceConnection runs only CalDAV discovery for a source — no
// listing, no writes, no mutation of status fields — and reports whether
// the configured base URL resolves to a calendar collection.
func (e *Engine) TestSourceConnection(ctx context.Context, s *store.Source) error {
	client := caldav.NewClient(e.client, s.Username, s.Password)
	_, err := client.DiscoverCalendarURL(ctx, s.CalDAVBaseURL, "")
	return err
}

// TestDestinationConnection is the destination analogue of
// TestSourceConnection.
func (e *Engine) TestDestinationConnection(ctx context.Context, d *store.Destination) error {
	client := caldav.NewClient(e.client, d.Username, d.Password)
	_, err := client.DiscoverCalendarURL(ctx, d.CalDAVBaseURL, d.CalendarName)
	return err
}
